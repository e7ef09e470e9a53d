package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "img2sheet",
		Short: "Convert images of tables or text into spreadsheets",
		Long: `img2sheet uploads an image to the conversion service, shows the extracted
table, applies optional cell edits and saves the result as an .xlsx workbook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd(), newInspectCmd())
	return root
}

// reportError prints err the way the workflow status line does for
// conversion failures, and plainly for everything else.
func reportError(w io.Writer, err error) {
	var userErr *userFacingError
	if errors.As(err, &userErr) {
		fmt.Fprintf(w, "Try Again: %s\n", userErr.Error())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func printGrid(w io.Writer, grid [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range grid {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
