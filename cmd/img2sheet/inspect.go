package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/image-to-excel/internal/bootstrap"
	"github.com/kirillkom/image-to-excel/internal/config"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/spreadsheet/xlsx"
	"github.com/kirillkom/image-to-excel/internal/observability/logging"
)

func newInspectCmd() *cobra.Command {
	var (
		sheet       string
		fromStorage bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Print the cells of an exported workbook",
		Long: `inspect prints a workbook from a local path, or with --stored the object
saved under that key in the configured export storage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if fromStorage {
				data, err = readStored(cmd, args[0])
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read workbook: %w", err)
			}

			if sheet == "" {
				names, err := xlsx.SheetNames(data)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return fmt.Errorf("workbook has no sheets")
				}
				sheet = names[0]
			}
			grid, err := xlsx.ReadGrid(data, sheet)
			if err != nil {
				return err
			}
			return printGrid(cmd.OutOrStdout(), grid)
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet to print (defaults to the first sheet)")
	cmd.Flags().BoolVar(&fromStorage, "stored", false, "treat the argument as a key in the configured export storage")
	return cmd
}

func readStored(cmd *cobra.Command, key string) ([]byte, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "img2sheet", cfg.LogLevel)
	app, err := bootstrap.New(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	rc, err := app.Storage.Open(cmd.Context(), key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
