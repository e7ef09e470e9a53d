package main

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/image-to-excel/internal/bootstrap"
	"github.com/kirillkom/image-to-excel/internal/config"
	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/observability/logging"
)

type convertOptions struct {
	plainText bool
	outDir    string
	edits     []string
	quiet     bool
}

func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <image>",
		Short: "Convert an image and save the extracted table as .xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.plainText, "text", false, "extract plain text lines instead of detecting a table")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "save into this directory instead of the configured export storage")
	cmd.Flags().StringArrayVar(&opts.edits, "set", nil, "edit a body cell before export, as ROW:COL=VALUE (0-based, repeatable)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the extracted table")
	return cmd
}

type cellEdit struct {
	row, col int
	value    string
}

func runConvert(cmd *cobra.Command, imagePath string, opts *convertOptions) error {
	edits, err := parseCellEdits(opts.edits)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.outDir != "" {
		cfg.ExportStorage = "local"
		cfg.ExportDir = opts.outDir
	}

	logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "img2sheet", cfg.LogLevel)
	ctx := cmd.Context()

	app, err := bootstrap.New(ctx, cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	workflow := app.NewConversionWorkflow()
	if _, err := workflow.Select(domain.ImageCandidate{
		Name:      imagePath,
		MediaType: detectMediaType(imagePath, data),
		Body:      bytes.NewReader(data),
	}); err != nil {
		return userError(err)
	}
	if opts.plainText {
		workflow.SetMode(domain.ModePlainText)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", domain.StateConverting.StatusText(), filepath.Base(imagePath))
	presentation, err := workflow.Convert(ctx)
	if err != nil {
		return userError(err)
	}
	if presentation.NoData {
		return errors.New(presentation.Hint)
	}

	for _, edit := range edits {
		if err := workflow.EditCell(edit.row, edit.col, edit.value); err != nil {
			return fmt.Errorf("apply --set %d:%d: %w", edit.row, edit.col, err)
		}
	}

	snapshot := workflow.Snapshot()
	if !opts.quiet && snapshot.Presentation.Table != nil {
		if err := printGrid(cmd.OutOrStdout(), snapshot.Presentation.Table.Grid()); err != nil {
			return err
		}
	}

	artifact, err := workflow.Export()
	if err != nil {
		return userError(err)
	}
	if err := app.Storage.Save(ctx, artifact.Filename, bytes.NewReader(artifact.Data)); err != nil {
		return fmt.Errorf("save %s: %w", artifact.Filename, err)
	}

	location := cfg.ExportStorage
	if location == "local" {
		location = filepath.Join(cfg.ExportDir, artifact.Filename)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "saved %s (%d bytes) to %s\n", artifact.Filename, len(artifact.Data), location)
	return nil
}

// parseCellEdits reads ROW:COL=VALUE pairs; VALUE may itself contain '='.
func parseCellEdits(raw []string) ([]cellEdit, error) {
	edits := make([]cellEdit, 0, len(raw))
	for _, item := range raw {
		coords, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: expected ROW:COL=VALUE", item)
		}
		rowText, colText, ok := strings.Cut(coords, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: expected ROW:COL=VALUE", item)
		}
		row, err := strconv.Atoi(strings.TrimSpace(rowText))
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: bad row: %w", item, err)
		}
		col, err := strconv.Atoi(strings.TrimSpace(colText))
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: bad column: %w", item, err)
		}
		edits = append(edits, cellEdit{row: row, col: col, value: value})
	}
	return edits, nil
}

// detectMediaType prefers the file extension and falls back to content sniffing.
func detectMediaType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

// userFacingError carries a workflow failure whose text is shown to the user as-is.
type userFacingError struct {
	err error
}

func (e *userFacingError) Error() string { return domain.UserMessage(e.err) }

func (e *userFacingError) Unwrap() error { return e.err }

func userError(err error) error {
	return &userFacingError{err: err}
}
