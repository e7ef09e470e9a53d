package usecase

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/core/ports"
)

const (
	ExportSheetName    = "Sheet1"
	ExportExtension    = ".xlsx"
	FallbackExportName = "converted_data" + ExportExtension
)

type ExportSerializer struct {
	encoder ports.SpreadsheetEncoder
}

func NewExportSerializer(encoder ports.SpreadsheetEncoder) *ExportSerializer {
	return &ExportSerializer{encoder: encoder}
}

// Serialize writes grid exactly as currently rendered. It never consults the
// canonical table, so in-place edits are what end up in the workbook.
func (s *ExportSerializer) Serialize(grid *domain.RenderedTable, sourceName string) (domain.ExportArtifact, error) {
	if grid == nil {
		return domain.ExportArtifact{}, domain.WrapError(domain.ErrExport, "serialize export", errors.New("no data"))
	}

	data, err := s.encoder.Encode(ExportSheetName, grid.Grid())
	if err != nil {
		return domain.ExportArtifact{}, domain.WrapError(domain.ErrExport, "serialize export", fmt.Errorf("encode workbook: %w", err))
	}

	return domain.ExportArtifact{
		Data:     data,
		Filename: ExportFilename(sourceName),
	}, nil
}

// ExportFilename keeps the part of the source base name before the first dot.
func ExportFilename(sourceName string) string {
	name := strings.TrimSpace(sourceName)
	if name == "" {
		return FallbackExportName
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		name = name[:idx]
	}
	if name == "" || name == "/" {
		return FallbackExportName
	}
	return name + ExportExtension
}
