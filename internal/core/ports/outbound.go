package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

// ConversionClient sends an image to the remote extraction service.
type ConversionClient interface {
	Convert(ctx context.Context, artifact *domain.ImageArtifact, mode domain.ProcessingMode) (domain.RawConversionResponse, error)
}

// SpreadsheetEncoder renders a grid into workbook bytes.
type SpreadsheetEncoder interface {
	Encode(sheet string, grid [][]string) ([]byte, error)
}

// ObjectStorage stores exported artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// WorkflowObserver receives conversion and export outcomes.
type WorkflowObserver interface {
	ObserveConversion(mode domain.ProcessingMode, outcome string, duration time.Duration)
	ObserveExport(outcome string)
}
