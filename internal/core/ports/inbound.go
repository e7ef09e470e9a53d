package ports

import (
	"context"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

// ConversionWorkflow is the command surface offered to presentation collaborators.
type ConversionWorkflow interface {
	Select(candidate domain.ImageCandidate) (*domain.ImageArtifact, error)
	SetMode(mode domain.ProcessingMode)
	Convert(ctx context.Context) (domain.Presentation, error)
	EditCell(row, col int, value string) error
	Export() (domain.ExportArtifact, error)
	ExportGrid(grid *domain.RenderedTable) (domain.ExportArtifact, error)
	Clear()
	Snapshot() domain.Snapshot
}
