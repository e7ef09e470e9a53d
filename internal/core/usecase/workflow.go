package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/core/ports"
)

const userMessagePrefix = "Try Again: "

// ConversionWorkflow drives select -> convert -> ready/failed -> export/clear
// for a single session. Instances share nothing with each other.
type ConversionWorkflow struct {
	client     ports.ConversionClient
	normalizer *ResponseNormalizer
	serializer *ExportSerializer
	observer   ports.WorkflowObserver
	logger     *slog.Logger
	now        func() time.Time

	mu           sync.Mutex
	input        *ImageInput
	mode         domain.ProcessingMode
	state        domain.WorkflowState
	table        *domain.CanonicalTable
	presentation domain.Presentation
	lastErr      error
	inFlight     bool
	generation   uint64
}

func NewConversionWorkflow(
	client ports.ConversionClient,
	encoder ports.SpreadsheetEncoder,
	observer ports.WorkflowObserver,
	logger *slog.Logger,
) *ConversionWorkflow {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &ConversionWorkflow{
		client:       client,
		normalizer:   NewResponseNormalizer(logger),
		serializer:   NewExportSerializer(encoder),
		observer:     observer,
		logger:       logger,
		now:          time.Now,
		input:        NewImageInput(),
		mode:         domain.ModeTableDetection,
		state:        domain.StateIdle,
		presentation: placeholder(hintNoPreview),
	}
}

func (w *ConversionWorkflow) Select(candidate domain.ImageCandidate) (*domain.ImageArtifact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight {
		return nil, domain.WrapError(domain.ErrConversionInFlight, "select image", errors.New("wait for the running conversion"))
	}

	artifact, err := w.input.Select(candidate)
	if err != nil {
		w.logger.Info("image_rejected", "name", candidate.Name, "media_type", candidate.MediaType, "error", err)
		return nil, err
	}

	w.state = domain.StateFileSelected
	w.table = nil
	w.presentation = placeholder(hintReadyToConvert)
	w.lastErr = nil
	return artifact, nil
}

// SetMode takes effect for the next Convert call; a running conversion keeps its mode.
func (w *ConversionWorkflow) SetMode(mode domain.ProcessingMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
}

func (w *ConversionWorkflow) Convert(ctx context.Context) (domain.Presentation, error) {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return domain.Presentation{}, domain.WrapError(domain.ErrConversionInFlight, "convert", errors.New("wait for the running conversion"))
	}
	artifact := w.input.Current()
	if w.state == domain.StateIdle || artifact == nil {
		w.mu.Unlock()
		w.logger.Warn("convert_without_image")
		return domain.Presentation{}, domain.WrapError(domain.ErrNoImageSelected, "convert", errors.New("select an image first"))
	}
	mode := w.mode
	generation := w.generation
	w.state = domain.StateConverting
	w.inFlight = true
	w.mu.Unlock()

	start := w.now()
	table, err := w.run(ctx, artifact, mode)
	duration := w.now().Sub(start)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if generation != w.generation {
		w.observer.ObserveConversion(mode, "superseded", duration)
		w.logger.Info("conversion_result_discarded", "mode", mode.String(), "image", artifact.DisplayName)
		return domain.Presentation{}, domain.WrapError(domain.ErrConversionSuperseded, "convert", errors.New("session was cleared"))
	}

	if err != nil {
		w.state = domain.StateFailed
		w.table = nil
		w.presentation = placeholder(hintConversionFail)
		w.lastErr = err
		w.observer.ObserveConversion(mode, outcomeOf(err), duration)
		w.logger.Error("conversion_failed",
			"mode", mode.String(),
			"image", artifact.DisplayName,
			"duration_ms", float64(duration.Microseconds())/1000.0,
			"error", err,
		)
		return w.presentation, err
	}

	w.state = domain.StateReady
	w.table = &table
	w.presentation = Present(table)
	w.lastErr = nil
	w.observer.ObserveConversion(mode, "success", duration)
	w.logger.Info("conversion_succeeded",
		"mode", mode.String(),
		"image", artifact.DisplayName,
		"rows", len(table.Rows),
		"duration_ms", float64(duration.Microseconds())/1000.0,
	)
	return clonePresentation(w.presentation), nil
}

func (w *ConversionWorkflow) run(ctx context.Context, artifact *domain.ImageArtifact, mode domain.ProcessingMode) (domain.CanonicalTable, error) {
	resp, err := w.client.Convert(ctx, artifact, mode)
	if err != nil {
		return domain.CanonicalTable{}, err
	}
	return w.normalizer.Normalize(resp, mode)
}

// EditCell changes one body cell of the rendered table; the state stays Ready.
func (w *ConversionWorkflow) EditCell(row, col int, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != domain.StateReady || w.presentation.Table == nil {
		return domain.WrapError(domain.ErrInvalidInput, "edit cell", errors.New("no rendered table"))
	}
	return w.presentation.Table.SetCell(row, col, value)
}

// Export serializes the live rendered table, edits included.
func (w *ConversionWorkflow) Export() (domain.ExportArtifact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exportLocked(w.presentation.Table)
}

// ExportGrid serializes a grid snapshot supplied by the presentation layer.
func (w *ConversionWorkflow) ExportGrid(grid *domain.RenderedTable) (domain.ExportArtifact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exportLocked(grid)
}

func (w *ConversionWorkflow) exportLocked(grid *domain.RenderedTable) (domain.ExportArtifact, error) {
	if w.state != domain.StateReady {
		grid = nil
	}

	sourceName := ""
	if artifact := w.input.Current(); artifact != nil {
		sourceName = artifact.DisplayName
	}

	out, err := w.serializer.Serialize(grid, sourceName)
	if err != nil {
		w.observer.ObserveExport("error")
		w.logger.Warn("export_failed", "state", string(w.state), "error", err)
		return domain.ExportArtifact{}, err
	}
	w.observer.ObserveExport("success")
	w.logger.Info("export_ready", "filename", out.Filename, "bytes", len(out.Data))
	return out, nil
}

// Clear returns to Idle. A conversion still on the wire finishes, but its result is dropped.
func (w *ConversionWorkflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.input.Clear()
	w.state = domain.StateIdle
	w.table = nil
	w.presentation = placeholder(hintNoPreview)
	w.lastErr = nil
	if w.inFlight {
		w.generation++
	}
}

func (w *ConversionWorkflow) State() domain.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Table returns the canonical table of the last successful conversion.
func (w *ConversionWorkflow) Table() (domain.CanonicalTable, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.table == nil {
		return domain.CanonicalTable{}, false
	}
	return *w.table, true
}

func (w *ConversionWorkflow) Snapshot() domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := domain.Snapshot{
		State:           w.state,
		Status:          w.state.StatusText(),
		Mode:            w.mode.String(),
		Preview:         w.input.Preview(),
		Presentation:    clonePresentation(w.presentation),
		ExportAvailable: w.state == domain.StateReady && w.presentation.Table != nil,
	}
	if artifact := w.input.Current(); artifact != nil {
		image := *artifact
		snap.Image = &image
	}
	if w.lastErr != nil {
		snap.LastError = userMessagePrefix + domain.UserMessage(w.lastErr)
	}
	return snap
}

func clonePresentation(p domain.Presentation) domain.Presentation {
	p.Table = p.Table.Clone()
	return p
}

func outcomeOf(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrTransport):
		return "transport_error"
	case domain.IsKind(err, domain.ErrService):
		return "service_error"
	case domain.IsKind(err, domain.ErrFormat):
		return "format_error"
	default:
		return "error"
	}
}

type nopObserver struct{}

func (nopObserver) ObserveConversion(domain.ProcessingMode, string, time.Duration) {}
func (nopObserver) ObserveExport(string)                                          {}
