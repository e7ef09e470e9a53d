package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/image-to-excel/internal/config"
	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/core/ports"
	"github.com/kirillkom/image-to-excel/internal/observability/metrics"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	serviceName     = "api"
)

type Router struct {
	cfg          config.Config
	sessions     *sessionStore
	archive      ports.ObjectStorage
	metrics      *metrics.HTTPServerMetrics
	breakerState func() string
}

// NewRouter serves one ConversionWorkflow per session. archive may be nil;
// it is only used when cfg.ExportArchive is set.
func NewRouter(
	cfg config.Config,
	factory WorkflowFactory,
	archive ports.ObjectStorage,
	httpMetrics *metrics.HTTPServerMetrics,
) (*Router, error) {
	var onResize func(int)
	if httpMetrics != nil {
		onResize = httpMetrics.SetActiveSessions
	}
	sessions, err := newSessionStore(cfg.SessionCacheSize, factory, onResize)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		archive:  archive,
		metrics:  httpMetrics,
	}, nil
}

// WithBreakerState makes healthz report the converter breaker state.
func (rt *Router) WithBreakerState(fn func() string) *Router {
	rt.breakerState = fn
	return rt
}

func (rt *Router) Handler() http.Handler {
	var onLimited func(*http.Request)
	if rt.metrics != nil {
		onLimited = func(r *http.Request) { rt.metrics.RecordRateLimited(serviceName, r.URL.Path) }
	}
	convert := rateLimitMiddleware(http.HandlerFunc(rt.convert), rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onLimited)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/session", rt.createSession)
	mux.HandleFunc("DELETE /v1/session", rt.clearSession)
	mux.HandleFunc("POST /v1/session/image", rt.selectImage)
	mux.HandleFunc("PUT /v1/session/mode", rt.setMode)
	mux.Handle("POST /v1/session/convert", convert)
	mux.HandleFunc("GET /v1/session/table", rt.getTable)
	mux.HandleFunc("PATCH /v1/session/table/cells", rt.editCells)
	mux.HandleFunc("GET /v1/session/export", rt.export)
	mux.HandleFunc("POST /v1/session/export", rt.exportGrid)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	queueWait := time.Duration(rt.cfg.APIQueueWaitMS) * time.Millisecond
	var handler http.Handler = backpressureMiddleware(mux, rt.cfg.APIMaxInFlight, queueWait)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	domain.Snapshot
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok", "sessions": rt.sessions.len()}
	if rt.breakerState != nil {
		body["converter_breaker"] = rt.breakerState()
	}
	writeJSON(w, http.StatusOK, body)
}

func (rt *Router) createSession(w http.ResponseWriter, _ *http.Request) {
	id, workflow := rt.sessions.create()
	w.Header().Set(sessionIDHeader, id)
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

func (rt *Router) clearSession(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}
	workflow.Clear()
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

func (rt *Router) selectImage(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}

	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "image is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	_, err = workflow.Select(domain.ImageCandidate{
		Name:      fileHeader.Filename,
		MediaType: fileHeader.Header.Get("Content-Type"),
		Body:      file,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

func (rt *Router) setMode(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Mode        string `json:"mode"`
		DetectTable *bool  `json:"detect_table"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	raw := req.Mode
	if raw == "" && req.DetectTable != nil {
		raw = strconv.FormatBool(*req.DetectTable)
	}
	mode, valid := domain.ParseProcessingMode(raw)
	if !valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be 'table' or 'text'"})
		return
	}

	workflow.SetMode(mode)
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

func (rt *Router) convert(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}

	// The upload outlives the caller; the client timeout bounds it.
	if _, err := workflow.Convert(context.WithoutCancel(r.Context())); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{
			"error":   domain.UserMessage(err),
			"session": sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()},
		})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

func (rt *Router) getTable(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

type cellEdit struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// editCells applies edits in order and stops at the first rejected one.
func (rt *Router) editCells(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Edits []cellEdit `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Edits) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "edits are required"})
		return
	}

	for _, edit := range req.Edits {
		if err := workflow.EditCell(edit.Row, edit.Col, edit.Value); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: workflow.Snapshot()})
}

func (rt *Router) export(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}

	artifact, err := workflow.Export()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rt.writeExport(w, r, id, artifact)
}

// exportGrid serializes a grid snapshot held by the caller instead of the
// session's own rendered table. The session must still be Ready.
func (rt *Router) exportGrid(w http.ResponseWriter, r *http.Request) {
	id, workflow, ok := rt.lookup(w, r)
	if !ok {
		return
	}

	var grid domain.RenderedTable
	if err := json.NewDecoder(r.Body).Decode(&grid); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(grid.Header) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "header is required"})
		return
	}

	artifact, err := workflow.ExportGrid(&grid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rt.writeExport(w, r, id, artifact)
}

func (rt *Router) writeExport(w http.ResponseWriter, r *http.Request, id string, artifact domain.ExportArtifact) {
	if rt.cfg.ExportArchive && rt.archive != nil {
		key := id + "-" + artifact.Filename
		if err := rt.archive.Save(r.Context(), key, bytes.NewReader(artifact.Data)); err != nil {
			slog.Warn("export_archive_failed",
				"request_id", requestIDFromContext(r.Context()),
				"session_id", id,
				"key", key,
				"error", err,
			)
		} else {
			w.Header().Set("X-Archive-Key", key)
		}
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

func (rt *Router) lookup(w http.ResponseWriter, r *http.Request) (string, ports.ConversionWorkflow, bool) {
	id := r.Header.Get(sessionIDHeader)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": sessionIDHeader + " header is required"})
		return "", nil, false
	}
	workflow, ok := rt.sessions.get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return "", nil, false
	}
	return id, workflow, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
