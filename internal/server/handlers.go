package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/aiassist"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/convo"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/engine"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/registry"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/reports"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/sqlcheck"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	registry            *registry.Registry
	reports             *reports.Store
	engine              *engine.Engine
	machine             *convo.Machine
	ai                  *aiassist.Client
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): AI.
type HandlersDeps struct {
	Registry            *registry.Registry
	Reports             *reports.Store
	Engine              *engine.Engine
	Machine             *convo.Machine
	AI                  *aiassist.Client
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		registry:            d.Registry,
		reports:             d.Reports,
		engine:              d.Engine,
		machine:             d.Machine,
		ai:                  d.AI,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// Default mode flags when neither the body nor a header sets them.
// Privacy defaults on; everything else defaults off.
const (
	defaultPrivacyMode = true
	defaultSafeMode    = false
	defaultAIAssist    = false
)

// HandleChat handles POST /chat, the conversational entry point.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	hasMessage := message != ""
	hasIntent := req.Intent != ""

	// Envelope rules: exactly one of message or intent, and an intent always
	// carries a value.
	switch {
	case hasMessage && hasIntent:
		writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeProtocolViolation,
			"provide either message or intent, not both")
		return
	case !hasMessage && !hasIntent:
		writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeProtocolViolation,
			"provide one of message or intent")
		return
	}
	var intent model.Intent
	var value string
	if hasIntent {
		intent = model.Intent(req.Intent)
		if !intent.Valid() {
			writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeProtocolViolation,
				fmt.Sprintf("unknown intent %q", req.Intent))
			return
		}
		value = coerceValue(req.Value)
		if value == "" {
			writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeProtocolViolation,
				"intent requires a value")
			return
		}
	}

	if req.DatasetID == "" {
		writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeProtocolViolation,
			"datasetId is required")
		return
	}
	ds, err := h.registry.Get(req.DatasetID)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeDatasetNotFound,
			fmt.Sprintf("dataset %q is not registered", req.DatasetID))
		return
	}
	if err := h.ensureCatalog(r.Context(), &ds); err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = "conv-" + uuid.New().String()
	}

	turn := convo.Turn{
		ConversationID: convID,
		Dataset:        &ds,
		Message:        message,
		Intent:         intent,
		Value:          value,
		PrivacyMode:    resolveFlag(req.PrivacyMode, r, "X-Privacy-Mode", defaultPrivacyMode),
		SafeMode:       resolveFlag(req.SafeMode, r, "X-Safe-Mode", defaultSafeMode),
		AIAssist:       resolveFlag(req.AIAssist, r, "X-AI-Assist", defaultAIAssist),
		Results:        req.ResultsContext,
	}

	resp := h.machine.HandleTurn(r.Context(), turn)
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleExecute handles POST /queries/execute. Queries are re-validated
// here; the plan a client echoes back is untrusted input.
func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid request body")
		return
	}
	if req.DatasetID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "datasetId is required")
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "queries is required")
		return
	}

	ds, err := h.registry.Get(req.DatasetID)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeDatasetNotFound,
			fmt.Sprintf("dataset %q is not registered", req.DatasetID))
		return
	}

	safeMode := resolveFlag(req.SafeMode, r, "X-Safe-Mode", defaultSafeMode)
	results, err := h.engine.Execute(r.Context(), &ds, req.Queries, safeMode, sqlcheck.MaxRows)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.ExecuteResponse{Results: results})
}

// supportedExtensions maps source file extensions to their source type.
var supportedExtensions = map[string]string{
	".csv":     "csv",
	".tsv":     "csv",
	".parquet": "parquet",
	".xlsx":    "excel",
	".xls":     "excel",
	".duckdb":  "duckdb",
}

// HandleRegisterDataset handles POST /datasets. Registration ingests
// immediately: the catalog is built before the dataset becomes visible.
func (h *Handlers) HandleRegisterDataset(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid request body")
		return
	}
	if req.Name == "" || req.FilePath == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "name and filePath are required")
		return
	}

	ext := strings.ToLower(filepath.Ext(req.FilePath))
	sourceType, ok := supportedExtensions[ext]
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed,
			fmt.Sprintf("unsupported file format %q", ext))
		return
	}
	if _, err := os.Stat(req.FilePath); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeFileUnreadable,
			fmt.Sprintf("cannot read %s", req.FilePath))
		return
	}

	ds := model.Dataset{
		ID:         "ds-" + uuid.New().String(),
		Name:       req.Name,
		SourceType: sourceType,
		FilePath:   req.FilePath,
		Status:     model.DatasetRegistered,
		CreatedAt:  time.Now().UTC(),
	}

	cat, err := h.engine.Introspect(r.Context(), &ds)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	ds.Catalog = cat
	ds.Status = model.DatasetIngested

	if err := h.registry.Put(ds); err != nil {
		h.logger.Error("registry write failed", "dataset_id", ds.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "failed to persist dataset")
		return
	}

	h.logger.Info("dataset registered",
		"dataset_id", ds.ID, "name", ds.Name, "source", ds.SourceType,
		"columns", len(cat.Columns), "rows", cat.RowCount)
	writeJSON(w, r, http.StatusCreated, ds)
}

// HandleListDatasets handles GET /datasets.
func (h *Handlers) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"datasets": h.registry.List()})
}

// HandleGetDataset handles GET /datasets/{dataset_id}.
func (h *Handlers) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("dataset_id")
	ds, err := h.registry.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeDatasetNotFound,
			fmt.Sprintf("dataset %q is not registered", id))
		return
	}
	writeJSON(w, r, http.StatusOK, ds)
}

// HandleCreateReport handles POST /reports, persisting a final answer the
// user chose to keep.
func (h *Handlers) HandleCreateReport(w http.ResponseWriter, r *http.Request) {
	var rep model.Report
	if err := decodeJSON(r, &rep, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid request body")
		return
	}
	if rep.DatasetID == "" || rep.Answer == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, "dataset_id and answer are required")
		return
	}
	if _, err := h.registry.Get(rep.DatasetID); errors.Is(err, registry.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeDatasetNotFound,
			fmt.Sprintf("dataset %q is not registered", rep.DatasetID))
		return
	}

	rep.ID = "rpt-" + uuid.New().String()
	rep.CreatedAt = time.Now().UTC()
	if err := h.reports.Add(rep); err != nil {
		h.logger.Error("report write failed", "report_id", rep.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "failed to persist report")
		return
	}
	writeJSON(w, r, http.StatusCreated, rep)
}

// HandleListReports handles GET /reports with an optional datasetId filter.
func (h *Handlers) HandleListReports(w http.ResponseWriter, r *http.Request) {
	list := h.reports.List(r.URL.Query().Get("datasetId"))
	writeJSON(w, r, http.StatusOK, map[string]any{"reports": list})
}

// HandleGetReport handles GET /reports/{report_id}.
func (h *Handlers) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("report_id")
	rep, err := h.reports.Get(id)
	if errors.Is(err, reports.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
			fmt.Sprintf("report %q not found", id))
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

// HandleDeleteReport handles DELETE /reports/{report_id}.
func (h *Handlers) HandleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("report_id")
	if err := h.reports.Delete(id); errors.Is(err, reports.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
			fmt.Sprintf("report %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTestAI handles GET /test-ai-connection. Always 200; the status field
// carries the outcome so the UI can render it inline.
func (h *Handlers) HandleTestAI(w http.ResponseWriter, r *http.Request) {
	if h.ai == nil || !h.ai.Configured() {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	if err := h.ai.Probe(r.Context()); err != nil {
		h.logger.Warn("ai connection probe failed", "error", err)
		writeJSON(w, r, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "could not reach the AI provider",
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "connected"})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"datasets":       len(h.registry.List()),
	})
}

// ensureCatalog backfills the catalog for datasets registered before
// ingestion-at-registration existed.
func (h *Handlers) ensureCatalog(ctx context.Context, ds *model.Dataset) error {
	if ds.Catalog != nil {
		return nil
	}
	cat, err := h.engine.Introspect(ctx, ds)
	if err != nil {
		return err
	}
	ds.Catalog = cat
	ds.Status = model.DatasetIngested
	if err := h.registry.Put(*ds); err != nil {
		h.logger.Warn("catalog backfill not persisted", "dataset_id", ds.ID, "error", err)
	}
	return nil
}

// writeEngineError maps an engine failure onto the API error vocabulary.
func (h *Handlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if f, ok := engine.AsFailure(err); ok {
		switch f.Kind {
		case engine.KindValidationFailed:
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidationFailed, f.Error())
			return
		case engine.KindFileUnreadable:
			writeError(w, r, http.StatusBadRequest, model.ErrCodeFileUnreadable, f.Error())
			return
		case engine.KindTimeout:
			writeError(w, r, http.StatusRequestTimeout, model.ErrCodeQueryTimeout, f.Error())
			return
		case engine.KindEngineError:
			writeError(w, r, http.StatusInternalServerError, model.ErrCodeEngineError, f.Error())
			return
		}
	}
	h.logger.Error("unclassified engine error", "error", err)
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "internal error")
}

// resolveFlag resolves a mode flag: body beats header beats default.
func resolveFlag(body *bool, r *http.Request, header string, def bool) bool {
	if body != nil {
		return *body
	}
	if v := r.Header.Get(header); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// coerceValue renders an intent value as the string the state machine
// consumes. Buttons send strings; numeric limits may arrive as JSON numbers.
func coerceValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
