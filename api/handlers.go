/*
handlers.go - HTTP API handlers for the rental ledger

PURPOSE:
  Exposes the engine's boundary operations via REST API. Handles HTTP
  request/response and JSON serialization and delegates everything else
  to rental.Engine.

ENDPOINTS:
  Orders:
    GET    /api/orders?month=YYYY-MM|ALL  Filtered view with positions
    POST   /api/orders                    Create order
    PUT    /api/orders                    Commit an edited view
    DELETE /api/orders/{position}         Delete by full-ledger position
    DELETE /api/orders/by-id/{id}         Delete by surrogate id

  Reporting:
    GET    /api/months                    Months with orders, newest first
    GET    /api/summary                   Revenue, occupancy, counts
    GET    /api/occupancy                 Orders currently holding a device
    GET    /api/analysis                  Country/region/gender/lead counts
    GET    /api/options                   Values for select inputs

  Backup:
    GET    /api/snapshot                  Download the ledger file
    POST   /api/snapshot                  Restore from an uploaded file
    GET    /api/backups                   Scheduled backup status and files
    POST   /api/backups/run               Take a scheduled backup now

  Scenarios (when enabled, see scenarios.go):
    GET    /api/scenarios                 Available demo ledgers
    GET    /api/scenarios/current         Last demo ledger loaded
    POST   /api/scenarios/load            Replace the ledger with a demo

REQUEST FLOW:
  Every request reloads the ledger from the store. Nothing is cached
  between requests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed request
  - 404: No ledger yet, or position/id does not exist
  - 409: Ledger changed since the client loaded it
  - 422: Uploaded snapshot is not tabular
  - 503: Ledger file unreadable or corrupt

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/rental-ledger/backup"
	"github.com/warp/rental-ledger/metrics"
	"github.com/warp/rental-ledger/rental"
)

// maxSnapshotBytes bounds an uploaded backup.
const maxSnapshotBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *rental.Engine
	Metrics *metrics.Registry
	Logger  *slog.Logger

	// Backups is nil when scheduled backups are disabled.
	Backups *backup.Scheduler

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over engine.
func NewHandler(engine *rental.Engine, reg *metrics.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Engine: engine, Metrics: reg, Logger: logger}
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns the ledger filtered by the month query parameter.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sel, err := rental.ParseSelector(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM or ALL)", err)
		return
	}

	view, err := h.Engine.View(r.Context(), sel)
	if err != nil {
		h.writeEngineError(w, "Failed to load orders", err)
		return
	}

	writeJSON(w, http.StatusOK, LedgerResponse{
		Version:  string(view.Version),
		Selector: view.Selector.String(),
		Orders:   toOrderDTOs(view.Rows),
	})
}

// CreateOrder appends a new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Engine.Create(r.Context(), req.toRecord())
	if err != nil {
		h.writeEngineError(w, "Failed to create order", err)
		return
	}
	h.countMutation("create")

	writeJSON(w, http.StatusCreated, toOrderDTO(rental.Row{Position: -1, Record: rec}))
}

// EditOrders merges an edited view into the ledger.
func (h *Handler) EditOrders(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sel, err := rental.ParseSelector(req.Selector)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid selector (use YYYY-MM or ALL)", err)
		return
	}

	rows := make([]rental.Row, len(req.Orders))
	for i, o := range req.Orders {
		rows[i] = o.toRow()
	}

	l, err := h.Engine.EditSince(r.Context(), rental.Version(req.Version), sel, rows)
	if err != nil {
		h.writeEngineError(w, "Failed to save changes", err)
		return
	}
	h.countMutation("edit")

	writeJSON(w, http.StatusOK, VersionResponse{Version: string(l.Version), Orders: l.Len()})
}

// DeleteOrder removes the order at a full-ledger position.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	rec, err := h.Engine.DeleteAt(r.Context(), position)
	if err != nil {
		h.writeEngineError(w, "Failed to delete order", err)
		return
	}
	h.countMutation("delete")

	writeJSON(w, http.StatusOK, toOrderDTO(rental.Row{Position: position, Record: rec}))
}

// DeleteOrderByID removes the order carrying the given id.
func (h *Handler) DeleteOrderByID(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Engine.DeleteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, "Failed to delete order", err)
		return
	}
	h.countMutation("delete")

	writeJSON(w, http.StatusOK, toOrderDTO(rental.Row{Position: -1, Record: rec}))
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// ListMonths returns the months that have orders.
func (h *Handler) ListMonths(w http.ResponseWriter, r *http.Request) {
	l, err := h.Engine.LoadAll(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to load orders", err)
		return
	}

	months := h.Engine.LoadMonths(l)
	resp := MonthsResponse{Months: make([]string, len(months))}
	for i, m := range months {
		resp.Months[i] = m.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSummary returns the headline KPIs.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Engine.Summary(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to compute summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// GetOccupancy lists orders that currently hold their device.
func (h *Handler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	l, err := h.Engine.LoadAll(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to load orders", err)
		return
	}
	writeJSON(w, http.StatusOK, LedgerResponse{
		Version:  string(l.Version),
		Selector: rental.AllLabel,
		Orders:   toOrderDTOs(rental.Occupied(l)),
	})
}

// GetAnalysis returns the frequency tables of the analysis view.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	l, err := h.Engine.LoadAll(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to load orders", err)
		return
	}
	b := rental.Analyze(l, h.Engine.Defaults)
	writeJSON(w, http.StatusOK, AnalysisDTO{
		Country:    toCountDTOs(b.Country),
		Region:     toCountDTOs(b.Region),
		Gender:     toCountDTOs(b.Gender),
		LeadSource: toCountDTOs(b.LeadSource),
	})
}

// GetOptions returns the values offered in select inputs.
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	d := h.Engine.Defaults
	opts := OptionsDTO{
		Catalog:     d.Catalog,
		Countries:   d.Countries,
		Regions:     d.Regions,
		LeadSources: d.LeadSources,
	}
	for _, s := range rental.Statuses {
		opts.Statuses = append(opts.Statuses, string(s))
	}
	for _, g := range rental.Genders {
		opts.Genders = append(opts.Genders, string(g))
	}
	writeJSON(w, http.StatusOK, opts)
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportSnapshot downloads the persisted ledger as CSV.
func (h *Handler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.Engine.ExportSnapshot(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to export snapshot", err)
		return
	}

	name := rental.SnapshotFilename(h.Engine.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportSnapshot replaces the ledger with an uploaded CSV. The file may be
// the raw request body or a multipart field named "file".
func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	l, err := h.Engine.ImportSnapshot(r.Context(), data)
	if err != nil {
		h.writeEngineError(w, "Failed to restore snapshot", err)
		return
	}
	h.countMutation("import")

	writeJSON(w, http.StatusOK, VersionResponse{Version: string(l.Version), Orders: l.Len()})
}

// GetBackups reports the scheduled backup state.
func (h *Handler) GetBackups(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		writeJSON(w, http.StatusOK, BackupStatusDTO{Enabled: false})
		return
	}
	files, err := h.Backups.Files()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list backups", err)
		return
	}
	resp := BackupStatusDTO{
		Enabled: true,
		Dir:     h.Backups.Dir,
		NextRun: h.Backups.NextRunTime(),
		Files:   files,
	}
	if last, ok := h.Backups.Last(); ok {
		resp.LastRun = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunBackup takes a scheduled backup immediately.
func (h *Handler) RunBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		writeError(w, http.StatusNotFound, "Scheduled backups are disabled", nil)
		return
	}
	run := h.Backups.RunNow(r.Context())
	if run.Error != "" {
		writeJSON(w, http.StatusInternalServerError, run)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
	if err := r.ParseMultipartForm(maxSnapshotBytes); err == nil {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxSnapshotBytes))
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return io.ReadAll(r.Body)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) countMutation(op string) {
	if h.Metrics != nil {
		h.Metrics.Mutations.WithLabelValues(op).Inc()
	}
}

// writeEngineError maps engine errors to HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, rental.ErrNoLedger):
		writeError(w, http.StatusNotFound, "No ledger yet: create an order or restore a backup", err)
	case errors.Is(err, rental.ErrConcurrentModification):
		if h.Metrics != nil {
			h.Metrics.Conflicts.Inc()
		}
		writeError(w, http.StatusConflict, "The ledger changed since it was loaded; reload and retry", err)
	case errors.Is(err, rental.ErrSchemaUnrecoverable):
		if h.Metrics != nil {
			h.Metrics.Rejected.Inc()
		}
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, rental.ErrPositionOutOfRange), errors.Is(err, rental.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, rental.ErrStorageUnavailable):
		h.Logger.Error("storage unavailable", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "Ledger storage unavailable: restore from a backup", err)
	default:
		h.Logger.Error(message, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
