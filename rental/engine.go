/*
engine.go - Boundary operations exposed to the UI layer

PURPOSE:
  Engine is what the HTTP API and the CLI call. Each method is one user
  interaction: reload the full ledger from the store, compute, and for
  mutations write the full result back before returning.

OPERATIONS:
  Create          Append a new order (assigns id and creation stamp)
  LoadAll         Full migrated ledger
  LoadMonths      Months that have orders, most recent first
  View            Ledger filtered by a Selector
  Edit            Merge an edited view and commit it
  EditSince       Edit against the ledger at a version the caller holds
  DeleteAt        Remove by position in the full ledger
  DeleteByID      Remove by surrogate id
  ExportSnapshot  Bytes of the persisted table
  ImportSnapshot  Replace the persisted table with an uploaded one
  Summary         Headline KPIs

INPUT VALIDATION:
  Field values arrive already validated by the UI layer. The engine does
  not re-check ranges or enum membership.

SEE ALSO:
  - store.go: LedgerStore
  - merge.go: Merge policy
  - kpi.go: Summary and breakdowns
*/
package rental

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Engine implements the boundary operations over one ledger.
type Engine struct {
	Ledger   *LedgerStore
	Defaults Defaults
	Logger   *slog.Logger

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewEngine creates an engine over store with the given deployment
// defaults.
func NewEngine(store Store, defaults Defaults, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Ledger:   NewLedgerStore(store, defaults),
		Defaults: defaults,
		Logger:   logger,
		Now:      time.Now,
		NewID:    func() string { return uuid.NewString() },
	}
}

// =============================================================================
// CREATE / READ
// =============================================================================

// Create appends an order built from fields. ID and CreatedAt are set by
// the engine; any values in fields are ignored.
func (e *Engine) Create(ctx context.Context, fields Record) (Record, error) {
	r := fields
	r.ID = e.NewID()
	r.CreatedAt = e.Now().Format(CreatedAtLayout)
	r.Legacy = nil

	l, err := e.Ledger.Append(ctx, r)
	if err != nil {
		return Record{}, fmt.Errorf("create order: %w", err)
	}
	e.Logger.Info("order created",
		slog.String("id", r.ID),
		slog.String("device", r.DeviceID),
		slog.Int("orders", l.Len()),
		slog.String("version", string(l.Version)))
	return r, nil
}

// LoadAll returns the full migrated ledger.
func (e *Engine) LoadAll(ctx context.Context) (Ledger, error) {
	l, err := e.Ledger.Load(ctx)
	if err != nil {
		return Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}

// LoadMonths lists the months present in l, most recent first.
func (e *Engine) LoadMonths(l Ledger) []YearMonth {
	return Months(l)
}

// View loads the ledger and filters it by sel.
func (e *Engine) View(ctx context.Context, sel Selector) (View, error) {
	l, err := e.LoadAll(ctx)
	if err != nil {
		return View{}, err
	}
	return FilterByMonth(l, sel), nil
}

// Summary loads the ledger and computes its KPIs.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	l, err := e.LoadAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(l, e.Defaults.Catalog), nil
}

// =============================================================================
// EDIT / DELETE
// =============================================================================

// Edit merges edited into base under sel and commits the result. base must
// be the ledger the edited view was filtered from; the commit fails with
// ErrConcurrentModification if the store has changed since.
func (e *Engine) Edit(ctx context.Context, base Ledger, sel Selector, edited []Row) (Ledger, error) {
	records := Merge(base, sel, edited)
	stamp := e.Now().Format(CreatedAtLayout)
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = e.NewID()
			records[i].CreatedAt = stamp
		}
	}

	committed, err := e.Ledger.ReplaceAll(ctx, Ledger{
		Records:       records,
		LegacyColumns: base.LegacyColumns,
		Version:       base.Version,
	})
	if err != nil {
		e.Logger.Warn("edit rejected",
			slog.String("selector", sel.String()),
			slog.String("base_version", string(base.Version)),
			slog.String("error", err.Error()))
		return Ledger{}, fmt.Errorf("commit %s edit: %w", sel, err)
	}
	e.Logger.Info("edit committed",
		slog.String("selector", sel.String()),
		slog.Int("edited_rows", len(edited)),
		slog.Int("orders", committed.Len()),
		slog.String("version", string(committed.Version)))
	return committed, nil
}

// EditSince reloads the ledger and runs Edit, provided the store is still
// at version. Callers that hold only a version (such as an HTTP client)
// use this instead of Edit.
func (e *Engine) EditSince(ctx context.Context, version Version, sel Selector, edited []Row) (Ledger, error) {
	base, err := e.LoadAll(ctx)
	if err != nil {
		return Ledger{}, err
	}
	if err := CheckVersion(version, base.Version); err != nil {
		return Ledger{}, fmt.Errorf("commit %s edit: %w", sel, err)
	}
	return e.Edit(ctx, base, sel, edited)
}

// DeleteAt removes the record at position of the full, unfiltered ledger.
func (e *Engine) DeleteAt(ctx context.Context, position int) (Record, error) {
	r, err := e.Ledger.DeleteAt(ctx, position)
	if err != nil {
		return Record{}, err
	}
	e.Logger.Info("order deleted", slog.Int("position", position), slog.String("id", r.ID))
	return r, nil
}

// DeleteByID removes the record carrying id.
func (e *Engine) DeleteByID(ctx context.Context, id string) (Record, error) {
	r, err := e.Ledger.DeleteByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	e.Logger.Info("order deleted", slog.String("id", r.ID))
	return r, nil
}

// =============================================================================
// BACKUP / RESTORE
// =============================================================================

// ExportSnapshot returns the persisted table as BOM-prefixed UTF-8 CSV,
// without migration.
func (e *Engine) ExportSnapshot(ctx context.Context) ([]byte, error) {
	t, err := e.Ledger.Store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("export snapshot: %w", err)
	}
	data, err := MarshalCSV(t)
	if err != nil {
		return nil, fmt.Errorf("export snapshot: %w", err)
	}
	return data, nil
}

// SnapshotFilename names an export taken at now.
func SnapshotFilename(now time.Time) string {
	return "backup_rentals_" + now.Format("20060102") + ".csv"
}

// ImportSnapshot replaces the persisted table with data after migration.
// This is a destructive overwrite with no version check. Content that is
// not tabular, or that shares no column with any schema generation, is
// rejected with ErrSchemaUnrecoverable and nothing is written.
func (e *Engine) ImportSnapshot(ctx context.Context, data []byte) (Ledger, error) {
	t, err := UnmarshalCSV(data)
	if err != nil {
		return Ledger{}, &SchemaError{Reason: "not CSV", Err: err}
	}
	if len(t.Header) == 0 {
		return Ledger{}, &SchemaError{Reason: "no header row"}
	}
	known := false
	for _, h := range t.Header {
		if knownColumn(h) {
			known = true
			break
		}
	}
	if !known {
		return Ledger{}, &SchemaError{Reason: fmt.Sprintf("no ledger column among %d header cells", len(t.Header))}
	}

	migrated := Migrate(t, e.Defaults)
	v, err := e.Ledger.Store.Write(ctx, migrated, VersionAny)
	if err != nil {
		return Ledger{}, fmt.Errorf("import snapshot: %w", err)
	}
	migrated.Version = v
	l := Decode(migrated)
	e.Logger.Info("snapshot imported",
		slog.Int("orders", l.Len()),
		slog.Int("legacy_columns", len(l.LegacyColumns)),
		slog.String("version", string(v)))
	return l, nil
}
