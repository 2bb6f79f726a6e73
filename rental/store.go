/*
store.go - Persistence interface and the Ledger Store built on it

PURPOSE:
  A Store persists one Table as a whole. LedgerStore layers the ledger
  operations on top: load with migration, append, whole-sequence replace
  and delete by position or id.

WHOLE-TABLE WRITES:
  Every mutation rewrites the full table in one Write call. A backend must
  make that write atomic: readers see either the previous table or the new
  one, never a mix.

OPTIMISTIC CONCURRENCY:
  Read returns the table's Version. Write takes the version the caller
  based its change on and fails with *ConflictError when the store has
  moved on. VersionNone expects an empty store; VersionAny skips the check
  and is reserved for restore-from-backup.

NO CACHING:
  Nothing is held in memory between calls. Each operation reads the store,
  computes, and writes back before returning.

IMPLEMENTATIONS:
  - store/csvfile: Flat CSV file (default)
  - store/sqlite: SQLite database
  - rental/store: In-memory for tests

SEE ALSO:
  - migrate.go: Applied by Load
  - engine.go: Boundary operations built on LedgerStore
*/
package rental

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// STORE - Whole-table persistence
// =============================================================================

// Store persists a single table.
type Store interface {
	// Read returns the persisted table exactly as stored, with its Version.
	// Returns an error wrapping ErrNoLedger when nothing is persisted and
	// ErrStorageUnavailable when the content cannot be read.
	Read(ctx context.Context) (Table, error)

	// Write replaces the persisted table if the current version equals
	// expect. Returns the new version.
	Write(ctx context.Context, t Table, expect Version) (Version, error)
}

// CheckVersion is the comparison every backend applies inside Write.
func CheckVersion(expect, actual Version) error {
	if expect == VersionAny || expect == actual {
		return nil
	}
	return &ConflictError{Expected: expect, Actual: actual}
}

// =============================================================================
// LEDGER STORE
// =============================================================================

// LedgerStore reads and writes the ledger through a Store.
type LedgerStore struct {
	Store    Store
	Defaults Defaults
}

func NewLedgerStore(store Store, defaults Defaults) *LedgerStore {
	return &LedgerStore{Store: store, Defaults: defaults}
}

// Load reads, migrates and decodes the full ledger.
func (s *LedgerStore) Load(ctx context.Context) (Ledger, error) {
	t, err := s.Store.Read(ctx)
	if err != nil {
		return Ledger{}, err
	}
	return Decode(Migrate(t, s.Defaults)), nil
}

// loadOrEmpty is Load, except that a store with nothing persisted yields an
// empty ledger at VersionNone.
func (s *LedgerStore) loadOrEmpty(ctx context.Context) (Ledger, error) {
	l, err := s.Load(ctx)
	if errors.Is(err, ErrNoLedger) {
		return Ledger{Version: VersionNone}, nil
	}
	return l, err
}

// Append adds r at the end of the ledger, creating the ledger if none
// exists.
func (s *LedgerStore) Append(ctx context.Context, r Record) (Ledger, error) {
	l, err := s.loadOrEmpty(ctx)
	if err != nil {
		return Ledger{}, err
	}
	records := append(l.Records[:len(l.Records):len(l.Records)], r)
	return s.ReplaceAll(ctx, Ledger{Records: records, LegacyColumns: l.LegacyColumns, Version: l.Version})
}

// ReplaceAll overwrites the persisted sequence with l.Records, provided the
// store is still at l.Version. It is the only path that can shrink or
// reorder the ledger.
func (s *LedgerStore) ReplaceAll(ctx context.Context, l Ledger) (Ledger, error) {
	v, err := s.Store.Write(ctx, Encode(l.Records, l.LegacyColumns), l.Version)
	if err != nil {
		return Ledger{}, err
	}
	l.Version = v
	return l, nil
}

// DeleteAt removes the record at position of a freshly loaded full ledger.
func (s *LedgerStore) DeleteAt(ctx context.Context, position int) (Record, error) {
	l, err := s.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	return s.deleteAt(ctx, l, position)
}

// DeleteByID removes the record carrying id.
func (s *LedgerStore) DeleteByID(ctx context.Context, id string) (Record, error) {
	l, err := s.Load(ctx)
	if err != nil {
		return Record{}, err
	}
	for i, r := range l.Records {
		if r.ID == id {
			return s.deleteAt(ctx, l, i)
		}
	}
	return Record{}, fmt.Errorf("delete %s: %w", id, ErrRecordNotFound)
}

func (s *LedgerStore) deleteAt(ctx context.Context, l Ledger, position int) (Record, error) {
	if position < 0 || position >= len(l.Records) {
		return Record{}, fmt.Errorf("delete at %d of %d: %w", position, len(l.Records), ErrPositionOutOfRange)
	}
	removed := l.Records[position]
	records := make([]Record, 0, len(l.Records)-1)
	records = append(records, l.Records[:position]...)
	records = append(records, l.Records[position+1:]...)
	l.Records = records
	if _, err := s.ReplaceAll(ctx, l); err != nil {
		return Record{}, err
	}
	return removed, nil
}
