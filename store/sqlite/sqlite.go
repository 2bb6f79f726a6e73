/*
Package sqlite provides a SQLite-backed implementation of rental.Store.

PURPOSE:
  Persists the same table the CSV store writes, for deployments that
  prefer a database file. Header and rows are stored as JSON arrays of
  cells so legacy columns and non-ASCII text survive unchanged.

KEY TABLES:
  ledger_meta: single row holding the header and the current version
  ledger_rows: one row per order, keyed by position

VERSIONING:
  The version is an integer bumped by every write. Write compares it with
  the caller's expected version inside the same SQL transaction as the
  replace, so a stale commit never lands.

WHOLE-TABLE WRITES:
  Write deletes every row and inserts the new ones in one transaction.
  Either the full table is replaced or nothing changes.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so that
  ":memory:" databases are shared by every call.

USAGE:
  store, err := sqlite.New("./rentals.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - rental/store.go: Interface definition
  - store/csvfile: Default flat-file store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/rental-ledger/rental"
)

// Store implements rental.Store using SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL,
		header_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_rows (
		position INTEGER PRIMARY KEY,
		cells_json TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TABLE STORE (rental.Store interface)
// =============================================================================

// Read returns the stored table ordered by position.
func (s *Store) Read(ctx context.Context) (rental.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		version    int64
		headerJSON string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT version, header_json FROM ledger_meta WHERE id = 1",
	).Scan(&version, &headerJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return rental.Table{}, fmt.Errorf("%s: %w", s.path, rental.ErrNoLedger)
	}
	if err != nil {
		return rental.Table{}, s.storageErr("read", err)
	}

	t := rental.Table{Version: formatVersion(version)}
	if err := json.Unmarshal([]byte(headerJSON), &t.Header); err != nil {
		return rental.Table{}, s.storageErr("read", fmt.Errorf("decode header: %w", err))
	}

	rows, err := s.db.QueryContext(ctx, "SELECT position, cells_json FROM ledger_rows ORDER BY position ASC")
	if err != nil {
		return rental.Table{}, s.storageErr("read", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			position  int
			cellsJSON string
			cells     []string
		)
		if err := rows.Scan(&position, &cellsJSON); err != nil {
			return rental.Table{}, s.storageErr("read", err)
		}
		if err := json.Unmarshal([]byte(cellsJSON), &cells); err != nil {
			return rental.Table{}, s.storageErr("read", fmt.Errorf("decode row %d: %w", position, err))
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return rental.Table{}, s.storageErr("read", err)
	}
	return t, nil
}

// Write replaces the stored table in one transaction if the stored version
// is expect.
func (s *Store) Write(ctx context.Context, t rental.Table, expect rental.Version) (rental.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", s.storageErr("write", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	current := rental.VersionNone
	var version int64
	err = sqlTx.QueryRowContext(ctx, "SELECT version FROM ledger_meta WHERE id = 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		version = 0
	case err != nil:
		return "", s.storageErr("write", err)
	default:
		current = formatVersion(version)
	}
	if err := rental.CheckVersion(expect, current); err != nil {
		return "", err
	}

	headerJSON, err := json.Marshal(t.Header)
	if err != nil {
		return "", s.storageErr("write", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM ledger_rows"); err != nil {
		return "", s.storageErr("write", err)
	}
	stmt, err := sqlTx.PrepareContext(ctx, "INSERT INTO ledger_rows (position, cells_json) VALUES (?, ?)")
	if err != nil {
		return "", s.storageErr("write", err)
	}
	defer stmt.Close()
	for i, row := range t.Rows {
		cellsJSON, err := json.Marshal(row)
		if err != nil {
			return "", s.storageErr("write", err)
		}
		if _, err := stmt.ExecContext(ctx, i, string(cellsJSON)); err != nil {
			return "", s.storageErr("write", fmt.Errorf("insert row %d: %w", i, err))
		}
	}

	next := version + 1
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, version, header_json, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			header_json = excluded.header_json,
			updated_at = excluded.updated_at
	`, next, string(headerJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", s.storageErr("write", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return "", s.storageErr("write", fmt.Errorf("commit: %w", err))
	}
	return formatVersion(next), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) storageErr(op string, err error) error {
	return &rental.StorageError{Op: op, Path: s.path, Err: err}
}

func formatVersion(v int64) rental.Version {
	return rental.Version(strconv.FormatInt(v, 10))
}
