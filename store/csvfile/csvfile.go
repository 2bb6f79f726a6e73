/*
Package csvfile provides the flat-file implementation of rental.Store.

PURPOSE:
  The ledger lives in one CSV file that operators can also open in a
  spreadsheet. The file is UTF-8 with a byte order mark so spreadsheet
  tools detect the encoding on their own.

VERSIONING:
  The version of the file is the xxhash of its bytes. Any change to the
  file, including one made by hand in a spreadsheet, changes the version
  and fails a pending commit with rental.ErrConcurrentModification.

ATOMIC WRITES:
  Write renders the table to a temporary file in the same directory,
  syncs it and renames it over the ledger. Readers see either the old
  file or the new one.

CONCURRENCY:
  A mutex serialises the check-then-rename of Write inside one process.
  Two processes writing the same file are not arbitrated beyond the
  version check.

USAGE:
  store := csvfile.New("./s25u_rental_db.csv")
  engine := rental.NewEngine(store, rental.DefaultDefaults(), logger)

SEE ALSO:
  - rental/store.go: Store interface
  - rental/codec.go: CSV encoding
*/
package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/warp/rental-ledger/rental"
)

// Store implements rental.Store over a single CSV file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store for path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Read parses the file. A missing file is rental.ErrNoLedger; an unreadable
// or malformed one is a *rental.StorageError.
func (s *Store) Read(_ context.Context) (rental.Table, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return rental.Table{}, fmt.Errorf("%s: %w", s.path, rental.ErrNoLedger)
	}
	if err != nil {
		return rental.Table{}, &rental.StorageError{Op: "read", Path: s.path, Err: err}
	}

	t, err := rental.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return rental.Table{}, &rental.StorageError{Op: "read", Path: s.path, Err: err}
	}
	t.Version = versionOf(data)
	return t, nil
}

// Write atomically replaces the file if its current version is expect.
func (s *Store) Write(_ context.Context, t rental.Table, expect rental.Version) (rental.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentVersion()
	if err != nil {
		return "", err
	}
	if err := rental.CheckVersion(expect, current); err != nil {
		return "", err
	}

	data, err := rental.MarshalCSV(t)
	if err != nil {
		return "", &rental.StorageError{Op: "write", Path: s.path, Err: err}
	}
	if err := s.replace(data); err != nil {
		return "", &rental.StorageError{Op: "write", Path: s.path, Err: err}
	}
	return versionOf(data), nil
}

func (s *Store) currentVersion() (rental.Version, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return rental.VersionNone, nil
	}
	if err != nil {
		return "", &rental.StorageError{Op: "read", Path: s.path, Err: err}
	}
	return versionOf(data), nil
}

func (s *Store) replace(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func versionOf(data []byte) rental.Version {
	return rental.Version(strconv.FormatUint(xxhash.Sum64(data), 16))
}
