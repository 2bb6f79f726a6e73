/*
scheduler.go - Periodic ledger backups

PURPOSE:
  Writes the persisted ledger to a backup directory on a fixed interval,
  using the same bytes and file name as a manual export. Old backups
  beyond the retention count are removed.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Skips the write when the ledger is unchanged since the last backup
  - Skips silently when no ledger exists yet
  - Records the last run for the status endpoint

USAGE:
  scheduler := backup.NewScheduler(engine, "./backups", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - rental/engine.go: ExportSnapshot, SnapshotFilename
  - api/handlers.go: GET /api/backups, POST /api/backups/run
*/
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/warp/rental-ledger/rental"
)

const (
	filePrefix = "backup_rentals_"
	fileSuffix = ".csv"
)

// Source produces the bytes of a backup.
type Source interface {
	ExportSnapshot(ctx context.Context) ([]byte, error)
}

// Run describes one backup attempt.
type Run struct {
	At      time.Time `json:"at"`
	File    string    `json:"file,omitempty"`
	Bytes   int       `json:"bytes"`
	Skipped string    `json:"skipped,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Scheduler handles automated backups.
type Scheduler struct {
	Source        Source
	Dir           string
	CheckInterval time.Duration
	Keep          int
	Logger        *slog.Logger
	Now           func() time.Time

	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	runMu    sync.Mutex
	last     *Run
	lastHash uint64
}

// NewScheduler creates a scheduler writing into dir once a day and keeping
// the 14 most recent files.
func NewScheduler(source Source, dir string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Source:        source,
		Dir:           dir,
		CheckInterval: 24 * time.Hour,
		Keep:          14,
		Logger:        logger,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	s.Logger.Info("backup scheduler started",
		slog.String("dir", s.Dir),
		slog.Duration("interval", s.CheckInterval),
		slog.Int("keep", s.Keep))
}

// Stop stops the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("backup scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.RunNow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow takes a backup immediately and returns its outcome.
func (s *Scheduler) RunNow(ctx context.Context) Run {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.Now()
	run := Run{At: now}

	data, err := s.Source.ExportSnapshot(ctx)
	switch {
	case errors.Is(err, rental.ErrNoLedger):
		run.Skipped = "no ledger"
	case err != nil:
		run.Error = err.Error()
		s.Logger.Error("backup failed", slog.String("error", err.Error()))
	case s.last != nil && s.last.Error == "" && xxhash.Sum64(data) == s.lastHash:
		run.Skipped = "unchanged"
	default:
		name, err := s.write(now, data)
		if err != nil {
			run.Error = err.Error()
			s.Logger.Error("backup failed", slog.String("error", err.Error()))
			break
		}
		run.File = name
		run.Bytes = len(data)
		s.lastHash = xxhash.Sum64(data)
		s.Logger.Info("backup written", slog.String("file", name), slog.Int("bytes", len(data)))
		if err := s.prune(); err != nil {
			s.Logger.Warn("backup prune failed", slog.String("error", err.Error()))
		}
	}

	s.last = &run
	return run
}

// Last returns the most recent run, if any.
func (s *Scheduler) Last() (Run, bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.last == nil {
		return Run{}, false
	}
	return *s.last, true
}

// NextRunTime returns when the next scheduled backup will occur.
func (s *Scheduler) NextRunTime() time.Time {
	return s.Now().Add(s.CheckInterval)
}

// Files lists the backups in the directory, oldest first.
func (s *Scheduler) Files() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Scheduler) write(now time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	name := rental.SnapshotFilename(now)
	tmp := filepath.Join(s.Dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.Dir, name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return name, nil
}

// prune removes the oldest backups beyond Keep. Keep <= 0 keeps all.
func (s *Scheduler) prune() error {
	if s.Keep <= 0 {
		return nil
	}
	names, err := s.Files()
	if err != nil {
		return err
	}
	for len(names) > s.Keep {
		if err := os.Remove(filepath.Join(s.Dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
