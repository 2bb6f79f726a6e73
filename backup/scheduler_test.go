package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-ledger/rental"
)

type sourceStub struct {
	data []byte
	err  error
}

func (s *sourceStub) ExportSnapshot(context.Context) ([]byte, error) { return s.data, s.err }

func newTestScheduler(t *testing.T, src Source) (*Scheduler, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	s := NewScheduler(src, t.TempDir(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	s.Now = func() time.Time { return now }
	return s, &now
}

func TestRunNowWritesSnapshot(t *testing.T) {
	src := &sourceStub{data: []byte("\xEF\xBB\xBF姓名\nAlice\n")}
	s, _ := newTestScheduler(t, src)

	run := s.RunNow(context.Background())
	require.Empty(t, run.Error)
	assert.Equal(t, "backup_rentals_20260115.csv", run.File)
	assert.Equal(t, len(src.data), run.Bytes)

	got, err := os.ReadFile(filepath.Join(s.Dir, run.File))
	require.NoError(t, err)
	assert.Equal(t, src.data, got)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, run, last)
}

func TestRunNowSkipsUnchangedAndMissing(t *testing.T) {
	src := &sourceStub{err: rental.ErrNoLedger}
	s, now := newTestScheduler(t, src)

	run := s.RunNow(context.Background())
	assert.Equal(t, "no ledger", run.Skipped)
	assert.Empty(t, run.Error)

	src.data, src.err = []byte("a\n1\n"), nil
	require.NotEmpty(t, s.RunNow(context.Background()).File)

	*now = now.AddDate(0, 0, 1)
	run = s.RunNow(context.Background())
	assert.Equal(t, "unchanged", run.Skipped)

	files, err := s.Files()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRunNowReportsFailures(t *testing.T) {
	s, _ := newTestScheduler(t, &sourceStub{err: errors.New("disk on fire")})
	run := s.RunNow(context.Background())
	assert.Contains(t, run.Error, "disk on fire")
	assert.Empty(t, run.File)
}

func TestPruneKeepsNewest(t *testing.T) {
	src := &sourceStub{}
	s, now := newTestScheduler(t, src)
	s.Keep = 2

	for i := 0; i < 4; i++ {
		src.data = []byte{byte('a' + i), '\n'}
		run := s.RunNow(context.Background())
		require.Empty(t, run.Error)
		*now = now.AddDate(0, 0, 1)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "notes.txt"), []byte("x"), 0o644))

	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"backup_rentals_20260117.csv", "backup_rentals_20260118.csv"}, files)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t, &sourceStub{data: []byte("a\n")})
	s.CheckInterval = time.Hour

	s.Start()
	s.Start()
	require.Eventually(t, func() bool {
		_, ok := s.Last()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()

	files, err := s.Files()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
