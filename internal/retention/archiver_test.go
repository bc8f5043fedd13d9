package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	archived   int64
	pruned     int64
	archiveErr error
	pruneCalls int
}

func (f *fakeArchiver) ArchiveQuotes(context.Context, time.Time) (int64, error) {
	return f.archived, f.archiveErr
}

func (f *fakeArchiver) PruneQuotes(context.Context, time.Time) (int64, error) {
	f.pruneCalls++
	return f.pruned, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_RunArchivesAndPrunes(t *testing.T) {
	arch := &fakeArchiver{archived: 10, pruned: 10}
	w := NewWorker(arch, 90, testLogger())

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 1, arch.pruneCalls)
}

func TestWorker_RunSkipsPruneWhenEmpty(t *testing.T) {
	arch := &fakeArchiver{archived: 0}
	w := NewWorker(arch, 90, testLogger())

	require.NoError(t, w.Run(context.Background()))
	assert.Zero(t, arch.pruneCalls)
}

func TestWorker_RunPropagatesArchiveError(t *testing.T) {
	arch := &fakeArchiver{archiveErr: errors.New("upload failed")}
	w := NewWorker(arch, 90, testLogger())

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, arch.pruneCalls, "prune must not run after a failed archive")
}

func TestNextCronTime_MonthlySchedule(t *testing.T) {
	after := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 1 * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTime_ListFields(t *testing.T) {
	after := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	next, err := nextCronTime("30 0,12 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 15, 12, 30, 0, 0, time.UTC), next)
}

func TestNextCronTime_InvalidExpression(t *testing.T) {
	_, err := nextCronTime("not a cron", time.Now())
	require.Error(t, err)
}
