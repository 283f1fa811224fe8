package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	mu      sync.Mutex
	windows []string
}

func (a *fakeArchiver) ArchiveLeaderboard(_ context.Context, window string, _ time.Time, _ any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windows = append(a.windows, window)
	return "https://cdn.example/" + window, nil
}

func TestWarmLeaderboards_SkipsUncachedWindows(t *testing.T) {
	ranker := &fakeRanker{entries: threeEntries()}
	boards, _ := newBoards(ranker, NewMemoryCache())
	boards.TTLs = map[Window]time.Duration{WindowDaily: time.Minute, WindowWeekly: 0}

	warmLeaderboards(boards)
	assert.Equal(t, 1, ranker.callCount())

	_, err := boards.GetLeaderboard(context.Background(), WindowDaily, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ranker.callCount(), "served from the warmed cache")
}

func TestArchiveLeaderboards_EveryWindow(t *testing.T) {
	boards, _ := newBoards(&fakeRanker{entries: threeEntries()}, NewMemoryCache())
	archiver := &fakeArchiver{}

	archiveLeaderboards(boards, archiver)
	assert.Equal(t, []string{"daily", "weekly", "monthly", "all"}, archiver.windows)
}

func TestStartScheduler(t *testing.T) {
	f := newFixture(t, nil)
	boards, _ := newBoards(&fakeRanker{}, NewMemoryCache())

	sched, err := StartScheduler(SchedulerConfig{ReconcileInterval: time.Hour, WarmInterval: time.Hour}, f.ledger, boards, nil)
	require.NoError(t, err)
	assert.Len(t, sched.Jobs(), 2)
	require.NoError(t, sched.Shutdown())
}
