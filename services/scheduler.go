// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SnapshotArchiver stores a ranked list outside the database and returns its URL.
type SnapshotArchiver interface {
	ArchiveLeaderboard(ctx context.Context, window string, computedAt time.Time, entries any) (string, error)
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration
	WarmInterval      time.Duration
	ArchiveInterval   time.Duration
}

// StartScheduler runs the background jobs: ledger reconciliation, leaderboard
// cache warming and, when an archiver is set, daily snapshot archiving.
// Callers own the returned scheduler and must Shutdown it.
func StartScheduler(cfg SchedulerConfig, ledger *LedgerService, boards *LeaderboardService, archiver SnapshotArchiver) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	if cfg.ReconcileInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.ReconcileInterval),
			gocron.NewTask(func() { runReconcile(ledger) }),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	if cfg.WarmInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.WarmInterval),
			gocron.NewTask(func() { warmLeaderboards(boards) }),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return nil, err
		}
	}

	if archiver != nil && cfg.ArchiveInterval > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.ArchiveInterval),
			gocron.NewTask(func() { archiveLeaderboards(boards, archiver) }),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	sched.Start()
	log.Printf("⏰ [SCHEDULER] started (reconcile=%s warm=%s archive=%s)",
		cfg.ReconcileInterval, cfg.WarmInterval, cfg.ArchiveInterval)
	return sched, nil
}

func runReconcile(ledger *LedgerService) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	checked, repaired, err := ledger.Reconcile(ctx)
	if err != nil {
		log.Printf("[SCHEDULER] reconcile failed after %d members: %v", checked, err)
		return
	}
	if repaired > 0 {
		log.Printf("✅ [SCHEDULER] reconciled %d members, repaired %d", checked, repaired)
	}
}

func warmLeaderboards(boards *LeaderboardService) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, w := range Windows {
		if boards.TTLs[w] <= 0 {
			continue
		}
		if _, err := boards.Refresh(ctx, w); err != nil {
			log.Printf("[SCHEDULER] warm %s leaderboard failed: %v", w, err)
		}
	}
}

func archiveLeaderboards(boards *LeaderboardService, archiver SnapshotArchiver) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := boards.Now()
	for _, w := range Windows {
		entries, err := boards.GetLeaderboard(ctx, w, 0)
		if err != nil {
			log.Printf("[SCHEDULER] load %s leaderboard for archive failed: %v", w, err)
			continue
		}
		url, err := archiver.ArchiveLeaderboard(ctx, string(w), now, entries)
		if err != nil {
			log.Printf("[SCHEDULER] archive %s leaderboard failed: %v", w, err)
			continue
		}
		log.Printf("📦 [SCHEDULER] archived %s leaderboard (%d entries) → %s", w, len(entries), url)
	}
}
