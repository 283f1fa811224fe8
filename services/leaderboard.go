package services

import (
	"context"
	"log"
	"time"
)

// DefaultCacheTTLs per window; a zero TTL leaves the window uncached.
var DefaultCacheTTLs = map[Window]time.Duration{
	WindowDaily:   300 * time.Second,
	WindowWeekly:  900 * time.Second,
	WindowMonthly: 1800 * time.Second,
	WindowAll:     1800 * time.Second,
}

// LeaderboardService serves ranked lists from the cache and recomputes them
// through the Ranker on miss or expiry. Writes never invalidate the cache;
// staleness is bounded by the TTL alone.
type LeaderboardService struct {
	Ranker Ranker
	Cache  LeaderboardCache
	TTLs   map[Window]time.Duration
	Now    func() time.Time
}

func NewLeaderboardService(ranker Ranker, cache LeaderboardCache, ttls map[Window]time.Duration) *LeaderboardService {
	if ttls == nil {
		ttls = DefaultCacheTTLs
	}
	return &LeaderboardService{
		Ranker: ranker,
		Cache:  cache,
		TTLs:   ttls,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetLeaderboard returns the first take entries of window (take 0 = all).
// Store or cache failures degrade to the stale list, or an empty one.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, window Window, take int) ([]LeaderboardEntry, error) {
	window, err := ParseWindow(string(window))
	if err != nil {
		return nil, err
	}
	if take < 0 {
		return nil, validationf("take must be >= 0, got %d", take)
	}

	now := s.Now()
	ttl := s.TTLs[window]

	var cached *LeaderboardSnapshot
	if ttl > 0 && s.Cache != nil {
		snap, ok, err := s.Cache.Get(ctx, window)
		if err != nil {
			log.Printf("⚠️ [LEADERBOARD] cache read failed for %s: %v", window, err)
		} else if ok {
			cached = snap
			if snap.Fresh(now, ttl) {
				return slice(snap.Entries, take), nil
			}
		}
	}

	entries, err := s.recompute(ctx, window, now, ttl)
	if err != nil {
		if cached != nil {
			log.Printf("⚠️ [LEADERBOARD] ranking %s failed, serving stale list from %s: %v",
				window, cached.ComputedAt.Format(time.RFC3339), err)
			return slice(cached.Entries, take), nil
		}
		log.Printf("❌ [LEADERBOARD] ranking %s failed, serving empty list: %v", window, err)
		return []LeaderboardEntry{}, nil
	}
	return slice(entries, take), nil
}

// Refresh recomputes and stores window regardless of freshness.
func (s *LeaderboardService) Refresh(ctx context.Context, window Window) ([]LeaderboardEntry, error) {
	window, err := ParseWindow(string(window))
	if err != nil {
		return nil, err
	}
	return s.recompute(ctx, window, s.Now(), s.TTLs[window])
}

func (s *LeaderboardService) recompute(ctx context.Context, window Window, now time.Time, ttl time.Duration) ([]LeaderboardEntry, error) {
	entries, err := s.Ranker.Rank(ctx, window, now)
	if err != nil {
		return nil, err
	}
	if ttl > 0 && s.Cache != nil {
		snap := LeaderboardSnapshot{Window: window, ComputedAt: now, Entries: entries}
		if err := s.Cache.Set(ctx, snap, ttl); err != nil {
			log.Printf("⚠️ [LEADERBOARD] cache write failed for %s: %v", window, err)
		}
	}
	return entries, nil
}

func slice(entries []LeaderboardEntry, take int) []LeaderboardEntry {
	if entries == nil {
		return []LeaderboardEntry{}
	}
	if take == 0 || take >= len(entries) {
		return entries
	}
	return entries[:take]
}
