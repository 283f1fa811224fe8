package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gamification-system/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardSnapshot is the full ranked list of a window at ComputedAt.
type LeaderboardSnapshot struct {
	Window     Window             `json:"window"`
	ComputedAt time.Time          `json:"computed_at"`
	TTLSeconds int                `json:"ttl_seconds"`
	Entries    []LeaderboardEntry `json:"entries"`
}

// Fresh reports whether now - ComputedAt < ttl.
func (s *LeaderboardSnapshot) Fresh(now time.Time, ttl time.Duration) bool {
	return s != nil && ttl > 0 && now.Sub(s.ComputedAt) < ttl
}

// LeaderboardCache stores snapshots keyed by window. Get returns whatever was
// stored last, even past its TTL; the caller judges freshness so a stale list
// can still be served when recomputation fails.
type LeaderboardCache interface {
	Get(ctx context.Context, window Window) (*LeaderboardSnapshot, bool, error)
	Set(ctx context.Context, snapshot LeaderboardSnapshot, ttl time.Duration) error
}

// MemoryCache keeps snapshots in process.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[Window]LeaderboardSnapshot
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[Window]LeaderboardSnapshot)}
}

func (c *MemoryCache) Get(_ context.Context, window Window) (*LeaderboardSnapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.items[window]
	if !ok {
		return nil, false, nil
	}
	snap.Entries = append([]LeaderboardEntry(nil), snap.Entries...)
	return &snap, true, nil
}

func (c *MemoryCache) Set(_ context.Context, snapshot LeaderboardSnapshot, ttl time.Duration) error {
	snapshot.TTLSeconds = int(ttl / time.Second)
	snapshot.Entries = append([]LeaderboardEntry(nil), snapshot.Entries...)
	c.mu.Lock()
	c.items[snapshot.Window] = snapshot
	c.mu.Unlock()
	return nil
}

// DBCache keeps snapshots in the leaderboard_cache table so every instance shares them.
type DBCache struct {
	DB *gorm.DB
}

func NewDBCache(db *gorm.DB) *DBCache {
	return &DBCache{DB: db}
}

func (c *DBCache) Get(ctx context.Context, window Window) (*LeaderboardSnapshot, bool, error) {
	var rec models.LeaderboardCacheRecord
	err := c.DB.WithContext(ctx).Where("window_key = ?", string(window)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("load leaderboard cache", err)
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(rec.RankedList, &entries); err != nil {
		return nil, false, storeErr("decode leaderboard cache", err)
	}
	return &LeaderboardSnapshot{
		Window:     window,
		ComputedAt: rec.ComputedAt,
		TTLSeconds: rec.TTLSeconds,
		Entries:    entries,
	}, true, nil
}

// Set overwrites the window's record; concurrent writers race and the last one wins.
func (c *DBCache) Set(ctx context.Context, snapshot LeaderboardSnapshot, ttl time.Duration) error {
	if snapshot.Entries == nil {
		snapshot.Entries = []LeaderboardEntry{}
	}
	raw, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return storeErr("encode leaderboard cache", err)
	}
	rec := models.LeaderboardCacheRecord{
		WindowKey:  string(snapshot.Window),
		ComputedAt: snapshot.ComputedAt,
		TTLSeconds: int(ttl / time.Second),
		RankedList: datatypes.JSON(raw),
	}
	if err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "window_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"computed_at", "ttl_seconds", "ranked_list"}),
	}).Create(&rec).Error; err != nil {
		return storeErr("store leaderboard cache", err)
	}
	return nil
}
