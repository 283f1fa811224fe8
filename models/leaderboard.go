package models

import (
	"time"

	"gorm.io/datatypes"
)

// LeaderboardCacheRecord holds the full ranked list of one window.
// Owned by the leaderboard cache; safe to truncate at any time.
type LeaderboardCacheRecord struct {
	WindowKey  string         `gorm:"primaryKey;size:16" json:"window_key"`
	ComputedAt time.Time      `gorm:"not null" json:"computed_at"`
	TTLSeconds int            `gorm:"not null" json:"ttl_seconds"`
	RankedList datatypes.JSON `gorm:"not null" json:"ranked_list"`
}

func (LeaderboardCacheRecord) TableName() string { return "leaderboard_cache" }
