package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress is the denormalized gamification state for each member.
// Points is a cache of the ledger sum and Level a cache of LevelForPoints(Points);
// both are repaired by the reconciliation job when they drift.
type UserProgress struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	Points int64 `json:"points" gorm:"default:0"`
	Level  int   `json:"level" gorm:"default:1"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	ReconciledAt  *time.Time `json:"reconciled_at,omitempty"`

	Timestamps
}

func (UserProgress) TableName() string { return "user_progress" }

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
