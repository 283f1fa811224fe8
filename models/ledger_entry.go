package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointAction names the activity that produced a ledger entry.
type PointAction string

const (
	ActionVote                PointAction = "vote"
	ActionVoteReceived        PointAction = "vote-received"
	ActionComment             PointAction = "comment"
	ActionFollow              PointAction = "follow"
	ActionPost                PointAction = "post"
	ActionSubmit              PointAction = "submit"
	ActionBadgeBonus          PointAction = "badge-bonus"
	ActionMigrationAdjustment PointAction = "migration-adjustment"
)

// KnownActions lists every action the ledger accepts.
var KnownActions = []PointAction{
	ActionVote,
	ActionVoteReceived,
	ActionComment,
	ActionFollow,
	ActionPost,
	ActionSubmit,
	ActionBadgeBonus,
	ActionMigrationAdjustment,
}

func (a PointAction) Valid() bool {
	for _, k := range KnownActions {
		if a == k {
			return true
		}
	}
	return false
}

// LedgerEntry is one point-affecting event. Rows are never deleted; the only
// mutation is Reverted, set once by the logical inverse of the action.
//
// (external_user_id, action, reference_id) is unique. NULL reference ids
// never collide, so entries without a reference are not deduplicated.
type LedgerEntry struct {
	ID             string      `gorm:"primaryKey;size:36" json:"id"`
	ExternalUserID string      `gorm:"not null;index;uniqueIndex:idx_ledger_dedupe,priority:1" json:"external_user_id"`
	Action         PointAction `gorm:"type:varchar(32);not null;uniqueIndex:idx_ledger_dedupe,priority:2" json:"action"`
	Delta          int64       `gorm:"not null" json:"delta"`
	ReferenceID    *string     `gorm:"size:128;uniqueIndex:idx_ledger_dedupe,priority:3" json:"reference_id,omitempty"`
	Reverted       bool        `gorm:"not null;default:false;index" json:"reverted"`
	RevertedAt     *time.Time  `json:"reverted_at,omitempty"`
	CreatedAt      time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "points_ledger" }

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = newID()
	}
	return nil
}

func newID() string { return uuid.NewString() }
