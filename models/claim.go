package models

import (
	"time"

	"gorm.io/gorm"
)

// ClaimPool is a limited promotional allocation (e.g. "first 100 get a beta key").
type ClaimPool struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Name      string     `json:"name"`
	Slug      string     `gorm:"index" json:"slug"`
	Quota     int        `gorm:"not null" json:"quota"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (p *ClaimPool) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// Claim = one member holding one slot of a pool
type Claim struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	PoolID         string    `gorm:"size:36;not null;uniqueIndex:idx_claim_pool_user,priority:1" json:"pool_id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_claim_pool_user,priority:2" json:"external_user_id"`
	ClaimedAt      time.Time `json:"claimed_at" gorm:"autoCreateTime"`
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}
