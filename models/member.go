package models

import (
	"time"

	"gorm.io/gorm"
)

// Member is a local snapshot of a user owned by the profile service.
// Populated via the member sync worker; its presence is what makes a user "exist" here.
type Member struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string    `gorm:"index" json:"username"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
