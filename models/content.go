package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ContentKindPost       = "post"
	ContentKindSubmission = "submission"
)

const (
	ContentStatusPending   = "pending"
	ContentStatusPublished = "published"
)

// ContentEntity is anything the leaderboard ranks: posts and community submissions.
type ContentEntity struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	AuthorID    string     `gorm:"index;not null" json:"author_id"`
	Title       string     `gorm:"not null" json:"title"`
	Slug        string     `gorm:"index" json:"slug"`
	Kind        string     `gorm:"type:varchar(16);not null;default:'post'" json:"kind"`
	Status      string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty" gorm:"index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ContentEntity) TableName() string { return "content_entities" }

func (c *ContentEntity) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

type InteractionKind string

const (
	InteractionVote    InteractionKind = "vote"
	InteractionComment InteractionKind = "comment"
	InteractionFollow  InteractionKind = "follow"
	InteractionView    InteractionKind = "view"
)

// Interaction is a single vote, comment, follow or view on a content entity.
// Unvote/unfollow soft-delete the row so it drops out of every count.
type Interaction struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	EntityID       string          `gorm:"size:36;not null;index:idx_interaction_entity,priority:1" json:"entity_id"`
	Kind           InteractionKind `gorm:"type:varchar(16);not null;index:idx_interaction_entity,priority:2" json:"kind"`
	ExternalUserID string          `gorm:"index" json:"external_user_id,omitempty"` // empty for anonymous views
	Body           string          `gorm:"type:text" json:"body,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = newID()
	}
	return nil
}
