package models

import (
	"time"

	"gorm.io/gorm"
)

// BadgeMetric names a countable activity a badge threshold is measured against.
type BadgeMetric string

const (
	MetricCommentsMade     BadgeMetric = "comments_made"
	MetricVotesCast        BadgeMetric = "votes_cast"
	MetricFollowsMade      BadgeMetric = "follows_made"
	MetricLikesReceived    BadgeMetric = "likes_received"
	MetricContentPosted    BadgeMetric = "content_posted"
	MetricContentSubmitted BadgeMetric = "content_submitted"
	MetricPointsEarned     BadgeMetric = "points_earned"
)

var KnownMetrics = []BadgeMetric{
	MetricCommentsMade,
	MetricVotesCast,
	MetricFollowsMade,
	MetricLikesReceived,
	MetricContentPosted,
	MetricContentSubmitted,
	MetricPointsEarned,
}

func (m BadgeMetric) Valid() bool {
	for _, k := range KnownMetrics {
		if m == k {
			return true
		}
	}
	return false
}

// BadgeDefinition: static config (loaded from gamification.yaml)
type BadgeDefinition struct {
	Type         string      `json:"type" mapstructure:"type"`
	Name         string      `json:"name" mapstructure:"name"`
	Description  string      `json:"description" mapstructure:"description"`
	Metric       BadgeMetric `json:"metric" mapstructure:"metric"`
	Threshold    int64       `json:"threshold" mapstructure:"threshold"`
	RewardPoints int64       `json:"reward_points" mapstructure:"reward_points"`
}

// UserBadge is the persisted badge state of one member for one badge type.
// Unlocked flips once; ClaimedAt is a user acknowledgment and never gates the bonus.
type UserBadge struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	ExternalUserID string     `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"external_user_id"`
	BadgeType      string     `gorm:"size:64;not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_type"`
	Progress       int        `gorm:"not null;default:0" json:"progress"`
	Unlocked       bool       `gorm:"not null;default:false" json:"unlocked"`
	UnlockedAt     *time.Time `json:"unlocked_at,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = newID()
	}
	return nil
}

// Predefined badge catalog, used when no catalog is configured.
var DefaultBadgeCatalog = []BadgeDefinition{
	{
		Type:         "FIRST_COMMENT",
		Name:         "Ice Breaker",
		Description:  "Posted your first comment",
		Metric:       MetricCommentsMade,
		Threshold:    1,
		RewardPoints: 10,
	},
	{
		Type:         "COMMENTATOR",
		Name:         "Commentator",
		Description:  "Posted 25 comments",
		Metric:       MetricCommentsMade,
		Threshold:    25,
		RewardPoints: 50,
	},
	{
		Type:         "VOTER",
		Name:         "Civic Duty",
		Description:  "Cast 50 votes",
		Metric:       MetricVotesCast,
		Threshold:    50,
		RewardPoints: 50,
	},
	{
		Type:         "FOLLOWER",
		Name:         "Fan Club",
		Description:  "Followed 10 entries",
		Metric:       MetricFollowsMade,
		Threshold:    10,
		RewardPoints: 20,
	},
	{
		Type:         "POPULAR",
		Name:         "Crowd Favourite",
		Description:  "Received 100 votes on your content",
		Metric:       MetricLikesReceived,
		Threshold:    100,
		RewardPoints: 100,
	},
	{
		Type:         "CREATOR",
		Name:         "Creator",
		Description:  "Published 5 posts",
		Metric:       MetricContentPosted,
		Threshold:    5,
		RewardPoints: 50,
	},
	{
		Type:         "CONTRIBUTOR",
		Name:         "Contributor",
		Description:  "Submitted 3 entries",
		Metric:       MetricContentSubmitted,
		Threshold:    3,
		RewardPoints: 30,
	},
	{
		Type:         "CENTURION",
		Name:         "Centurion",
		Description:  "Earned 1000 points",
		Metric:       MetricPointsEarned,
		Threshold:    1000,
		RewardPoints: 100,
	},
}
