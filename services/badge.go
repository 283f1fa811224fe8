package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Catalog  []models.BadgeDefinition
	Notifier Notifier
}

func NewBadgeService(db *gorm.DB, ledger *LedgerService, catalog []models.BadgeDefinition, notifier Notifier) *BadgeService {
	defs := append([]models.BadgeDefinition(nil), catalog...)
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BadgeService{DB: db, Ledger: ledger, Catalog: defs, Notifier: notifier}
}

// BadgeState is a member's view of one badge.
type BadgeState struct {
	BadgeType  string             `json:"badge_type"`
	Name       string             `json:"name"`
	Metric     models.BadgeMetric `json:"metric"`
	Current    int64              `json:"current"`
	Threshold  int64              `json:"threshold"`
	Progress   int                `json:"progress"`
	Unlocked   bool               `json:"unlocked"`
	UnlockedAt *time.Time         `json:"unlocked_at,omitempty"`
	ClaimedAt  *time.Time         `json:"claimed_at,omitempty"`
}

// Evaluate re-checks every badge for userID, unlocks the ones whose counter
// reached the threshold and awards their bonus through the ledger. The bonus
// is keyed by badge type, so concurrent or repeated runs award it once.
// Passes repeat until nothing changes because a bonus can itself cross a
// points threshold.
func (s *BadgeService) Evaluate(ctx context.Context, userID string) ([]BadgeState, error) {
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	for pass := 0; pass <= len(s.Catalog); pass++ {
		changed, err := s.evaluateOnce(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}
	return s.States(ctx, userID)
}

func (s *BadgeService) evaluateOnce(ctx context.Context, userID string) (bool, error) {
	counters, err := s.Counters(ctx, userID)
	if err != nil {
		return false, err
	}
	rows, err := s.loadRows(ctx, userID)
	if err != nil {
		return false, err
	}

	db := s.DB.WithContext(ctx)
	changed := false
	for _, def := range s.Catalog {
		current := counters[def.Metric]
		row, ok := rows[def.Type]
		if !ok {
			row = models.UserBadge{ExternalUserID: userID, BadgeType: def.Type}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return false, storeErr("create user badge", err)
			}
		}

		if !row.Unlocked && current >= def.Threshold {
			now := time.Now().UTC().Truncate(time.Microsecond)
			res := db.Model(&models.UserBadge{}).
				Where("external_user_id = ? AND badge_type = ? AND unlocked = ?", userID, def.Type, false).
				Updates(map[string]any{"unlocked": true, "unlocked_at": now, "progress": 100})
			if res.Error != nil {
				return false, storeErr("unlock badge", res.Error)
			}
			row.Unlocked = true
			if res.RowsAffected == 1 {
				changed = true
				log.Printf("🎖️ [BADGES] Badge unlocked: %s → %s", def.Name, userID)
				s.Notifier.Notify(Event{
					Type:   EventBadgeUnlocked,
					UserID: userID,
					Data: map[string]any{
						"badge_type":    def.Type,
						"name":          def.Name,
						"reward_points": def.RewardPoints,
					},
				})
			}
		} else if !row.Unlocked {
			p := progressPercent(current, def.Threshold)
			if p > row.Progress {
				if err := db.Model(&models.UserBadge{}).
					Where("external_user_id = ? AND badge_type = ? AND unlocked = ? AND progress < ?", userID, def.Type, false, p).
					Update("progress", p).Error; err != nil {
					return false, storeErr("update badge progress", err)
				}
			}
		}

		if row.Unlocked {
			awarded, err := s.awardBonus(ctx, userID, def)
			if err != nil {
				return false, err
			}
			changed = changed || awarded
		}
	}
	return changed, nil
}

// awardBonus requests the badge bonus and reports whether a new entry was written.
func (s *BadgeService) awardBonus(ctx context.Context, userID string, def models.BadgeDefinition) (bool, error) {
	existing, err := findKeyedEntry(s.DB.WithContext(ctx), userID, models.ActionBadgeBonus, def.Type)
	if err != nil {
		return false, storeErr("find badge bonus", err)
	}
	if existing != nil {
		return false, nil
	}
	ref := def.Type
	entry, err := s.Ledger.AwardPoints(ctx, userID, models.ActionBadgeBonus, def.RewardPoints, &ref)
	if err != nil {
		return false, err
	}
	return entry.Delta != 0, nil
}

// States returns the stored badge state for every catalog badge, sorted by type.
func (s *BadgeService) States(ctx context.Context, userID string) ([]BadgeState, error) {
	counters, err := s.Counters(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.loadRows(ctx, userID)
	if err != nil {
		return nil, err
	}

	states := make([]BadgeState, 0, len(s.Catalog))
	for _, def := range s.Catalog {
		current := counters[def.Metric]
		st := BadgeState{
			BadgeType: def.Type,
			Name:      def.Name,
			Metric:    def.Metric,
			Current:   current,
			Threshold: def.Threshold,
			Progress:  progressPercent(current, def.Threshold),
		}
		if row, ok := rows[def.Type]; ok {
			if row.Progress > st.Progress {
				st.Progress = row.Progress
			}
			st.Unlocked = row.Unlocked
			st.UnlockedAt = utcPtr(row.UnlockedAt)
			st.ClaimedAt = utcPtr(row.ClaimedAt)
		}
		if st.Unlocked {
			st.Progress = 100
		}
		states = append(states, st)
	}
	return states, nil
}

// Acknowledge records that the member saw an unlocked badge. It never awards points.
func (s *BadgeService) Acknowledge(ctx context.Context, userID, badgeType string) (*BadgeState, error) {
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	if _, ok := s.definition(badgeType); !ok {
		return nil, notFoundf("badge type %s", badgeType)
	}

	db := s.DB.WithContext(ctx)
	var row models.UserBadge
	err := db.Where("external_user_id = ? AND badge_type = ?", userID, badgeType).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !row.Unlocked) {
		return nil, notFoundf("unlocked badge %s for %s", badgeType, userID)
	}
	if err != nil {
		return nil, storeErr("load user badge", err)
	}

	if row.ClaimedAt == nil {
		now := time.Now().UTC().Truncate(time.Microsecond)
		if err := db.Model(&models.UserBadge{}).
			Where("id = ? AND claimed_at IS NULL", row.ID).
			Update("claimed_at", now).Error; err != nil {
			return nil, storeErr("acknowledge badge", err)
		}
	}

	states, err := s.States(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range states {
		if states[i].BadgeType == badgeType {
			return &states[i], nil
		}
	}
	return nil, notFoundf("badge type %s", badgeType)
}

// Counters computes every badge metric for userID from interactions, content and the ledger.
func (s *BadgeService) Counters(ctx context.Context, userID string) (map[models.BadgeMetric]int64, error) {
	db := s.DB.WithContext(ctx)
	counters := make(map[models.BadgeMetric]int64, len(models.KnownMetrics))

	type kindCount struct {
		Kind  models.InteractionKind
		Total int64
	}
	var made []kindCount
	if err := db.Model(&models.Interaction{}).
		Select("kind, COUNT(*) AS total").
		Where("external_user_id = ?", userID).
		Group("kind").
		Scan(&made).Error; err != nil {
		return nil, storeErr("count interactions", err)
	}
	for _, kc := range made {
		switch kc.Kind {
		case models.InteractionVote:
			counters[models.MetricVotesCast] = kc.Total
		case models.InteractionComment:
			counters[models.MetricCommentsMade] = kc.Total
		case models.InteractionFollow:
			counters[models.MetricFollowsMade] = kc.Total
		}
	}

	var likes int64
	if err := db.Model(&models.Interaction{}).
		Joins("JOIN content_entities ON content_entities.id = interactions.entity_id").
		Where("content_entities.author_id = ? AND interactions.kind = ?", userID, models.InteractionVote).
		Count(&likes).Error; err != nil {
		return nil, storeErr("count likes received", err)
	}
	counters[models.MetricLikesReceived] = likes

	var posted, submitted int64
	if err := db.Model(&models.ContentEntity{}).
		Where("author_id = ? AND kind = ? AND status = ?", userID, models.ContentKindPost, models.ContentStatusPublished).
		Count(&posted).Error; err != nil {
		return nil, storeErr("count posts", err)
	}
	if err := db.Model(&models.ContentEntity{}).
		Where("author_id = ? AND kind = ?", userID, models.ContentKindSubmission).
		Count(&submitted).Error; err != nil {
		return nil, storeErr("count submissions", err)
	}
	counters[models.MetricContentPosted] = posted
	counters[models.MetricContentSubmitted] = submitted

	points, err := sumPoints(db, userID)
	if err != nil {
		return nil, storeErr("sum points", err)
	}
	counters[models.MetricPointsEarned] = points
	return counters, nil
}

func (s *BadgeService) loadRows(ctx context.Context, userID string) (map[string]models.UserBadge, error) {
	var rows []models.UserBadge
	if err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, storeErr("load user badges", err)
	}
	byType := make(map[string]models.UserBadge, len(rows))
	for _, r := range rows {
		byType[r.BadgeType] = r
	}
	return byType, nil
}

func (s *BadgeService) definition(badgeType string) (models.BadgeDefinition, bool) {
	for _, def := range s.Catalog {
		if def.Type == badgeType {
			return def, true
		}
	}
	return models.BadgeDefinition{}, false
}

// progressPercent = min(current/threshold, 1) × 100
func progressPercent(current, threshold int64) int {
	if threshold <= 0 || current >= threshold {
		return 100
	}
	if current <= 0 {
		return 0
	}
	return int(current * 100 / threshold)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
