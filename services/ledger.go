package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService appends point entries and keeps user_progress in step with them.
type LedgerService struct {
	DB       *gorm.DB
	Levels   LevelTable
	Bonuses  map[models.PointAction]int64 // first-time bonus per action
	Notifier Notifier
}

func NewLedgerService(db *gorm.DB, levels LevelTable, bonuses map[models.PointAction]int64, notifier Notifier) *LedgerService {
	if len(levels) == 0 {
		levels = DefaultLevelTable()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LedgerService{DB: db, Levels: levels, Bonuses: bonuses, Notifier: notifier}
}

// AwardPoints appends an entry for action. The member's first non-reverted
// entry for an action gets the configured first-time bonus instead of
// baseAmount. With a referenceID, a second call for the same
// (user, action, reference) returns the existing entry and writes nothing.
func (s *LedgerService) AwardPoints(ctx context.Context, userID string, action models.PointAction, baseAmount int64, referenceID *string) (*models.LedgerEntry, error) {
	if !action.Valid() {
		return nil, validationf("unknown action %q", action)
	}
	if referenceID != nil && *referenceID == "" {
		referenceID = nil
	}
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, err
	}

	var (
		entry     models.LedgerEntry
		created   bool
		prevLevel int
		prog      models.UserProgress
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if referenceID != nil {
			existing, err := findKeyedEntry(tx, userID, action, *referenceID)
			if err != nil {
				return err
			}
			if existing != nil {
				entry = *existing
				return nil
			}
		}

		delta := baseAmount
		if bonus, ok := s.Bonuses[action]; ok && bonus > 0 {
			var prior int64
			if err := tx.Model(&models.LedgerEntry{}).
				Where("external_user_id = ? AND action = ? AND reverted = ?", userID, action, false).
				Count(&prior).Error; err != nil {
				return err
			}
			if prior == 0 {
				delta = bonus
			}
		}

		entry = models.LedgerEntry{
			ExternalUserID: userID,
			Action:         action,
			Delta:          delta,
			ReferenceID:    referenceID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		created = true

		var err error
		prevLevel, prog, err = s.syncProgress(tx, userID)
		return err
	})
	if err != nil {
		// A concurrent award with the same key won the unique index.
		if referenceID != nil {
			if existing, ferr := findKeyedEntry(s.DB.WithContext(ctx), userID, action, *referenceID); ferr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, storeErr("award points", err)
	}

	if created {
		log.Printf("🎮 [LEDGER] %s %+d (%s) → points=%d level=%d", userID, entry.Delta, action, prog.Points, prog.Level)
		s.Notifier.Notify(Event{
			Type:   EventPointsAwarded,
			UserID: userID,
			Data: map[string]any{
				"entry_id": entry.ID,
				"action":   string(action),
				"delta":    entry.Delta,
				"points":   prog.Points,
			},
		})
		if prog.Level > prevLevel {
			s.Notifier.Notify(Event{
				Type:   EventLevelUp,
				UserID: userID,
				Data:   map[string]any{"level": prog.Level, "previous_level": prevLevel},
			})
		}
	}
	return &entry, nil
}

// RevertPoints marks an entry reverted. The row stays for the audit trail;
// reverting twice is a no-op.
func (s *LedgerService) RevertPoints(ctx context.Context, entryID string) (*models.LedgerEntry, error) {
	if entryID == "" {
		return nil, validationf("entry id is required")
	}

	var entry models.LedgerEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", entryID).Error; err != nil {
			return err
		}
		if entry.Reverted {
			return nil
		}
		now := time.Now().UTC()
		res := tx.Model(&models.LedgerEntry{}).
			Where("id = ? AND reverted = ?", entryID, false).
			Updates(map[string]any{"reverted": true, "reverted_at": now})
		if res.Error != nil {
			return res.Error
		}
		entry.Reverted = true
		entry.RevertedAt = &now
		_, _, err := s.syncProgress(tx, entry.ExternalUserID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("ledger entry %s", entryID)
		}
		return nil, storeErr("revert points", err)
	}
	log.Printf("↩️ [LEDGER] reverted %s (%s %+d) for %s", entry.ID, entry.Action, entry.Delta, entry.ExternalUserID)
	return &entry, nil
}

// RevertByReference reverts the entry keyed by (user, action, reference), if any.
func (s *LedgerService) RevertByReference(ctx context.Context, userID string, action models.PointAction, referenceID string) (*models.LedgerEntry, error) {
	existing, err := findKeyedEntry(s.DB.WithContext(ctx), userID, action, referenceID)
	if err != nil {
		return nil, storeErr("find ledger entry", err)
	}
	if existing == nil {
		return nil, notFoundf("ledger entry %s/%s/%s", userID, action, referenceID)
	}
	return s.RevertPoints(ctx, existing.ID)
}

// RecomputePoints is the authoritative total: max(0, Σ delta over non-reverted entries).
func (s *LedgerService) RecomputePoints(ctx context.Context, userID string) (int64, error) {
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return 0, err
	}
	points, err := sumPoints(s.DB.WithContext(ctx), userID)
	if err != nil {
		return 0, storeErr("sum points", err)
	}
	return points, nil
}

// LevelForPoints maps points to a level with the configured table.
func (s *LedgerService) LevelForPoints(points int64) LevelInfo {
	return s.Levels.ForPoints(points)
}

// Reconcile repairs drift between user_progress and the ledger.
func (s *LedgerService) Reconcile(ctx context.Context) (checked, repaired int, err error) {
	var batch []models.UserProgress
	res := s.DB.WithContext(ctx).FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for _, p := range batch {
			checked++
			points, err := sumPoints(s.DB.WithContext(ctx), p.ExternalUserID)
			if err != nil {
				return err
			}
			level := s.Levels.ForPoints(points).Level
			now := time.Now().UTC()
			updates := map[string]any{"reconciled_at": now}
			if points != p.Points || level != p.Level {
				log.Printf("🔧 [LEDGER] drift for %s: points %d→%d level %d→%d",
					p.ExternalUserID, p.Points, points, p.Level, level)
				updates["points"] = points
				updates["level"] = level
				repaired++
			}
			if err := s.DB.WithContext(ctx).Model(&models.UserProgress{}).
				Where("id = ?", p.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if res.Error != nil {
		return checked, repaired, storeErr("reconcile", res.Error)
	}
	return checked, repaired, nil
}

// History returns a page of ledger entries, newest first.
func (s *LedgerService) History(ctx context.Context, userID string, page, size int) (*HistoryPage, error) {
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	db := s.DB.WithContext(ctx)
	var total int64
	if err := db.Model(&models.LedgerEntry{}).Where("external_user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, storeErr("count ledger", err)
	}
	var entries []models.LedgerEntry
	if err := db.Where("external_user_id = ?", userID).
		Order("created_at DESC").Order("id").
		Limit(size).Offset((page - 1) * size).
		Find(&entries).Error; err != nil {
		return nil, storeErr("list ledger", err)
	}
	return &HistoryPage{
		Entries:    entries,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

type HistoryPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	Page       int                  `json:"page"`
	Size       int                  `json:"size"`
	TotalItems int64                `json:"total_items"`
	TotalPages int                  `json:"total_pages"`
}

// syncProgress rewrites the denormalized points/level inside tx and returns
// the level before the write.
func (s *LedgerService) syncProgress(tx *gorm.DB, userID string) (int, models.UserProgress, error) {
	points, err := sumPoints(tx, userID)
	if err != nil {
		return 0, models.UserProgress{}, err
	}

	var prog models.UserProgress
	err = tx.Where("external_user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := models.UserProgress{ExternalUserID: userID, Level: 1}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
			return 0, prog, err
		}
		err = tx.Where("external_user_id = ?", userID).First(&prog).Error
	}
	if err != nil {
		return 0, prog, err
	}

	prevLevel := prog.Level
	if prevLevel < 1 {
		prevLevel = 1
	}
	level := s.Levels.ForPoints(points).Level
	updates := map[string]any{"points": points, "level": level}
	if level > prevLevel {
		now := time.Now().UTC()
		updates["last_level_up_at"] = now
		prog.LastLevelUpAt = &now
	}
	if err := tx.Model(&models.UserProgress{}).Where("id = ?", prog.ID).Updates(updates).Error; err != nil {
		return 0, prog, err
	}
	prog.Points = points
	prog.Level = level
	return prevLevel, prog, nil
}

func sumPoints(db *gorm.DB, userID string) (int64, error) {
	var sum int64
	if err := db.Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("external_user_id = ? AND reverted = ?", userID, false).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum < 0 {
		return 0, nil
	}
	return sum, nil
}

func findKeyedEntry(db *gorm.DB, userID string, action models.PointAction, referenceID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := db.Where("external_user_id = ? AND action = ? AND reference_id = ?", userID, action, referenceID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find keyed entry: %w", err)
	}
	return &entry, nil
}
