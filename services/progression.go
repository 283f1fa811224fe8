package services

import (
	"context"

	"gorm.io/gorm"
)

// UserGamificationState is what a member sees on their progress page.
type UserGamificationState struct {
	UserID string       `json:"user_id"`
	Points int64        `json:"points"`
	Level  LevelInfo    `json:"level"`
	Badges []BadgeState `json:"badges"`
}

// ProgressionService assembles a member's points, level and badges.
type ProgressionService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Badges *BadgeService
}

func NewProgressionService(db *gorm.DB, ledger *LedgerService, badges *BadgeService) *ProgressionService {
	return &ProgressionService{DB: db, Ledger: ledger, Badges: badges}
}

// State reads points from the ledger rather than user_progress so a drifted
// cache never leaks to the member.
func (s *ProgressionService) State(ctx context.Context, userID string) (*UserGamificationState, error) {
	points, err := s.Ledger.RecomputePoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Badges.States(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserGamificationState{
		UserID: userID,
		Points: points,
		Level:  s.Ledger.LevelForPoints(points),
		Badges: badges,
	}, nil
}

// AfterActivity runs the ledger and badge side-effects of a primary action.
// Failures are logged by the caller and never undo the action itself.
func (s *ProgressionService) AfterActivity(ctx context.Context, award Award) error {
	if _, err := s.Ledger.AwardPoints(ctx, award.UserID, award.Action, award.Amount, award.ReferenceID); err != nil {
		return err
	}
	_, err := s.Badges.Evaluate(ctx, award.UserID)
	return err
}
