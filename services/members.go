package services

import (
	"context"
	"errors"
	"strings"

	"gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberService struct {
	DB *gorm.DB
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{DB: db}
}

// EnsureMember upserts the local mirror row for a profile-service user (idempotent).
func (s *MemberService) EnsureMember(ctx context.Context, externalUserID, username string) (*models.Member, error) {
	externalUserID = strings.TrimSpace(externalUserID)
	if externalUserID == "" {
		return nil, validationf("external user id is required")
	}

	member := models.Member{ExternalUserID: externalUserID, Username: username}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at", "deleted_at"}),
	}).Create(&member).Error; err != nil {
		return nil, storeErr("upsert member", err)
	}

	var stored models.Member
	if err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&stored).Error; err != nil {
		return nil, storeErr("load member", err)
	}
	return &stored, nil
}

// Exists reports whether the member is known locally.
func (s *MemberService) Exists(ctx context.Context, externalUserID string) (bool, error) {
	return memberExists(ctx, s.DB, externalUserID)
}

// requireMember returns ErrNotFound when the member is unknown.
func requireMember(ctx context.Context, db *gorm.DB, externalUserID string) error {
	if strings.TrimSpace(externalUserID) == "" {
		return validationf("user id is required")
	}
	ok, err := memberExists(ctx, db, externalUserID)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundf("member %s", externalUserID)
	}
	return nil
}

func memberExists(ctx context.Context, db *gorm.DB, externalUserID string) (bool, error) {
	var m models.Member
	err := db.WithContext(ctx).Select("id").Where("external_user_id = ?", externalUserID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("load member", err)
	}
	return true, nil
}

// Search finds members by username substring, case-insensitive. limit is clamped to 1..100.
func (s *MemberService) Search(ctx context.Context, query string, limit int) ([]models.Member, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	db := s.DB.WithContext(ctx).Model(&models.Member{}).Order("username").Limit(limit)
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		db = db.Where("LOWER(username) LIKE ? OR external_user_id = ?", "%"+q+"%", query)
	}
	var members []models.Member
	if err := db.Find(&members).Error; err != nil {
		return nil, storeErr("search members", err)
	}
	return members, nil
}
