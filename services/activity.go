package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gamification-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Award is one ledger side-effect of a primary action.
type Award struct {
	UserID      string
	Action      models.PointAction
	Amount      int64
	ReferenceID *string
}

// DefaultBasePoints is what each action earns after the first time.
var DefaultBasePoints = map[models.PointAction]int64{
	models.ActionVote:         1,
	models.ActionVoteReceived: 2,
	models.ActionComment:      5,
	models.ActionFollow:       2,
	models.ActionPost:         10,
	models.ActionSubmit:       15,
}

// DefaultFirstTimeBonuses replace the base amount on a member's first entry for an action.
var DefaultFirstTimeBonuses = map[models.PointAction]int64{
	models.ActionComment: 10,
	models.ActionVote:    5,
	models.ActionFollow:  5,
	models.ActionPost:    20,
	models.ActionSubmit:  25,
}

// ActivityService records votes, comments, follows, views and content. The
// interaction row is the primary write; ledger awards and badge evaluation
// run afterwards and never fail the action.
type ActivityService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	BasePoints  map[models.PointAction]int64
}

func NewActivityService(db *gorm.DB, progression *ProgressionService, basePoints map[models.PointAction]int64) *ActivityService {
	if basePoints == nil {
		basePoints = DefaultBasePoints
	}
	return &ActivityService{DB: db, Progression: progression, BasePoints: basePoints}
}

func (s *ActivityService) Vote(ctx context.Context, userID, entityID string) (*models.Interaction, error) {
	entity, in, err := s.addUnique(ctx, userID, entityID, models.InteractionVote)
	if err != nil {
		return nil, err
	}
	s.award(ctx, userID, models.ActionVote, entityID)
	if entity.AuthorID != userID {
		s.award(ctx, entity.AuthorID, models.ActionVoteReceived, voteReceivedRef(entityID, userID))
	}
	return in, nil
}

// Unvote removes the vote and reverts the voter's and the author's entries.
// The dedupe keys stay taken, so voting again earns nothing.
func (s *ActivityService) Unvote(ctx context.Context, userID, entityID string) error {
	entity, err := s.removeUnique(ctx, userID, entityID, models.InteractionVote)
	if err != nil {
		return err
	}
	s.revert(ctx, userID, models.ActionVote, entityID)
	if entity.AuthorID != userID {
		s.revert(ctx, entity.AuthorID, models.ActionVoteReceived, voteReceivedRef(entityID, userID))
	}
	return nil
}

func (s *ActivityService) Follow(ctx context.Context, userID, entityID string) (*models.Interaction, error) {
	_, in, err := s.addUnique(ctx, userID, entityID, models.InteractionFollow)
	if err != nil {
		return nil, err
	}
	s.award(ctx, userID, models.ActionFollow, entityID)
	return in, nil
}

func (s *ActivityService) Unfollow(ctx context.Context, userID, entityID string) error {
	if _, err := s.removeUnique(ctx, userID, entityID, models.InteractionFollow); err != nil {
		return err
	}
	s.revert(ctx, userID, models.ActionFollow, entityID)
	return nil
}

func (s *ActivityService) Comment(ctx context.Context, userID, entityID, body string) (*models.Interaction, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationf("comment body is required")
	}
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	if _, err := s.publishedEntity(ctx, entityID); err != nil {
		return nil, err
	}

	in := models.Interaction{EntityID: entityID, Kind: models.InteractionComment, ExternalUserID: userID, Body: body}
	if err := s.DB.WithContext(ctx).Create(&in).Error; err != nil {
		return nil, storeErr("create comment", err)
	}
	s.award(ctx, userID, models.ActionComment, in.ID)
	return &in, nil
}

// View counts toward ranking only. userID may be empty for anonymous readers.
func (s *ActivityService) View(ctx context.Context, userID, entityID string) error {
	if _, err := s.publishedEntity(ctx, entityID); err != nil {
		return err
	}
	in := models.Interaction{EntityID: entityID, Kind: models.InteractionView, ExternalUserID: userID}
	if err := s.DB.WithContext(ctx).Create(&in).Error; err != nil {
		return storeErr("create view", err)
	}
	return nil
}

// Post publishes a post immediately.
func (s *ActivityService) Post(ctx context.Context, authorID, title string) (*models.ContentEntity, error) {
	return s.createContent(ctx, authorID, title, models.ContentKindPost, models.ActionPost)
}

// Submit files a community submission that waits for Publish.
func (s *ActivityService) Submit(ctx context.Context, authorID, title string) (*models.ContentEntity, error) {
	return s.createContent(ctx, authorID, title, models.ContentKindSubmission, models.ActionSubmit)
}

// Publish makes pending content rankable. Publishing twice is a no-op.
func (s *ActivityService) Publish(ctx context.Context, entityID string) (*models.ContentEntity, error) {
	entity, err := s.entity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity.Status == models.ContentStatusPublished {
		return entity, nil
	}
	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&models.ContentEntity{}).
		Where("id = ? AND status = ?", entityID, models.ContentStatusPending).
		Updates(map[string]any{"status": models.ContentStatusPublished, "published_at": now}).Error; err != nil {
		return nil, storeErr("publish content", err)
	}
	entity.Status = models.ContentStatusPublished
	entity.PublishedAt = &now
	log.Printf("📢 [ACTIVITY] published %s %q", entity.ID, entity.Title)
	s.evaluate(ctx, entity.AuthorID)
	return entity, nil
}

func (s *ActivityService) createContent(ctx context.Context, authorID, title, kind string, action models.PointAction) (*models.ContentEntity, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationf("title is required")
	}
	if err := requireMember(ctx, s.DB, authorID); err != nil {
		return nil, err
	}

	entity := models.ContentEntity{
		AuthorID: authorID,
		Title:    title,
		Slug:     slug.Make(title),
		Kind:     kind,
		Status:   models.ContentStatusPending,
	}
	if kind == models.ContentKindPost {
		now := time.Now().UTC()
		entity.Status = models.ContentStatusPublished
		entity.PublishedAt = &now
	}
	if err := s.DB.WithContext(ctx).Create(&entity).Error; err != nil {
		return nil, storeErr("create content", err)
	}
	s.award(ctx, authorID, action, entity.ID)
	return &entity, nil
}

// addUnique writes a vote or follow; a live one by the same member is a conflict.
func (s *ActivityService) addUnique(ctx context.Context, userID, entityID string, kind models.InteractionKind) (*models.ContentEntity, *models.Interaction, error) {
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, nil, err
	}
	entity, err := s.publishedEntity(ctx, entityID)
	if err != nil {
		return nil, nil, err
	}

	db := s.DB.WithContext(ctx)
	var live int64
	if err := db.Model(&models.Interaction{}).
		Where("entity_id = ? AND external_user_id = ? AND kind = ?", entityID, userID, kind).
		Count(&live).Error; err != nil {
		return nil, nil, storeErr("check "+string(kind), err)
	}
	if live > 0 {
		return nil, nil, conflictf("%s by %s on %s already exists", kind, userID, entityID)
	}
	in := models.Interaction{EntityID: entityID, Kind: kind, ExternalUserID: userID}
	if err := db.Create(&in).Error; err != nil {
		return nil, nil, storeErr("create "+string(kind), err)
	}
	return entity, &in, nil
}

func (s *ActivityService) removeUnique(ctx context.Context, userID, entityID string, kind models.InteractionKind) (*models.ContentEntity, error) {
	if err := requireMember(ctx, s.DB, userID); err != nil {
		return nil, err
	}
	entity, err := s.entity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	res := s.DB.WithContext(ctx).
		Where("entity_id = ? AND external_user_id = ? AND kind = ?", entityID, userID, kind).
		Delete(&models.Interaction{})
	if res.Error != nil {
		return nil, storeErr("remove "+string(kind), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFoundf("%s by %s on %s", kind, userID, entityID)
	}
	return entity, nil
}

func (s *ActivityService) entity(ctx context.Context, entityID string) (*models.ContentEntity, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, validationf("content id is required")
	}
	var entity models.ContentEntity
	err := s.DB.WithContext(ctx).First(&entity, "id = ?", entityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("content %s", entityID)
	}
	if err != nil {
		return nil, storeErr("load content", err)
	}
	return &entity, nil
}

func (s *ActivityService) publishedEntity(ctx context.Context, entityID string) (*models.ContentEntity, error) {
	entity, err := s.entity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if entity.Status != models.ContentStatusPublished {
		return nil, validationf("content %s is not published", entityID)
	}
	return entity, nil
}

func (s *ActivityService) award(ctx context.Context, userID string, action models.PointAction, ref string) {
	if s.Progression == nil {
		return
	}
	award := Award{UserID: userID, Action: action, Amount: s.BasePoints[action], ReferenceID: &ref}
	if err := s.Progression.AfterActivity(ctx, award); err != nil {
		log.Printf("⚠️ [ACTIVITY] %s award for %s (ref %s) failed: %v", action, userID, ref, err)
	}
}

func (s *ActivityService) revert(ctx context.Context, userID string, action models.PointAction, ref string) {
	if s.Progression == nil {
		return
	}
	if _, err := s.Progression.Ledger.RevertByReference(ctx, userID, action, ref); err != nil {
		log.Printf("⚠️ [ACTIVITY] revert %s for %s (ref %s) failed: %v", action, userID, ref, err)
	}
}

func (s *ActivityService) evaluate(ctx context.Context, userID string) {
	if s.Progression == nil {
		return
	}
	if _, err := s.Progression.Badges.Evaluate(ctx, userID); err != nil {
		log.Printf("⚠️ [ACTIVITY] badge evaluation for %s failed: %v", userID, err)
	}
}

func voteReceivedRef(entityID, voterID string) string {
	return entityID + ":" + voterID
}
