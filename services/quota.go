package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gamification-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimOutcome is the result of one claim attempt. Expected conflicts are
// outcomes, not errors.
type ClaimOutcome string

const (
	ClaimSuccess        ClaimOutcome = "success"
	ClaimNotFound       ClaimOutcome = "not_found"
	ClaimExpired        ClaimOutcome = "expired"
	ClaimQuotaExceeded  ClaimOutcome = "quota_exceeded"
	ClaimAlreadyClaimed ClaimOutcome = "already_claimed"
)

type ClaimResult struct {
	Outcome ClaimOutcome  `json:"outcome"`
	Claim   *models.Claim `json:"claim,omitempty"`
}

// Err maps a non-success outcome to its sentinel error.
func (r ClaimResult) Err() error {
	switch r.Outcome {
	case ClaimSuccess:
		return nil
	case ClaimNotFound:
		return ErrNotFound
	case ClaimExpired:
		return ErrExpired
	case ClaimQuotaExceeded:
		return ErrQuotaExceeded
	case ClaimAlreadyClaimed:
		return fmt.Errorf("%w: already claimed", ErrConflict)
	}
	return ErrInternal
}

type PoolState string

const (
	PoolOpen    PoolState = "open"
	PoolFull    PoolState = "full"
	PoolExpired PoolState = "expired"
)

type PoolSummary struct {
	Pool      models.ClaimPool `json:"pool"`
	Claimed   int64            `json:"claimed"`
	Remaining int64            `json:"remaining"`
	State     PoolState        `json:"state"`
}

// ClaimService hands out pool slots at most once per member and never
// beyond the quota. Each claim runs in one transaction holding a row lock on
// the pool; a per-pool mutex gives the same exclusion on stores without row
// locks (SQLite).
type ClaimService struct {
	DB  *gorm.DB
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewClaimService(db *gorm.DB) *ClaimService {
	return &ClaimService{
		DB:    db,
		Now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*sync.Mutex),
	}
}

// CreatePool opens a pool with quota slots, optionally expiring at expiresAt.
func (s *ClaimService) CreatePool(ctx context.Context, name string, quota int, expiresAt *time.Time) (*models.ClaimPool, error) {
	if quota < 1 {
		return nil, validationf("quota must be at least 1, got %d", quota)
	}
	name = strings.TrimSpace(name)
	pool := models.ClaimPool{
		Name:  name,
		Slug:  slug.Make(name),
		Quota: quota,
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		pool.ExpiresAt = &t
	}
	if err := s.DB.WithContext(ctx).Create(&pool).Error; err != nil {
		return nil, storeErr("create pool", err)
	}
	log.Printf("🎟️ [CLAIMS] pool %s (%q) opened with quota %d", pool.ID, pool.Name, pool.Quota)
	return &pool, nil
}

// Claim takes one slot of poolID for userID. Checks run in order: pool
// exists, not expired, below quota, not already claimed by userID. The
// error return is reserved for store failures.
func (s *ClaimService) Claim(ctx context.Context, poolID, userID string) (ClaimResult, error) {
	if strings.TrimSpace(poolID) == "" || strings.TrimSpace(userID) == "" {
		return ClaimResult{}, validationf("pool id and user id are required")
	}

	lock := s.poolLock(poolID)
	lock.Lock()
	defer lock.Unlock()

	var result ClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pool models.ClaimPool
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", poolID).
			First(&pool).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Outcome = ClaimNotFound
			return nil
		}
		if err != nil {
			return err
		}

		if pool.ExpiresAt != nil && !s.Now().Before(*pool.ExpiresAt) {
			result.Outcome = ClaimExpired
			return nil
		}

		var claimed int64
		if err := tx.Model(&models.Claim{}).Where("pool_id = ?", poolID).Count(&claimed).Error; err != nil {
			return err
		}
		if claimed >= int64(pool.Quota) {
			result.Outcome = ClaimQuotaExceeded
			return nil
		}

		var existing int64
		if err := tx.Model(&models.Claim{}).
			Where("pool_id = ? AND external_user_id = ?", poolID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			result.Outcome = ClaimAlreadyClaimed
			return nil
		}

		claim := models.Claim{PoolID: poolID, ExternalUserID: userID}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}
		result = ClaimResult{Outcome: ClaimSuccess, Claim: &claim}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// another instance inserted the same (pool, user) first
			return ClaimResult{Outcome: ClaimAlreadyClaimed}, nil
		}
		log.Printf("❌ [CLAIMS] claim %s by %s failed: %v", poolID, userID, err)
		return ClaimResult{}, storeErr("claim", err)
	}

	if result.Outcome == ClaimSuccess {
		log.Printf("✅ [CLAIMS] %s claimed a slot of %s", userID, poolID)
	}
	return result, nil
}

// Pool returns the pool with its claim count and state.
func (s *ClaimService) Pool(ctx context.Context, poolID string) (*PoolSummary, error) {
	db := s.DB.WithContext(ctx)
	var pool models.ClaimPool
	if err := db.First(&pool, "id = ?", poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("pool %s", poolID)
		}
		return nil, storeErr("load pool", err)
	}
	var claimed int64
	if err := db.Model(&models.Claim{}).Where("pool_id = ?", poolID).Count(&claimed).Error; err != nil {
		return nil, storeErr("count claims", err)
	}

	remaining := int64(pool.Quota) - claimed
	if remaining < 0 {
		remaining = 0
	}
	state := PoolOpen
	switch {
	case pool.ExpiresAt != nil && !s.Now().Before(*pool.ExpiresAt):
		state = PoolExpired
	case remaining == 0:
		state = PoolFull
	}
	return &PoolSummary{Pool: pool, Claimed: claimed, Remaining: remaining, State: state}, nil
}

func (s *ClaimService) poolLock(poolID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[poolID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[poolID] = l
	}
	return l
}
