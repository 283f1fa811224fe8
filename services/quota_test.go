package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gamification-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim_ConcurrentNeverExceedsQuota(t *testing.T) {
	db := newTestDB(t)
	claims := NewClaimService(db)
	ctx := context.Background()

	pool, err := claims.CreatePool(ctx, "Beta Keys", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "beta-keys", pool.Slug)

	const n = 12
	outcomes := make([]ClaimOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// two attempts per user
			res, err := claims.Claim(ctx, pool.ID, fmt.Sprintf("user-%d", i/2))
			if assert.NoError(t, err) {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	counts := map[ClaimOutcome]int{}
	for _, o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 3, counts[ClaimSuccess])
	assert.Equal(t, n-3, counts[ClaimQuotaExceeded]+counts[ClaimAlreadyClaimed])

	var rows []models.Claim
	require.NoError(t, db.Where("pool_id = ?", pool.ID).Find(&rows).Error)
	assert.Len(t, rows, 3)
	seen := map[string]bool{}
	for _, r := range rows {
		assert.False(t, seen[r.ExternalUserID], "duplicate claim for %s", r.ExternalUserID)
		seen[r.ExternalUserID] = true
	}
}

func TestClaim_QuotaOneTwoUsers(t *testing.T) {
	claims := NewClaimService(newTestDB(t))
	ctx := context.Background()
	pool, err := claims.CreatePool(ctx, "Golden Ticket", 1, nil)
	require.NoError(t, err)

	results := make(chan ClaimResult, 2)
	var wg sync.WaitGroup
	for _, u := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			res, err := claims.Claim(ctx, pool.ID, u)
			assert.NoError(t, err)
			results <- res
		}(u)
	}
	wg.Wait()
	close(results)

	var outcomes []ClaimOutcome
	for r := range results {
		outcomes = append(outcomes, r.Outcome)
	}
	assert.ElementsMatch(t, []ClaimOutcome{ClaimSuccess, ClaimQuotaExceeded}, outcomes)
}

func TestClaim_Outcomes(t *testing.T) {
	claims := NewClaimService(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	claims.Now = func() time.Time { return now }

	res, err := claims.Claim(ctx, "nope", "alice")
	require.NoError(t, err)
	assert.Equal(t, ClaimNotFound, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrNotFound)

	expiry := now.Add(-time.Minute)
	expired, err := claims.CreatePool(ctx, "Old", 5, &expiry)
	require.NoError(t, err)
	res, err = claims.Claim(ctx, expired.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, ClaimExpired, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrExpired)

	open, err := claims.CreatePool(ctx, "Open", 5, nil)
	require.NoError(t, err)
	res, err = claims.Claim(ctx, open.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, res.Outcome)
	require.NotNil(t, res.Claim)
	assert.NoError(t, res.Err())

	res, err = claims.Claim(ctx, open.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, ClaimAlreadyClaimed, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrConflict)
}

func TestClaim_FullPoolReportsQuotaBeforeAlreadyClaimed(t *testing.T) {
	claims := NewClaimService(newTestDB(t))
	ctx := context.Background()
	pool, err := claims.CreatePool(ctx, "Tiny", 1, nil)
	require.NoError(t, err)

	res, err := claims.Claim(ctx, pool.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, ClaimSuccess, res.Outcome)

	res, err = claims.Claim(ctx, pool.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, ClaimQuotaExceeded, res.Outcome)
}

func TestCreatePool_Validation(t *testing.T) {
	claims := NewClaimService(newTestDB(t))
	_, err := claims.CreatePool(context.Background(), "Zero", 0, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPool_Summary(t *testing.T) {
	claims := NewClaimService(newTestDB(t))
	ctx := context.Background()
	pool, err := claims.CreatePool(ctx, "Pair", 2, nil)
	require.NoError(t, err)

	sum, err := claims.Pool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, PoolOpen, sum.State)
	assert.Equal(t, int64(2), sum.Remaining)

	for _, u := range []string{"a", "b"} {
		_, err := claims.Claim(ctx, pool.ID, u)
		require.NoError(t, err)
	}
	sum, err = claims.Pool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, PoolFull, sum.State)
	assert.Equal(t, int64(2), sum.Claimed)
	assert.Zero(t, sum.Remaining)

	_, err = claims.Pool(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
