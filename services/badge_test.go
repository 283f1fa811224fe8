package services

import (
	"context"
	"sync"
	"testing"

	"gamification-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []models.BadgeDefinition{
	{Type: "FIRST_COMMENT", Name: "Ice Breaker", Metric: models.MetricCommentsMade, Threshold: 1, RewardPoints: 10},
	{Type: "TALKER", Name: "Talker", Metric: models.MetricCommentsMade, Threshold: 4, RewardPoints: 20},
	{Type: "RICH", Name: "Rich", Metric: models.MetricPointsEarned, Threshold: 30, RewardPoints: 5},
}

func badgeByType(states []BadgeState, typ string) BadgeState {
	for _, s := range states {
		if s.BadgeType == typ {
			return s
		}
	}
	return BadgeState{}
}

func seedComments(t *testing.T, f *fixture, userID, entityID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.db.Create(&models.Interaction{
			EntityID:       entityID,
			Kind:           models.InteractionComment,
			ExternalUserID: userID,
			Body:           "hi",
		}).Error)
	}
}

func TestEvaluate_UnlocksAndAwardsOnce(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "alice")
	seedComments(t, f, u, "post-1", 1)

	states, err := f.badges.Evaluate(ctx, u)
	require.NoError(t, err)

	first := badgeByType(states, "FIRST_COMMENT")
	assert.True(t, first.Unlocked)
	assert.Equal(t, 100, first.Progress)
	assert.NotNil(t, first.UnlockedAt)

	talker := badgeByType(states, "TALKER")
	assert.False(t, talker.Unlocked)
	assert.Equal(t, 25, talker.Progress)

	points, err := f.ledger.RecomputePoints(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(10), points)
	assert.Len(t, f.events.ofType(EventBadgeUnlocked), 1)
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "bob")
	seedComments(t, f, u, "post-1", 4)

	first, err := f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	entries := f.ledgerCount(t, u)

	second, err := f.badges.Evaluate(ctx, u)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, entries, f.ledgerCount(t, u))
}

func TestEvaluate_BonusCanCrossPointsThreshold(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "carol")
	// FIRST_COMMENT (10) + TALKER (20) = 30 unlocks RICH in the same call
	seedComments(t, f, u, "post-1", 4)

	states, err := f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	assert.True(t, badgeByType(states, "RICH").Unlocked)

	points, err := f.ledger.RecomputePoints(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(35), points)

	entries := f.ledgerCount(t, u)
	_, err = f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, entries, f.ledgerCount(t, u))
}

func TestEvaluate_ProgressNeverDecreases(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "dave")
	seedComments(t, f, u, "post-1", 3)

	states, err := f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 75, badgeByType(states, "TALKER").Progress)

	// drop the counter; stored progress holds
	require.NoError(t, f.db.Where("external_user_id = ?", u).Delete(&models.Interaction{}).Error)
	states, err = f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 75, badgeByType(states, "TALKER").Progress)
}

func TestEvaluate_ConcurrentCallsAwardOnce(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "erin")
	seedComments(t, f, u, "post-1", 1)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.badges.Evaluate(ctx, u)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var bonuses int64
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).
		Where("external_user_id = ? AND action = ?", u, models.ActionBadgeBonus).
		Count(&bonuses).Error)
	assert.Equal(t, int64(1), bonuses)
	assert.Len(t, f.events.ofType(EventBadgeUnlocked), 1)
}

func TestEvaluate_HealsMissingBonus(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "fay")

	// unlocked row without its bonus entry, as after a crash between the two writes
	require.NoError(t, f.db.Create(&models.UserBadge{
		ExternalUserID: u, BadgeType: "FIRST_COMMENT", Unlocked: true, Progress: 100,
	}).Error)

	_, err := f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	points, err := f.ledger.RecomputePoints(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(10), points)
}

func TestAcknowledge(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	u := f.member(t, "gus")
	seedComments(t, f, u, "post-1", 1)

	_, err := f.badges.Acknowledge(ctx, u, "TALKER")
	assert.ErrorIs(t, err, ErrNotFound, "locked badge")
	_, err = f.badges.Acknowledge(ctx, u, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound, "unknown badge")

	_, err = f.badges.Evaluate(ctx, u)
	require.NoError(t, err)
	before, err := f.ledger.RecomputePoints(ctx, u)
	require.NoError(t, err)

	state, err := f.badges.Acknowledge(ctx, u, "FIRST_COMMENT")
	require.NoError(t, err)
	require.NotNil(t, state.ClaimedAt)
	claimedAt := *state.ClaimedAt

	again, err := f.badges.Acknowledge(ctx, u, "FIRST_COMMENT")
	require.NoError(t, err)
	assert.True(t, claimedAt.Equal(*again.ClaimedAt))

	after, err := f.ledger.RecomputePoints(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, before, after, "acknowledging never awards points")
}

func TestCounters_LikesReceivedIgnoresRemovedVotes(t *testing.T) {
	f := newFixture(t, testCatalog)
	ctx := context.Background()
	author := f.member(t, "hal")
	post := models.ContentEntity{AuthorID: author, Title: "Hello", Kind: models.ContentKindPost, Status: models.ContentStatusPublished}
	require.NoError(t, f.db.Create(&post).Error)

	for _, voter := range []string{"v1", "v2", "v3"} {
		require.NoError(t, f.db.Create(&models.Interaction{EntityID: post.ID, Kind: models.InteractionVote, ExternalUserID: voter}).Error)
	}
	require.NoError(t, f.db.Where("external_user_id = ?", "v3").Delete(&models.Interaction{}).Error)

	counters, err := f.badges.Counters(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters[models.MetricLikesReceived])
	assert.Equal(t, int64(1), counters[models.MetricContentPosted])
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, progressPercent(0, 10))
	assert.Equal(t, 50, progressPercent(5, 10))
	assert.Equal(t, 100, progressPercent(10, 10))
	assert.Equal(t, 100, progressPercent(50, 10))
	assert.Equal(t, 33, progressPercent(1, 3))
}
