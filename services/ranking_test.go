package services

import (
	"context"
	"testing"
	"time"

	"gamification-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_DefaultWeights(t *testing.T) {
	assert.Equal(t, 15.9, DefaultScoringWeights.Score(10, 5, 2, 100))
	assert.Equal(t, 0.0, DefaultScoringWeights.Score(0, 0, 0, 0))
	assert.Equal(t, 0.33, ScoringWeights{Votes: 1.0 / 3, Comments: 1.0 / 3, Follows: 1.0 / 3}.Score(1, 0, 0, 0))
}

func TestScoringWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultScoringWeights.Validate())
	assert.NoError(t, ScoringWeights{Votes: 0.5, Comments: 0.5}.Validate())
	assert.Error(t, ScoringWeights{Votes: 0.5}.Validate())
	assert.Error(t, ScoringWeights{Votes: 1.2, Comments: -0.2}.Validate())

	assert.Equal(t, DefaultScoringWeights, ScoringWeights{Votes: 3}.OrDefault())
	assert.Equal(t, DefaultScoringWeights, NewRankingEngine(nil, ScoringWeights{}).Weights)
}

func TestRankEntries_TieBreakChain(t *testing.T) {
	w := ScoringWeights{Votes: 0.25, Comments: 0.25, Follows: 0.25, Views: 0.25}
	entries := []LeaderboardEntry{
		{EntityID: "e", Votes: 1, Comments: 1, Follows: 1, Views: 1},
		{EntityID: "d", Votes: 1, Comments: 1, Follows: 1, Views: 1},
		{EntityID: "c", Votes: 1, Comments: 1, Follows: 2, Views: 0},
		{EntityID: "b", Votes: 1, Comments: 2, Follows: 0, Views: 1},
		{EntityID: "a", Votes: 2, Comments: 0, Follows: 1, Views: 1},
		{EntityID: "top", Votes: 9},
	}

	ranked := RankEntries(entries, w)

	var order []string
	for i, e := range ranked {
		order = append(order, e.EntityID)
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, []string{"top", "a", "b", "c", "d", "e"}, order)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].FinalScore, ranked[i].FinalScore)
	}
}

func TestRankEntries_Deterministic(t *testing.T) {
	build := func() []LeaderboardEntry {
		return []LeaderboardEntry{
			{EntityID: "x", Votes: 3}, {EntityID: "y", Votes: 3}, {EntityID: "z", Votes: 3}, {EntityID: "w", Votes: 3},
		}
	}
	first := RankEntries(build(), DefaultScoringWeights)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, RankEntries(build(), DefaultScoringWeights))
	}
}

func TestParseWindow(t *testing.T) {
	for in, want := range map[string]Window{"daily": WindowDaily, "WEEKLY": WindowWeekly, "monthly": WindowMonthly, "all-time": WindowAll, "": WindowAll} {
		got, err := ParseWindow(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseWindow("yearly")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRankingEngine_RespectsWindowAndStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := models.ContentEntity{AuthorID: "a", Title: "Fresh", Kind: models.ContentKindPost, Status: models.ContentStatusPublished}
	old := models.ContentEntity{AuthorID: "b", Title: "Old", Kind: models.ContentKindPost, Status: models.ContentStatusPublished}
	pending := models.ContentEntity{AuthorID: "c", Title: "Pending", Kind: models.ContentKindSubmission, Status: models.ContentStatusPending}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&pending).Error)

	add := func(entity string, kind models.InteractionKind, n int, at time.Time) {
		for i := 0; i < n; i++ {
			require.NoError(t, db.Create(&models.Interaction{EntityID: entity, Kind: kind, ExternalUserID: "u", CreatedAt: at}).Error)
		}
	}
	add(fresh.ID, models.InteractionVote, 2, now.Add(-time.Hour))
	add(old.ID, models.InteractionVote, 10, now.Add(-10*24*time.Hour))
	add(old.ID, models.InteractionComment, 1, now.Add(-2*time.Hour))
	add(pending.ID, models.InteractionVote, 50, now.Add(-time.Hour))

	engine := NewRankingEngine(db, DefaultScoringWeights)

	daily, err := engine.Rank(ctx, WindowDaily, now)
	require.NoError(t, err)
	require.Len(t, daily, 2, "pending content is not ranked")
	assert.Equal(t, fresh.ID, daily[0].EntityID)
	assert.Equal(t, 0.8, daily[0].FinalScore)
	assert.Equal(t, old.ID, daily[1].EntityID)
	assert.Equal(t, int64(0), daily[1].Votes)

	all, err := engine.Rank(ctx, WindowAll, now)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, old.ID, all[0].EntityID)
	assert.Equal(t, int64(10), all[0].Votes)
	assert.Equal(t, 4.3, all[0].FinalScore)
	assert.Equal(t, WindowAll, all[0].Window)
}
