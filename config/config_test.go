package config

import (
	"bytes"
	"testing"
	"time"

	"gamification-system/models"
	"gamification-system/services"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yamlViper(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(doc)))
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("GAME_SERVICE_TOKEN", "secret")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5200, cfg.Port)
	assert.Equal(t, "secret", cfg.GatewayToken)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, services.DefaultScoringWeights, cfg.Weights)
	assert.Equal(t, services.DefaultCacheTTLs, cfg.CacheTTLs)
	assert.Equal(t, services.DefaultLevelTable(), cfg.Levels)
	assert.Equal(t, models.DefaultBadgeCatalog, cfg.Badges)
	assert.Equal(t, time.Hour, cfg.Scheduler.ReconcileInterval)
	assert.False(t, cfg.R2.Configured())
}

func TestFromViper_RequiresDatabaseAndToken(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GAME_SERVICE_TOKEN", "")
	t.Setenv("GATEWAY_TOKEN", "")

	_, err := FromViper(viper.New())
	assert.Error(t, err)
}

func TestFromViper_FileValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("GATEWAY_TOKEN", "tok")

	v := yamlViper(t, `
allowed_origins: "https://a.example, https://b.example"
scoring:
  weights: {votes: 0.5, comments: 0.25, follows: 0.25, views: 0}
cache:
  ttl: {daily: 60, all: 0}
levels:
  thresholds: [0, 50, 150]
points:
  base: {comment: 7}
  first_time_bonus: {vote: 0}
badges:
  - {type: FAN, name: Fan, metric: votes_cast, threshold: 3, reward_points: 5}
  - {type: BROKEN, name: Broken, metric: dancing, threshold: 3}
  - {type: ZERO, name: Zero, metric: votes_cast, threshold: 0}
`)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, services.ScoringWeights{Votes: 0.5, Comments: 0.25, Follows: 0.25}, cfg.Weights)
	assert.Equal(t, 60*time.Second, cfg.CacheTTLs[services.WindowDaily])
	assert.Zero(t, cfg.CacheTTLs[services.WindowAll])
	assert.Equal(t, services.DefaultCacheTTLs[services.WindowWeekly], cfg.CacheTTLs[services.WindowWeekly])
	assert.Equal(t, services.LevelTable{0, 50, 150}, cfg.Levels)
	assert.Equal(t, int64(7), cfg.BasePoints[models.ActionComment])
	assert.Equal(t, services.DefaultBasePoints[models.ActionVote], cfg.BasePoints[models.ActionVote])
	assert.Zero(t, cfg.FirstTimeBonus[models.ActionVote])
	require.Len(t, cfg.Badges, 1)
	assert.Equal(t, "FAN", cfg.Badges[0].Type)
	assert.Equal(t, int64(5), cfg.Badges[0].RewardPoints)
}

func TestFromViper_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("GATEWAY_TOKEN", "tok")

	v := yamlViper(t, `
scoring:
  weights: {votes: 0.9, comments: 0.9, follows: 0, views: 0}
cache:
  ttl: {weekly: -5}
levels:
  thresholds: [10, 5]
`)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, services.DefaultScoringWeights, cfg.Weights)
	assert.Equal(t, services.DefaultCacheTTLs[services.WindowWeekly], cfg.CacheTTLs[services.WindowWeekly])
	assert.Equal(t, services.DefaultLevelTable(), cfg.Levels)
}

func TestValidBadges_DropsDuplicates(t *testing.T) {
	defs := ValidBadges([]models.BadgeDefinition{
		{Type: "A", Metric: models.MetricVotesCast, Threshold: 1},
		{Type: "A", Metric: models.MetricVotesCast, Threshold: 2},
		{Type: " ", Metric: models.MetricVotesCast, Threshold: 1},
	})
	require.Len(t, defs, 1)
	assert.Equal(t, int64(1), defs[0].Threshold)
}
