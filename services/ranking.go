package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gamification-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Window is a leaderboard time range.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowAll     Window = "all"
)

var Windows = []Window{WindowDaily, WindowWeekly, WindowMonthly, WindowAll}

// ParseWindow accepts the window keys plus "all-time".
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return WindowDaily, nil
	case "weekly":
		return WindowWeekly, nil
	case "monthly":
		return WindowMonthly, nil
	case "all", "all-time", "":
		return WindowAll, nil
	}
	return "", validationf("unknown leaderboard window %q", s)
}

// Start returns the inclusive lower bound of the window, nil for all-time.
func (w Window) Start(now time.Time) *time.Time {
	var d time.Duration
	switch w {
	case WindowDaily:
		d = 24 * time.Hour
	case WindowWeekly:
		d = 7 * 24 * time.Hour
	case WindowMonthly:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	start := now.Add(-d)
	return &start
}

// ScoringWeights weigh each interaction kind in the final score.
type ScoringWeights struct {
	Votes    float64 `json:"votes" mapstructure:"votes"`
	Comments float64 `json:"comments" mapstructure:"comments"`
	Follows  float64 `json:"follows" mapstructure:"follows"`
	Views    float64 `json:"views" mapstructure:"views"`
}

var DefaultScoringWeights = ScoringWeights{Votes: 0.4, Comments: 0.3, Follows: 0.2, Views: 0.1}

const weightTolerance = 0.001

// Validate requires non-negative weights summing to 1.0 (±0.001).
func (w ScoringWeights) Validate() error {
	for name, v := range map[string]float64{"votes": w.Votes, "comments": w.Comments, "follows": w.Follows, "views": w.Views} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	sum := w.Votes + w.Comments + w.Follows + w.Views
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// OrDefault returns w when valid, DefaultScoringWeights otherwise.
func (w ScoringWeights) OrDefault() ScoringWeights {
	if w.Validate() != nil {
		return DefaultScoringWeights
	}
	return w
}

// Score = votes·Wv + comments·Wc + follows·Wf + views·Wview, rounded to 2 dp.
func (w ScoringWeights) Score(votes, comments, follows, views int64) float64 {
	total := decimal.NewFromInt(votes).Mul(decimal.NewFromFloat(w.Votes)).
		Add(decimal.NewFromInt(comments).Mul(decimal.NewFromFloat(w.Comments))).
		Add(decimal.NewFromInt(follows).Mul(decimal.NewFromFloat(w.Follows))).
		Add(decimal.NewFromInt(views).Mul(decimal.NewFromFloat(w.Views)))
	return total.Round(2).InexactFloat64()
}

// LeaderboardEntry is one ranked content entity. Never persisted on its own.
type LeaderboardEntry struct {
	EntityID   string  `json:"entity_id"`
	Title      string  `json:"title,omitempty"`
	AuthorID   string  `json:"author_id,omitempty"`
	Window     Window  `json:"window"`
	Votes      int64   `json:"votes"`
	Comments   int64   `json:"comments"`
	Follows    int64   `json:"follows"`
	Views      int64   `json:"views"`
	FinalScore float64 `json:"final_score"`
	Rank       int     `json:"rank"`
}

// Ranker computes the full ranked list of a window.
type Ranker interface {
	Rank(ctx context.Context, window Window, now time.Time) ([]LeaderboardEntry, error)
}

// RankingEngine ranks published content from interaction counts in the store.
type RankingEngine struct {
	DB      *gorm.DB
	Weights ScoringWeights
}

func NewRankingEngine(db *gorm.DB, weights ScoringWeights) *RankingEngine {
	return &RankingEngine{DB: db, Weights: weights.OrDefault()}
}

func (e *RankingEngine) Rank(ctx context.Context, window Window, now time.Time) ([]LeaderboardEntry, error) {
	db := e.DB.WithContext(ctx)

	var entities []models.ContentEntity
	if err := db.Where("status = ?", models.ContentStatusPublished).Find(&entities).Error; err != nil {
		return nil, storeErr("load content", err)
	}

	type countRow struct {
		EntityID string
		Kind     models.InteractionKind
		Total    int64
	}
	q := db.Model(&models.Interaction{}).
		Select("entity_id, kind, COUNT(*) AS total").
		Group("entity_id, kind")
	if start := window.Start(now); start != nil {
		q = q.Where("created_at >= ?", *start)
	}
	var rows []countRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, storeErr("count interactions", err)
	}

	byEntity := make(map[string]*LeaderboardEntry, len(entities))
	entries := make([]LeaderboardEntry, 0, len(entities))
	for _, ent := range entities {
		entries = append(entries, LeaderboardEntry{EntityID: ent.ID, Title: ent.Title, AuthorID: ent.AuthorID, Window: window})
	}
	for i := range entries {
		byEntity[entries[i].EntityID] = &entries[i]
	}
	for _, r := range rows {
		le, ok := byEntity[r.EntityID]
		if !ok {
			continue // unpublished entity
		}
		switch r.Kind {
		case models.InteractionVote:
			le.Votes = r.Total
		case models.InteractionComment:
			le.Comments = r.Total
		case models.InteractionFollow:
			le.Follows = r.Total
		case models.InteractionView:
			le.Views = r.Total
		}
	}

	return RankEntries(entries, e.Weights), nil
}

// RankEntries scores and orders entries in place and assigns 1-based ranks.
// Order: score desc, then votes, comments, follows, views desc, then entity id asc.
func RankEntries(entries []LeaderboardEntry, weights ScoringWeights) []LeaderboardEntry {
	for i := range entries {
		e := &entries[i]
		e.FinalScore = weights.Score(e.Votes, e.Comments, e.Follows, e.Views)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.FinalScore != b.FinalScore:
			return a.FinalScore > b.FinalScore
		case a.Votes != b.Votes:
			return a.Votes > b.Votes
		case a.Comments != b.Comments:
			return a.Comments > b.Comments
		case a.Follows != b.Follows:
			return a.Follows > b.Follows
		case a.Views != b.Views:
			return a.Views > b.Views
		}
		return a.EntityID < b.EntityID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
