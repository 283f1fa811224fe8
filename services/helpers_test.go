package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gamification-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with every table migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// recorder is a Notifier that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	events      *recorder
	members     *MemberService
	ledger      *LedgerService
	badges      *BadgeService
	progression *ProgressionService
	activity    *ActivityService
}

func newFixture(t *testing.T, catalog []models.BadgeDefinition) *fixture {
	t.Helper()
	db := newTestDB(t)
	rec := &recorder{}
	ledger := NewLedgerService(db, DefaultLevelTable(), DefaultFirstTimeBonuses, rec)
	badges := NewBadgeService(db, ledger, catalog, rec)
	progression := NewProgressionService(db, ledger, badges)
	return &fixture{
		db:          db,
		events:      rec,
		members:     NewMemberService(db),
		ledger:      ledger,
		badges:      badges,
		progression: progression,
		activity:    NewActivityService(db, progression, DefaultBasePoints),
	}
}

func (f *fixture) member(t *testing.T, id string) string {
	t.Helper()
	_, err := f.members.EnsureMember(context.Background(), id, id)
	require.NoError(t, err)
	return id
}

func (f *fixture) ledgerCount(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).Where("external_user_id = ?", userID).Count(&n).Error)
	return n
}

func ref(s string) *string { return &s }
