// workers/member_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteProfile is one user as returned by the profile sync service.
type RemoteProfile struct {
	ExternalID    string    `json:"external_id"`
	Username      string    `json:"username"`
	AccountStatus string    `json:"account_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// MemberSyncWorker mirrors upstream profiles into the members table so the
// ledger can tell unknown users apart.
type MemberSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewMemberSyncWorker(db *gorm.DB, baseURL, serviceToken string, interval time.Duration) *MemberSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MemberSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: "/api/v1/public/profiles",
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *MemberSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Member Sync Worker (sync-service → members)…")
	go w.run(ctx)
}

func (w *MemberSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ [SYNC] initial member sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx, w.lastSyncTime()); err != nil {
				log.Printf("❌ [SYNC] member sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Member Sync Worker stopped")
			return
		}
	}
}

func (w *MemberSyncWorker) lastSyncTime() time.Time {
	var last *time.Time
	err := w.db.Model(&models.Member{}).Unscoped().Select("MAX(updated_at)").Scan(&last).Error
	if err != nil || last == nil || last.IsZero() {
		return time.Unix(0, 0)
	}
	return *last
}

// SyncOnce pulls profiles changed since and upserts them. Deactivated
// accounts are soft-deleted so they stop earning points.
func (w *MemberSyncWorker) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	profiles, err := w.fetch(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		log.Printf("[SYNC] ✅ No profile changes since %s", since.UTC().Format(time.RFC3339))
		return 0, nil
	}

	var upserted, failed int
	for _, p := range profiles {
		if p.ExternalID == "" {
			failed++
			continue
		}
		m := models.Member{
			ExternalUserID: p.ExternalID,
			Username:       p.Username,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		}
		if p.AccountStatus == "deactivated" || p.AccountStatus == "suspended" {
			m.DeletedAt = gorm.DeletedAt{Time: p.UpdatedAt, Valid: true}
		}
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at", "deleted_at"}),
		}).Create(&m).Error; err != nil {
			failed++
			log.Printf("[SYNC] ⚠️ Failed to upsert member (external_id=%q): %v", p.ExternalID, err)
			continue
		}
		upserted++
	}
	log.Printf("[SYNC] ✅ Synced %d profile(s) (%d upserted, %d errors)", len(profiles), upserted, failed)
	return upserted, nil
}

func (w *MemberSyncWorker) fetch(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sync service URL '%s': %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	var response profileChangesResponse
	if err := getJSON(ctx, w.httpClient, endpoint.String(), w.serviceToken, &response); err != nil {
		return nil, err
	}
	return response.Users, nil
}

// getJSON performs an authenticated GET against the sync service and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, target, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", target, err)
	}
	req.Header.Set("X-Service-Token", token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}
	return nil
}
