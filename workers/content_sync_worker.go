package workers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gamification-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteContent is a post or submission as published by the CMS.
type RemoteContent struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContentSyncClient mirrors CMS content into content_entities so the
// ranking engine sees posts authored outside this service.
type ContentSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewContentSyncClient(db *gorm.DB, baseURL, token string) *ContentSyncClient {
	return &ContentSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *ContentSyncClient) GetChangedContent(ctx context.Context, since time.Time) ([]RemoteContent, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/content", strings.TrimRight(c.BaseURL, "/")))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	var response struct {
		Content []RemoteContent `json:"content"`
	}
	if err := getJSON(ctx, c.HTTPClient, u.String(), c.Token, &response); err != nil {
		return nil, err
	}
	return response.Content, nil
}

// Upsert writes the batch in one statement keyed by id.
func (c *ContentSyncClient) Upsert(ctx context.Context, items []RemoteContent) (int, error) {
	rows := make([]models.ContentEntity, 0, len(items))
	for _, it := range items {
		if it.ID == "" || it.AuthorID == "" || strings.TrimSpace(it.Title) == "" {
			log.Printf("[SYNC] ⚠️ skipping content without id/author/title: %+v", it)
			continue
		}
		kind := it.Kind
		if kind != models.ContentKindSubmission {
			kind = models.ContentKindPost
		}
		status := it.Status
		if status != models.ContentStatusPublished {
			status = models.ContentStatusPending
		}
		rows = append(rows, models.ContentEntity{
			ID:          it.ID,
			AuthorID:    it.AuthorID,
			Title:       strings.TrimSpace(it.Title),
			Slug:        slug.Make(it.Title),
			Kind:        kind,
			Status:      status,
			PublishedAt: it.PublishedAt,
			UpdatedAt:   it.UpdatedAt,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"author_id", "title", "slug", "kind", "status", "published_at", "updated_at",
		}),
	}).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("upsert content: %w", err)
	}
	return len(rows), nil
}

// PollContent keeps content_entities in step with the CMS.
func PollContent(ctx context.Context, client *ContentSyncClient, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	log.Println("Starting content polling (DB-backed)...")
	lastSyncTime := time.Unix(0, 0).UTC()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Content polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()
			items, err := client.GetChangedContent(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ [SYNC] Error polling content: %v", err)
				continue
			}
			if len(items) == 0 {
				continue
			}
			n, err := client.Upsert(ctx, items)
			if err != nil {
				// keep the window so the next tick retries it
				log.Printf("❌ [SYNC] Failed to upsert %d content item(s): %v", len(items), err)
				continue
			}
			lastSyncTime = tickTime
			log.Printf("✅ [SYNC] Upserted %d content item(s) into content_entities.", n)
		}
	}
}
