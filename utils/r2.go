// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Configured reports whether enough is set to talk to R2.
func (c R2Config) Configured() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// ObjectPutter is the slice of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archiver writes leaderboard snapshots to a Cloudflare R2 bucket.
type R2Archiver struct {
	Client     ObjectPutter
	Bucket     string
	CDNBaseURL string
}

func NewR2Archiver(ctx context.Context, cfg R2Config) (*R2Archiver, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("r2 config incomplete")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	cdn := cfg.CDNBaseURL
	if cdn == "" {
		cdn = endpoint + "/" + cfg.Bucket
	}
	return &R2Archiver{Client: client, Bucket: cfg.Bucket, CDNBaseURL: strings.TrimRight(cdn, "/")}, nil
}

// SnapshotKey is leaderboards/<window>/<yyyy-mm-dd>.json
func SnapshotKey(window string, at time.Time) string {
	return fmt.Sprintf("leaderboards/%s/%s.json", window, at.UTC().Format("2006-01-02"))
}

// ArchiveLeaderboard uploads the ranked list as JSON and returns its public URL.
// A second upload on the same day overwrites the first.
func (a *R2Archiver) ArchiveLeaderboard(ctx context.Context, window string, computedAt time.Time, entries any) (string, error) {
	body, err := json.Marshal(map[string]any{
		"window":      window,
		"computed_at": computedAt.UTC(),
		"entries":     entries,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := SnapshotKey(window, computedAt)
	_, err = a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", a.CDNBaseURL, key), nil
}
