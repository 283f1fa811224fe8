package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveLeaderboard(t *testing.T) {
	putter := &fakePutter{}
	a := &R2Archiver{Client: putter, Bucket: "boards", CDNBaseURL: "https://cdn.example"}
	at := time.Date(2026, 4, 2, 23, 30, 0, 0, time.FixedZone("X", 3*3600))

	url, err := a.ArchiveLeaderboard(context.Background(), "weekly", at, []map[string]any{{"entity_id": "e1", "rank": 1}})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/leaderboards/weekly/2026-04-02.json", url)
	assert.Equal(t, "boards", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(putter.body, &doc))
	assert.Equal(t, "weekly", doc["window"])
	assert.Len(t, doc["entries"], 1)
}

func TestArchiveLeaderboard_UploadError(t *testing.T) {
	a := &R2Archiver{Client: &fakePutter{err: errors.New("boom")}, Bucket: "b", CDNBaseURL: "https://cdn"}
	_, err := a.ArchiveLeaderboard(context.Background(), "daily", time.Now(), nil)
	assert.Error(t, err)
}

func TestR2Config(t *testing.T) {
	assert.False(t, R2Config{}.Configured())
	assert.True(t, R2Config{AccountID: "a", AccessKeyID: "k", AccessKeySecret: "s", Bucket: "b"}.Configured())

	_, err := NewR2Archiver(context.Background(), R2Config{})
	assert.Error(t, err)
}
