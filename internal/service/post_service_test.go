package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/transfer"
)

type fakeMediaRepo struct {
	repository.MediaItemRepository
	itemsByPost map[int64][]*models.MediaItem
	removed     []int64
}

func (f *fakeMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaItem, error) {
	return f.itemsByPost[postID], nil
}

func (f *fakeMediaRepo) RemoveByPostID(ctx context.Context, postID int64) error {
	f.removed = append(f.removed, postID)
	return nil
}

type fakeStorage struct {
	deleted [][]string
	err     error
}

func (f *fakeStorage) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeStorage) DeleteObjects(ctx context.Context, urls []string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, urls)
	return nil
}

type stubUsage struct {
	UsageService
	limitErr error
	recorded int
}

func (s *stubUsage) CheckPostLimit(ctx context.Context, userID int64) error {
	return s.limitErr
}

func (s *stubUsage) RecordPostCreation(ctx context.Context, userID int64) error {
	s.recorded++
	return nil
}

func validCreation() *transfer.PostCreation {
	return &transfer.PostCreation{
		Content:     "hello",
		Platforms:   []string{"facebook"},
		ScheduledAt: time.Now().Add(time.Hour).Format(time.RFC3339),
		PostKind:    models.PostKindFeed,
	}
}

func TestCreatePostRejectsEmptyPlatforms(t *testing.T) {
	svc := NewPostService(nil, &fakePostRepo{}, &fakeMediaRepo{}, &stubUsage{}, &fakeStorage{})

	pc := validCreation()
	pc.Platforms = nil
	_, err := svc.CreatePost(context.Background(), 1, pc)
	assert.Error(t, err)
}

func TestCreatePostRejectsUnknownPlatform(t *testing.T) {
	svc := NewPostService(nil, &fakePostRepo{}, &fakeMediaRepo{}, &stubUsage{}, &fakeStorage{})

	pc := validCreation()
	pc.Platforms = []string{"myspace"}
	_, err := svc.CreatePost(context.Background(), 1, pc)
	assert.ErrorContains(t, err, "myspace")
}

func TestCreatePostRejectsBadSchedule(t *testing.T) {
	svc := NewPostService(nil, &fakePostRepo{}, &fakeMediaRepo{}, &stubUsage{}, &fakeStorage{})

	pc := validCreation()
	pc.ScheduledAt = "tomorrow at noon"
	_, err := svc.CreatePost(context.Background(), 1, pc)
	assert.ErrorContains(t, err, "scheduled time")
}

func TestCreatePostRejectsOverQuota(t *testing.T) {
	usage := &stubUsage{limitErr: ErrQuotaExceeded}
	svc := NewPostService(nil, &fakePostRepo{}, &fakeMediaRepo{}, usage, &fakeStorage{})

	_, err := svc.CreatePost(context.Background(), 1, validCreation())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Zero(t, usage.recorded)
}

func TestRemoveDeletesBlobsBeforeRows(t *testing.T) {
	posts := &fakePostRepo{ownership: map[int64]int64{7: 1}}
	media := &fakeMediaRepo{itemsByPost: map[int64][]*models.MediaItem{
		7: {
			{ID: 1, PostID: 7, StorageURL: "https://cdn.example.com/media/a.jpg"},
			{ID: 2, PostID: 7, StorageURL: "https://cdn.example.com/media/b.jpg"},
		},
	}}
	storage := &fakeStorage{}
	svc := NewPostService(nil, posts, media, &stubUsage{}, storage)

	require.NoError(t, svc.Remove(context.Background(), 1, 7))

	require.Len(t, storage.deleted, 1)
	assert.Equal(t, []string{
		"https://cdn.example.com/media/a.jpg",
		"https://cdn.example.com/media/b.jpg",
	}, storage.deleted[0])
	assert.Equal(t, []int64{7}, media.removed)
	assert.Equal(t, []int64{7}, posts.removed)
}

func TestRemoveKeepsRowsWhenBlobDeleteFails(t *testing.T) {
	posts := &fakePostRepo{ownership: map[int64]int64{7: 1}}
	media := &fakeMediaRepo{itemsByPost: map[int64][]*models.MediaItem{
		7: {{ID: 1, PostID: 7, StorageURL: "https://cdn.example.com/media/a.jpg"}},
	}}
	storage := &fakeStorage{err: errors.New("bucket unavailable")}
	svc := NewPostService(nil, posts, media, &stubUsage{}, storage)

	err := svc.Remove(context.Background(), 1, 7)
	assert.Error(t, err)
	assert.Empty(t, media.removed)
	assert.Empty(t, posts.removed)
}

func TestRemoveRejectsForeignPost(t *testing.T) {
	posts := &fakePostRepo{ownership: map[int64]int64{7: 2}}
	svc := NewPostService(nil, posts, &fakeMediaRepo{}, &stubUsage{}, &fakeStorage{})

	err := svc.Remove(context.Background(), 1, 7)
	assert.Error(t, err)
	assert.Empty(t, posts.removed)
}
