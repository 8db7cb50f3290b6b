package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/platform"
	"github.com/simplifika/postline/internal/repository"
)

type fakePostRepo struct {
	repository.PostRepository
	post         *models.Post
	publishedTo  string
	failedWith   string
	markedFailed bool
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.post, nil
}

func (f *fakePostRepo) UpdateStatusIf(ctx context.Context, postID int64, fromStatus, toStatus string) (bool, error) {
	if f.post == nil || f.post.Status != fromStatus {
		return false, nil
	}
	f.post.Status = toStatus
	f.publishedTo = toStatus
	return true, nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, postID int64, errorMessage string) (bool, error) {
	if f.post == nil || f.post.Status != models.PostStatusScheduled {
		return false, nil
	}
	f.post.Status = models.PostStatusFailed
	f.markedFailed = true
	f.failedWith = errorMessage
	return true, nil
}

type fakeMediaRepo struct {
	repository.MediaItemRepository
	items []*models.MediaItem
}

func (f *fakeMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaItem, error) {
	return f.items, nil
}

type fakeAccountsRepo struct {
	repository.ConnectedAccountRepository
	accounts map[string]*models.ConnectedAccount
}

func (f *fakeAccountsRepo) GetByUserAndPlatform(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error) {
	return f.accounts[platform], nil
}

type fakeUsersRepo struct {
	repository.UserRepository
	user *models.User
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	return f.user, f.user != nil, nil
}

type fakeLogRepo struct {
	repository.PublicationLogRepository
	mu      sync.Mutex
	entries []*models.PublicationLog
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *models.PublicationLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return int64(len(f.entries)), nil
}

func (f *fakeLogRepo) byPlatform(platform string) *models.PublicationLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.Platform == platform {
			return entry
		}
	}
	return nil
}

type passThroughTokens struct{}

func (passThroughTokens) EnsureValidToken(ctx context.Context, acc *models.ConnectedAccount) (platform.Credentials, error) {
	return platform.Credentials{AccountID: acc.AccountID, AccessToken: acc.AccessToken}, nil
}

type stubPublisher struct {
	name string
	err  error
}

func (s *stubPublisher) Name() string { return s.name }

func (s *stubPublisher) Publish(ctx context.Context, creds platform.Credentials, req *platform.PublishRequest) (*platform.PublishResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &platform.PublishResult{ExternalID: "ext-" + s.name}, nil
}

func scheduledPost(platforms ...string) *models.Post {
	return &models.Post{
		ID:          1,
		UserID:      42,
		Content:     "hello world",
		Platforms:   pq.StringArray(platforms),
		PostKind:    models.PostKindFeed,
		ScheduledAt: time.Now().Add(-time.Minute),
		Status:      models.PostStatusScheduled,
	}
}

func newTestWorker(posts *fakePostRepo, accounts *fakeAccountsRepo, logs *fakeLogRepo, publishers ...platform.Publisher) *Worker {
	return NewWorker(
		posts,
		&fakeMediaRepo{},
		accounts,
		&fakeUsersRepo{user: &models.User{ID: 42, Status: models.UserStatusActive}},
		logs,
		platform.NewRegistry(publishers...),
		passThroughTokens{},
		time.Second,
	)
}

func TestPublishPostAllPlatformsSucceed(t *testing.T) {
	posts := &fakePostRepo{post: scheduledPost(platform.Facebook, platform.Instagram)}
	accounts := &fakeAccountsRepo{accounts: map[string]*models.ConnectedAccount{
		platform.Facebook:  {ID: 1, AccountID: "page-1", AccessToken: "t"},
		platform.Instagram: {ID: 2, AccountID: "ig-1", AccessToken: "t"},
	}}
	logs := &fakeLogRepo{}
	w := newTestWorker(posts, accounts, logs,
		&stubPublisher{name: platform.Facebook},
		&stubPublisher{name: platform.Instagram},
	)

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.PostStatusPublished, posts.post.Status)
	assert.Len(t, logs.entries, 2)
	assert.Equal(t, models.PublicationSuccess, logs.byPlatform(platform.Facebook).Status)
	assert.Equal(t, models.PublicationSuccess, logs.byPlatform(platform.Instagram).Status)
}

func TestPublishPostUnconnectedAccountFailsPost(t *testing.T) {
	posts := &fakePostRepo{post: scheduledPost(platform.Facebook, platform.Instagram)}
	accounts := &fakeAccountsRepo{accounts: map[string]*models.ConnectedAccount{
		platform.Facebook: {ID: 1, AccountID: "page-1", AccessToken: "t"},
	}}
	logs := &fakeLogRepo{}
	w := newTestWorker(posts, accounts, logs,
		&stubPublisher{name: platform.Facebook},
		&stubPublisher{name: platform.Instagram},
	)

	require.NoError(t, w.PublishPost(context.Background(), 1))

	// One platform failing fails the post, but the other still published and
	// both attempts are in the log.
	assert.Equal(t, models.PostStatusFailed, posts.post.Status)
	assert.Contains(t, posts.failedWith, "instagram: instagram account not connected")
	assert.Len(t, logs.entries, 2)
	assert.Equal(t, models.PublicationSuccess, logs.byPlatform(platform.Facebook).Status)
	assert.Equal(t, models.PublicationFailed, logs.byPlatform(platform.Instagram).Status)
}

func TestPublishPostPlatformRejectionIsolated(t *testing.T) {
	posts := &fakePostRepo{post: scheduledPost(platform.Facebook, platform.Youtube)}
	accounts := &fakeAccountsRepo{accounts: map[string]*models.ConnectedAccount{
		platform.Facebook: {ID: 1, AccountID: "page-1", AccessToken: "t"},
		platform.Youtube:  {ID: 2, AccountID: "chan-1", AccessToken: "t"},
	}}
	logs := &fakeLogRepo{}
	w := newTestWorker(posts, accounts, logs,
		&stubPublisher{name: platform.Facebook},
		&stubPublisher{name: platform.Youtube, err: errors.New("quota exceeded")},
	)

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Equal(t, models.PostStatusFailed, posts.post.Status)
	assert.Contains(t, posts.failedWith, "youtube: quota exceeded")
	assert.Equal(t, models.PublicationSuccess, logs.byPlatform(platform.Facebook).Status)
	assert.Equal(t, "quota exceeded", logs.byPlatform(platform.Youtube).ErrorMessage)
}

func TestPublishPostSkipsNonScheduled(t *testing.T) {
	post := scheduledPost(platform.Facebook)
	post.Status = models.PostStatusPublished
	posts := &fakePostRepo{post: post}
	logs := &fakeLogRepo{}
	w := newTestWorker(posts, &fakeAccountsRepo{}, logs, &stubPublisher{name: platform.Facebook})

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.Empty(t, logs.entries)
	assert.Equal(t, models.PostStatusPublished, post.Status)
}

func TestPublishPostMissingOwnerMarksFailed(t *testing.T) {
	posts := &fakePostRepo{post: scheduledPost(platform.Facebook)}
	logs := &fakeLogRepo{}
	w := NewWorker(
		posts,
		&fakeMediaRepo{},
		&fakeAccountsRepo{},
		&fakeUsersRepo{},
		logs,
		platform.NewRegistry(&stubPublisher{name: platform.Facebook}),
		passThroughTokens{},
		time.Second,
	)

	require.NoError(t, w.PublishPost(context.Background(), 1))

	assert.True(t, posts.markedFailed)
	assert.Equal(t, "post owner not found", posts.failedWith)
	assert.Empty(t, logs.entries)
}
