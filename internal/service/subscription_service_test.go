package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/repository"
)

type fakePostRepo struct {
	repository.PostRepository
	scheduled   []*models.Post
	deactivated []int64
	removed     []int64
	ownership   map[int64]int64
}

func (f *fakePostRepo) ListScheduledByUser(ctx context.Context, userID int64) ([]*models.Post, error) {
	return f.scheduled, nil
}

func (f *fakePostRepo) UpdateStatusIf(ctx context.Context, postID int64, fromStatus, toStatus string) (bool, error) {
	for _, p := range f.scheduled {
		if p.ID == postID && p.Status == fromStatus {
			p.Status = toStatus
			f.deactivated = append(f.deactivated, postID)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return f.ownership[postID] == userID, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

type fakeSubRepo struct {
	repository.SubscriptionRepository
	latest      *models.Subscription
	updatedTier *int
}

func (f *fakeSubRepo) GetLatestByUserID(ctx context.Context, userID int64) (*models.Subscription, error) {
	return f.latest, nil
}

func (f *fakeSubRepo) UpdateTier(ctx context.Context, id int64, packageTier int, hasAiAddon bool) error {
	f.updatedTier = &packageTier
	if f.latest != nil {
		f.latest.PackageTier = packageTier
		f.latest.HasAiAddon = hasAiAddon
	}
	return nil
}

type fakeUserRepo struct {
	repository.UserRepository
	user *models.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	return f.user, f.user != nil, nil
}

type fakeNotifier struct {
	downgrades map[string]int
}

func (f *fakeNotifier) SendVerificationCode(email, code string) {}

func (f *fakeNotifier) SendDowngradeNotice(email string, deactivatedCount int) {
	if f.downgrades == nil {
		f.downgrades = make(map[string]int)
	}
	f.downgrades[email] += deactivatedCount
}

func (f *fakeNotifier) SendDeletionWarning(email string, postCount int) {}

func (f *fakeNotifier) SendAccountBlocked(email string) {}

func scheduledPosts(n int) []*models.Post {
	base := time.Now().Add(time.Hour)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, &models.Post{
			ID:          int64(i + 1),
			Status:      models.PostStatusScheduled,
			ScheduledAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return posts
}

func TestDowngradeKeepsEarliestFive(t *testing.T) {
	posts := &fakePostRepo{scheduled: scheduledPosts(8)}
	subs := &fakeSubRepo{latest: &models.Subscription{ID: 1, UserID: 42, PackageTier: 2}}
	notifier := &fakeNotifier{}
	svc := NewSubscriptionService(
		&fakeUserRepo{user: &models.User{ID: 42, Email: "owner@example.com"}},
		subs, posts, nil, notifier,
	)

	count, err := svc.Downgrade(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.Equal(t, []int64{6, 7, 8}, posts.deactivated)
	for _, p := range posts.scheduled[:5] {
		assert.Equal(t, models.PostStatusScheduled, p.Status)
	}

	// One aggregated email, with the count.
	assert.Equal(t, map[string]int{"owner@example.com": 3}, notifier.downgrades)

	require.NotNil(t, subs.updatedTier)
	assert.Equal(t, models.TierFreemium, *subs.updatedTier)
}

func TestDowngradeUnderLimitDeactivatesNothing(t *testing.T) {
	posts := &fakePostRepo{scheduled: scheduledPosts(4)}
	subs := &fakeSubRepo{latest: &models.Subscription{ID: 1, UserID: 42, PackageTier: 1}}
	notifier := &fakeNotifier{}
	svc := NewSubscriptionService(&fakeUserRepo{}, subs, posts, nil, notifier)

	count, err := svc.Downgrade(context.Background(), 42)
	require.NoError(t, err)

	assert.Zero(t, count)
	assert.Empty(t, notifier.downgrades)
	require.NotNil(t, subs.updatedTier)
	assert.Equal(t, models.TierFreemium, *subs.updatedTier)
}

func TestDowngradeSkipsPostsThatLeftScheduled(t *testing.T) {
	posts := &fakePostRepo{scheduled: scheduledPosts(7)}
	// Raced with the publisher: the 6th post published mid-downgrade.
	posts.scheduled[5].Status = models.PostStatusPublished
	subs := &fakeSubRepo{latest: &models.Subscription{ID: 1, UserID: 42, PackageTier: 1}}
	notifier := &fakeNotifier{}
	svc := NewSubscriptionService(
		&fakeUserRepo{user: &models.User{ID: 42, Email: "owner@example.com"}},
		subs, posts, nil, notifier,
	)

	count, err := svc.Downgrade(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, []int64{7}, posts.deactivated)
	assert.Equal(t, models.PostStatusPublished, posts.scheduled[5].Status)
}
