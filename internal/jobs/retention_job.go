// Package jobs holds the daily retention sweep: blocking long-defaulted
// users, purging old posts together with their stored media, and warning
// owners ahead of a purge.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/repository"
	"github.com/simplifika/postline/internal/service"
)

const (
	// defaultedBlockAfter is how long a user may stay in arrears before the
	// sweep blocks the account.
	defaultedBlockAfter = 30 * 24 * time.Hour

	// publishedRetention keys on scheduled_at: published posts older than
	// this are deleted outright.
	publishedRetention = 90 * 24 * time.Hour

	// inactiveRetention keys on updated_at, the moment the post was
	// deactivated by a downgrade.
	inactiveRetention = 30 * 24 * time.Hour

	// deletionWarningLead is how far ahead of the purge owners are warned.
	// The warning window is one day wide so a daily run emails each owner
	// exactly once.
	deletionWarningLead = 7 * 24 * time.Hour
)

type BlobDeleter interface {
	DeleteObjects(ctx context.Context, urls []string) error
}

type RetentionJob struct {
	posts    repository.PostRepository
	media    repository.MediaItemRepository
	users    repository.UserRepository
	storage  BlobDeleter
	notifier service.Notifier
	now      func() time.Time
}

func NewRetentionJob(
	posts repository.PostRepository,
	media repository.MediaItemRepository,
	users repository.UserRepository,
	storage BlobDeleter,
	notifier service.Notifier,
) *RetentionJob {
	return &RetentionJob{
		posts:    posts,
		media:    media,
		users:    users,
		storage:  storage,
		notifier: notifier,
		now:      time.Now,
	}
}

// Run executes one full sweep. Each phase continues past individual failures;
// a post that could not be cleaned this run is picked up by the next one.
func (j *RetentionJob) Run(ctx context.Context) {
	now := j.now()

	j.blockDefaultedUsers(ctx, now)
	j.cleanPublishedPosts(ctx, now)
	j.cleanInactivePosts(ctx, now)
	j.sendDeletionWarnings(ctx, now)
}

func (j *RetentionJob) blockDefaultedUsers(ctx context.Context, now time.Time) {
	users, err := j.users.ListDefaultedBefore(ctx, now.Add(-defaultedBlockAfter))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, user := range users {
		if err := j.users.SetStatus(ctx, user.ID, models.UserStatusBlocked); err != nil {
			slog.Info(err.Error())
			continue
		}
		j.notifier.SendAccountBlocked(user.Email)
		slog.Info("blocked defaulted user", "user_id", user.ID)
	}
}

func (j *RetentionJob) cleanPublishedPosts(ctx context.Context, now time.Time) {
	posts, err := j.posts.ListPublishedBefore(ctx, now.Add(-publishedRetention))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	j.removePosts(ctx, posts)
}

func (j *RetentionJob) cleanInactivePosts(ctx context.Context, now time.Time) {
	posts, err := j.posts.ListInactiveBefore(ctx, now.Add(-inactiveRetention))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	j.removePosts(ctx, posts)
}

// removePosts deletes stored media before database rows. If the blob delete
// fails the post is kept so the next sweep can retry; orphaned rows are worse
// than orphaned blobs.
func (j *RetentionJob) removePosts(ctx context.Context, posts []*models.Post) {
	for _, post := range posts {
		items, err := j.media.ListByPostID(ctx, post.ID)
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		if len(items) > 0 {
			urls := make([]string, 0, len(items))
			for _, item := range items {
				urls = append(urls, item.StorageURL)
			}
			if err := j.storage.DeleteObjects(ctx, urls); err != nil {
				slog.Info(err.Error())
				continue
			}
			if err := j.media.RemoveByPostID(ctx, post.ID); err != nil {
				slog.Info(err.Error())
				continue
			}
		}

		if err := j.posts.Remove(ctx, post.ID); err != nil {
			slog.Info(err.Error())
			continue
		}
		slog.Info("removed expired post", "post_id", post.ID, "status", post.Status)
	}
}

// sendDeletionWarnings emails owners whose deactivated posts enter the final
// week before the purge, one aggregated email per owner.
func (j *RetentionJob) sendDeletionWarnings(ctx context.Context, now time.Time) {
	windowEnd := now.Add(deletionWarningLead - inactiveRetention)
	windowStart := windowEnd.Add(-24 * time.Hour)

	posts, err := j.posts.ListInactiveBetween(ctx, windowStart, windowEnd)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	counts := make(map[int64]int)
	for _, post := range posts {
		counts[post.UserID]++
	}

	for userID, count := range counts {
		user, found, err := j.users.GetByID(ctx, userID)
		if err != nil || !found {
			continue
		}
		j.notifier.SendDeletionWarning(user.Email, count)
	}
}
