package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/simplifika/postline/internal/models"
	"github.com/simplifika/postline/internal/platform"
	"github.com/simplifika/postline/internal/repository"
)

// TokenResolver yields publish-ready credentials for a connected account,
// refreshing them first when needed.
type TokenResolver interface {
	EnsureValidToken(ctx context.Context, acc *models.ConnectedAccount) (platform.Credentials, error)
}

// Worker executes publish tasks. Platforms are attempted independently; one
// platform's rejection never stops the others, and the post reaches
// published only when every target platform succeeded.
type Worker struct {
	posts          repository.PostRepository
	media          repository.MediaItemRepository
	accounts       repository.ConnectedAccountRepository
	users          repository.UserRepository
	logs           repository.PublicationLogRepository
	registry       *platform.Registry
	tokens         TokenResolver
	publishTimeout time.Duration
}

func NewWorker(
	posts repository.PostRepository,
	media repository.MediaItemRepository,
	accounts repository.ConnectedAccountRepository,
	users repository.UserRepository,
	logs repository.PublicationLogRepository,
	registry *platform.Registry,
	tokens TokenResolver,
	publishTimeout time.Duration,
) *Worker {
	return &Worker{
		posts:          posts,
		media:          media,
		accounts:       accounts,
		users:          users,
		logs:           logs,
		registry:       registry,
		tokens:         tokens,
		publishTimeout: publishTimeout,
	}
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, t *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("error unmarshalling payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.PublishPost(ctx, payload.PostID)
}

type platformOutcome struct {
	platform string
	err      error
}

// PublishPost runs the full publication attempt for one post. The post is
// reloaded first so a task that raced with a deletion, a downgrade, or an
// earlier attempt simply does nothing.
func (w *Worker) PublishPost(ctx context.Context, postID int64) error {
	post, err := w.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		slog.Info("skipping publish; post no longer scheduled", "post_id", postID)
		return nil
	}

	owner, found, err := w.users.GetByID(ctx, post.UserID)
	if err != nil {
		return err
	}
	if !found {
		if _, err := w.posts.MarkFailed(ctx, post.ID, "post owner not found"); err != nil {
			return err
		}
		return nil
	}
	if owner.Status == models.UserStatusBlocked {
		if _, err := w.posts.MarkFailed(ctx, post.ID, "post owner is blocked"); err != nil {
			return err
		}
		return nil
	}

	items, err := w.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}
	mediaURLs := make([]string, 0, len(items))
	for _, item := range items {
		mediaURLs = append(mediaURLs, item.StorageURL)
	}

	req := &platform.PublishRequest{
		Content:     post.Content,
		MediaURLs:   mediaURLs,
		PostKind:    post.PostKind,
		ScheduledAt: post.ScheduledAt,
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []platformOutcome
	)

	for _, name := range post.Platforms {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			err := w.publishToPlatform(ctx, post, name, req)
			mu.Lock()
			outcomes = append(outcomes, platformOutcome{platform: name, err: err})
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].platform < outcomes[j].platform })

	var failures []string
	for _, o := range outcomes {
		if o.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", o.platform, o.err.Error()))
		}
	}

	if len(failures) == 0 {
		updated, err := w.posts.UpdateStatusIf(ctx, post.ID, models.PostStatusScheduled, models.PostStatusPublished)
		if err != nil {
			return err
		}
		if !updated {
			slog.Info("post status changed during publish; leaving as-is", "post_id", post.ID)
		}
		return nil
	}

	if _, err := w.posts.MarkFailed(ctx, post.ID, strings.Join(failures, "; ")); err != nil {
		return err
	}
	return nil
}

// publishToPlatform attempts one platform and records the outcome in the
// publication log regardless of result.
func (w *Worker) publishToPlatform(ctx context.Context, post *models.Post, name string, req *platform.PublishRequest) error {
	err := w.attempt(ctx, post, name, req)

	entry := &models.PublicationLog{
		PostID:   post.ID,
		Platform: name,
		Status:   models.PublicationSuccess,
	}
	if err != nil {
		entry.Status = models.PublicationFailed
		entry.ErrorMessage = err.Error()
		slog.Info("platform publish failed", "post_id", post.ID, "platform", name, "error", err.Error())
	}

	if _, logErr := w.logs.Create(ctx, entry); logErr != nil {
		slog.Info(logErr.Error())
	}
	return err
}

func (w *Worker) attempt(ctx context.Context, post *models.Post, name string, req *platform.PublishRequest) error {
	pub, ok := w.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown platform %q", name)
	}

	acc, err := w.accounts.GetByUserAndPlatform(ctx, post.UserID, name)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("%s account not connected", name)
	}

	creds, err := w.tokens.EnsureValidToken(ctx, acc)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()

	_, err = pub.Publish(publishCtx, creds, req)
	return err
}
