// Package scheduler owns the periodic tick that moves due posts onto the
// publish queue. The tick never publishes anything itself; it only finds work
// and hands it off, so a slow platform cannot stall the schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/simplifika/postline/internal/repository"
)

// batchSize caps how many due posts a single tick picks up. Posts beyond the
// cap are picked up by the next tick, oldest first.
const batchSize = 10

type Enqueuer interface {
	EnqueuePublish(ctx context.Context, postID int64) error
}

type Trigger struct {
	posts repository.PostRepository
	queue Enqueuer
	now   func() time.Time
}

func NewTrigger(posts repository.PostRepository, queue Enqueuer) *Trigger {
	return &Trigger{
		posts: posts,
		queue: queue,
		now:   time.Now,
	}
}

// Tick enqueues every due scheduled post, up to the batch cap. Enqueue
// failures are logged and skipped; the post stays scheduled and the next tick
// retries it.
func (t *Trigger) Tick(ctx context.Context) error {
	posts, err := t.posts.ListDue(ctx, t.now(), batchSize)
	if err != nil {
		return err
	}

	for _, post := range posts {
		if err := t.queue.EnqueuePublish(ctx, post.ID); err != nil {
			slog.Info("failed to enqueue post", "post_id", post.ID, "error", err.Error())
			continue
		}
	}

	if len(posts) > 0 {
		slog.Info("scheduler tick", "enqueued", len(posts))
	}
	return nil
}
