// Package queue moves publication work from the scheduler tick to background
// workers through asynq. Every due post becomes one task; the task ID makes
// enqueueing idempotent, so overlapping ticks cannot publish a post twice.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const TaskTypePublishPost = "post:publish"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

// EnqueuePublish schedules a post for publication. A second enqueue for the
// same post while the first task is still pending is silently dropped.
func (q *Queue) EnqueuePublish(ctx context.Context, postID int64) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)

	_, err = q.client.EnqueueContext(ctx, task, asynq.TaskID(fmt.Sprintf("%s:%d", TaskTypePublishPost, postID)))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			slog.Info("publish task already enqueued", "post_id", postID)
			return nil
		}
		slog.Info(err.Error())
		return err
	}

	return nil
}
