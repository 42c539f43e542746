package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskIndexReference = "reference:index"
	TaskSyncReferences = "reference:sync"
)

type indexPayload struct {
	PostID int64 `json:"post_id"`
}

// NewIndexTask builds the task that adds one approved post to the reference
// index. Retried up to 3 times; a post is queued at most once per minute.
func NewIndexTask(postID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(indexPayload{PostID: postID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskIndexReference,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Minute),
	), nil
}

// NewSyncTask builds the task that re-indexes every approved post.
func NewSyncTask() *asynq.Task {
	return asynq.NewTask(
		TaskSyncReferences,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour),
	)
}

// Enqueuer queues reference indexing tasks.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer connects an asynq client to redisURL.
func NewEnqueuer(redisURL string) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(opt)}, nil
}

// EnqueueIndex queues postID for indexing. A duplicate of a task still
// queued is not an error.
func (e *Enqueuer) EnqueueIndex(ctx context.Context, postID int64) error {
	task, err := NewIndexTask(postID)
	if err != nil {
		return fmt.Errorf("failed to build index task: %w", err)
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("failed to enqueue index task: %w", err)
	}
	return nil
}

// EnqueueSync queues a full re-index.
func (e *Enqueuer) EnqueueSync(ctx context.Context) error {
	if _, err := e.client.EnqueueContext(ctx, NewSyncTask()); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("failed to enqueue sync task: %w", err)
	}
	return nil
}

// Close closes the client connection gracefully.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
