// Package worker runs background jobs: indexing approved posts as
// references and the periodic full re-index.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/unipost/internal/config"
	"github.com/jimdaga/unipost/internal/content"
)

// Indexer stores posts in the reference index.
type Indexer interface {
	IndexPosts(ctx context.Context, posts []content.Post) error
}

// PostSource reads posts from the content API.
type PostSource interface {
	GetPost(ctx context.Context, token string, id int64) (*content.Post, error)
	ListPosts(ctx context.Context, token string) ([]content.Post, error)
}

// TokenSource runs fn with a service token, renewing it once on 401.
type TokenSource interface {
	WithToken(ctx context.Context, fn func(token string) error) error
}

// Deps are the collaborators of the task handlers.
type Deps struct {
	Indexer Indexer
	Posts   PostSource
	Auth    TokenSource
	Logger  *slog.Logger
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, deps Deps) error {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(deps.Logger)),
			Logger:          &asynqLoggerAdapter{logger: deps.Logger},
		},
	)

	mux := NewServeMux(deps)
	deps.Logger.Info("Worker starting", "concurrency", 5)
	return srv, mux, nil
}

// NewServeMux routes the reference tasks to their handlers.
func NewServeMux(deps Deps) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIndexReference, handleIndexReference(deps))
	mux.HandleFunc(TaskSyncReferences, handleSyncReferences(deps))
	return mux
}

// handleIndexReference adds one post to the reference index if it is still
// approved when the task runs.
func handleIndexReference(deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload indexPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.PostID <= 0 {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		var post *content.Post
		err := deps.Auth.WithToken(ctx, func(token string) error {
			var err error
			post, err = deps.Posts.GetPost(ctx, token, payload.PostID)
			return err
		})
		if errors.Is(err, content.ErrNotFound) {
			deps.Logger.Warn("Post to index no longer exists", "post_id", payload.PostID)
			return fmt.Errorf("post not found: %w", asynq.SkipRetry)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch post: %w", err)
		}

		if !post.IsApproved {
			deps.Logger.Info("Skipping post that is no longer approved", "post_id", post.ID)
			return nil
		}

		if err := deps.Indexer.IndexPosts(ctx, []content.Post{*post}); err != nil {
			return fmt.Errorf("failed to index post: %w", err)
		}

		deps.Logger.Info("Post indexed as reference", "post_id", post.ID)
		return nil
	}
}

// handleSyncReferences re-indexes every approved post.
func handleSyncReferences(deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var posts []content.Post
		err := deps.Auth.WithToken(ctx, func(token string) error {
			var err error
			posts, err = deps.Posts.ListPosts(ctx, token)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to list posts: %w", err)
		}

		approved := content.FilterPosts(posts, content.Filter{Status: content.StatusApproved})
		if err := deps.Indexer.IndexPosts(ctx, approved); err != nil {
			return fmt.Errorf("failed to index posts: %w", err)
		}

		deps.Logger.Info("Reference index synced", "approved", len(approved), "total", len(posts))
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
