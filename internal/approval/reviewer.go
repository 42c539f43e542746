package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimdaga/unipost/internal/content"
)

// ErrNotApproved is returned when rejecting a post that is still pending.
var ErrNotApproved = errors.New("post is not approved")

// PostStore is the part of the content API used to change approval state.
type PostStore interface {
	GetPost(ctx context.Context, token string, id int64) (*content.Post, error)
	ApprovePost(ctx context.Context, token string, id int64) (*content.Post, error)
	RejectPost(ctx context.Context, token string, id int64) (*content.Post, error)
}

// StatsRecorder counts approval state changes.
type StatsRecorder interface {
	RecordApproved(ctx context.Context) error
	RecordDenied(ctx context.Context) error
}

// IndexEnqueuer schedules an approved post for the reference index.
type IndexEnqueuer interface {
	EnqueueIndex(ctx context.Context, postID int64) error
}

// Reviewer applies approve and reject transitions. Only the content API's
// is_approved flag is durable; statistics and indexing are side effects
// whose failures are logged, not returned.
type Reviewer struct {
	posts   PostStore
	stats   StatsRecorder
	indexer IndexEnqueuer
	logger  *slog.Logger
}

// NewReviewer creates a Reviewer. stats and indexer may be nil.
func NewReviewer(posts PostStore, stats StatsRecorder, indexer IndexEnqueuer, logger *slog.Logger) *Reviewer {
	return &Reviewer{posts: posts, stats: stats, indexer: indexer, logger: logger}
}

// Approve marks the post approved and queues it for indexing. Approving an
// approved post returns it unchanged.
func (r *Reviewer) Approve(ctx context.Context, token string, id int64) (*content.Post, error) {
	current, err := r.posts.GetPost(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to approve post %d: %w", id, err)
	}
	if current.IsApproved {
		return current, nil
	}

	post, err := r.posts.ApprovePost(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to approve post %d: %w", id, err)
	}

	if r.stats != nil {
		if err := r.stats.RecordApproved(ctx); err != nil {
			r.logger.Warn("failed to record approval", "post_id", id, "error", err)
		}
	}
	if r.indexer != nil {
		if err := r.indexer.EnqueueIndex(ctx, id); err != nil {
			r.logger.Warn("failed to enqueue reference indexing", "post_id", id, "error", err)
		}
	}

	r.logger.Info("post approved", "post_id", id)
	return post, nil
}

// Reject sets an approved post back to pending.
func (r *Reviewer) Reject(ctx context.Context, token string, id int64) (*content.Post, error) {
	current, err := r.posts.GetPost(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reject post %d: %w", id, err)
	}
	if !current.IsApproved {
		return nil, fmt.Errorf("failed to reject post %d: %w", id, ErrNotApproved)
	}

	post, err := r.posts.RejectPost(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reject post %d: %w", id, err)
	}

	if r.stats != nil {
		if err := r.stats.RecordDenied(ctx); err != nil {
			r.logger.Warn("failed to record rejection", "post_id", id, "error", err)
		}
	}

	r.logger.Info("post rejected", "post_id", id)
	return post, nil
}

// Apply routes a decision to Approve or Reject.
func (r *Reviewer) Apply(ctx context.Context, token string, d Decision) (*content.Post, error) {
	if d.Approved {
		return r.Approve(ctx, token, d.PostID)
	}
	return r.Reject(ctx, token, d.PostID)
}
