package streams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/content"
)

// DecisionApplier applies reviewer decisions.
type DecisionApplier interface {
	ApplyDecision(ctx context.Context, d approval.Decision) (*content.Post, error)
}

// HandleDecision returns a handler that applies stream decisions. Decisions
// that can never succeed (no id, unknown post) are dropped so they do not
// stay pending forever.
func HandleDecision(applier DecisionApplier, logger *slog.Logger) func(context.Context, DecisionMessage) error {
	return func(ctx context.Context, msg DecisionMessage) error {
		post, err := applier.ApplyDecision(ctx, approval.Decision{PostID: msg.TextID, Approved: msg.IsApproved})
		if err != nil {
			if errors.Is(err, approval.ErrInvalidDecision) || errors.Is(err, approval.ErrNotApproved) ||
				errors.Is(err, content.ErrNotFound) {
				logger.Warn("Dropping decision", "post_id", msg.TextID, "error", err)
				return nil
			}
			return fmt.Errorf("failed to apply decision: %w", err)
		}

		logger.Info("Decision applied",
			"post_id", post.ID,
			"is_approved", post.IsApproved,
			"reviewer", msg.Reviewer,
		)
		return nil
	}
}
