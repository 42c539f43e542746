package approval

import (
	"context"
	"errors"

	"github.com/jimdaga/unipost/internal/content"
)

// TokenSource runs fn with a service token, renewing it once on 401.
type TokenSource interface {
	WithToken(ctx context.Context, fn func(token string) error) error
}

// ErrInvalidDecision is returned for decisions without a post id.
var ErrInvalidDecision = errors.New("decision has no post id")

// DecisionApplier applies decisions received from the review workflow with
// the service account.
type DecisionApplier struct {
	reviewer *Reviewer
	auth     TokenSource
}

// NewDecisionApplier creates a DecisionApplier.
func NewDecisionApplier(reviewer *Reviewer, auth TokenSource) *DecisionApplier {
	return &DecisionApplier{reviewer: reviewer, auth: auth}
}

// ApplyDecision validates and applies d.
func (a *DecisionApplier) ApplyDecision(ctx context.Context, d Decision) (*content.Post, error) {
	if d.PostID <= 0 {
		return nil, ErrInvalidDecision
	}

	var post *content.Post
	err := a.auth.WithToken(ctx, func(token string) error {
		var err error
		post, err = a.reviewer.Apply(ctx, token, d)
		return err
	})
	return post, err
}
