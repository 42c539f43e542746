// Package approval sends generated posts to the external review workflow
// and applies the decisions that come back.
package approval

import (
	"context"
	"time"
)

// Request asks reviewers to look at a freshly generated post. The post is
// not persisted yet when the request is sent, so it is identified by the
// pipeline run id.
type Request struct {
	RunID       string    `json:"run_id"`
	Topic       string    `json:"topic"`
	Text        string    `json:"text"`
	Platform    string    `json:"platform"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// Dispatcher delivers approval requests. Delivery is best effort: callers
// record a failure and move on.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Decision is a reviewer verdict on a stored post.
type Decision struct {
	PostID   int64 `json:"text_id"`
	Approved bool  `json:"is_approved"`
}
