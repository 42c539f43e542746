// Package webhook provides n8n webhook integration for post approval
package webhook

import "time"

// SecretHeader carries the shared secret in both directions.
const SecretHeader = "X-N8N-SECRET"

// ApprovalPayload is the body posted to the n8n approval webhook
type ApprovalPayload struct {
	RunID       string    `json:"run_id"`
	Theme       string    `json:"theme"`
	Text        string    `json:"text"`
	Platform    string    `json:"platform"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// DecisionPayload is the body n8n posts back once a reviewer decided
type DecisionPayload struct {
	TextID     int64 `json:"text_id" binding:"required"`
	IsApproved *bool `json:"is_approved" binding:"required"`
}
