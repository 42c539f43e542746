package streams

// Stream name constants
const (
	StreamApprovalRequests  = "posts:approval_requests"
	StreamApprovalDecisions = "posts:approval_decisions"
)

// GroupGoWorkers is the consumer group reading decisions on the Go side.
const GroupGoWorkers = "go-workers"

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// ApprovalRequestMessage is published when a post is ready for review
type ApprovalRequestMessage struct {
	RunID       string `json:"run_id"`
	Theme       string `json:"theme"`
	Text        string `json:"text"`
	Platform    string `json:"platform"`
	RequestedBy string `json:"requested_by"`
	RequestedAt int64  `json:"requested_at"`
}

// DecisionMessage is a reviewer verdict read from the decisions stream
type DecisionMessage struct {
	TextID     int64  `json:"text_id"`
	IsApproved bool   `json:"is_approved"`
	Reviewer   string `json:"reviewer,omitempty"`
}
