package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jimdaga/unipost/internal/approval"
)

// Publisher publishes approval requests to Redis Streams
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	return &Publisher{rdb: client}, nil
}

// Dispatch implements approval.Dispatcher on top of the requests stream
func (p *Publisher) Dispatch(ctx context.Context, req approval.Request) error {
	_, err := p.PublishApprovalRequest(ctx, ApprovalRequestMessage{
		RunID:       req.RunID,
		Theme:       req.Topic,
		Text:        req.Text,
		Platform:    req.Platform,
		RequestedBy: req.RequestedBy,
		RequestedAt: req.RequestedAt.Unix(),
	})
	return err
}

// PublishApprovalRequest publishes an approval request to the stream
func (p *Publisher) PublishApprovalRequest(ctx context.Context, msg ApprovalRequestMessage) (string, error) {
	return p.publish(ctx, StreamApprovalRequests, msg)
}

// PublishDecision publishes a reviewer decision. Used by tooling and tests
// standing in for the review workflow.
func (p *Publisher) PublishDecision(ctx context.Context, msg DecisionMessage) (string, error) {
	return p.publish(ctx, StreamApprovalDecisions, msg)
}

func (p *Publisher) publish(ctx context.Context, stream string, msg any) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*", // auto-generate ID
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
