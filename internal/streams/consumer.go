package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DecisionConsumer consumes reviewer decisions from Redis Streams
type DecisionConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
	block        time.Duration
	logger       *slog.Logger
}

// NewDecisionConsumer creates a new DecisionConsumer instance
func NewDecisionConsumer(redisURL, consumerName string, logger *slog.Logger) (*DecisionConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	// Start ID "0" means read from beginning if group is new
	err = client.XGroupCreateMkStream(context.Background(), StreamApprovalDecisions, GroupGoWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	// Ignore BUSYGROUP error - group already exists

	return &DecisionConsumer{
		rdb:          client,
		groupName:    GroupGoWorkers,
		consumerName: consumerName,
		block:        5 * time.Second,
		logger:       logger,
	}, nil
}

// ConsumeDecisions runs a blocking loop consuming decisions from the stream
func (c *DecisionConsumer) ConsumeDecisions(ctx context.Context, handler func(context.Context, DecisionMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamApprovalDecisions, ">"},
			Count:    10,
			Block:    c.block,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			c.logger.Error("Failed to read from stream", "error", err)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, message, handler)
			}
		}
	}
}

func (c *DecisionConsumer) process(ctx context.Context, message redis.XMessage, handler func(context.Context, DecisionMessage) error) {
	payloadStr, ok := message.Values["payload"].(string)
	if !ok {
		c.logger.Error("Invalid message payload", "message_id", message.ID)
		c.ack(ctx, message.ID)
		return
	}

	var decision DecisionMessage
	if err := json.Unmarshal([]byte(payloadStr), &decision); err != nil {
		c.logger.Error("Failed to unmarshal decision", "error", err, "message_id", message.ID)
		c.ack(ctx, message.ID)
		return
	}

	if err := handler(ctx, decision); err != nil {
		c.logger.Error("Handler failed", "error", err, "post_id", decision.TextID)
		// Message stays in PEL for retry, don't ACK
		return
	}

	c.ack(ctx, message.ID)
}

func (c *DecisionConsumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, StreamApprovalDecisions, c.groupName, id).Err(); err != nil {
		c.logger.Error("Failed to ACK message", "error", err, "message_id", id)
	}
}

// Close closes the Redis client connection
func (c *DecisionConsumer) Close() error {
	return c.rdb.Close()
}

// StartDecisionConsumer starts the decision consumer in a background
// goroutine and returns a stop function
func StartDecisionConsumer(redisURL string, applier DecisionApplier, logger *slog.Logger) (stop func(), err error) {
	consumer, err := NewDecisionConsumer(redisURL, "go-worker-1", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := consumer.ConsumeDecisions(ctx, HandleDecision(applier, logger)); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Decision consumer stopped with error", "error", err)
			}
		}
	}()

	logger.Info("Decision consumer started", "stream", StreamApprovalDecisions)

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
