package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jimdaga/unipost/internal/approval"
)

// Client handles communication with the n8n webhook for post approval
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	stubMode   bool
	logger     *slog.Logger
}

// NewClient creates a new webhook client with the given configuration
func NewClient(baseURL, secret string, stubMode bool, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
		logger:     logger,
	}
}

// Dispatch sends a generated post to the approval workflow
func (c *Client) Dispatch(ctx context.Context, req approval.Request) error {
	if c.stubMode {
		c.logger.Info("approval webhook in stub mode, request accepted locally", "run_id", req.RunID)
		return nil
	}

	jsonData, err := json.Marshal(ApprovalPayload{
		RunID:       req.RunID,
		Theme:       req.Topic,
		Text:        req.Text,
		Platform:    req.Platform,
		RequestedBy: req.RequestedBy,
		RequestedAt: req.RequestedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/approval", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(SecretHeader, c.secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
