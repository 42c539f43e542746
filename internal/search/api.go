package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/references"
)

// APISearcher queries the embeddings API of the content backend.
type APISearcher struct {
	baseURL    string
	httpClient *http.Client
	auth       TokenSource
	logger     *slog.Logger
}

// NewAPISearcher creates a searcher for the embeddings API at baseURL.
func NewAPISearcher(baseURL string, timeout time.Duration, auth TokenSource, logger *slog.Logger) *APISearcher {
	return &APISearcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		logger:     logger,
	}
}

// Search calls GET /embeddings/?search=<query>.
func (s *APISearcher) Search(ctx context.Context, query string) ([]references.RawText, error) {
	endpoint := s.baseURL + "/embeddings/?" + url.Values{"search": {query}}.Encode()

	var body []byte
	err := s.auth.WithToken(ctx, func(token string) error {
		var err error
		body, err = call(ctx, s.httpClient, token, http.MethodGet, endpoint, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}

	texts := ParseRawTexts(body)
	s.logger.Debug("embeddings search finished", "search_query", query, "raw_count", len(texts))
	return texts, nil
}

// call performs one authenticated JSON request and maps 401 to
// content.ErrUnauthorized so the token source can renew and retry.
func call(ctx context.Context, httpClient *http.Client, token, method, endpoint string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, content.ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embeddings api returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
