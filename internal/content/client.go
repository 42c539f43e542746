package content

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

	"github.com/tidwall/gjson"
)

// Client talks to the content API. Every call takes the caller's bearer
// token; the client itself holds no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a content API client for baseURL (for example
// http://host/api/v1).
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges username and password for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authentication/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return "", err
	}

	access := gjson.GetBytes(body, "access").String()
	if access == "" {
		return "", fmt.Errorf("content api: token response without access token")
	}
	return access, nil
}

// Logout revokes token on the API side.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.send(ctx, token, http.MethodPost, "/authentication/logout/", nil, http.StatusOK)
	return err
}

// Permissions returns the permission codenames of the token's user. The API
// answers with a plain list or with {"permissions": [...]}.
func (c *Client) Permissions(ctx context.Context, token string) ([]string, error) {
	body, err := c.send(ctx, token, http.MethodGet, "/user/permissions/", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	list := gjson.ParseBytes(body)
	if list.IsObject() {
		list = list.Get("permissions")
	}
	perms := []string{}
	list.ForEach(func(_, v gjson.Result) bool {
		perms = append(perms, v.String())
		return true
	})
	return perms, nil
}

// ListPosts returns every post visible to the token's user.
func (c *Client) ListPosts(ctx context.Context, token string) ([]Post, error) {
	body, err := c.send(ctx, token, http.MethodGet, "/texts/", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	// Paginated deployments wrap the list in "results".
	list := gjson.ParseBytes(body)
	if list.IsObject() {
		list = list.Get("results")
	}
	posts := []Post{}
	if list.Raw == "" {
		return posts, nil
	}
	if err := json.Unmarshal([]byte(list.Raw), &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

// GetPost fetches one post.
func (c *Client) GetPost(ctx context.Context, token string, id int64) (*Post, error) {
	body, err := c.send(ctx, token, http.MethodGet, postPath(id), nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return decodePost(body)
}

// CreatePost stores a new post.
func (c *Client) CreatePost(ctx context.Context, token string, p NewPost) (*Post, error) {
	body, err := c.send(ctx, token, http.MethodPost, "/texts/", p, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return decodePost(body)
}

// UpdatePost replaces a post's editable fields.
func (c *Client) UpdatePost(ctx context.Context, token string, id int64, u PostUpdate) (*Post, error) {
	body, err := c.send(ctx, token, http.MethodPut, postPath(id), u, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, err
	}
	return c.postOrFetch(ctx, token, id, body)
}

// ApprovePost sets is_approved to true.
func (c *Client) ApprovePost(ctx context.Context, token string, id int64) (*Post, error) {
	return c.setApproval(ctx, token, id, true)
}

// RejectPost sets is_approved back to false.
func (c *Client) RejectPost(ctx context.Context, token string, id int64) (*Post, error) {
	return c.setApproval(ctx, token, id, false)
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, token string, id int64) error {
	_, err := c.send(ctx, token, http.MethodDelete, postPath(id), nil, http.StatusNoContent, http.StatusOK)
	return err
}

func (c *Client) setApproval(ctx context.Context, token string, id int64, approved bool) (*Post, error) {
	patch := map[string]bool{"is_approved": approved}
	body, err := c.send(ctx, token, http.MethodPatch, postPath(id), patch, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, err
	}
	return c.postOrFetch(ctx, token, id, body)
}

// postOrFetch decodes a write response, reading the post back when the API
// answered without a body.
func (c *Client) postOrFetch(ctx context.Context, token string, id int64, body []byte) (*Post, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return c.GetPost(ctx, token, id)
	}
	return decodePost(body)
}

func (c *Client) send(ctx context.Context, token, method, path string, payload any, want ...int) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, want...)
}

func (c *Client) do(req *http.Request, want ...int) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	for _, code := range want {
		if resp.StatusCode == code {
			return body, nil
		}
	}

	c.logger.Debug("content api call failed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	}
	return nil, &StatusError{
		Method: req.Method,
		Path:   req.URL.Path,
		Code:   resp.StatusCode,
		Body:   string(body),
	}
}

func postPath(id int64) string {
	return fmt.Sprintf("/texts/%d/", id)
}

func decodePost(body []byte) (*Post, error) {
	var p Post
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode post: %w", err)
	}
	return &p, nil
}
