package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/logging"
)

func TestDispatchSendsSecretAndPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/approval", r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get(SecretHeader))
		var p ApprovalPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "Energia solar", p.Theme)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s3cret", false, logging.Discard())
	err := c.Dispatch(context.Background(), approval.Request{RunID: "r1", Topic: "Energia solar", Text: "post", RequestedAt: time.Now()})
	assert.NoError(t, err)
}

func TestDispatchFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s3cret", false, logging.Discard())
	assert.Error(t, c.Dispatch(context.Background(), approval.Request{RunID: "r1"}))
}

func TestDispatchStubMode(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "", true, logging.Discard())
	assert.NoError(t, c.Dispatch(context.Background(), approval.Request{RunID: "r1"}))
}

type fakeApplier struct {
	got approval.Decision
	err error
}

func (f *fakeApplier) ApplyDecision(ctx context.Context, d approval.Decision) (*content.Post, error) {
	f.got = d
	if f.err != nil {
		return nil, f.err
	}
	return &content.Post{ID: d.PostID, IsApproved: d.Approved}, nil
}

func serveDecision(applier DecisionApplier, secret, header, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/decisions", DecisionHandler(applier, secret, logging.Discard()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/decisions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(SecretHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDecisionHandler(t *testing.T) {
	applier := &fakeApplier{}

	w := serveDecision(applier, "s3cret", "s3cret", `{"text_id": 12, "is_approved": false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, approval.Decision{PostID: 12, Approved: false}, applier.got)

	w = serveDecision(applier, "s3cret", "wrong", `{"text_id": 12, "is_approved": true}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serveDecision(applier, "s3cret", "s3cret", `{"text_id": 12}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveDecision(&fakeApplier{err: content.ErrNotFound}, "s3cret", "s3cret", `{"text_id": 99, "is_approved": true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	notApproved := fmt.Errorf("failed to reject post 5: %w", approval.ErrNotApproved)
	w = serveDecision(&fakeApplier{err: notApproved}, "s3cret", "s3cret", `{"text_id": 5, "is_approved": false}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
