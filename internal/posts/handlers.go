// Package posts serves the authenticated dashboard API: generation, post
// management, per-session settings and statistics.
package posts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/auth"
	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/pipeline"
	"github.com/jimdaga/unipost/internal/session"
	"github.com/jimdaga/unipost/internal/stats"
)

// Generator runs the generation pipeline.
type Generator interface {
	Run(ctx context.Context, st *session.State, req pipeline.Request, creds pipeline.Credentials) (*pipeline.Result, error)
}

// PostAPI is the content API surface used by the handlers.
type PostAPI interface {
	ListPosts(ctx context.Context, token string) ([]content.Post, error)
	GetPost(ctx context.Context, token string, id int64) (*content.Post, error)
	UpdatePost(ctx context.Context, token string, id int64, u content.PostUpdate) (*content.Post, error)
	DeletePost(ctx context.Context, token string, id int64) error
}

// Reviewer changes the approval state of stored posts.
type Reviewer interface {
	Approve(ctx context.Context, token string, id int64) (*content.Post, error)
	Reject(ctx context.Context, token string, id int64) (*content.Post, error)
}

// SessionStore persists per-session state.
type SessionStore interface {
	Load(ctx context.Context, id, username string) (*session.State, error)
	Save(ctx context.Context, st *session.State) error
	Lock(ctx context.Context, id string) (func(), error)
}

// ReferenceCache is the shared reference cache.
type ReferenceCache interface {
	Clear(ctx context.Context) (int, error)
}

// ReferenceSync schedules a full rebuild of the reference index.
type ReferenceSync interface {
	EnqueueSync(ctx context.Context) error
}

// StatsReader exposes the post counters.
type StatsReader interface {
	Snapshot(ctx context.Context) (stats.Snapshot, error)
}

// Deps are the collaborators of Handlers. Cache and Reindex may be nil.
type Deps struct {
	Generator Generator
	Posts     PostAPI
	Reviewer  Reviewer
	Sessions  SessionStore
	Cache     ReferenceCache
	Reindex   ReferenceSync
	Stats     StatsReader
	Logger    *slog.Logger
}

// Handlers implements the /api routes.
type Handlers struct {
	Deps
}

// NewHandlers creates Handlers.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// Register mounts the routes on g. g must already run auth.RequireAuth.
func (h *Handlers) Register(g *gin.RouterGroup) {
	read := auth.RequireCapability(content.CapRead)
	update := auth.RequireCapability(content.CapUpdate)
	create := auth.RequireCapability(content.CapCreate)
	remove := auth.RequireCapability(content.CapDelete)

	g.GET("/session", h.SessionInfo)

	g.POST("/posts/generate", h.Generate)
	g.GET("/posts", read, h.List)
	g.GET("/posts/:id", read, h.Get)
	g.PUT("/posts/:id", update, h.Update)
	g.POST("/posts/:id/approve", update, h.Approve)
	g.POST("/posts/:id/reject", update, h.Reject)
	g.POST("/posts/:id/regenerate", create, h.Regenerate)
	g.DELETE("/posts/:id", remove, h.Delete)

	g.POST("/last/approve", update, h.ApproveLast)
	g.POST("/last/reject", update, h.RejectLast)
	g.POST("/last/regenerate", create, h.RegenerateLast)
	g.DELETE("/last", h.ClearLast)

	g.POST("/cache/clear", h.ClearCache)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
	g.POST("/settings/reset", h.ResetSettings)
	g.GET("/statistics", h.Statistics)
}

// loadState returns the caller's identity and session state. On failure
// it has already written the response.
func (h *Handlers) loadState(c *gin.Context) (auth.Identity, *session.State, bool) {
	id, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return id, nil, false
	}

	st, err := h.Sessions.Load(c.Request.Context(), id.SessionID, id.Username)
	if err != nil {
		h.Logger.Error("failed to load session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return id, nil, false
	}
	return id, st, true
}

// saveState persists st. A failed save is logged; the response already
// reflects the change.
func (h *Handlers) saveState(c *gin.Context, st *session.State) {
	if err := h.Sessions.Save(c.Request.Context(), st); err != nil {
		h.Logger.Error("failed to save session", "session_id", st.ID, "error", err)
	}
}

// apiContext bounds content API calls by the user's api_timeout setting.
func apiContext(c *gin.Context, st *session.State) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), st.Preferences.APITimeout())
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

// writeAPIError maps content API failures to responses.
func (h *Handlers) writeAPIError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, approval.ErrNotApproved):
		c.JSON(http.StatusConflict, gin.H{"error": "post is not approved"})
	case errors.Is(err, content.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, context.DeadlineExceeded):
		h.Logger.Warn("content API timed out", "op", op)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "content service timed out"})
	default:
		h.Logger.Error("content API call failed", "op", op, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "content service unavailable"})
	}
}
