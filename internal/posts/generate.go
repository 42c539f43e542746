package posts

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/auth"
	"github.com/jimdaga/unipost/internal/pipeline"
	"github.com/jimdaga/unipost/internal/session"
)

// Generate runs the pipeline for the session. An empty topic falls back to a
// staged regeneration, if any. Only one run per session may be in flight.
func (h *Handlers) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	if ident, ok := auth.FromContext(c); ok {
		unlock, err := h.Sessions.Lock(ctx, ident.SessionID)
		if errors.Is(err, session.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "a generation is already running for this session"})
			return
		}
		if err != nil {
			h.Logger.Error("failed to lock session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		defer unlock()
	}

	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Topic) == "" && st.Regenerate != nil {
		req = fromRegeneration(req, st.Regenerate)
	}

	res, err := h.Generator.Run(ctx, st, req, pipeline.Credentials{
		Token:        id.Token,
		Username:     id.Username,
		Capabilities: id.Capabilities,
	})
	if err != nil {
		h.writeRunError(c, err)
		return
	}

	// Settings and filters may have been saved while the run was going;
	// only the run's own output is written over the current state.
	if current, err := h.Sessions.Load(ctx, id.SessionID, id.Username); err == nil {
		if st.LastResult != nil {
			current.SetLastResult(st.LastResult)
		}
		st = current
	} else {
		h.Logger.Warn("failed to reload session", "error", err)
	}
	st.ClearCached()
	h.saveState(c, st)

	resp := gin.H{"result": res}
	if st.Preferences.DebugMode {
		resp["debug"] = gin.H{
			"run_id":          res.RunID,
			"duration_ms":     res.Duration.Milliseconds(),
			"cache_hit":       res.CacheHit,
			"reference_count": len(res.References),
			"notices":         res.Notices,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) writeRunError(c *gin.Context, err error) {
	var verr *pipeline.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, pipeline.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, pipeline.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "the language model returned no text, try again"})
	default:
		h.Logger.Error("generation run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected error while generating the post"})
	}
}

// fromRegeneration fills the request from a staged regeneration, keeping any
// option the caller set explicitly.
func fromRegeneration(req pipeline.Request, r *session.RegenerateRequest) pipeline.Request {
	req.Topic = r.Theme
	if req.Platform == "" {
		req.Platform = r.Platform
	}
	if req.Tone == "" {
		req.Tone = r.Tone
	}
	if req.Creativity == "" {
		req.Creativity = r.Creativity
	}
	if req.Length == "" {
		req.Length = r.Length
	}
	return req
}

// ApproveLast approves the post produced by the session's last run.
func (h *Handlers) ApproveLast(c *gin.Context) {
	h.reviewLast(c, true)
}

// RejectLast rejects the post produced by the session's last run.
func (h *Handlers) RejectLast(c *gin.Context) {
	h.reviewLast(c, false)
}

func (h *Handlers) reviewLast(c *gin.Context, approve bool) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	last := st.LastResult
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no generated post in this session"})
		return
	}
	if !last.Persisted() {
		c.JSON(http.StatusConflict, gin.H{"error": "the last post was not saved and cannot be reviewed"})
		return
	}

	ctx, cancel := apiContext(c, st)
	defer cancel()

	review := h.Reviewer.Reject
	if approve {
		review = h.Reviewer.Approve
	}
	post, err := review(ctx, id.Token, last.PostID)
	if err != nil {
		h.writeAPIError(c, "review_last", err)
		return
	}

	last.Approved = post.IsApproved
	st.ClearCached()
	h.saveState(c, st)
	c.JSON(http.StatusOK, gin.H{"post": post, "last_generated": last})
}

// RegenerateLast stages a new generation with the last run's parameters and
// drops the last result.
func (h *Handlers) RegenerateLast(c *gin.Context) {
	_, st, ok := h.loadState(c)
	if !ok {
		return
	}

	last := st.LastResult
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no generated post in this session"})
		return
	}

	st.StageRegeneration(session.RegenerateRequest{
		Theme:      last.Theme,
		Platform:   last.Platform,
		Tone:       last.Tone,
		Creativity: last.Creativity,
		Length:     last.Length,
		OriginalID: last.PostID,
	})
	h.saveState(c, st)
	c.JSON(http.StatusAccepted, gin.H{"regenerate": st.Regenerate})
}

// ClearLast forgets the last result.
func (h *Handlers) ClearLast(c *gin.Context) {
	_, st, ok := h.loadState(c)
	if !ok {
		return
	}
	st.ClearLastResult()
	h.saveState(c, st)
	c.Status(http.StatusNoContent)
}
