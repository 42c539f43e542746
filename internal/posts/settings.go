package posts

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/session"
)

// ClearCache drops the session's cached entries. With ?scope=store it also
// empties the shared reference cache, which requires the delete
// capability, and queues a rebuild of the reference index.
func (h *Handlers) ClearCache(c *gin.Context) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	resp := gin.H{"session_entries": st.ClearCached()}
	h.saveState(c, st)

	if c.Query("scope") == "store" {
		if !id.Capabilities.Has(content.CapDelete) {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		if h.Cache == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reference cache is not configured"})
			return
		}
		n, err := h.Cache.Clear(c.Request.Context())
		if err != nil {
			h.Logger.Error("failed to clear reference cache", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to clear reference cache"})
			return
		}
		h.Logger.Info("reference cache cleared", "username", id.Username, "keys", n)
		resp["store_entries"] = n

		if h.Reindex != nil {
			if err := h.Reindex.EnqueueSync(c.Request.Context()); err != nil {
				h.Logger.Warn("failed to enqueue reference sync", "error", err)
			} else {
				resp["reindex_queued"] = true
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetSettings returns the session preferences.
func (h *Handlers) GetSettings(c *gin.Context) {
	_, st, ok := h.loadState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": st.Preferences})
}

// UpdateSettings applies a partial preferences update.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is required"})
		return
	}
	_, st, ok := h.loadState(c)
	if !ok {
		return
	}

	merged, err := st.Preferences.Merge(raw)
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid settings", "fields": verr.Fields})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
		return
	}

	if merged.AutoRefresh != st.Preferences.AutoRefresh {
		st.ClearCached()
	}
	st.Preferences = merged
	h.saveState(c, st)
	c.JSON(http.StatusOK, gin.H{"preferences": st.Preferences})
}

// ResetSettings returns the whole session to defaults. Login stays valid.
func (h *Handlers) ResetSettings(c *gin.Context) {
	_, st, ok := h.loadState(c)
	if !ok {
		return
	}
	st.Reset()
	h.saveState(c, st)
	c.JSON(http.StatusOK, gin.H{"preferences": st.Preferences})
}

// Statistics returns the post counters.
func (h *Handlers) Statistics(c *gin.Context) {
	snap, err := h.Stats.Snapshot(c.Request.Context())
	if err != nil {
		h.Logger.Error("failed to read statistics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "statistics unavailable"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SessionInfo describes the caller and their session.
func (h *Handlers) SessionInfo(c *gin.Context) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":       id.Username,
		"capabilities":   id.Capabilities,
		"preferences":    st.Preferences,
		"filters":        st.Filters,
		"last_generated": st.LastResult,
		"regenerate":     st.Regenerate,
		"cached_entries": len(st.Cached),
	})
}
