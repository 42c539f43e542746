package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/crypto"
)

// ContentAuth is the part of the content API used for login.
type ContentAuth interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	Permissions(ctx context.Context, token string) ([]string, error)
}

// SessionStore drops server side session state on logout.
type SessionStore interface {
	Delete(ctx context.Context, id string) error
}

// Handlers serves login and logout.
type Handlers struct {
	api    ContentAuth
	sealer *crypto.TokenSealer
	store  SessionStore
	newID  func() string
	logger *slog.Logger
}

// NewHandlers creates the login handlers. newID generates session ids.
func NewHandlers(api ContentAuth, sealer *crypto.TokenSealer, store SessionStore, newID func() string, logger *slog.Logger) *Handlers {
	return &Handlers{api: api, sealer: sealer, store: store, newID: newID, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// HandleLogin authenticates against the content API and stores the sealed
// token and capabilities in the session cookie.
func (h *Handlers) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.api.Login(ctx, req.Username, req.Password)
	if errors.Is(err, content.ErrUnauthorized) {
		h.logger.Info("login rejected", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("login failed", "username", req.Username, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "authentication service unavailable"})
		return
	}

	perms, err := h.api.Permissions(ctx, token)
	if err != nil {
		// Without permissions the user can still sign in with no capabilities.
		h.logger.Warn("failed to load permissions", "username", req.Username, "error", err)
	}
	caps := content.CapabilitiesFrom(perms)

	sealed, err := h.sealer.Seal(token)
	if err != nil {
		h.logger.Error("failed to seal token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(keySessionID, h.newID())
	session.Set(keyToken, sealed)
	session.Set(keyUsername, req.Username)
	session.Set(keyCapabilities, int(caps))
	if err := session.Save(); err != nil {
		h.logger.Error("session save error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.Info("user authenticated", "username", req.Username, "capabilities", caps.Names())
	c.JSON(http.StatusOK, gin.H{"username": req.Username, "capabilities": caps})
}

// HandleLogout revokes the token, drops the session state and clears the
// cookie. Failures on the remote side do not block logout.
func (h *Handlers) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	ctx := c.Request.Context()

	if sealed, _ := session.Get(keyToken).(string); sealed != "" {
		if token, err := h.sealer.Open(sealed); err == nil {
			if err := h.api.Logout(ctx, token); err != nil {
				h.logger.Warn("remote logout failed", "error", err)
			}
		}
	}
	if sid, _ := session.Get(keySessionID).(string); sid != "" {
		if err := h.store.Delete(ctx, sid); err != nil {
			h.logger.Warn("failed to delete session state", "error", err)
		}
	}

	clearSession(session)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
