package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/crypto"
)

// RequireAuth is a middleware that ensures the request carries a live
// session. Sessions whose access token has expired are cleared.
func RequireAuth(sealer *crypto.TokenSealer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		sid, _ := session.Get(keySessionID).(string)
		sealed, _ := session.Get(keyToken).(string)
		if sid == "" || sealed == "" {
			abortUnauthorized(c, "login required")
			return
		}

		token, err := sealer.Open(sealed)
		if err != nil {
			logger.Warn("discarding session with unreadable token", "error", err)
			clearSession(session)
			abortUnauthorized(c, "login required")
			return
		}
		if content.TokenExpired(token, time.Now()) {
			clearSession(session)
			abortUnauthorized(c, "session expired")
			return
		}

		username, _ := session.Get(keyUsername).(string)
		caps, _ := session.Get(keyCapabilities).(int)

		SetIdentity(c, Identity{
			SessionID:    sid,
			Username:     username,
			Token:        token,
			Capabilities: content.Capabilities(caps),
		})
		c.Next()
	}
}

// RequireCapability rejects callers lacking want. Must run after
// RequireAuth.
func RequireCapability(want content.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			abortUnauthorized(c, "login required")
			return
		}
		if !id.Capabilities.Has(want) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func clearSession(session sessions.Session) {
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()
}
