package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/approval"
	"github.com/jimdaga/unipost/internal/content"
)

// DecisionApplier applies reviewer decisions.
type DecisionApplier interface {
	ApplyDecision(ctx context.Context, d approval.Decision) (*content.Post, error)
}

// DecisionHandler receives reviewer decisions from n8n. Requests must carry
// the shared secret.
func DecisionHandler(applier DecisionApplier, secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(SecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}

		var payload DecisionPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text_id and is_approved are required"})
			return
		}

		decision := approval.Decision{PostID: payload.TextID, Approved: *payload.IsApproved}
		post, err := applier.ApplyDecision(c.Request.Context(), decision)
		if err != nil {
			logger.Error("failed to apply approval decision", "post_id", payload.TextID, "error", err)
			switch {
			case errors.Is(err, approval.ErrInvalidDecision):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, content.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			case errors.Is(err, approval.ErrNotApproved):
				c.JSON(http.StatusConflict, gin.H{"error": "post is not approved"})
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": "failed to apply decision"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":     "decision applied",
			"text_id":     post.ID,
			"is_approved": post.IsApproved,
		})
	}
}
