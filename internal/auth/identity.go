package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/content"
)

// Session cookie keys.
const (
	keySessionID    = "sid"
	keyToken        = "token"
	keyUsername     = "username"
	keyCapabilities = "capabilities"
)

const identityKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	SessionID    string
	Username     string
	Token        string
	Capabilities content.Capabilities
}

// FromContext returns the identity set by RequireAuth.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// SetIdentity attaches id to the request context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}
