package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"career-counselor/internal/transport/http/response"
)

const IdentitySecretHeader = "X-Identity-Secret"

// TrustedIdentity admits only the identity provider, which proves itself with
// the shared secret. An empty secret closes the route.
func TrustedIdentity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(IdentitySecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "untrusted identity provider")
			c.Abort()
			return
		}
		c.Next()
	}
}
