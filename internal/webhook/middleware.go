package webhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecretHeader carries the shared secret configured as the assistant's serverUrlSecret.
const SecretHeader = "X-Vapi-Secret"

// SecretAuthMiddleware rejects deliveries whose secret header does not match. An empty
// secret leaves the route open.
func SecretAuthMiddleware(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := sha256.Sum256([]byte(secret))
	return func(c *gin.Context) {
		got := sha256.Sum256([]byte(c.GetHeader(SecretHeader)))
		if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
