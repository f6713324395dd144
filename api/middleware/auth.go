package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/drover/models"
)

// identityKey is the context key under which Auth stores the caller's
// identity for downstream middleware (rate limiting keys off it).
const identityKey = "identity"

// Auth guards the API with a static key list. The key arrives in the
// X-API-Key header, or as an api_key query parameter for clients that
// cannot set headers — EventSource subscriptions to the recorder topics
// fall in that category. With no keys configured the API is open.
//
// Keys are compared in constant time so response timing reveals nothing
// about the configured key material.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			presented = c.Query("api_key")
		}
		if presented == "" {
			unauthorized(c, "authentication required: pass your key in X-API-Key or api_key")
			return
		}
		if !keyMatches(keys, []byte(presented)) {
			unauthorized(c, "API key not recognized")
			return
		}

		c.Set(identityKey, presented)
		c.Next()
	}
}

// keyMatches checks the presented key against every configured key without
// early exit, so the comparison cost is independent of which (if any) key
// matched.
func keyMatches(keys [][]byte, presented []byte) bool {
	matched := 0
	for _, key := range keys {
		if len(key) == len(presented) {
			matched |= subtle.ConstantTimeCompare(key, presented)
		}
	}
	return matched == 1
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
