package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

// bucket couples a token-bucket limiter with its last activity stamp.
type bucket struct {
	lim     *rate.Limiter
	touched time.Time
}

const (
	// maxTrackedIdentities bounds the bucket registry; crossing it
	// triggers an inline prune of stale buckets.
	maxTrackedIdentities = 4096

	// staleAfter is how long a bucket may sit untouched before a prune
	// may drop it.
	staleAfter = 15 * time.Minute
)

// RateLimit enforces a per-caller token bucket (golang.org/x/time/rate).
// The caller identity is whatever Auth stored in the context; on open
// deployments it falls back to the client IP.
//
// Registry cleanup is amortised into the request path: once the map
// outgrows maxTrackedIdentities, stale buckets are pruned under the same
// lock that admits the new one. A refused request carries a Retry-After
// hint derived from the bucket's next-token delay.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*bucket)

	return func(c *gin.Context) {
		identity := clientIdentity(c)
		now := time.Now()

		mu.Lock()
		b, ok := buckets[identity]
		if !ok {
			if len(buckets) >= maxTrackedIdentities {
				pruneStale(buckets, now)
			}
			b = &bucket{
				lim: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
			}
			buckets[identity] = b
		}
		b.touched = now
		mu.Unlock()

		reservation := b.lim.Reserve()
		if !reservation.OK() {
			refuse(c, time.Second)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			// Not admitting the request, so hand the token back.
			reservation.Cancel()
			refuse(c, delay)
			return
		}

		c.Next()
	}
}

// clientIdentity prefers the authenticated identity over the network one.
func clientIdentity(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}

// pruneStale drops buckets idle beyond staleAfter. Caller holds the lock.
func pruneStale(buckets map[string]*bucket, now time.Time) {
	for id, b := range buckets {
		if now.Sub(b.touched) > staleAfter {
			delete(buckets, id)
		}
	}
}

func refuse(c *gin.Context, wait time.Duration) {
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"error": &models.ErrorDetail{
			Code:    models.ErrCodeRateLimited,
			Message: "request rate exceeds the configured budget",
		},
	})
}
