package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/browser"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of sessions are
// in use.
func Health(pool *browser.Pool, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := pool.Snapshot()

		status := "healthy"
		if snap.MaxSessions > 0 && snap.InUse > int(float64(snap.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"pool":    snap,
			"version": "0.1.0",
		})
	}
}
