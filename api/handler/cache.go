package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/cache"
)

// CacheMetrics returns a handler for GET /api/v1/cache/metrics.
func CacheMetrics(c *cache.Cache) gin.HandlerFunc {
	return func(gc *gin.Context) {
		report, err := c.Report(gc.Request.Context())
		if err != nil {
			respondError(gc, err)
			return
		}
		gc.JSON(http.StatusOK, gin.H{"success": true, "metrics": report})
	}
}

// InvalidateCache returns a handler for DELETE /api/v1/cache.
//
//	?url=<url>     delete all entries for that URL
//	?expired=true  delete expired entries
//	(neither)      full flush
func InvalidateCache(c *cache.Cache) gin.HandlerFunc {
	return func(gc *gin.Context) {
		ctx := gc.Request.Context()

		var (
			removed int64
			err     error
		)
		switch {
		case gc.Query("url") != "":
			removed, err = c.InvalidateURL(ctx, gc.Query("url"))
		case gc.Query("expired") == "true":
			removed, err = c.InvalidateExpired(ctx)
		default:
			removed, err = c.Flush(ctx)
		}
		if err != nil {
			respondError(gc, err)
			return
		}
		gc.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
	}
}
