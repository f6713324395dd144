package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/extract"
	"github.com/use-agent/drover/models"
)

// extractBody is the POST payload: the extraction request plus a cache
// toggle for the uncached variant of the surface.
type extractBody struct {
	models.ExtractionRequest
	Cache *bool `json:"cache,omitempty"`
}

// Extract returns a handler for POST /api/v1/extract.
func Extract(coord *extract.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body extractBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		useCache := body.Cache == nil || *body.Cache
		runExtract(c, coord, &body.ExtractionRequest, useCache)
	}
}

// ExtractQuery returns a handler for GET /api/v1/extract.
//
// Reserved query params map to request fields (url, kind, selector, wait,
// cache); every other query param becomes a strategy option.
func ExtractQuery(coord *extract.Coordinator) gin.HandlerFunc {
	reserved := map[string]struct{}{
		"url": {}, "kind": {}, "selector": {}, "wait": {}, "cache": {},
	}
	return func(c *gin.Context) {
		kind, err := models.ParseExtractionKind(c.Query("kind"))
		if err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		wait, err := models.ParseWaitPolicy(c.Query("wait"))
		if err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		req := &models.ExtractionRequest{
			URL:      c.Query("url"),
			Kind:     kind,
			Selector: c.Query("selector"),
			Wait:     wait,
		}
		for key, values := range c.Request.URL.Query() {
			if _, ok := reserved[key]; ok || len(values) == 0 {
				continue
			}
			if req.Options == nil {
				req.Options = make(map[string]string)
			}
			req.Options[key] = values[0]
		}

		useCache := true
		if v := c.Query("cache"); v != "" {
			if parsed, err := strconv.ParseBool(v); err == nil {
				useCache = parsed
			}
		}
		runExtract(c, coord, req, useCache)
	}
}

func runExtract(c *gin.Context, coord *extract.Coordinator, req *models.ExtractionRequest, useCache bool) {
	result, cacheInfo, err := coord.Extract(c.Request.Context(), req, useCache)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExtractionResponse{
		Success: true,
		Result:  result,
		Cache:   cacheInfo,
	})
}
