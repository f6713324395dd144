package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/actions"
	"github.com/use-agent/drover/browser"
	"github.com/use-agent/drover/models"
)

// Actions returns a handler for POST /api/v1/actions: run an ad-hoc action
// sequence against a fresh session at the request URL.
func Actions(pool *browser.Pool, executor *actions.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ActionSequenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		if len(req.Actions) == 0 {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, "actions must not be empty", nil))
			return
		}
		for _, a := range req.Actions {
			if err := a.Validate(); err != nil {
				respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
				return
			}
		}
		if req.Wait == "" {
			req.Wait = models.WaitLoad
		}

		acts := actions.SubstituteParams(req.Actions, req.Params)

		sess, err := pool.Acquire(c.Request.Context(), req.URL, req.Wait)
		if err != nil {
			respondError(c, err)
			return
		}
		defer pool.Release(sess.ID)

		results := executor.ExecuteSequence(c.Request.Context(), sess.Page(), acts)

		success := len(results) == len(acts)
		finalURL := req.URL
		for _, res := range results {
			if !res.Success {
				success = false
			}
			if res.FinalURL != "" {
				finalURL = res.FinalURL
			}
		}

		c.JSON(http.StatusOK, models.ActionSequenceResponse{
			Success:  success,
			Results:  results,
			FinalURL: finalURL,
		})
	}
}
