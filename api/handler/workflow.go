package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/workflow"
)

// workflowError maps store sentinels before the generic error mapping.
func workflowError(c *gin.Context, err error) {
	if errors.Is(err, workflow.ErrNotFound) {
		respondError(c, models.NewServiceError(models.ErrCodeNotFound, "workflow not found", err))
		return
	}
	respondError(c, err)
}

// CreateWorkflow returns a handler for POST /api/v1/workflows.
func CreateWorkflow(st *workflow.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var wf models.Workflow
		if err := c.ShouldBindJSON(&wf); err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		if err := st.Create(c.Request.Context(), &wf); err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "workflow": wf})
	}
}

// GetWorkflow returns a handler for GET /api/v1/workflows/:id.
func GetWorkflow(st *workflow.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		wf, err := st.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "workflow": wf})
	}
}

// UpdateWorkflow returns a handler for PUT /api/v1/workflows/:id.
func UpdateWorkflow(st *workflow.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var wf models.Workflow
		if err := c.ShouldBindJSON(&wf); err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		wf.ID = c.Param("id")
		if err := st.Update(c.Request.Context(), &wf); err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "workflow": wf})
	}
}

// DeleteWorkflow returns a handler for DELETE /api/v1/workflows/:id.
func DeleteWorkflow(st *workflow.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Delete(c.Request.Context(), c.Param("id")); err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ListWorkflows returns a handler for GET /api/v1/workflows.
//
// Query selectors (mutually exclusive, first match wins):
//
//	name=<substr>      by name substring
//	tag=<substr>       by tag substring
//	creator=<identity> by creator
//	never_executed=true
//	top=executions|success|recent-runs|recent&n=<N>
func ListWorkflows(st *workflow.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		n := 10
		if v := c.Query("n"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				n = parsed
			}
		}

		var (
			workflows []*models.Workflow
			err       error
		)
		switch {
		case c.Query("name") != "":
			workflows, err = st.SearchByName(ctx, c.Query("name"))
		case c.Query("tag") != "":
			workflows, err = st.SearchByTag(ctx, c.Query("tag"))
		case c.Query("creator") != "":
			workflows, err = st.ByCreator(ctx, c.Query("creator"))
		case c.Query("never_executed") == "true":
			workflows, err = st.NeverExecuted(ctx)
		case c.Query("top") == "executions":
			workflows, err = st.TopByExecutions(ctx, n)
		case c.Query("top") == "success":
			workflows, err = st.TopBySuccessRate(ctx, n)
		case c.Query("top") == "recent-runs":
			workflows, err = st.RecentlyExecuted(ctx, n)
		case c.Query("top") == "recent":
			workflows, err = st.RecentlyCreated(ctx, n)
		default:
			workflows, err = st.List(ctx)
		}
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "workflows": workflows, "count": len(workflows)})
	}
}

// WorkflowStats returns a handler for GET /api/v1/workflows/stats.
func WorkflowStats(st *workflow.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := st.Stats(c.Request.Context())
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
	}
}

// executeWorkflowBody is the optional execute payload.
type executeWorkflowBody struct {
	Params map[string]string `json:"params,omitempty"`
}

// ExecuteWorkflow returns a handler for POST /api/v1/workflows/:id/execute.
func ExecuteWorkflow(runner *workflow.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body executeWorkflowBody
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
				return
			}
		}

		report, err := runner.Execute(c.Request.Context(), c.Param("id"), body.Params)
		if err != nil {
			workflowError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
	}
}
