// Package api is the HTTP surface over the core: thin gin controllers for
// the extraction, actions, workflow, recorder, cache, and component entry
// points.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/actions"
	"github.com/use-agent/drover/api/handler"
	"github.com/use-agent/drover/api/middleware"
	"github.com/use-agent/drover/browser"
	"github.com/use-agent/drover/cache"
	"github.com/use-agent/drover/component"
	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/extract"
	"github.com/use-agent/drover/recorder"
	"github.com/use-agent/drover/workflow"
)

// Deps bundles the core components the router exposes.
type Deps struct {
	Pool       *browser.Pool
	Cache      *cache.Cache
	Coord      *extract.Coordinator
	Executor   *actions.Executor
	Workflows  *workflow.Store
	Runner     *workflow.Runner
	Recorder   *recorder.Manager
	Components *component.Store
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(deps.Pool, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Extraction — both variants of the surface.
	protected.POST("/extract", handler.Extract(deps.Coord))
	protected.GET("/extract", handler.ExtractQuery(deps.Coord))

	// Ad-hoc action sequences.
	protected.POST("/actions", handler.Actions(deps.Pool, deps.Executor))

	// Cache management.
	protected.GET("/cache/metrics", handler.CacheMetrics(deps.Cache))
	protected.DELETE("/cache", handler.InvalidateCache(deps.Cache))

	// Workflows.
	protected.POST("/workflows", handler.CreateWorkflow(deps.Workflows))
	protected.GET("/workflows", handler.ListWorkflows(deps.Workflows))
	protected.GET("/workflows/stats", handler.WorkflowStats(deps.Workflows))
	protected.GET("/workflows/:id", handler.GetWorkflow(deps.Workflows))
	protected.PUT("/workflows/:id", handler.UpdateWorkflow(deps.Workflows))
	protected.DELETE("/workflows/:id", handler.DeleteWorkflow(deps.Workflows))
	protected.POST("/workflows/:id/execute", handler.ExecuteWorkflow(deps.Runner))

	// Recorder sessions.
	protected.POST("/recorder/sessions", handler.CreateRecorder(deps.Recorder))
	protected.GET("/recorder/sessions", handler.ListRecorders(deps.Recorder))
	protected.GET("/recorder/sessions/:id", handler.GetRecorder(deps.Recorder))
	protected.POST("/recorder/sessions/:id/start", handler.StartRecorder(deps.Recorder))
	protected.POST("/recorder/sessions/:id/stop", handler.StopRecorder(deps.Recorder))
	protected.GET("/recorder/sessions/:id/actions", handler.RecorderActions(deps.Recorder))
	protected.GET("/recorder/sessions/:id/actions/stream", handler.StreamActions(deps.Recorder))
	protected.GET("/recorder/sessions/:id/frames", handler.StreamFrames(deps.Recorder))
	protected.DELETE("/recorder/sessions/:id", handler.CloseRecorder(deps.Recorder))

	// Captured components.
	protected.POST("/components", handler.CaptureComponent(deps.Coord, deps.Components))
	protected.GET("/components", handler.ListComponents(deps.Components))
	protected.GET("/components/:id", handler.GetComponent(deps.Components))
	protected.GET("/component-files/:fileID", handler.GetComponentFile(deps.Components))
	protected.DELETE("/components/:id", handler.DeleteComponent(deps.Components))

	return r
}
