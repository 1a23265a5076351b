package server

import (
	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/internal/server/middleware"
	"github.com/kwenta-ph/kwenta/backend/internal/server/routes"
)

// Limits are the per-client request budgets per minute.
type Limits struct {
	GraphPerMinute int
	ChatPerMinute  int
}

func RegisterRoutes(e *echo.Echo, app *middleware.App, limits Limits) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}

	graphLimit := middleware.NewRateLimiter(limits.GraphPerMinute).
		Limit("Too many requests. Please wait before trying again.")
	chatLimit := middleware.NewRateLimiter(limits.ChatPerMinute).
		Limit("Too many chat requests. Please wait before trying again.")

	// Graph routes
	graphRoutes := e.Group("/api/graph", graphLimit)
	graphRoutes.GET("/node/:id", routes.GetNodeHandler)
	graphRoutes.GET("/node/:id/neighbors", routes.GetNeighborsHandler)
	graphRoutes.GET("/search", routes.SearchHandler)
	graphRoutes.GET("/path", routes.PathHandler)
	graphRoutes.GET("/subgraph", routes.SubgraphHandler)
	graphRoutes.GET("/multi-hop/:id", routes.MultiHopHandler)

	// Analytics routes share the graph budget
	analyticsRoutes := e.Group("/api/analytics", graphLimit)
	analyticsRoutes.GET("/agency/:id/concentration", routes.ConcentrationHandler)
	analyticsRoutes.GET("/contractor/:id/profile", routes.ProfileHandler)
	analyticsRoutes.GET("/red-flags", routes.RedFlagsHandler)
	analyticsRoutes.GET("/detectors", routes.DetectorsHandler)
	analyticsRoutes.GET("/detectors/:name", routes.DetectorHandler)
	analyticsRoutes.GET("/stats", routes.StatsHandler)
	analyticsRoutes.GET("/network/communities", routes.CommunitiesHandler)
	analyticsRoutes.GET("/subcontract-cycles/:id", routes.SubcontractCyclesHandler)
	analyticsRoutes.GET("/campaign-contracts/:id", routes.CampaignContractsHandler)
	analyticsRoutes.GET("/phoenix-companies", routes.PhoenixCompaniesHandler)
	analyticsRoutes.GET("/saln/:id", routes.SALNTimelineHandler)
	analyticsRoutes.GET("/split-clusters", routes.SplitClustersHandler)
	analyticsRoutes.GET("/procurement/round-amounts", routes.RoundAmountsHandler)
	analyticsRoutes.GET("/procurement/identical-amounts", routes.IdenticalAmountsHandler)
	analyticsRoutes.GET("/procurement/timeline", routes.SpendingTimelineHandler)
	analyticsRoutes.GET("/procurement/contractor-reach", routes.ContractorReachHandler)
	analyticsRoutes.GET("/entity/:id/contracts", routes.EntityContractsHandler)
	analyticsRoutes.GET("/entity/:id/audit-findings", routes.EntityAuditFindingsHandler)

	// Chat routes
	chatRoutes := e.Group("/api/chat", chatLimit)
	chatRoutes.POST("", routes.ChatHandler)
	chatRoutes.GET("/suggestions", routes.SuggestionsHandler)

	// Pipeline routes
	pipelineRoutes := e.Group("/api/pipeline")
	pipelineRoutes.GET("/status", routes.PipelineStatusHandler)
	pipelineRoutes.GET("/quality", routes.QualityHandler)
	pipelineRoutes.POST("/ingest", routes.EnqueueIngestHandler, middleware.RequireMasterKey)
	pipelineRoutes.POST("/detect", routes.EnqueueDetectHandler, middleware.RequireMasterKey)
	pipelineRoutes.POST("/files", routes.UploadFilesHandler, middleware.RequireMasterKey)
}
