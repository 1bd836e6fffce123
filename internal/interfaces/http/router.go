// Package http assembles the REST surface of the engine: route tree, global
// middleware and the server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/prometheus"
	"github.com/jurisflow/prazo/internal/interfaces/http/handlers"
	"github.com/jurisflow/prazo/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.  Nil handlers leave their
// routes unregistered, which keeps partial wiring (tests, worker-only
// deployments) possible.
type RouterConfig struct {
	// Handlers
	DeadlineHandler   *handlers.DeadlineHandler
	RulesHandler      *handlers.RulesHandler
	SettingsHandler   *handlers.SettingsHandler
	SuspensionHandler *handlers.SuspensionHandler
	AlertsHandler     *handlers.AlertsHandler
	HealthHandler     *handlers.HealthHandler

	// Infrastructure
	Logger  logging.Logger
	Metrics *prometheus.Metrics

	// Mode is the gin mode: "debug", "release" or "test".
	Mode string
}

// NewRouter constructs the complete route tree: global middleware, public
// probe endpoints, the metrics endpoint, and the versioned API groups.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Probes and metrics stay outside the API version prefix.
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	registerDeadlineRoutes(api, cfg.DeadlineHandler)
	registerRuleRoutes(api, cfg.RulesHandler)
	registerSettingsRoutes(api, cfg.SettingsHandler)
	registerSuspensionRoutes(api, cfg.SuspensionHandler)
	registerAlertRoutes(api, cfg.AlertsHandler)

	return r
}

func registerDeadlineRoutes(api *gin.RouterGroup, h *handlers.DeadlineHandler) {
	if h == nil {
		return
	}
	g := api.Group("/deadlines")
	g.POST("/compute", h.Compute)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

func registerRuleRoutes(api *gin.RouterGroup, h *handlers.RulesHandler) {
	if h == nil {
		return
	}
	g := api.Group("/rules")
	g.GET("/versions", h.ListVersions)
	g.GET("/active", h.GetActive)
	g.POST("/publish", h.Publish)
}

func registerSettingsRoutes(api *gin.RouterGroup, h *handlers.SettingsHandler) {
	if h == nil {
		return
	}
	g := api.Group("/settings")
	g.GET("", h.Get)
	g.PUT("", h.Update)
	g.GET("/history", h.History)
}

func registerSuspensionRoutes(api *gin.RouterGroup, h *handlers.SuspensionHandler) {
	if h == nil {
		return
	}
	g := api.Group("/suspensions")
	g.POST("", h.Add)
	g.GET("", h.List)
}

func registerAlertRoutes(api *gin.RouterGroup, h *handlers.AlertsHandler) {
	if h == nil {
		return
	}
	g := api.Group("/alerts")
	g.GET("/:deadlineID", h.State)
	g.POST("/:deadlineID/ack", h.Ack)
}
