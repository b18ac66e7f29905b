package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/johnquangdev/playcoach/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg              *config.Config
	recordingHandler *Recording
	reportHandler    *Report
	triggerAuth      echo.MiddlewareFunc
	readAuth         echo.MiddlewareFunc
}

// NewRouter creates a new router with all handlers.
// triggerAuth guards the internal trigger, readAuth guards the read endpoints.
func NewRouter(cfg *config.Config, recordingHandler *Recording, reportHandler *Report, triggerAuth, readAuth echo.MiddlewareFunc) *Router {
	return &Router{
		cfg:              cfg,
		recordingHandler: recordingHandler,
		reportHandler:    reportHandler,
		triggerAuth:      triggerAuth,
		readAuth:         readAuth,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupInternalRoutes(v1)
	rt.setupRecordingRoutes(v1)
	rt.setupReportRoutes(v1)
}

// setupInternalRoutes configures service-to-service routes
func (rt *Router) setupInternalRoutes(g *echo.Group) {
	internal := g.Group("/internal", rt.middlewares(rt.triggerAuth)...)

	if rt.recordingHandler != nil {
		internal.POST("/recordings/audio-ready", rt.recordingHandler.AudioReady)
	} else {
		internal.POST("/recordings/audio-ready", rt.notImplemented)
	}
}

// setupRecordingRoutes configures recording read routes
func (rt *Router) setupRecordingRoutes(g *echo.Group) {
	recordingGroup := g.Group("/recordings", rt.middlewares(rt.readAuth)...)

	if rt.recordingHandler != nil {
		recordingGroup.GET("/:id", rt.recordingHandler.GetRecording)
		recordingGroup.GET("/:id/utterances", rt.recordingHandler.ListUtterances)
	} else {
		recordingGroup.GET("/:id", rt.notImplemented)
		recordingGroup.GET("/:id/utterances", rt.notImplemented)
	}
}

// setupReportRoutes configures report routes
func (rt *Router) setupReportRoutes(g *echo.Group) {
	userGroup := g.Group("/users", rt.middlewares(rt.readAuth)...)

	if rt.reportHandler != nil {
		userGroup.GET("/:user_id/weekly-report", rt.reportHandler.WeeklyReport)
	} else {
		userGroup.GET("/:user_id/weekly-report", rt.notImplemented)
	}
}

func (rt *Router) middlewares(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "This endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "Please initialize the required handler in main.go",
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	environment := "unknown"
	if rt.cfg != nil {
		environment = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": environment,
	})
}
