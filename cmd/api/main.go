package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	_ "github.com/johnquangdev/playcoach/docs"
	"github.com/johnquangdev/playcoach/internal/adapter/handler"
	"github.com/johnquangdev/playcoach/internal/app"
	httpmw "github.com/johnquangdev/playcoach/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jwt"
	pkgvalidator "github.com/johnquangdev/playcoach/pkg/validator"
)

// @title           PlayCoach API
// @version         1.0
// @description     Play-session recording analysis: audio-ready trigger, recording reports and weekly progress

// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the service JWT.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize dependencies
	logger.Info("🔧 Initializing dependencies...")
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	container, err := app.Build(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer container.Close()

	// Start analysis workers
	logger.Info("👷 Starting analysis worker pool...")
	if err := container.Workers.StartWorkerPool(rootCtx); err != nil {
		logger.Fatal("Failed to start worker pool", zap.Error(err))
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Setup router with handlers
	logger.Info("🛣️ Setting up routes...")
	recordingHandler := handler.NewRecordingHandler(container.Recordings, container.Utterances, container.Workers, logger)
	reportHandler := handler.NewReportHandler(container.Aggregator, logger)

	router := handler.NewRouter(cfg, recordingHandler, reportHandler,
		httpmw.ServiceAuth(container.JWT, jwt.ScopeTriggerAnalysis, logger),
		httpmw.ServiceAuth(container.JWT, jwt.ScopeReadReports, logger),
	)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
	}

	// In-flight attempts finish; interrupted backoffs are recovered by the stale sweeper.
	if err := container.Workers.StopWorkerPool(); err != nil {
		logger.Error("❌ Failed to stop worker pool", zap.Error(err))
	}

	logger.Info("✅ Server stopped gracefully")
}
