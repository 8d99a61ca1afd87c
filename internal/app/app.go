package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"marketlens/internal/config"
	"marketlens/internal/errors"
	"marketlens/internal/infrastructure"
	customMiddleware "marketlens/internal/middleware"
	"marketlens/internal/services"
	handlers "marketlens/internal/transport/http"
	"marketlens/pkg/contracts"
)

const (
	AppName = "marketlens - marketplace listing analytics"

	runtimeSampleInterval = 15 * time.Second
)

var (
	// BuildTime is set at compile time
	BuildTime = contracts.BuildTime
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(contracts.Version))
	h.Write([]byte(contracts.GitCommit))
	h.Write([]byte(BuildTime))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	Services         *ServiceContainer
	OTelProviders    *infrastructure.OTelProviders
	RuntimeCollector *infrastructure.RuntimeCollector
	ErrorHandler     *errors.ErrorHandler

	stopRuntime context.CancelFunc
	background  *errgroup.Group
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis *services.AnalysisService
	Health   *services.HealthService
	Metrics  *infrastructure.AnalyticsMetrics
}

// NewApplication loads the configuration, initializes logging and
// telemetry and builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("build_id", BuildID))

	paths := cfg.GetPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, logger, otelProviders)
}

// New builds the application from already initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, otelProviders *infrastructure.OTelProviders) (*Application, error) {
	if otelProviders == nil {
		var err error
		if otelProviders, err = infrastructure.InitializeOTel(&infrastructure.OTelConfig{
			ServiceName:    infrastructure.ServiceName,
			ServiceVersion: contracts.Version,
			TraceExporter:  "none",
			MetricExporter: "none",
		}, logger); err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.NewAnalyticsMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create analytics metrics: %w", err)
	}

	collector, err := infrastructure.NewRuntimeCollector(a.OTelProviders.Meter, runtimeSampleInterval)
	if err != nil {
		return fmt.Errorf("failed to create runtime collector: %w", err)
	}
	a.RuntimeCollector = collector

	analysis := services.FromConfig(a.Config, metrics, a.Logger)

	health := services.NewHealthService(contracts.Version, BuildTime, analysis, collector, a.Logger)

	a.Services = &ServiceContainer{
		Analysis: analysis,
		Health:   health,
		Metrics:  metrics,
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Order: RequestID → RealIP → StripSlashes → OTel → Logger → Recoverer → Timeout
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	// Prometheus scrapes stay outside the instrumented group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Services.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.AnalysisTimeout, a.Logger))

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)
	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	analysis := a.Services.Analysis
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Mount("/health", handlers.NewHealthHandler(a.Services.Health, a.Logger).Routes())
		r.Mount("/session", handlers.NewSessionHandler(analysis, a.Config.Upload.MaxBytes, a.Logger, a.ErrorHandler).Routes())
		r.Route("/analysis", func(r chi.Router) {
			r.Use(customMiddleware.Compress(5))
			r.Mount("/", handlers.NewAnalysisHandler(analysis, a.Config.Analysis.MaxTopN, a.Logger, a.ErrorHandler).Routes())
		})
		r.Mount("/export", handlers.NewExportHandler(analysis, a.Config.Analysis.MaxTopN, a.Logger, a.ErrorHandler).Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the server and the runtime collector. A listen failure
// cancels the application through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	runtimeCtx, stopRuntime := context.WithCancel(ctx)
	a.stopRuntime = stopRuntime
	a.background = &errgroup.Group{}
	a.background.Go(func() error {
		a.RuntimeCollector.Start(runtimeCtx)
		return nil
	})
	a.background.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
			return err
		}
		return nil
	})

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.stopRuntime != nil {
		a.stopRuntime()
	}
	a.RuntimeCollector.Stop()
	if a.background != nil {
		if err := a.background.Wait(); err != nil {
			a.Logger.ErrorContext(ctx, "background task failed", slog.String("error", err.Error()))
		}
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck checks that the export and log directories are
// writable.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	paths := a.Config.GetPaths()

	var warnings []string
	directories := map[string]string{
		"Exports": paths.ExportDir,
		"Logs":    paths.LogsDir,
	}
	for name, dir := range directories {
		if dir == "" {
			continue
		}
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "startup health check passed")
	return nil
}
