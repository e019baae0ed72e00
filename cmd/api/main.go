package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicscott/assessment-reports/cmd/mainconfig"
	"github.com/nicscott/assessment-reports/internal/api/router"
	"github.com/nicscott/assessment-reports/internal/app/bootstrap"
	appconfig "github.com/nicscott/assessment-reports/internal/config"
	"github.com/nicscott/assessment-reports/internal/crm"
	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/internal/generation"
	"github.com/nicscott/assessment-reports/internal/notify"
	"github.com/nicscott/assessment-reports/internal/observability/metrics"
	"github.com/nicscott/assessment-reports/internal/render"
	"github.com/nicscott/assessment-reports/internal/submission"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting assessment-reports API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.EntryHashSecret == "" {
		logger.Error("ENTRY_HASH_SECRET is required")
		os.Exit(1)
	}
	if cfg.FormsAPIBaseURL == "" {
		logger.Error("FORMS_API_BASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Storage backends
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	reportStore := bootstrap.BuildReportStore(pool, logger)
	metaStore, err := bootstrap.BuildMetaStore(cfg, pool, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build submission meta store", "error", err)
		os.Exit(1)
	}

	// Generation job transport
	queue, err := bootstrap.BuildQueue(cfg, awsCfg)
	if err != nil {
		logger.Error("failed to build generation queue", "error", err)
		os.Exit(1)
	}
	publisher := generation.NewPublisher(queue, logger)

	codec := entryhash.NewCodec(cfg.EntryHashSecret)
	formsClient := forms.NewHTTPClient(cfg.FormsAPIBaseURL, cfg.FormsAPIKey, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	// Events: CRM sync and ready notifications subscribe here.
	dispatcher := events.NewDispatcher(logger)
	notifier := notify.NewReportNotifier(bootstrap.BuildEmailSender(cfg, awsCfg, logger), logger)

	var crmClient crm.Client
	if cfg.CRMAPIBaseURL != "" {
		crmClient = crm.NewHTTPClient(cfg.CRMAPIBaseURL, cfg.CRMAPIKey, logger)
	} else {
		logger.Warn("CRM_API_BASE_URL not set, using in-memory CRM client")
		crmClient = crm.NewInMemoryClient()
	}
	bridge := crm.NewBridge(crmClient, logger,
		crm.WithNotifier(notifier),
		crm.WithPendingTagSlug(cfg.CRMPendingTagSlug),
	)
	bridge.Register(dispatcher)

	// Submission pipeline
	orchestrator := submission.NewOrchestrator(
		reportStore,
		metaStore,
		codec,
		publisher,
		cfg.ReportPageURL,
		logger,
		submission.WithDispatcher(dispatcher),
		submission.WithMetrics(pipelineMetrics),
		submission.WithPendingTagSlug(cfg.CRMPendingTagSlug),
		submission.WithFormsClient(formsClient),
	)

	// Generation service backs the synchronous /ai-generate path.
	llm, modelParams, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}
	service := generation.NewService(
		metaStore,
		reportStore,
		formsClient,
		llm,
		publisher,
		codec,
		modelParams,
		bootstrap.PromptSettings(cfg),
		logger,
		generation.WithDispatcher(dispatcher),
		generation.WithMetrics(pipelineMetrics),
		generation.WithReadyTagSlug(cfg.CRMReadyTagSlug),
		generation.WithReportURLBuilder(orchestrator.ReportURL),
	)

	// Report rendering, cached in Redis when available
	viewOpts := []render.ViewBuilderOption{render.WithAIAvailable(llm != nil)}
	if redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
		viewOpts = append(viewOpts, render.WithCache(render.NewCache(redisClient, cfg.RenderCacheTTL, nil)))
	}
	viewBuilder := render.NewViewBuilder(reportStore, metaStore, codec, logger, viewOpts...)

	// Initialize handlers
	submissionHandler := submission.NewHandler(orchestrator, logger)
	generationHandler := generation.NewHandler(service, logger)
	renderHandler := render.NewHandler(viewBuilder, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		SubmissionHandler:  submissionHandler,
		GenerationHandler:  generationHandler,
		RenderHandler:      renderHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WebhookRateLimit:   cfg.WebhookRateLimit,
		WebhookBurst:       cfg.WebhookBurst,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
