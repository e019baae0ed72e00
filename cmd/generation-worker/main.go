package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nicscott/assessment-reports/cmd/mainconfig"
	"github.com/nicscott/assessment-reports/internal/app/bootstrap"
	appconfig "github.com/nicscott/assessment-reports/internal/config"
	"github.com/nicscott/assessment-reports/internal/crm"
	"github.com/nicscott/assessment-reports/internal/entryhash"
	"github.com/nicscott/assessment-reports/internal/events"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/internal/generation"
	"github.com/nicscott/assessment-reports/internal/notify"
	"github.com/nicscott/assessment-reports/internal/submission"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.EntryHashSecret == "" {
		logger.Error("ENTRY_HASH_SECRET is required")
		os.Exit(1)
	}
	if cfg.FormsAPIBaseURL == "" {
		logger.Error("FORMS_API_BASE_URL is required")
		os.Exit(1)
	}

	runCtx := context.Background()

	awsConfig, err := mainconfig.LoadAWSConfig(runCtx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	pool, err := bootstrap.BuildPostgresPool(runCtx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	reportStore := bootstrap.BuildReportStore(pool, logger)
	metaStore, err := bootstrap.BuildMetaStore(cfg, pool, awsConfig, logger)
	if err != nil {
		logger.Error("failed to build submission meta store", "error", err)
		os.Exit(1)
	}

	queue, err := bootstrap.BuildQueue(cfg, awsConfig)
	if err != nil {
		logger.Error("failed to build generation queue", "error", err)
		os.Exit(1)
	}

	llm, modelParams, err := bootstrap.BuildLLMClient(runCtx, cfg, awsConfig, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}

	// Completed jobs are announced on the dispatcher so the CRM bridge
	// can tag contacts and send ready emails from the worker process.
	dispatcher := events.NewDispatcher(logger)
	notifier := notify.NewReportNotifier(bootstrap.BuildEmailSender(cfg, awsConfig, logger), logger)

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

	codec := entryhash.NewCodec(cfg.EntryHashSecret)
	formsClient := forms.NewHTTPClient(cfg.FormsAPIBaseURL, cfg.FormsAPIKey, logger)
	publisher := generation.NewPublisher(queue, logger)

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
		generation.WithReadyTagSlug(cfg.CRMReadyTagSlug),
		generation.WithReportURLBuilder(func(entryHash string) string {
			return submission.BuildReportURL(cfg.ReportPageURL, entryHash)
		}),
	)

	worker := generation.NewWorker(
		service,
		queue,
		logger,
		generation.WithWorkerCount(cfg.WorkerCount),
	)

	ctx, cancel := context.WithCancel(runCtx)
	defer cancel()

	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down generation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("generation worker stopped")
	case <-doneCtx.Done():
		logger.Error("generation worker shutdown timed out", "error", doneCtx.Err())
	}
}
