package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkweights/internal/config"
	"github.com/mamadbah2/milkweights/internal/ledger"
	"github.com/mamadbah2/milkweights/internal/repository/mongodb"
	"github.com/mamadbah2/milkweights/internal/repository/sheets"
	"github.com/mamadbah2/milkweights/internal/scheduler"
	"github.com/mamadbah2/milkweights/internal/server/handlers"
	"github.com/mamadbah2/milkweights/internal/server/router"
	commandsvc "github.com/mamadbah2/milkweights/internal/service/commands"
	ingestsvc "github.com/mamadbah2/milkweights/internal/service/ingest"
	reportingsvc "github.com/mamadbah2/milkweights/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/milkweights/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/milkweights/pkg/clients/whatsapp"
	"github.com/mamadbah2/milkweights/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	} else {
		baseLogger.Warn("google sheets not configured, sheet import and mirroring disabled")
	}

	var snapshots mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		snapshots = mongoRepo
	} else {
		baseLogger.Warn("mongodb not configured, report snapshots disabled")
	}

	var sinks []ingestsvc.RecordSink
	if cfg.Ingest.OutputFile != "" {
		fileSink, err := ingestsvc.NewCSVFileSink(cfg.Ingest.OutputFile)
		if err != nil {
			baseLogger.Fatal("invalid OUTPUT_FILE", zap.Error(err))
		}
		sinks = append(sinks, fileSink)
	}
	if sheetsRepo != nil {
		sinks = append(sinks, ingestsvc.NewSheetSink(sheetsRepo, cfg.Sheets.EntriesRange))
	}

	ingestSvc := ingestsvc.NewService(
		ledger.NewRegistry(),
		sheetsRepo,
		cfg.Sheets.RecordsRange,
		ingestsvc.NewMetrics(metricsRegistry),
		logger.Named(baseLogger, "svc.ingest"),
		sinks...,
	)
	preload(ctx, cfg, ingestSvc, baseLogger)

	reportingSvc := reportingsvc.NewService(ingestSvc, snapshots, logger.Named(baseLogger, "svc.reporting"))
	commandDispatcher := commandsvc.NewService(ingestSvc, reportingSvc, logger.Named(baseLogger, "svc.commands"))

	var messagingSvc whatsappsvc.MessagingService
	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, logger.Named(baseLogger, "svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp not configured, webhook routes disabled")
	}

	engine := router.New(router.Handlers{
		Webhook: webhookHandler,
		Records: handlers.NewRecordsHandler(ingestSvc, logger.Named(baseLogger, "handlers.records")),
		Reports: handlers.NewReportsHandler(reportingSvc, logger.Named(baseLogger, "handlers.reports")),
	}, metricsRegistry, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(*cfg, reportingSvc, messagingSvc, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// preload ingests INPUT_FILES and the records sheet. A rejected source is
// logged and skipped; the server still starts with whatever was accepted.
func preload(ctx context.Context, cfg *config.Config, svc *ingestsvc.Service, log *zap.Logger) {
	if len(cfg.Ingest.InputFiles) > 0 {
		n, err := svc.IngestPaths(ctx, cfg.Ingest.InputFiles...)
		if err != nil {
			log.Error("some input files were rejected", zap.Error(err))
		}
		log.Info("input files loaded", zap.Int("records", n), zap.Strings("files", cfg.Ingest.InputFiles))
	}

	if cfg.Sheets.Enabled() {
		n, err := svc.IngestSheet(ctx)
		if err != nil {
			log.Error("records sheet rejected", zap.Error(err))
			return
		}
		log.Info("records sheet loaded", zap.Int("records", n))
	}
}
