package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/reviewmod/internal/adapter/driven/notify"
	"github.com/ericfisherdev/reviewmod/internal/adapter/driven/scorer"
	sqliteadapter "github.com/ericfisherdev/reviewmod/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/reviewmod/internal/adapter/driving/http"
	"github.com/ericfisherdev/reviewmod/internal/application"
	"github.com/ericfisherdev/reviewmod/internal/config"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
	"github.com/ericfisherdev/reviewmod/internal/observability/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"reanalysis_interval", cfg.ReanalysisInterval,
		"strike_threshold", cfg.StrikeThreshold,
		"outcome_recipient", cfg.OutcomeRecipient,
		"remote_scorer", cfg.HasRemoteScorer(),
		"notify_urls", len(cfg.NotifyURLs),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire stores.
	reviewStore := sqliteadapter.NewReviewRepo(db)
	reportStore := sqliteadapter.NewReportRepo(db)
	strikeStore := sqliteadapter.NewStrikeRepo(db)
	notificationStore := sqliteadapter.NewNotificationRepo(db)
	uow := sqliteadapter.NewUnitOfWork(db)

	// 6. Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	moderationMetrics, err := metrics.NewModerationMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// 7. Notification dispatcher: the inbox always, external channels when configured.
	senders := []notify.Sender{notify.NewInboxSender(notificationStore)}
	if len(cfg.NotifyURLs) > 0 {
		shoutrrrSender, err := notify.NewShoutrrrSender(cfg.NotifyURLs, 10*time.Second)
		if err != nil {
			return err
		}
		senders = append(senders, shoutrrrSender)
	}
	dispatcher := notify.NewDispatcher(notify.Config{QueueSize: cfg.NotifyQueueSize}, moderationMetrics, senders...)

	// The dispatcher outlives the signal context so the final pass and
	// in-flight resolutions can still notify.
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(dispatchCtx)
	}()

	// 8. Scorer.
	var coherence driven.Scorer
	if cfg.HasRemoteScorer() {
		coherence = scorer.NewRemoteScorer(cfg.ScorerURL, cfg.ScorerTimeout)
		slog.Info("using remote scorer", "timeout", cfg.ScorerTimeout)
	} else {
		coherence = scorer.NewLexiconScorer(scorer.DefaultMinPolarity)
		slog.Info("using lexicon scorer")
	}

	// 9. Services.
	clock := application.SystemClock{}
	reanalysisSvc := application.NewReanalysisService(
		application.NewFullScanSource(reviewStore),
		reviewStore,
		coherence,
		dispatcher,
		clock,
		moderationMetrics,
		cfg.ReanalysisInterval,
		cfg.ScoringWorkers,
	)
	resolutionSvc := application.NewResolutionService(uow, dispatcher, clock, moderationMetrics, application.ResolutionPolicy{
		StrikeThreshold:        cfg.StrikeThreshold,
		OutcomeRecipient:       cfg.Recipient(),
		NotifyReporterOnReject: cfg.NotifyReporterOnReject,
	})
	reportSvc := application.NewReportService(reviewStore, reportStore, strikeStore, dispatcher, clock, moderationMetrics)

	reanalysisDone := make(chan struct{})
	go func() {
		defer close(reanalysisDone)
		reanalysisSvc.Start(ctx)
	}()

	// 10. HTTP server.
	apiHandler := httphandler.NewHandler(reanalysisSvc, resolutionSvc, reportSvc, notificationStore, db, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, httphandler.MuxOptions{
		AdminToken: cfg.AdminToken,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute, // manual reanalysis runs synchronously
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	slog.Info("reviewmod started",
		"listen_addr", cfg.ListenAddr,
		"reanalysis_interval", cfg.ReanalysisInterval,
	)

	// 11. Wait for shutdown signal or a fatal server error.
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		slog.Error("http server error", "error", runErr)
		stop()
	}
	slog.Info("shutting down")

	// 12. Stop intake first, then let the pass in flight finish, then flush
	// notifications. The deferred db.Close runs last.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	<-reanalysisDone
	cancelDispatch()
	<-dispatcherDone

	slog.Info("shutdown complete")
	return runErr
}
