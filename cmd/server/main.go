package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"total_loc/internal/api"
	"total_loc/internal/app/queue"
	"total_loc/internal/app/service"
	"total_loc/internal/app/worker"
	"total_loc/internal/domain/repository"
	"total_loc/internal/platform/cache"
	"total_loc/internal/platform/config"
	"total_loc/internal/platform/github"
	"total_loc/internal/platform/logger"
	"total_loc/internal/platform/notify"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig

	// 2. Initialize Logging
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Info("Configuration loaded.")

	// 3. Initialize Redis (optional summary cache)
	rdb, err := cache.ConnectRedis(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Warn("Continuing without repository summary cache")
	}
	defer cache.CloseRedis(rdb)

	var summaryCache repository.SummaryCache
	if rdb != nil {
		summaryCache = repository.NewRedisSummaryCache(rdb, cfg.SummaryCacheTTL)
	}

	// 4. Initialize GitHub client factory
	clients, err := github.NewClientFactory(github.Config{
		BaseURL:           cfg.GitHubAPIURL,
		HTTPTimeout:       cfg.GitHubHTTPTimeout,
		RequestsPerSecond: cfg.GitHubRequestsPerSecond,
		Burst:             cfg.GitHubBurst,
	}, logger.Component(log, "github"))
	if err != nil {
		log.WithError(err).Fatal("Could not configure GitHub client")
	}

	// 5. Initialize report mailer (optional)
	var notifier service.Notifier
	if cfg.SendGridAPIKey != "" {
		mailer, err := notify.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.ReportFromEmail, logger.Component(log, "notify"))
		if err != nil {
			log.WithError(err).Warn("Report e-mails disabled")
		} else {
			notifier = mailer
		}
	}

	// 6. Initialize Queue & Services
	jobQueue := queue.New(cfg.MaxConcurrentJobs,
		queue.WithCleanupThreshold(cfg.CleanupThreshold),
		queue.WithRetention(cfg.JobRetention),
	)
	classifier := service.NewSourceClassifier(cfg.SourceExtensions)
	aggregator := service.NewRepositoryAggregator(classifier, summaryCache, cfg.FileConcurrency, logger.Component(log, "aggregator"))
	lineCountService := service.NewLineCountService(jobQueue, clients, aggregator, notifier, service.LineCountServiceConfig{
		RepoConcurrency: cfg.RepoConcurrency,
		JobTimeout:      cfg.JobTimeout,
	}, logger.Component(log, "line_count"))

	// 7. Start Dispatcher
	dispatcher := worker.NewDispatcher(jobQueue, lineCountService, cfg.DispatchInterval, logger.Component(log, "dispatcher"))
	dispatcher.Start(context.Background())
	log.WithField("max_concurrent", jobQueue.MaxConcurrent()).Info("Dispatcher started.")

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(lineCountService, logger.Component(log, "http"))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Running jobs were interrupted")
	}

	log.Info("Server and dispatcher stopped gracefully.")
}
