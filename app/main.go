package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftdesk/feedpipe/app/analysis"
	"github.com/draftdesk/feedpipe/app/api"
	"github.com/draftdesk/feedpipe/app/cache"
	"github.com/draftdesk/feedpipe/app/cfg"
	"github.com/draftdesk/feedpipe/app/database"
	"github.com/draftdesk/feedpipe/app/feed"
	"github.com/draftdesk/feedpipe/app/scheduler"
	"github.com/draftdesk/feedpipe/app/seed"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting feedpipe", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName, appCfg.DBSSLMode)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	var dedupCache *cache.DedupCache
	if appCfg.RedisAddr != "" {
		dedupCache, err = cache.New(appCfg.RedisAddr)
		if err != nil {
			slog.Warn("Dedup cache unavailable, falling back to database lookups", "error", err)
		} else {
			defer dedupCache.Close()
			slog.Info("Dedup cache connected", "addr", appCfg.RedisAddr)
		}
	}

	registerSeedFeeds(appCfg.FeedsDir, feedRepo)

	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second

	parser := feed.NewParser()
	fetcher := feed.NewFetcher(httpClient, parser, appCfg.UserAgent, fetchTimeout, appCfg.FetchMaxRetries)
	filterer := feed.NewFilterer()
	dedup := feed.NewDeduplicator(itemRepo, dedupCache)
	health := feed.NewHealthTracker(feedRepo)
	extractor := feed.NewContentExtractor(httpClient, appCfg.UserAgent, fetchTimeout)

	var analyzer analysis.Analyzer = analysis.NoopAnalyzer{}
	if appCfg.AnalysisURL != "" {
		analyzer = analysis.NewHTTPAnalyzer(httpClient, appCfg.AnalysisURL)
		slog.Info("Analysis service configured", "url", appCfg.AnalysisURL)
	}

	queue := analysis.NewQueue(analyzer, itemRepo, appCfg.AnalysisWorkers)
	queue.Start()
	defer queue.Stop()

	options := feed.DefaultProcessOptions()
	options.MaxItemsPerFeed = appCfg.MaxItemsPerFeed

	processor := feed.NewProcessor(fetcher, filterer, dedup, health, extractor,
		feedRepo, itemRepo, queue, options)

	feedScheduler := scheduler.NewScheduler(feedRepo, processor,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.MaxConcurrentFeeds)
	feedScheduler.Start()
	defer feedScheduler.Stop()

	apiHandler := api.NewHandler(feedRepo, itemRepo, feedScheduler, queue)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and queue are stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// registerSeedFeeds loads feed definitions from the feeds directory and
// registers them in the database. Definition errors are fatal; a
// missing directory is not.
func registerSeedFeeds(dir string, feedRepo database.FeedRepository) {
	loader := seed.NewLoader(dir)
	definitions, err := loader.LoadAll()
	if err != nil {
		slog.Error("Failed to load feed definitions", "error", err)
		os.Exit(1)
	}

	registered := 0
	for file, definition := range definitions {
		id, updated, err := feedRepo.UpsertFeed(definition.Feed())
		if err != nil {
			slog.Warn("Failed to register feed", "file", file, "error", err)
			continue
		}
		slog.Info("Registered feed", "file", file, "feed_id", id, "url", definition.URL, "updated", updated)
		registered++
	}

	if len(definitions) > 0 {
		slog.Info("Feed definitions registered", "registered", registered, "total", len(definitions))
	}
}
