package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sjsage522/euromillionsworker/config"
	"sjsage522/euromillionsworker/helpers"
	"sjsage522/euromillionsworker/internal"
	"sjsage522/euromillionsworker/internal/crawler"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/services/api"
	"sjsage522/euromillionsworker/services/cache"
	"sjsage522/euromillionsworker/services/generator"
	"sjsage522/euromillionsworker/services/publisher"
	"sjsage522/euromillionsworker/services/storage"
	"sjsage522/euromillionsworker/services/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initializeServices opens the store and, when configured, memcache and redis
func initializeServices(ctx context.Context, cfg config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{Publisher: publisher.NoopPublisher{}}

	store, err := storage.Open(ctx, storage.Options{
		Driver:         cfg.StorageDriver,
		DSN:            cfg.StorageDSN,
		CommandTimeout: cfg.StorageCommandTimeout,
	})
	if err != nil {
		return nil, err
	}
	deps.Store = store
	logger.LogInfo("storage", "Opened %s store", cfg.StorageDriver)

	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(time.Second, strings.Split(cfg.MemcacheAddr, ",")...)
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Msg("Memcache unavailable, rate-limit block disabled")
		} else {
			deps.Cache = mc
			logger.LogInfo("cache", "Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher, err := publisher.NewRedisPublisher(ctx, publisher.RedisOptions{
			Addr:            cfg.RedisAddr,
			DB:              cfg.RedisDB,
			StreamPrefix:    cfg.RedisStream,
			StreamCount:     cfg.RedisStreamCount,
			StreamMaxLength: cfg.RedisStreamMaxLength,
		})
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Publisher = redisPublisher
		logger.LogInfo("publisher", "Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return deps, nil
}

// newWorker wires the history crawler to the store
func newWorker(cfg config.Config, deps *internal.Dependencies) (*worker.Worker, error) {
	c, err := crawler.NewHistoryCrawler(crawler.HistoryConfig{
		URLTemplate: cfg.HistoryURLTemplate,
		Concurrency: cfg.FetchConcurrency,
		BlockTime:   cfg.BlockTime,
	}, helpers.NewHTTPFetcher(cfg.FetchTimeout), deps.Cache)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.SyncTimezone)
	if err != nil {
		return nil, err
	}

	return worker.NewWorker(c, deps.Store, deps.Publisher, worker.Config{
		Years:      cfg.FetchYears,
		YearsBack:  cfg.FetchYearsBack,
		Schedule:   cfg.SyncCron,
		Location:   loc,
		RunOnStart: cfg.SyncOnStart,
	}), nil
}

// serve runs the scheduler and the HTTP API until a shutdown signal
func serve(cfg config.Config) error {
	log := logger.Default

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Close()

	w, err := newWorker(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker")
	}
	server := api.New(w, generator.New(deps.Store, nil), deps.Store, deps.Publisher)

	log.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPAddr).
		Str("schedule", cfg.SyncCron).
		Msg("Starting application")

	// both goroutines report here once they return
	done := make(chan error, 2)
	go func() { done <- w.Start(ctx) }()
	go func() { done <- server.ListenAndServe(ctx, cfg.HTTPAddr) }()

	pending := 2
	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case runErr = <-done:
		pending--
		log.Error().Err(runErr).Msg("Service exited")
	}
	stop()

	log.Info().Msg("Shutting down gracefully...")
	for ; pending > 0; pending-- {
		if err := <-done; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
