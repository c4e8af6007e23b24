package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/archive"
	"github.com/stockdash/mentions-bot/internal/config"
	"github.com/stockdash/mentions-bot/internal/consumer"
	"github.com/stockdash/mentions-bot/internal/directory"
	"github.com/stockdash/mentions-bot/internal/notifications"
	"github.com/stockdash/mentions-bot/internal/query"
	"github.com/stockdash/mentions-bot/internal/scheduler"
	"github.com/stockdash/mentions-bot/internal/sentiment"
	"github.com/stockdash/mentions-bot/internal/sources"
	"github.com/stockdash/mentions-bot/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting stock mentions bot")

	// Load the ticker directory
	dir, err := directory.Load(cfg.TickerFile)
	if err != nil {
		logrus.Fatalf("Failed to load ticker directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize persistence
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Optional Redis cache in front of the query service
	var cache query.Cache
	if cfg.RedisURL != "" {
		redisCache, err := query.NewRedisCache(cfg.RedisURL, cfg.QueryCacheTTL)
		if err != nil {
			logrus.Warnf("Query cache disabled, Redis unavailable: %v", err)
		} else {
			cache = redisCache
			logrus.Info("Query cache enabled")
		}
	}

	queryService := query.NewService(store, cache)

	// Activity window shared by all consumers
	window, err := consumer.NewActivityWindow(cfg.TimeZone, cfg.WindowStart, cfg.WindowEnd)
	if err != nil {
		logrus.Fatalf("Failed to build activity window: %v", err)
	}

	cashtags := cfg.Cashtags
	if len(cashtags) == 0 {
		cashtags = dir.Cashtags()
	}

	consumers := startConsumers(ctx, cfg, store, window, cashtags)

	// Digest delivery and cold archive
	notifier := notifications.NewService(cfg)

	var archiver archive.Archiver
	if cfg.StorageAccount != "" {
		azureArchive, err := archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive: %v", err)
		}
		archiver = azureArchive
	}

	schedulerService, err := scheduler.NewService(cfg, store, notifier, archiver)
	if err != nil {
		logrus.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and the mentions API
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler(store)).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(consumers)).Methods("GET")
	router.HandleFunc("/api/mentions", mentionsHandler(queryService, dir)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// startConsumers launches one consumer goroutine per enabled source.
func startConsumers(ctx context.Context, cfg *config.Config, store storage.Store, window consumer.ActivityWindow, cashtags []string) []*consumer.Consumer {
	scorer := sentiment.NewVaderScorer()

	type sourceSpec struct {
		stream sources.Stream
		scored bool
	}

	specs := []sourceSpec{
		{
			stream: sources.NewRedditStream(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, cfg.Subreddits),
			scored: cfg.ScoreReddit,
		},
		{
			stream: sources.NewTwitterStream(cfg.TwitterBearerToken, cashtags),
			scored: cfg.ScoreTwitter,
		},
	}

	var consumers []*consumer.Consumer

	for _, spec := range specs {
		if !spec.stream.IsEnabled() {
			logrus.Infof("Source %s disabled - missing credentials or subscriptions", spec.stream.Name())
			continue
		}

		consumerCfg := consumer.Config{
			Stream:  spec.stream,
			Store:   store,
			Window:  window,
			Backoff: cfg.Backoff,
		}
		if spec.scored {
			consumerCfg.Scorer = scorer
		}

		c := consumer.New(consumerCfg)
		consumers = append(consumers, c)
		go c.Run(ctx)
	}

	if len(consumers) == 0 {
		logrus.Warn("No sources enabled - pipeline will serve queries only")
	}

	return consumers
}

func healthCheckHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := store.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	}
}

func metricsHandler(consumers []*consumer.Consumer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshots := make([]consumer.Metrics, 0, len(consumers))
		for _, c := range consumers {
			snapshots = append(snapshots, c.Snapshot())
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(snapshots)
	}
}

// mentionsHandler serves the display layer. A store failure returns 502 so
// the caller can show a connectivity warning; zero matches returns 200 with
// an empty array.
func mentionsHandler(queryService *query.Service, dir *directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		company := r.URL.Query().Get("company")
		ticker := r.URL.Query().Get("ticker")

		if label := r.URL.Query().Get("label"); label != "" {
			entry, ok := dir.Lookup(label)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"unknown ticker label"}`))
				return
			}
			company = entry.Company
			ticker = entry.Ticker
		}

		if company == "" || ticker == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"label or company and ticker parameters are required"}`))
			return
		}

		mentions, err := queryService.QueryMentions(r.Context(), company, ticker)
		if err != nil {
			logrus.Errorf("Mention query failed: %v", err)
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"unable to fetch mentions"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(mentions)
	}
}
