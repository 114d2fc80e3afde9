package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/catalog/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/catalog.yaml", "path to config file")
	indexPath := flag.String("index", "", "override search.indexPath")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *indexPath != "" {
		cfg.Search.IndexPath = *indexPath
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	idx, err := segment.Load(cfg.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	exec := executor.New(cfg.Search.QueryTimeout)
	if err := exec.Publish(idx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.IndexDocuments.Set(float64(idx.DocCount()))
	m.IndexTerms.Set(float64(idx.TermCount()))

	checker := health.NewChecker()
	checker.Register("index", health.IndexCheck(exec.Ready, func() string {
		return fmt.Sprintf("%d documents, %d terms", idx.DocCount(), idx.TermCount())
	}))

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using local cache only", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			checker.Register("redis", health.PingCheck(redisClient, false))
		}
	}
	queryCache, err := cache.New(redisClient, cfg.Cache, m)
	if err != nil {
		return err
	}

	agg := analytics.NewAggregator()
	var sink analytics.Sink
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		batch := collector.NewBatchCollector(producer, 100, 5*time.Second)
		batch.Start(ctx)
		defer func() {
			stop()
			batch.Close()
		}()
		sink = batch
	}
	tracker := analytics.NewTracker(agg, sink)

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			checker.Register("postgres", health.PingCheck(db, false))
			store := aggregator.NewStore(db, idx.Meta().Checksum)
			if err := store.Migrate(ctx); err != nil {
				slog.Warn("analytics snapshot migration failed", "error", err)
			} else {
				store.StartPeriodicSave(ctx, agg, time.Minute)
			}
		}
	}

	mux := http.NewServeMux()
	handler.New(exec, queryCache, tracker, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics/stats", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening",
		"addr", server.Addr,
		"index", cfg.Search.IndexPath,
		"documents", idx.DocCount(),
		"terms", idx.TermCount(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("search service stopped")
	return nil
}
