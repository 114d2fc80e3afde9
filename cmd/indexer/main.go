package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/manifest"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/catalog.yaml", "path to config file")
	input := flag.String("input", "", "override indexer.input")
	output := flag.String("output", "", "override indexer.output")
	format := flag.String("format", "", "override indexer.format (jsonl, json, kafka)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Indexer.Input = *input
	}
	if *output != "" {
		cfg.Indexer.Output = *output
	}
	if *format != "" {
		cfg.Indexer.Format = *format
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	buildMetrics := metrics.NewBuild(reg)
	if cfg.Metrics.PushURL != "" {
		defer func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metrics.Push(pushCtx, cfg.Metrics.PushURL, "catalog_indexer", reg); err != nil {
				slog.Warn("metrics push failed", "error", err)
			}
		}()
	}

	opts, err := indexer.OptionsFromConfig(cfg.Indexer)
	if err != nil {
		return err
	}
	builder, err := indexer.NewBuilder(opts, buildMetrics)
	if err != nil {
		return err
	}
	src, err := source.FromConfig(cfg)
	if err != nil {
		return err
	}
	pipeline := &indexer.Pipeline{
		Builder:     builder,
		Writer:      segment.NewWriter(cfg.Indexer.Output),
		RejectEmpty: cfg.Indexer.Format == source.FormatKafka,
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, build manifest disabled", "error", err)
		} else {
			defer db.Close()
			recorder := manifest.New(db)
			if err := recorder.Migrate(ctx); err != nil {
				slog.Warn("manifest migration failed, build manifest disabled", "error", err)
			} else {
				pipeline.Manifest = recorder
			}
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		pipeline.Announcer = producer
	}

	slog.Info("starting index build",
		"source", src.Name(),
		"output", cfg.Indexer.Output,
		"analyzer", cfg.Indexer.Analyzer,
		"tf_scheme", cfg.Indexer.TFScheme,
	)
	out, err := pipeline.Run(ctx, src)
	if err != nil {
		return err
	}
	slog.Info("index build finished",
		"path", out.Path,
		"checksum", fmt.Sprintf("%08x", out.Checksum),
		"documents", out.Report.Documents,
		"skipped", out.Report.Skipped,
		"terms", out.Report.Terms,
		"duration", out.Report.Duration,
	)
	return nil
}
