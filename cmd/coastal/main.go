package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/coastal-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/coastal-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/coastal-alert-service/internal/config"
	"github.com/couchcryptid/coastal-alert-service/internal/notify"
	"github.com/couchcryptid/coastal-alert-service/internal/observability"
	"github.com/couchcryptid/coastal-alert-service/internal/pipeline"
	"github.com/couchcryptid/coastal-alert-service/internal/store"
)

type publisher interface {
	pipeline.AlertPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	logger.Info("store opened", "driver", cfg.StoreDriver)

	dispatcher := notify.NewDispatcher(cfg, logger, metrics)
	status := dispatcher.Status()
	logger.Info("notification channels ready", "sms", status.SMS, "push", status.Push, "mode", status.Mode)

	// Alert feed (feature-flagged via KAFKA_ALERTS_ENABLED).
	var pub publisher = kafkaadapter.NopPublisher{}
	if cfg.KafkaAlertsEnabled {
		pub = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("kafka alert feed enabled", "topic", cfg.KafkaAlertsTopic)
	}

	p := pipeline.New(st, pub, dispatcher, pipeline.Options{
		Thresholds: cfg.Thresholds,
		Origin:     cfg.DefaultOrigin,
		BatchSize:  cfg.BatchSize,
	}, logger, metrics)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		Region:         cfg.RegionName,
		Timezone:       cfg.Timezone,
		Origin:         cfg.DefaultOrigin,
		StreamInterval: cfg.StreamInterval,
	}, p, st, dispatcher, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start Kafka ingest (feature-flagged via KAFKA_INGEST_ENABLED).
	var reader *kafkaadapter.Reader
	if cfg.KafkaIngestEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		go func() {
			if err := p.Run(ctx, reader); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if err := pub.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
