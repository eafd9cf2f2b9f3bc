// Command server exposes POST /extract for single report uploads alongside
// the health, readiness, and metrics endpoints. Extracted records are
// forwarded to the Kafka and SQLite sinks when configured.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/occultation-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/occultation-etl/internal/adapter/kafka"
	"github.com/couchcryptid/occultation-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/occultation-etl/internal/config"
	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/couchcryptid/occultation-etl/internal/observability"
	"github.com/couchcryptid/occultation-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

// readiness combines the checks of every dependency the service needs.
type readiness []func(ctx context.Context) error

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, check := range r {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	layout, err := domain.DefaultLayout()
	if err != nil {
		logger.Error("invalid form layout", "error", err)
		os.Exit(1)
	}
	extractor := domain.NewExtractor(layout)
	ready := readiness{extractor.CheckReadiness}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []pipeline.RecordSink
	var store *sqlite.Store
	if cfg.SQLiteEnabled() {
		store, err = sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, store)
		ready = append(ready, store.CheckReadiness)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	extraction := httpadapter.Extraction{
		Extractor:      extractor,
		Metrics:        metrics,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if len(sinks) > 0 {
		extraction.Delivery = pipeline.NewDelivery(logger, metrics, sinks...)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, extraction, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("sqlite close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
