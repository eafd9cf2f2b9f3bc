// Command etl extracts every occultation report workbook under a source
// directory into a single output table, optionally publishing the records to
// Kafka and storing them in SQLite.
//
// Usage:
//
//	go run ./cmd/etl -dir ./reports -out output.xlsx
//	go run ./cmd/etl ./reports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/occultation-etl/internal/adapter/excel"
	kafkaadapter "github.com/couchcryptid/occultation-etl/internal/adapter/kafka"
	"github.com/couchcryptid/occultation-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/occultation-etl/internal/config"
	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/couchcryptid/occultation-etl/internal/observability"
	"github.com/couchcryptid/occultation-etl/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	dir := flag.String("dir", cfg.SourceDir, "directory searched recursively for report workbooks (env SOURCE_DIR)")
	out := flag.String("out", cfg.OutputFile, "output table path (env OUTPUT_FILE)")
	quiet := flag.Bool("quiet", false, "disable the progress bar")
	flag.Parse()

	root := *dir
	if root == "" && flag.NArg() == 1 {
		root = flag.Arg(0)
	}
	if root == "" || flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: etl [-out output.xlsx] <source_dir>")
		flag.PrintDefaults()
		return 1
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: %s is not a valid directory\n", root)
		return 1
	}

	logger := observability.NewCLILogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	layout, err := domain.DefaultLayout()
	if err != nil {
		logger.Error("invalid form layout", "error", err)
		return 1
	}

	sinks, closeSinks, err := buildSinks(ctx, cfg, *out, logger)
	if err != nil {
		logger.Error("failed to set up sinks", "error", err)
		return 1
	}
	defer closeSinks()

	var progress pipeline.Progress
	if !*quiet {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Processing files"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("file"),
			progressbar.OptionShowIts(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)
		defer bar.Finish() //nolint:errcheck // terminal output
		progress = bar
	}

	runner := pipeline.NewRunner(domain.NewExtractor(layout), openWorkbook, logger, metrics, pipeline.RunnerOptions{
		Workers:     cfg.Workers,
		FileTimeout: cfg.FileTimeout,
		Progress:    progress,
	})
	delivery := pipeline.NewDelivery(logger, metrics, sinks...)
	batch := pipeline.NewBatch(runner, delivery, cfg.ExcludeDirs, logger, metrics)

	report, err := batch.Run(ctx, root)
	code := finish(report, err, os.Stdout)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	return code
}

// finish prints the failure report and maps the run result to an exit code.
func finish(report *pipeline.Report, err error, w io.Writer) int {
	if errors.Is(err, pipeline.ErrNoInputFiles) {
		fmt.Fprintln(w, "No Excel files found in the specified directory.")
		return 1
	}
	if report != nil {
		_ = report.WriteFailures(w)
		_ = report.WriteSummary(w)
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
	return 0
}

func openWorkbook(path string) (pipeline.SourceWorkbook, error) {
	return excel.Open(path)
}

// buildSinks returns the xlsx table sink plus the optional Kafka and SQLite
// sinks, and a func closing the ones that hold connections.
func buildSinks(ctx context.Context, cfg *config.Config, out string, logger *slog.Logger) ([]pipeline.RecordSink, func(), error) {
	sinks := []pipeline.RecordSink{excel.NewTableSink(out)}
	var closers []io.Closer

	if cfg.SQLiteEnabled() {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closers = append(closers, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		closers = append(closers, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}
	return sinks, closeAll, nil
}
