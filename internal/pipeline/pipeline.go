package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/couchcryptid/occultation-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// RecordSink receives the extracted records of a batch or upload.
type RecordSink interface {
	Name() string
	Write(ctx context.Context, records []domain.ObservationRecord) error
}

// Delivery writes records to sinks, retrying a failing sink with exponential
// backoff: start at 200ms, double each attempt, cap at 5s.
type Delivery struct {
	sinks          []RecordSink
	logger         *slog.Logger
	metrics        *observability.Metrics
	attempts       int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewDelivery creates a Delivery over sinks with three attempts per sink.
func NewDelivery(logger *slog.Logger, metrics *observability.Metrics, sinks ...RecordSink) *Delivery {
	return &Delivery{
		sinks:          sinks,
		logger:         logger,
		metrics:        metrics,
		attempts:       3,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// Sinks returns the configured sinks in delivery order.
func (d *Delivery) Sinks() []RecordSink { return d.sinks }

// Deliver writes records to every sink in order. Every sink is attempted even
// when an earlier one fails; the returned error joins all sink failures.
func (d *Delivery) Deliver(ctx context.Context, records []domain.ObservationRecord) error {
	var errs []error
	for _, sink := range d.sinks {
		if err := d.deliverTo(ctx, sink, records); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		d.metrics.RecordsWritten.WithLabelValues(sink.Name()).Add(float64(len(records)))
	}
	return errors.Join(errs...)
}

func (d *Delivery) deliverTo(ctx context.Context, sink RecordSink, records []domain.ObservationRecord) error {
	backoff := d.initialBackoff
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if err = sink.Write(ctx, records); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == d.attempts {
			break
		}
		d.logger.Warn("sink write failed, retrying",
			"sink", sink.Name(), "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, d.maxBackoff)
	}
	d.logger.Error("sink write failed", "sink", sink.Name(), "records", len(records), "error", err)
	return err
}

// Batch runs discovery, extraction and delivery over one source directory.
type Batch struct {
	runner      *Runner
	delivery    *Delivery
	logger      *slog.Logger
	metrics     *observability.Metrics
	extensions  []string
	excludeDirs []string
}

// NewBatch creates a Batch. Discovery uses DefaultExtensions.
func NewBatch(runner *Runner, delivery *Delivery, excludeDirs []string, logger *slog.Logger, metrics *observability.Metrics) *Batch {
	return &Batch{
		runner:      runner,
		delivery:    delivery,
		logger:      logger,
		metrics:     metrics,
		extensions:  DefaultExtensions,
		excludeDirs: excludeDirs,
	}
}

// Run processes every workbook under root. Per-file failures are recorded
// in the report and do not fail the run; discovery finding nothing
// (ErrNoInputFiles), cancellation and sink errors do. The report is returned
// alongside a sink error so failures can still be printed.
func (b *Batch) Run(ctx context.Context, root string) (*Report, error) {
	b.metrics.BatchRunning.Set(1)
	defer b.metrics.BatchRunning.Set(0)

	files, err := Discover(root, b.extensions, b.excludeDirs)
	if err != nil {
		return nil, err
	}
	b.metrics.FilesDiscovered.Add(float64(len(files)))
	b.logger.Info("files discovered", "root", root, "count", len(files))

	report, err := b.runner.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	if err := b.delivery.Deliver(ctx, report.Records); err != nil {
		return report, err
	}
	return report, nil
}
