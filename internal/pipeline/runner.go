package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/couchcryptid/occultation-etl/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SourceWorkbook is an opened workbook file.
type SourceWorkbook interface {
	domain.Workbook
	Close() error
}

// Opener opens the workbook at path.
type Opener func(path string) (SourceWorkbook, error)

// Progress is told the file count when a run starts and notified once per
// finished file. *progressbar.ProgressBar satisfies it.
type Progress interface {
	ChangeMax(n int)
	Add(n int) error
}

// RunnerOptions tune a Runner.
type RunnerOptions struct {
	// Workers bounds concurrent extractions; values below 1 mean 1.
	Workers int
	// FileTimeout bounds a single file's open and extraction; 0 disables it.
	FileTimeout time.Duration
	// Progress, when set, is sized to the file count and receives one Add(1)
	// per finished file.
	Progress Progress
}

// Runner extracts a list of workbooks concurrently. A failing file never
// affects the others.
type Runner struct {
	extractor *domain.Extractor
	open      Opener
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      RunnerOptions
}

// NewRunner creates a Runner.
func NewRunner(extractor *domain.Extractor, open Opener, logger *slog.Logger, metrics *observability.Metrics, opts RunnerOptions) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		extractor: extractor,
		open:      open,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// Run extracts every file and returns the report. Outcomes appear in the
// order of files regardless of completion order. An error is returned only
// when ctx is canceled.
func (r *Runner) Run(ctx context.Context, files []string) (*Report, error) {
	report := &Report{
		RunID:     uuid.Must(uuid.NewV7()).String(),
		StartedAt: domain.Now(),
		Files:     len(files),
	}
	r.logger.Info("batch started", "run_id", report.RunID, "files", len(files), "workers", r.opts.Workers)
	if r.opts.Progress != nil {
		r.opts.Progress.ChangeMax(len(files))
	}

	outcomes := make([]domain.Outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, path := range files {
		g.Go(func() error {
			outcomes[i] = r.processFile(gctx, path)
			if r.opts.Progress != nil {
				_ = r.opts.Progress.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s canceled: %w", report.RunID, err)
	}

	for _, out := range outcomes {
		report.add(out)
	}
	report.FinishedAt = domain.Now()
	r.logger.Info("batch finished",
		"run_id", report.RunID,
		"records", len(report.Records),
		"skipped", report.Skipped,
		"failures", len(report.Failures),
		"duration", report.Duration(),
	)
	return report, nil
}

// processFile extracts one file, bounded by the per-file timeout.
func (r *Runner) processFile(ctx context.Context, path string) domain.Outcome {
	if r.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FileTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan domain.Outcome, 1)
	go func() { done <- r.extractFile(path) }()

	var out domain.Outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = domain.Failed(path, fmt.Errorf("extract %s: %w", path, ctx.Err()))
	}
	r.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	r.observe(out)
	return out
}

func (r *Runner) extractFile(path string) (out domain.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = domain.Failed(path, fmt.Errorf("extract %s: reader panic: %v", path, p))
		}
	}()

	wb, err := r.open(path)
	if err != nil {
		return domain.Failed(path, fmt.Errorf("extract %s: %w", path, err))
	}
	defer func() {
		if err := wb.Close(); err != nil {
			r.logger.Warn("close workbook failed", "source", path, "error", err)
		}
	}()
	return r.extractor.Extract(wb, path)
}

func (r *Runner) observe(out domain.Outcome) {
	r.metrics.Outcomes.WithLabelValues(out.Status.String()).Inc()
	switch out.Status {
	case domain.StatusFailed:
		r.metrics.ExtractionFailures.WithLabelValues(domain.Reason(out.Err)).Inc()
		r.logger.Warn("extraction failed", "source", out.Source, "reason", domain.Reason(out.Err), "error", out.Err)
	case domain.StatusSkipped:
		r.logger.Debug("no data sheet, skipping", "source", out.Source)
	case domain.StatusRecord:
		r.logger.Debug("record extracted", "source", out.Source, "id", out.Record.ID)
	}
}
