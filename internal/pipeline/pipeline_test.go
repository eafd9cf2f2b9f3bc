package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/adapter/excel"
	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/couchcryptid/occultation-etl/internal/observability"
	"github.com/couchcryptid/occultation-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openExcel(path string) (pipeline.SourceWorkbook, error) {
	return excel.Open(path)
}

type memSource struct {
	domain.MemoryWorkbook
	closed *atomic.Int32
}

func (m memSource) Close() error {
	if m.closed != nil {
		m.closed.Add(1)
	}
	return nil
}

// memOpener serves in-memory workbooks keyed by path.
func memOpener(books map[string]domain.MemoryWorkbook, closed *atomic.Int32) pipeline.Opener {
	return func(path string) (pipeline.SourceWorkbook, error) {
		wb, ok := books[path]
		if !ok {
			return nil, fmt.Errorf("open workbook: %s: no such file", path)
		}
		return memSource{MemoryWorkbook: wb, closed: closed}, nil
	}
}

func sampleBook(layout *domain.Layout) domain.MemoryWorkbook {
	return domain.MemoryWorkbook{layout.Sheet: domain.SampleForm(layout)}
}

func badSelectorForm(t *testing.T, layout *domain.Layout) domain.MemoryGrid {
	t.Helper()
	g := domain.SampleForm(layout)
	require.NoError(t, layout.Fill(g, "latitude", domain.TextCell("degrees"), domain.TextCell("45 30.5"), domain.TextCell("N")))
	return g
}

type recordingSink struct {
	name    string
	mu      sync.Mutex
	calls   int
	records []domain.ObservationRecord
	failFor int // number of leading calls that fail
	err     error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, records []domain.ObservationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil && (s.failFor == 0 || s.calls <= s.failFor) {
		return s.err
	}
	s.records = append(s.records, records...)
	return nil
}

type countingProgress struct {
	max int
	n   atomic.Int64
}

func (p *countingProgress) ChangeMax(n int) { p.max = n }

func (p *countingProgress) Add(n int) error {
	p.n.Add(int64(n))
	return nil
}

func newRunner(open pipeline.Opener, metrics *observability.Metrics, opts pipeline.RunnerOptions) *pipeline.Runner {
	return pipeline.NewRunner(domain.NewExtractor(domain.MustDefaultLayout()), open, discardLogger(), metrics, opts)
}

func writeFile(t *testing.T, path string, sheets ...excel.SheetContent) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	if len(sheets) == 0 {
		require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o600))
		return
	}
	require.NoError(t, excel.SaveWorkbook(path, sheets...))
}

// --- discovery ---

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"b.xlsx",
		"a/nested/c.XLSX",
		"a/legacy.xls",
		"__MACOSX/a/._b.xlsx",
		"a/__MACOSX/d.xlsx",
		"notes.txt",
		"report.xlsx.bak",
	} {
		writeFile(t, filepath.Join(root, p))
	}

	files, err := pipeline.Discover(root, pipeline.DefaultExtensions, []string{"__MACOSX"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a/legacy.xls"),
		filepath.Join(root, "a/nested/c.XLSX"),
		filepath.Join(root, "b.xlsx"),
	}, files)
}

func TestDiscover_NoFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "__MACOSX", "a.xlsx"))
	writeFile(t, filepath.Join(root, "readme.md"))

	_, err := pipeline.Discover(root, pipeline.DefaultExtensions, []string{"__MACOSX"})
	require.ErrorIs(t, err, pipeline.ErrNoInputFiles)
}

func TestDiscover_BadRoot(t *testing.T) {
	_, err := pipeline.Discover(filepath.Join(t.TempDir(), "missing"), pipeline.DefaultExtensions, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, pipeline.ErrNoInputFiles)

	file := filepath.Join(t.TempDir(), "file.xlsx")
	writeFile(t, file)
	_, err = pipeline.Discover(file, pipeline.DefaultExtensions, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

// --- batch ---

func TestBatch_Run_PartialFailure(t *testing.T) {
	layout := domain.MustDefaultLayout()
	root := t.TempDir()
	good1 := filepath.Join(root, "1_good.xlsx")
	bad := filepath.Join(root, "2_bad_selector.xlsx")
	good3 := filepath.Join(root, "3_good.xlsx")
	noData := filepath.Join(root, "4_no_data.xlsx")

	writeFile(t, good1, excel.SheetContent{Name: "DATA", Cells: domain.SampleForm(layout)})
	writeFile(t, bad, excel.SheetContent{Name: "DATA", Cells: badSelectorForm(t, layout)})
	writeFile(t, good3, excel.SheetContent{Name: "DATA", Cells: domain.SampleForm(layout)})
	writeFile(t, noData, excel.SheetContent{Name: "Summary", Cells: domain.SampleForm(layout)})
	writeFile(t, filepath.Join(root, "__MACOSX", "._1_good.xlsx"))

	metrics := observability.NewMetricsForTesting()
	sink := &recordingSink{name: "memory"}
	runner := newRunner(openExcel, metrics, pipeline.RunnerOptions{Workers: 2, FileTimeout: 10 * time.Second})
	batch := pipeline.NewBatch(runner, pipeline.NewDelivery(discardLogger(), metrics, sink), []string{"__MACOSX"}, discardLogger(), metrics)

	report, err := batch.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Files)
	require.Len(t, report.Records, 2)
	assert.Equal(t, good1, report.Records[0].SourceFile)
	assert.Equal(t, good3, report.Records[1].SourceFile)
	assert.Equal(t, 1, report.Skipped)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, bad, report.Failures[0].Source)
	assert.Equal(t, "coordinate_format", report.Failures[0].Reason)
	assert.Contains(t, report.Failures[0].Message, "degrees")

	assert.Equal(t, report.Records, sink.records)

	var buf bytes.Buffer
	require.NoError(t, report.WriteFailures(&buf))
	assert.Contains(t, buf.String(), "File: "+bad+"\n")
	assert.NotContains(t, buf.String(), noData)
	assert.NotContains(t, buf.String(), good1)

	assert.InDelta(t, 4, testutil.ToFloat64(metrics.FilesDiscovered), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("record")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Outcomes.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ExtractionFailures.WithLabelValues("coordinate_format")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RecordsWritten.WithLabelValues("memory")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.BatchRunning), 0)
}

func TestBatch_Run_NoInputFiles(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	sink := &recordingSink{name: "memory"}
	runner := newRunner(openExcel, metrics, pipeline.RunnerOptions{Workers: 1})
	batch := pipeline.NewBatch(runner, pipeline.NewDelivery(discardLogger(), metrics, sink), nil, discardLogger(), metrics)

	report, err := batch.Run(context.Background(), t.TempDir())
	require.ErrorIs(t, err, pipeline.ErrNoInputFiles)
	assert.Nil(t, report)
	assert.Zero(t, sink.calls)
}

func TestBatch_Run_SinkErrorKeepsReport(t *testing.T) {
	layout := domain.MustDefaultLayout()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.xlsx"), excel.SheetContent{Name: "DATA", Cells: domain.SampleForm(layout)})

	metrics := observability.NewMetricsForTesting()
	failing := &recordingSink{name: "broken", err: errors.New("disk full")}
	delivery := pipeline.NewDelivery(discardLogger(), metrics, failing)
	delivery.SetBackoff(time.Millisecond, time.Millisecond)
	batch := pipeline.NewBatch(newRunner(openExcel, metrics, pipeline.RunnerOptions{Workers: 1}), delivery, nil, discardLogger(), metrics)

	report, err := batch.Run(context.Background(), root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink broken: disk full")
	require.NotNil(t, report)
	assert.Len(t, report.Records, 1)
}

// --- runner ---

func TestRunner_PreservesInputOrder(t *testing.T) {
	layout := domain.MustDefaultLayout()
	books := map[string]domain.MemoryWorkbook{}
	var files []string
	for i := range 12 {
		path := fmt.Sprintf("reports/%02d.xlsx", i)
		files = append(files, path)
		books[path] = sampleBook(layout)
	}
	var closed atomic.Int32
	base := memOpener(books, &closed)
	// Earlier files finish last.
	slow := func(path string) (pipeline.SourceWorkbook, error) {
		var i int
		_, _ = fmt.Sscanf(filepath.Base(path), "%02d.xlsx", &i)
		time.Sleep(time.Duration(12-i) * time.Millisecond)
		return base(path)
	}

	progress := &countingProgress{}
	r := newRunner(slow, observability.NewMetricsForTesting(), pipeline.RunnerOptions{Workers: 4, Progress: progress})
	report, err := r.Run(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, report.Records, len(files))
	for i, rec := range report.Records {
		assert.Equal(t, files[i], rec.SourceFile)
	}
	assert.Equal(t, len(files), progress.max)
	assert.Equal(t, int64(len(files)), progress.n.Load())
	assert.Equal(t, int32(len(files)), closed.Load())
}

func TestRunner_OpenErrorIsIsolated(t *testing.T) {
	layout := domain.MustDefaultLayout()
	open := memOpener(map[string]domain.MemoryWorkbook{"a.xlsx": sampleBook(layout)}, nil)

	report, err := newRunner(open, observability.NewMetricsForTesting(), pipeline.RunnerOptions{Workers: 2}).
		Run(context.Background(), []string{"a.xlsx", "legacy.xls"})
	require.NoError(t, err)

	assert.Len(t, report.Records, 1)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "legacy.xls", report.Failures[0].Source)
	assert.Contains(t, report.Failures[0].Message, "extract legacy.xls: open workbook")
	assert.Equal(t, "other", report.Failures[0].Reason)
}

func TestRunner_FileTimeout(t *testing.T) {
	layout := domain.MustDefaultLayout()
	base := memOpener(map[string]domain.MemoryWorkbook{"fast.xlsx": sampleBook(layout), "stuck.xlsx": sampleBook(layout)}, nil)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	open := func(path string) (pipeline.SourceWorkbook, error) {
		if path == "stuck.xlsx" {
			<-release
		}
		return base(path)
	}

	r := newRunner(open, observability.NewMetricsForTesting(), pipeline.RunnerOptions{Workers: 2, FileTimeout: 50 * time.Millisecond})
	report, err := r.Run(context.Background(), []string{"fast.xlsx", "stuck.xlsx"})
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, "fast.xlsx", report.Records[0].SourceFile)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "stuck.xlsx", report.Failures[0].Source)
	assert.Contains(t, report.Failures[0].Message, context.DeadlineExceeded.Error())
}

func TestRunner_ReaderPanicIsIsolated(t *testing.T) {
	layout := domain.MustDefaultLayout()
	base := memOpener(map[string]domain.MemoryWorkbook{"ok.xlsx": sampleBook(layout)}, nil)
	open := func(path string) (pipeline.SourceWorkbook, error) {
		if path == "corrupt.xlsx" {
			panic("index out of range")
		}
		return base(path)
	}

	report, err := newRunner(open, observability.NewMetricsForTesting(), pipeline.RunnerOptions{Workers: 1}).
		Run(context.Background(), []string{"corrupt.xlsx", "ok.xlsx"})
	require.NoError(t, err)
	assert.Len(t, report.Records, 1)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Message, "reader panic: index out of range")
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	open := memOpener(map[string]domain.MemoryWorkbook{}, nil)
	_, err := newRunner(open, observability.NewMetricsForTesting(), pipeline.RunnerOptions{Workers: 1}).
		Run(ctx, []string{"a.xlsx"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_ReportTimestamps(t *testing.T) {
	fixed := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	layout := domain.MustDefaultLayout()
	open := memOpener(map[string]domain.MemoryWorkbook{"a.xlsx": sampleBook(layout)}, nil)
	report, err := newRunner(open, observability.NewMetricsForTesting(), pipeline.RunnerOptions{}).
		Run(context.Background(), []string{"a.xlsx"})
	require.NoError(t, err)

	assert.Equal(t, fixed, report.StartedAt)
	assert.Equal(t, fixed, report.FinishedAt)
	assert.Zero(t, report.Duration())
	assert.Len(t, report.RunID, 36)
}

// --- report ---

func TestReport_WriteFailures(t *testing.T) {
	report := &pipeline.Report{Failures: []pipeline.Failure{
		{Source: "a/2.xlsx", Message: "extract a/2.xlsx: invalid coordinate format"},
		{Source: "b.xls", Message: "extract b.xls: open workbook: zip: not a valid zip file"},
	}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteFailures(&buf))
	assert.Equal(t,
		"\nErrors encountered:\n"+
			"File: a/2.xlsx\nError: extract a/2.xlsx: invalid coordinate format\n\n"+
			"File: b.xls\nError: extract b.xls: open workbook: zip: not a valid zip file\n\n",
		buf.String())
}

func TestReport_WriteFailures_NoneIsSilent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&pipeline.Report{Skipped: 3}).WriteFailures(&buf))
	assert.Empty(t, buf.String())
}

func TestReport_WriteSummary(t *testing.T) {
	start := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	report := &pipeline.Report{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Files:      3,
		Records:    make([]domain.ObservationRecord, 2),
		Failures:   []pipeline.Failure{{Source: "x"}},
	}
	var buf bytes.Buffer
	require.NoError(t, report.WriteSummary(&buf))
	assert.Equal(t, "run run-1: 3 files, 2 records, 0 skipped, 1 failed in 1.5s\n", buf.String())
}

// --- delivery ---

func TestDelivery_RetriesThenSucceeds(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	flaky := &recordingSink{name: "kafka", err: errors.New("leader not available"), failFor: 2}
	d := pipeline.NewDelivery(discardLogger(), metrics, flaky)
	d.SetBackoff(time.Millisecond, 2*time.Millisecond)

	records := make([]domain.ObservationRecord, 3)
	require.NoError(t, d.Deliver(context.Background(), records))
	assert.Equal(t, 3, flaky.calls)
	assert.Len(t, flaky.records, 3)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RecordsWritten.WithLabelValues("kafka")), 0)
}

func TestDelivery_JoinsErrorsAndContinues(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	broken := &recordingSink{name: "sqlite", err: errors.New("database is locked")}
	healthy := &recordingSink{name: "xlsx"}
	d := pipeline.NewDelivery(discardLogger(), metrics, broken, healthy)
	d.SetBackoff(time.Millisecond, time.Millisecond)

	err := d.Deliver(context.Background(), make([]domain.ObservationRecord, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink sqlite: database is locked")
	assert.Equal(t, 3, broken.calls)
	assert.Len(t, healthy.records, 1)
	assert.Len(t, d.Sinks(), 2)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RecordsWritten.WithLabelValues("sqlite")), 0)
}

func TestDelivery_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	broken := &recordingSink{name: "kafka", err: context.Canceled}
	d := pipeline.NewDelivery(discardLogger(), observability.NewMetricsForTesting(), broken)

	err := d.Deliver(ctx, make([]domain.ObservationRecord, 1))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, broken.calls)
}

func TestDelivery_BackoffCapped(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	flaky := &recordingSink{name: "sqlite", err: errors.New("database is locked"), failFor: 2}
	d := pipeline.NewDelivery(discardLogger(), metrics, flaky)
	d.SetBackoff(5*time.Millisecond, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, d.Deliver(context.Background(), make([]domain.ObservationRecord, 1)))
	elapsed := time.Since(start)

	assert.Equal(t, 3, flaky.calls)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}
