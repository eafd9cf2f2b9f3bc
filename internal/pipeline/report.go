package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/domain"
)

// Failure names a file whose extraction failed and why.
type Failure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// Report is the result of one batch run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int

	// Records are in discovery order.
	Records  []domain.ObservationRecord
	Skipped  int
	Failures []Failure
}

func (r *Report) add(out domain.Outcome) {
	switch out.Status {
	case domain.StatusRecord:
		r.Records = append(r.Records, *out.Record)
	case domain.StatusSkipped:
		r.Skipped++
	case domain.StatusFailed:
		r.Failures = append(r.Failures, Failure{
			Source:  out.Source,
			Message: out.Err.Error(),
			Reason:  domain.Reason(out.Err),
		})
	}
}

// Duration is the wall time between start and finish.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteFailures prints the failure report. Nothing is written when every
// file succeeded or was skipped.
func (r *Report) WriteFailures(w io.Writer) error {
	if len(r.Failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nErrors encountered:"); err != nil {
		return err
	}
	for _, f := range r.Failures {
		if _, err := fmt.Fprintf(w, "File: %s\nError: %s\n\n", f.Source, f.Message); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary prints a one-line run summary.
func (r *Report) WriteSummary(w io.Writer) error {
	_, err := fmt.Fprintf(w, "run %s: %d files, %d records, %d skipped, %d failed in %s\n",
		r.RunID, r.Files, len(r.Records), r.Skipped, len(r.Failures), r.Duration().Round(time.Millisecond))
	return err
}
