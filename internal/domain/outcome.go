package domain

// Status is the result class of extracting one workbook.
type Status int

const (
	StatusRecord  Status = iota // a record was produced
	StatusSkipped               // the workbook has no data sheet
	StatusFailed                // extraction failed; Err says why
)

func (s Status) String() string {
	switch s {
	case StatusRecord:
		return "record"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-file result handed to the batch driver. Exactly one of
// Record or Err is set for StatusRecord and StatusFailed; neither is for
// StatusSkipped.
type Outcome struct {
	Source string
	Status Status
	Record *ObservationRecord
	Err    error
}

// Recorded wraps a successfully extracted record.
func Recorded(source string, r *ObservationRecord) Outcome {
	return Outcome{Source: source, Status: StatusRecord, Record: r}
}

// Skipped marks a workbook without the data sheet.
func Skipped(source string) Outcome {
	return Outcome{Source: source, Status: StatusSkipped}
}

// Failed marks a workbook whose extraction failed.
func Failed(source string, err error) Outcome {
	return Outcome{Source: source, Status: StatusFailed, Err: err}
}
