package domain

import (
	"errors"
	"fmt"
)

// Error kinds produced while extracting a report sheet. Callers classify
// failures with errors.Is; the typed errors below carry the offending values.
var (
	// ErrSheetAbsent means the workbook has no data sheet. The extractor maps it
	// to a Skipped outcome rather than a failure.
	ErrSheetAbsent = errors.New("data sheet not found")

	ErrUnsupportedVersion      = errors.New("unsupported form version")
	ErrInvalidCoordinateFormat = errors.New("invalid coordinate format")
	ErrUnsupportedFormat       = errors.New("unsupported coordinate format")
	ErrInvalidDirection        = errors.New("invalid direction")
	ErrMalformedCoordinate     = errors.New("malformed coordinate")
	ErrInvalidNumericField     = errors.New("invalid numeric field")
	ErrUnrecognizedMonth       = errors.New("unrecognized month name")
	ErrTimeOutOfRange          = errors.New("time component out of range")
)

// VersionError reports a declared form version other than SupportedFormVersion.
type VersionError struct {
	Found string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported form version %q, expected %q", e.Found, SupportedFormVersion)
}

func (e *VersionError) Unwrap() error { return ErrUnsupportedVersion }

// FormatSelectorError reports coordinate format selectors outside the
// recognized set. Both observed values are kept so one message covers both axes.
type FormatSelectorError struct {
	Latitude  string
	Longitude string
}

func (e *FormatSelectorError) Error() string {
	return fmt.Sprintf("invalid coordinate format; one of [%s %s %s] is expected, but got lat: %q, long: %q",
		FormatDegMin, FormatDegMinSec, FormatDecimal, e.Latitude, e.Longitude)
}

func (e *FormatSelectorError) Unwrap() error { return ErrInvalidCoordinateFormat }

// FieldError ties a failure to the layout field and cell that produced it.
type FieldError struct {
	Field string
	Cell  string // A1 reference, e.g. "E18"
	Value string // raw cell content as read
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (%s) value %q: %v", e.Field, e.Cell, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Reason classifies an extraction error into a short label for metrics and
// reports.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedVersion):
		return "version"
	case errors.Is(err, ErrInvalidCoordinateFormat), errors.Is(err, ErrUnsupportedFormat):
		return "coordinate_format"
	case errors.Is(err, ErrInvalidDirection):
		return "direction"
	case errors.Is(err, ErrMalformedCoordinate):
		return "coordinate"
	case errors.Is(err, ErrInvalidNumericField):
		return "numeric"
	case errors.Is(err, ErrUnrecognizedMonth):
		return "month"
	case errors.Is(err, ErrTimeOutOfRange):
		return "time"
	default:
		return "other"
	}
}
