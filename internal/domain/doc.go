// Package domain extracts asteroid occultation observation reports from the
// DATA sheet of the IOTA-style report form and normalizes their coordinates
// and times.
//
// # Data Source
//
// Observers fill in a spreadsheet form and submit it after an occultation
// event. Every field sits at a fixed cell of the DATA sheet; the cell map for
// the supported form revision lives in layout.yaml and is embedded at build
// time. Revision V5.6.11 declares itself in cell Z2 (row 1, column 25).
// Workbooks without a DATA sheet are not reports and are skipped.
//
// # Form Conventions
//
// Coordinates are entered as three cells per axis: a format selector, the
// magnitude, and a hemisphere letter in its own cell:
//
//	deg-min.mmm     "45 30.500" + "N"      -> 45.508333
//	deg-mm-sec.ss   "45 30 30.00" + "N"    -> 45.508333
//	deg.ddddd       "122.5000" + "W"       -> -122.5
//
// The form's drop-down spells the first two with spaces ("deg min.mmm",
// "deg mm sec.ss"); both spellings are accepted. South and West are negative.
// Output coordinates are re-encoded as deg.ddddd with four decimals, e.g.
// "45.5083 N, 122.5000 W".
//
// Dates are three cells: numeric year, full English month name, numeric day,
// assembled to YYYY-MM-DD.
//
// Times are three cells (hour, minute, seconds). Seconds may carry a fraction,
// which is truncated to whole microseconds. Times have no zone attached.
//
// # Errors
//
// Extraction fails fast on the first problem. Failures carry the source file
// and, through [FieldError], the field name, the A1 cell and the raw value.
// [Reason] classifies failures for metrics.
//
// # ID Generation
//
// Record IDs are truncated SHA-256 hashes of source|date|asteroid|observer|
// coords, so re-running a batch produces the same IDs and sinks can upsert
// idempotently.
package domain
