package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Extractor pulls one ObservationRecord out of a report workbook using a
// fixed Layout. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	layout *Layout
}

// NewExtractor creates an Extractor for layout.
func NewExtractor(layout *Layout) *Extractor {
	return &Extractor{layout: layout}
}

// Layout returns the cell map the extractor reads.
func (e *Extractor) Layout() *Layout { return e.layout }

// CheckReadiness reports whether the extractor has a usable layout.
func (e *Extractor) CheckReadiness(_ context.Context) error {
	if e.layout == nil || e.layout.byName == nil {
		return errors.New("form layout not loaded")
	}
	return nil
}

// Extract processes one workbook. A missing data sheet yields a Skipped
// outcome; every other problem yields Failed with source in the message.
func (e *Extractor) Extract(wb Workbook, source string) Outcome {
	grid, err := wb.Sheet(e.layout.Sheet)
	if errors.Is(err, ErrSheetAbsent) {
		return Skipped(source)
	}
	if err != nil {
		return Failed(source, fmt.Errorf("extract %s: read sheet %s: %w", source, e.layout.Sheet, err))
	}

	rec, err := e.ExtractGrid(grid, source)
	if err != nil {
		return Failed(source, fmt.Errorf("extract %s: %w", source, err))
	}
	return Recorded(source, rec)
}

// ExtractGrid reads the data sheet. The form version is checked before any
// other cell is read.
func (e *Extractor) ExtractGrid(grid Grid, source string) (*ObservationRecord, error) {
	versionCell := grid.Cell(e.layout.VersionAt.Row, e.layout.VersionAt.Col)
	if err := ValidateFormVersion(versionCell.String()); err != nil {
		return nil, err
	}

	vals := make(fieldValues, len(e.layout.Fields))
	for _, f := range e.layout.Fields {
		if f.Kind == KindCoordinate {
			continue
		}
		read, ok := strategies[f.Kind]
		if !ok {
			return nil, fmt.Errorf("field %s: no strategy for kind %s", f.Name, f.Kind)
		}
		v, err := read(grid, f)
		if err != nil {
			return nil, err
		}
		vals[f.Name] = v
	}

	lat, lon, err := e.readCoordinates(grid)
	if err != nil {
		return nil, err
	}
	coords, err := FormatPair(lat, lon, e.layout.Target())
	if err != nil {
		return nil, err
	}

	return buildRecord(vals, source, coords, lat, lon), nil
}

// readCoordinates validates both format selectors before parsing either
// axis, so a bad selector reports the values seen on both.
func (e *Extractor) readCoordinates(grid Grid) (lat, lon Angle, err error) {
	latSpec, _ := e.layout.Field(fieldLatitude)
	lonSpec, _ := e.layout.Field(fieldLongitude)

	latSel := cellAt(grid, *latSpec.FormatAt).String()
	lonSel := cellAt(grid, *lonSpec.FormatAt).String()
	latFormat, latErr := ParseFormat(latSel)
	lonFormat, lonErr := ParseFormat(lonSel)
	if latErr != nil || lonErr != nil {
		return Angle{}, Angle{}, &FormatSelectorError{Latitude: latSel, Longitude: lonSel}
	}

	lat, err = readAngle(grid, latSpec, latFormat)
	if err != nil {
		return Angle{}, Angle{}, err
	}
	lon, err = readAngle(grid, lonSpec, lonFormat)
	if err != nil {
		return Angle{}, Angle{}, err
	}
	return lat, lon, nil
}

// readAngle joins the magnitude cell and the separate hemisphere cell, e.g.
// "45 30.500" + "N", and parses the result on the field's axis.
func readAngle(grid Grid, f FieldSpec, format Format) (Angle, error) {
	raw := cellAt(grid, *f.At).String() + " " + cellAt(grid, *f.HemisphereAt).String()
	a, err := ParseAngle(raw, format, f.axis)
	if err != nil {
		return Angle{}, &FieldError{Field: f.Name, Cell: f.At.String(), Value: raw, Err: err}
	}
	return a, nil
}

// strategies maps each scalar field kind to its reader.
var strategies = map[FieldKind]func(Grid, FieldSpec) (any, error){
	KindText:  readText,
	KindInt:   readInt,
	KindFloat: readFloat,
	KindMonth: readMonth,
	KindTime:  readTime,
	KindClock: readClock,
}

func cellAt(grid Grid, p Position) Cell {
	return grid.Cell(p.Row, p.Col)
}

func readText(grid Grid, f FieldSpec) (any, error) {
	return cellAt(grid, *f.At).String(), nil
}

func readInt(grid Grid, f FieldSpec) (any, error) {
	return intAt(grid, f.Name, *f.At)
}

func readFloat(grid Grid, f FieldSpec) (any, error) {
	c := cellAt(grid, *f.At)
	if c.IsBlank() {
		return (*float64)(nil), nil
	}
	v, ok := cellNumber(c)
	if !ok {
		return nil, numericError(f.Name, *f.At, c)
	}
	return &v, nil
}

func readMonth(grid Grid, f FieldSpec) (any, error) {
	c := cellAt(grid, *f.At)
	if c.Kind == CellText {
		if m, ok := lookupMonth(c.Text); ok {
			return m, nil
		}
	}
	return nil, &FieldError{Field: f.Name, Cell: f.At.String(), Value: c.String(), Err: ErrUnrecognizedMonth}
}

// readTime assembles an optional time group. All three cells blank means the
// time was not recorded.
func readTime(grid Grid, f FieldSpec) (any, error) {
	h, m, s := cellAt(grid, *f.HourAt), cellAt(grid, *f.MinuteAt), cellAt(grid, *f.SecondAt)
	if h.IsBlank() && m.IsBlank() && s.IsBlank() {
		return (*TimeOfDay)(nil), nil
	}

	hour, err := intAt(grid, f.Name, *f.HourAt)
	if err != nil {
		return nil, err
	}
	minute, err := intAt(grid, f.Name, *f.MinuteAt)
	if err != nil {
		return nil, err
	}
	seconds, ok := cellNumber(s)
	if !ok {
		return nil, numericError(f.Name, *f.SecondAt, s)
	}

	t, err := AssembleTime(hour, minute, seconds)
	if err != nil {
		return nil, timeError(f, h, m, s, err)
	}
	return &t, nil
}

// readClock assembles a required whole-second time group.
func readClock(grid Grid, f FieldSpec) (any, error) {
	hour, err := intAt(grid, f.Name, *f.HourAt)
	if err != nil {
		return nil, err
	}
	minute, err := intAt(grid, f.Name, *f.MinuteAt)
	if err != nil {
		return nil, err
	}
	second, err := intAt(grid, f.Name, *f.SecondAt)
	if err != nil {
		return nil, err
	}

	t, err := AssembleTime(hour, minute, float64(second))
	if err != nil {
		h, m, s := cellAt(grid, *f.HourAt), cellAt(grid, *f.MinuteAt), cellAt(grid, *f.SecondAt)
		return nil, timeError(f, h, m, s, err)
	}
	return t, nil
}

func intAt(grid Grid, field string, p Position) (int, error) {
	c := cellAt(grid, p)
	v, ok := cellNumber(c)
	if !ok {
		return 0, numericError(field, p, c)
	}
	return int(math.Trunc(v)), nil
}

// cellNumber reads a numeric cell, or text holding a number.
func cellNumber(c Cell) (float64, bool) {
	var v float64
	switch c.Kind {
	case CellNumber:
		v = c.Number
	case CellText:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func numericError(field string, p Position, c Cell) error {
	return &FieldError{Field: field, Cell: p.String(), Value: c.String(), Err: ErrInvalidNumericField}
}

func timeError(f FieldSpec, h, m, s Cell, err error) error {
	return &FieldError{
		Field: f.Name,
		Cell:  f.HourAt.String(),
		Value: h.String() + ":" + m.String() + ":" + s.String(),
		Err:   err,
	}
}

// fieldValues holds strategy results by field name. The layout has been
// validated against requiredFields, so the getters' assertions hold.
type fieldValues map[string]any

func (v fieldValues) text(name string) string { return v[name].(string) }
func (v fieldValues) integer(name string) int { return v[name].(int) }
func (v fieldValues) float(name string) *float64 { return v[name].(*float64) }
func (v fieldValues) month(name string) time.Month { return v[name].(time.Month) }
func (v fieldValues) clock(name string) TimeOfDay { return v[name].(TimeOfDay) }
func (v fieldValues) timeOfDay(name string) *TimeOfDay { return v[name].(*TimeOfDay) }

func buildRecord(v fieldValues, source, coords string, lat, lon Angle) *ObservationRecord {
	eventDate := fmt.Sprintf("%04d-%02d-%02d",
		v.integer(fieldEventYear), int(v.month(fieldEventMonth)), v.integer(fieldEventDay))

	return &ObservationRecord{
		ID:         recordID(source, eventDate, v.text(fieldAsteroidNumber), v.text(fieldObserver), coords),
		SourceFile: source,

		EventDate:        eventDate,
		AsteroidNumber:   v.text(fieldAsteroidNumber),
		AsteroidName:     v.text(fieldAsteroidName),
		StarCatalog:      v.text(fieldStarCatalog),
		StarNumber:       v.text(fieldStarNumber),
		PredictedTimeUTC: v.clock(fieldPredictedTime),

		Coords:     coords,
		Latitude:   lat.Degrees,
		Longitude:  lon.Degrees,
		Datum:      v.text(fieldDatum),
		ElevationM: v.float(fieldElevation),

		PosNeg:   v.text(fieldPosNeg),
		Observer: v.text(fieldObserver),
		Email:    v.text(fieldEmail),
		Location: v.text(fieldLocation),

		TelescopeType: v.text(fieldTelescopeType),
		ApertureCM:    v.float(fieldAperture),
		FocalLengthCM: v.float(fieldFocalLength),
		TimingMethod:  v.text(fieldTimingMethod),
		TimingDevice:  v.text(fieldTimingDevice),
		SkyConditions: v.text(fieldSkyConditions),
		Seeing:        v.text(fieldSeeing),

		SessionStart:             v.timeOfDay(fieldSessionStart),
		SessionStop:              v.timeOfDay(fieldSessionStop),
		DisappearanceUncorrected: v.timeOfDay(fieldDisappearanceUncorrected),
		DisappearanceCorrected:   v.timeOfDay(fieldDisappearanceCorrected),
		ReappearanceUncorrected:  v.timeOfDay(fieldReappearanceUncorrected),
		ReappearanceCorrected:    v.timeOfDay(fieldReappearanceCorrected),

		DAccuracy68:  v.float(fieldDAccuracy68),
		DAccuracy95:  v.float(fieldDAccuracy95),
		DAccuracy997: v.float(fieldDAccuracy997),
		RAccuracy68:  v.float(fieldRAccuracy68),
		RAccuracy95:  v.float(fieldRAccuracy95),
		RAccuracy997: v.float(fieldRAccuracy997),

		MissDistanceKM:       v.float(fieldMissDistance),
		SecondaryStarVisible: v.text(fieldSecondaryStarVisible),
		YValue1:              v.float(fieldYValue1),
		YValue2:              v.float(fieldYValue2),
	}
}
