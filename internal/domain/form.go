package domain

import "fmt"

// Fill places cells for the named field on g, following the layout. Single
// cell kinds take one cell; coordinates take format, magnitude and hemisphere;
// time groups take hour, minute and seconds. It is the inverse of extraction
// and is used to build report workbooks.
func (l *Layout) Fill(g MemoryGrid, name string, cells ...Cell) error {
	f, ok := l.byName[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}

	var at []*Position
	switch f.Kind {
	case KindCoordinate:
		at = []*Position{f.FormatAt, f.At, f.HemisphereAt}
	case KindTime, KindClock:
		at = []*Position{f.HourAt, f.MinuteAt, f.SecondAt}
	default:
		at = []*Position{f.At}
	}
	if len(cells) != len(at) {
		return fmt.Errorf("field %q (%s) takes %d cells, got %d", name, f.Kind, len(at), len(cells))
	}
	for i, p := range at {
		g.Set(p.Row, p.Col, cells[i])
	}
	return nil
}

// FillVersion writes the form version tag.
func (l *Layout) FillVersion(g MemoryGrid, version string) {
	g.Set(l.VersionAt.Row, l.VersionAt.Col, TextCell(version))
}

// SampleForm returns a completely filled report sheet for l: a positive
// observation from Portland with the latitude in deg-min.mmm and the
// longitude in deg.ddddd.
func SampleForm(l *Layout) MemoryGrid {
	g := MemoryGrid{}
	l.FillVersion(g, l.Version)

	entries := []struct {
		name  string
		cells []Cell
	}{
		{fieldPosNeg, []Cell{TextCell("POSITIVE")}},
		{fieldEventYear, []Cell{NumberCell(2024)}},
		{fieldEventMonth, []Cell{TextCell("March")}},
		{fieldEventDay, []Cell{NumberCell(7)}},
		{fieldPredictedTime, []Cell{NumberCell(3), NumberCell(41), NumberCell(17)}},
		{fieldAsteroidNumber, []Cell{NumberCell(412)}},
		{fieldAsteroidName, []Cell{TextCell("Elisabetha")}},
		{fieldStarCatalog, []Cell{TextCell("Gaia DR3")}},
		{fieldStarNumber, []Cell{TextCell("3406784723196214784")}},
		{fieldObserver, []Cell{TextCell("J. Observer")}},
		{fieldEmail, []Cell{TextCell("observer@example.org")}},
		{fieldLocation, []Cell{TextCell("Portland, OR")}},
		{fieldLatitude, []Cell{TextCell("deg min.mmm"), TextCell("45 30.500"), TextCell("N")}},
		{fieldLongitude, []Cell{TextCell("deg.ddddd"), TextCell("122.5000"), TextCell("W")}},
		{fieldDatum, []Cell{TextCell("WGS84")}},
		{fieldElevation, []Cell{NumberCell(61)}},
		{fieldTelescopeType, []Cell{TextCell("Schmidt-Cassegrain")}},
		{fieldAperture, []Cell{NumberCell(20.3)}},
		{fieldFocalLength, []Cell{NumberCell(203.2)}},
		{fieldTimingMethod, []Cell{TextCell("GPS-PPS")}},
		{fieldTimingDevice, []Cell{TextCell("IOTA-VTI")}},
		{fieldSkyConditions, []Cell{TextCell("Clear")}},
		{fieldSeeing, []Cell{TextCell("Good")}},
		{fieldSessionStart, []Cell{NumberCell(3), NumberCell(35), NumberCell(0)}},
		{fieldSessionStop, []Cell{NumberCell(3), NumberCell(50), NumberCell(0)}},
		{fieldDisappearanceUncorrected, []Cell{NumberCell(3), NumberCell(41), NumberCell(12.5)}},
		{fieldDisappearanceCorrected, []Cell{NumberCell(3), NumberCell(41), NumberCell(12.467)}},
		{fieldReappearanceUncorrected, []Cell{NumberCell(3), NumberCell(41), NumberCell(15.25)}},
		{fieldReappearanceCorrected, []Cell{NumberCell(3), NumberCell(41), NumberCell(15.217)}},
		{fieldDAccuracy68, []Cell{NumberCell(0.03)}},
		{fieldDAccuracy95, []Cell{NumberCell(0.06)}},
		{fieldDAccuracy997, []Cell{NumberCell(0.09)}},
		{fieldRAccuracy68, []Cell{NumberCell(0.03)}},
		{fieldRAccuracy95, []Cell{NumberCell(0.06)}},
		{fieldRAccuracy997, []Cell{NumberCell(0.1)}},
		{fieldMissDistance, []Cell{NumberCell(0.8)}},
		{fieldSecondaryStarVisible, []Cell{TextCell("No")}},
		{fieldYValue1, []Cell{NumberCell(1.5)}},
		{fieldYValue2, []Cell{NumberCell(2.25)}},
	}
	for _, e := range entries {
		if err := l.Fill(g, e.name, e.cells...); err != nil {
			panic(err) // requiredFields guarantees every name is in a validated layout
		}
	}
	return g
}
