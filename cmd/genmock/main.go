// Command genmock writes a directory of filled-in V5.6.11 report workbooks
// for demos and end-to-end checks, together with a manifest of the outcome
// each file is expected to produce. Expected outcomes come from running the
// real extractor over the in-memory forms, so the manifest always matches
// pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -dir data/mock -n 12
//	go run ./cmd/etl -dir data/mock -out data/mock-output.xlsx
//	go run ./cmd/validate -dir data/mock -out data/mock-output.xlsx
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/adapter/excel"
	"github.com/couchcryptid/occultation-etl/internal/domain"
)

// manifestName is written at the root of the generated directory.
const manifestName = "expected.json"

// Expected is the outcome one generated file should produce.
type Expected struct {
	File   string                    `json:"file"` // relative to the generated root
	Status string                    `json:"status"`
	Reason string                    `json:"reason,omitempty"`
	Record *domain.ObservationRecord `json:"record,omitempty"`
}

type site struct {
	observer, email, location string
	lat, lon                  float64
	elevation                 float64
}

var sites = []site{
	{"J. Observer", "observer@example.org", "Portland, OR", 45.5152, -122.6784, 61},
	{"A. Watcher", "awatcher@example.net", "Sydney, NSW", -33.8688, 151.2093, 58},
	{"M. Ruiz", "mruiz@example.es", "Madrid", 40.4168, -3.7038, 667},
	{"K. Tanaka", "ktanaka@example.jp", "Tucson, AZ", 32.2226, -110.9747, 728},
	{"L. Moreau", "lmoreau@example.fr", "Santiago", -33.4489, -70.6693, 570},
}

var asteroids = []struct{ number, name string }{
	{"412", "Elisabetha"},
	{"2", "Pallas"},
	{"41", "Daphne"},
	{"87", "Sylvia"},
	{"704", "Interamnia"},
	{"130", "Elektra"},
}

// fill is one layout field and the cells written for it.
type fill struct {
	field string
	cells []domain.Cell
}

var formats = []domain.Format{domain.FormatDegMin, domain.FormatDegMinSec, domain.FormatDecimal}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", "", "output directory for generated workbooks")
	n := flag.Int("n", 6, "number of valid reports to generate")
	flag.Parse()

	if *dir == "" || *n < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flag: -dir (and -n must be positive)")
	}

	layout, err := domain.DefaultLayout()
	if err != nil {
		return err
	}
	extractor := domain.NewExtractor(layout)

	var manifest []Expected
	write := func(rel string, sheets ...excel.SheetContent) error {
		path := filepath.Join(*dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := excel.SaveWorkbook(path, sheets...); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
		wb := domain.MemoryWorkbook{}
		for _, sh := range sheets {
			wb[sh.Name] = sh.Cells
		}
		manifest = append(manifest, expect(extractor, wb, rel))
		return nil
	}

	for i := range *n {
		form, name, err := validForm(layout, i)
		if err != nil {
			return err
		}
		if err := write(filepath.Join("reports", name), excel.SheetContent{Name: layout.Sheet, Cells: form}); err != nil {
			return err
		}
	}

	mutations := invalidForms(layout)
	for _, name := range slices.Sorted(maps.Keys(mutations)) {
		mutate := mutations[name]
		form, _, err := validForm(layout, 0)
		if err != nil {
			return err
		}
		if err := mutate(form); err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
		if err := write(filepath.Join("invalid", name), excel.SheetContent{Name: layout.Sheet, Cells: form}); err != nil {
			return err
		}
	}

	// A workbook without the data sheet is skipped, not failed.
	cover := domain.MemoryGrid{}.Set(0, 0, domain.TextCell("Observer cover letter"))
	if err := write(filepath.Join("skipped", "cover_letter.xlsx"), excel.SheetContent{Name: "Letter", Cells: cover}); err != nil {
		return err
	}

	// Archive metadata that discovery must ignore.
	junk := filepath.Join(*dir, "__MACOSX", "reports", "._report.xlsx")
	if err := os.MkdirAll(filepath.Dir(junk), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(junk, []byte{0x00, 0x05, 0x16, 0x07, 0x00, 0x02, 0x00, 0x00}, 0o644); err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*dir, manifestName), append(data, '\n'), 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %d workbooks and %s to %s\n", len(manifest), manifestName, *dir)
	return nil
}

func expect(extractor *domain.Extractor, wb domain.Workbook, rel string) Expected {
	out := extractor.Extract(wb, rel)
	e := Expected{File: rel, Status: out.Status.String(), Record: out.Record}
	if out.Err != nil {
		e.Reason = domain.Reason(out.Err)
	}
	return e
}

// validForm varies the sample form by index: site, asteroid, date, and the
// coordinate format of each axis.
func validForm(layout *domain.Layout, i int) (domain.MemoryGrid, string, error) {
	g := domain.SampleForm(layout)
	s := sites[i%len(sites)]
	a := asteroids[i%len(asteroids)]
	date := time.Date(2024, time.Month(i%12+1), i*5%28+1, 0, 0, 0, 0, time.UTC)

	monthName := date.Month().String()
	switch i % 3 {
	case 1:
		monthName = strings.ToUpper(monthName)
	case 2:
		monthName = strings.ToLower(monthName)
	}

	latCells, err := coordinateCells(domain.Angle{Degrees: s.lat, Axis: domain.Latitude}, formats[i%3])
	if err != nil {
		return nil, "", err
	}
	lonCells, err := coordinateCells(domain.Angle{Degrees: s.lon, Axis: domain.Longitude}, formats[(i+1)%3])
	if err != nil {
		return nil, "", err
	}

	disappearance := 10 + float64(i)*1.25
	fills := []fill{
		{"event_year", []domain.Cell{domain.NumberCell(float64(date.Year()))}},
		{"event_month", []domain.Cell{domain.TextCell(monthName)}},
		{"event_day", []domain.Cell{domain.NumberCell(float64(date.Day()))}},
		{"asteroid_number", []domain.Cell{domain.TextCell(a.number)}},
		{"asteroid_name", []domain.Cell{domain.TextCell(a.name)}},
		{"observer", []domain.Cell{domain.TextCell(s.observer)}},
		{"email", []domain.Cell{domain.TextCell(s.email)}},
		{"location", []domain.Cell{domain.TextCell(s.location)}},
		{"elevation_m", []domain.Cell{domain.NumberCell(s.elevation)}},
		{"latitude", latCells},
		{"longitude", lonCells},
		{"disappearance_uncorrected", []domain.Cell{domain.NumberCell(3), domain.NumberCell(41), domain.NumberCell(disappearance)}},
		{"reappearance_uncorrected", []domain.Cell{domain.NumberCell(3), domain.NumberCell(41), domain.NumberCell(disappearance + 2.75)}},
	}
	if i%2 == 1 {
		fills = append(fills, fill{"pos_neg", []domain.Cell{domain.TextCell("NEGATIVE")}})
	}
	for _, f := range fills {
		if err := layout.Fill(g, f.field, f.cells...); err != nil {
			return nil, "", err
		}
	}

	name := fmt.Sprintf("%s_%s_%s.xlsx", date.Format("2006-01-02"), a.number, strings.ReplaceAll(s.location, " ", ""))
	name = strings.ReplaceAll(name, ",", "")
	return g, name, nil
}

// coordinateCells renders a as the form's selector, magnitude, and hemisphere cells.
func coordinateCells(a domain.Angle, f domain.Format) ([]domain.Cell, error) {
	text, err := domain.FormatAngle(a, f)
	if err != nil {
		return nil, err
	}
	cut := strings.LastIndexByte(text, ' ')
	return []domain.Cell{
		domain.TextCell(f.String()),
		domain.TextCell(text[:cut]),
		domain.TextCell(text[cut+1:]),
	}, nil
}

// invalidForms returns mutations that each make a form fail extraction.
func invalidForms(layout *domain.Layout) map[string]func(domain.MemoryGrid) error {
	return map[string]func(domain.MemoryGrid) error{
		"bad_selector.xlsx": func(g domain.MemoryGrid) error {
			return layout.Fill(g, "latitude", domain.TextCell("degrees"), domain.TextCell("45 30.5"), domain.TextCell("N"))
		},
		"old_version.xlsx": func(g domain.MemoryGrid) error {
			layout.FillVersion(g, "V5.6.10")
			return nil
		},
		"bad_direction.xlsx": func(g domain.MemoryGrid) error {
			return layout.Fill(g, "latitude", domain.TextCell("deg.ddddd"), domain.TextCell("45.5083"), domain.TextCell("E"))
		},
		"bad_month.xlsx": func(g domain.MemoryGrid) error {
			return layout.Fill(g, "event_month", domain.TextCell("Smarch"))
		},
		"bad_time.xlsx": func(g domain.MemoryGrid) error {
			return layout.Fill(g, "session_start", domain.NumberCell(25), domain.NumberCell(0), domain.NumberCell(0))
		},
	}
}
