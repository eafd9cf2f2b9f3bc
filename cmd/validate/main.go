// Command validate checks an output table produced by cmd/etl against the
// manifest written by cmd/genmock. It verifies the header, row count, that
// skipped and failed files are absent, and that every expected record's
// cells match the table row for its source file.
//
// Usage:
//
//	go run ./cmd/validate -dir data/mock -out data/mock-output.xlsx
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/occultation-etl/internal/adapter/excel"
	"github.com/couchcryptid/occultation-etl/internal/domain"
)

// expected mirrors the manifest entries written by cmd/genmock.
type expected struct {
	File   string                    `json:"file"`
	Status string                    `json:"status"`
	Reason string                    `json:"reason,omitempty"`
	Record *domain.ObservationRecord `json:"record,omitempty"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "directory the etl run was pointed at (contains expected.json)")
	out := flag.String("out", "output.xlsx", "output table written by the etl run")
	manifestPath := flag.String("manifest", "", "manifest path (default <dir>/expected.json)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *manifestPath == "" {
		*manifestPath = filepath.Join(*dir, "expected.json")
	}

	if code := run(*dir, *out, *manifestPath); code != 0 {
		os.Exit(code)
	}
}

func run(dir, outPath, manifestPath string) int {
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load manifest: %v\n", err)
		return 1
	}
	header, rows, err := excel.ReadTable(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load output: %v\n", err)
		return 1
	}

	phases := validate(dir, manifest, header, rows)

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL  %s (%d problems)\n", p.name, len(p.errors))
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func loadManifest(path string) ([]expected, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest []expected
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return manifest, nil
}

func validate(dir string, manifest []expected, header []string, rows [][]string) []*phase {
	columns := domain.Columns()
	headerPhase := &phase{name: "table header"}
	if !slices.Equal(header, columns) {
		headerPhase.errorf("header %v, want %v", header, columns)
		// Row checks are meaningless against a different column set.
		return []*phase{headerPhase}
	}
	sourceCol := slices.Index(columns, "source_file")

	bySource := make(map[string][]string, len(rows))
	for _, row := range rows {
		bySource[row[sourceCol]] = row
	}

	var records []expected
	var absent []expected
	for _, e := range manifest {
		if e.Status == domain.StatusRecord.String() {
			records = append(records, e)
		} else {
			absent = append(absent, e)
		}
	}

	countPhase := &phase{name: "row count"}
	if len(rows) != len(records) {
		countPhase.errorf("table has %d rows, manifest expects %d records", len(rows), len(records))
	}
	if len(bySource) != len(rows) {
		countPhase.errorf("%d duplicate source_file values", len(rows)-len(bySource))
	}

	absentPhase := &phase{name: "skipped and failed files absent"}
	for _, e := range absent {
		if _, ok := bySource[filepath.Join(dir, e.File)]; ok {
			absentPhase.errorf("%s (%s %s) appears in the table", e.File, e.Status, e.Reason)
		}
	}

	recordPhase := &phase{name: "record values"}
	for _, e := range records {
		source := filepath.Join(dir, e.File)
		row, ok := bySource[source]
		if !ok {
			recordPhase.errorf("%s: no row", e.File)
			continue
		}
		want := e.Record.Values()
		for i, col := range columns {
			if i == sourceCol {
				continue
			}
			if got, w := row[i], render(want[i]); got != w {
				recordPhase.errorf("%s: %s = %q, want %q", e.File, col, got, w)
			}
		}
	}

	return []*phase{headerPhase, countPhase, absentPhase, recordPhase}
}

// render formats a record value the way it is stored in the table.
func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
