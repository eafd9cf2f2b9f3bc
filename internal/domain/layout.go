package domain

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed layout.yaml
var layoutYAML []byte

// FieldKind selects the extraction strategy for a layout field.
type FieldKind string

const (
	KindText       FieldKind = "text"       // passed through as rendered text
	KindInt        FieldKind = "int"        // coerced to an integer
	KindFloat      FieldKind = "float"      // optional number
	KindMonth      FieldKind = "month"      // English month name -> 1..12
	KindCoordinate FieldKind = "coordinate" // format selector + magnitude + hemisphere
	KindTime       FieldKind = "time"       // optional h/m/s.ffffff group
	KindClock      FieldKind = "clock"      // required integer h/m/s group
)

// Position is a zero-based (row, col) sheet coordinate, written [row, col].
type Position struct {
	Row int
	Col int
}

func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	var pair []int
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: position: %w", node.Line, err)
	}
	if len(pair) != 2 || pair[0] < 0 || pair[1] < 0 {
		return fmt.Errorf("line %d: position must be [row, col], got %v", node.Line, pair)
	}
	p.Row, p.Col = pair[0], pair[1]
	return nil
}

func (p Position) String() string { return CellRef(p.Row, p.Col) }

// FieldSpec places one named field on the sheet. Which positions are used
// depends on Kind.
type FieldSpec struct {
	Name         string    `yaml:"name"`
	Kind         FieldKind `yaml:"kind"`
	At           *Position `yaml:"at"`
	Axis         string    `yaml:"axis"`
	FormatAt     *Position `yaml:"format_at"`
	HemisphereAt *Position `yaml:"hemisphere_at"`
	HourAt       *Position `yaml:"hour_at"`
	MinuteAt     *Position `yaml:"minute_at"`
	SecondAt     *Position `yaml:"second_at"`

	axis Axis
}

// Layout is the fixed cell map for one form version.
type Layout struct {
	Version      string      `yaml:"version"`
	Sheet        string      `yaml:"sheet"`
	VersionAt    Position    `yaml:"version_at"`
	TargetFormat string      `yaml:"target_format"`
	Fields       []FieldSpec `yaml:"fields"`

	target Format
	byName map[string]FieldSpec
}

var defaultLayout = sync.OnceValues(func() (*Layout, error) {
	return ParseLayout(layoutYAML)
})

// DefaultLayout returns the embedded layout for SupportedFormVersion.
func DefaultLayout() (*Layout, error) {
	return defaultLayout()
}

// MustDefaultLayout is DefaultLayout for program start-up.
func MustDefaultLayout() *Layout {
	l, err := DefaultLayout()
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLayout decodes and validates a layout document.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", l.Version, err)
	}
	return &l, nil
}

// Field returns the spec for name.
func (l *Layout) Field(name string) (FieldSpec, bool) {
	f, ok := l.byName[name]
	return f, ok
}

// Target is the format coordinates are normalized into.
func (l *Layout) Target() Format { return l.target }

func (l *Layout) validate() error {
	if l.Version != SupportedFormVersion {
		return fmt.Errorf("version %q does not match supported %q", l.Version, SupportedFormVersion)
	}
	if l.Sheet == "" {
		return fmt.Errorf("sheet name is required")
	}
	target, err := ParseFormat(l.TargetFormat)
	if err != nil {
		return fmt.Errorf("target_format: %w", err)
	}
	l.target = target

	l.byName = make(map[string]FieldSpec, len(l.Fields))
	for i := range l.Fields {
		f := &l.Fields[i]
		if _, dup := l.byName[f.Name]; dup {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		if err := f.validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		l.byName[f.Name] = *f
	}

	for name, kind := range requiredFields {
		f, ok := l.byName[name]
		if !ok {
			return fmt.Errorf("required field %q missing", name)
		}
		if f.Kind != kind {
			return fmt.Errorf("field %q has kind %s, want %s", name, f.Kind, kind)
		}
	}
	if l.byName[fieldLatitude].axis != Latitude || l.byName[fieldLongitude].axis != Longitude {
		return fmt.Errorf("coordinate fields must declare latitude and longitude axes")
	}
	return nil
}

// validate checks the positions the kind needs and resolves the axis of
// coordinate fields.
func (f *FieldSpec) validate() error {
	switch f.Kind {
	case KindText, KindInt, KindFloat, KindMonth:
		if f.At == nil {
			return fmt.Errorf("kind %s needs at", f.Kind)
		}
	case KindCoordinate:
		if f.At == nil || f.FormatAt == nil || f.HemisphereAt == nil {
			return fmt.Errorf("coordinate needs at, format_at and hemisphere_at")
		}
		axis, err := ParseAxis(f.Axis)
		if err != nil {
			return err
		}
		f.axis = axis
	case KindTime, KindClock:
		if f.HourAt == nil || f.MinuteAt == nil || f.SecondAt == nil {
			return fmt.Errorf("kind %s needs hour_at, minute_at and second_at", f.Kind)
		}
	default:
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	return nil
}
