package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format is a human-entered encoding of an angle.
type Format int

const (
	FormatDegMin    Format = iota + 1 // "deg-min.mmm":   D M.mmm
	FormatDegMinSec                   // "deg-mm-sec.ss": D M S.ss
	FormatDecimal                     // "deg.ddddd":     D.dddd
)

// formatNames maps every accepted selector spelling to its Format. The report
// form's drop-down uses spaces where the canonical names use hyphens.
var formatNames = map[string]Format{
	"deg-min.mmm":   FormatDegMin,
	"deg-mm-sec.ss": FormatDegMinSec,
	"deg.ddddd":     FormatDecimal,
	"deg min.mmm":   FormatDegMin,
	"deg mm sec.ss": FormatDegMinSec,
}

// ParseFormat resolves a format selector value.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.TrimSpace(s)]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) String() string {
	switch f {
	case FormatDegMin:
		return "deg-min.mmm"
	case FormatDegMinSec:
		return "deg-mm-sec.ss"
	case FormatDecimal:
		return "deg.ddddd"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func (f Format) valid() bool {
	return f == FormatDegMin || f == FormatDegMinSec || f == FormatDecimal
}

// tokens is the number of whitespace-separated numbers the format carries.
func (f Format) tokens() int {
	switch f {
	case FormatDegMin:
		return 2
	case FormatDegMinSec:
		return 3
	default:
		return 1
	}
}

// Axis says which hemisphere letters apply to an angle.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

// ParseAxis resolves a layout axis name.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latitude":
		return Latitude, nil
	case "longitude":
		return Longitude, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

func (a Axis) String() string {
	if a == Longitude {
		return "longitude"
	}
	return "latitude"
}

// hemispheres returns the letters for non-negative and negative values.
func (a Axis) hemispheres() (positive, negative byte) {
	if a == Longitude {
		return 'E', 'W'
	}
	return 'N', 'S'
}

// Angle is a signed decimal-degree value. Negative is South or West.
type Angle struct {
	Degrees float64
	Axis    Axis
}

// ParseAngle converts an encoded coordinate such as "45 30.500 N" into signed
// decimal degrees. The trailing letter is the hemisphere and must belong to axis.
func ParseAngle(s string, f Format, axis Axis) (Angle, error) {
	if !f.valid() {
		return Angle{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return Angle{}, fmt.Errorf("%w: empty %s", ErrMalformedCoordinate, axis)
	}
	direction := strings.ToUpper(s[len(s)-1:])[0]
	body := strings.TrimSpace(s[:len(s)-1])

	positive, negative := axis.hemispheres()
	if direction != positive && direction != negative {
		return Angle{}, fmt.Errorf("%w: %q for %s", ErrInvalidDirection, string(direction), axis)
	}

	parts := strings.Fields(body)
	if len(parts) != f.tokens() {
		return Angle{}, fmt.Errorf("%w: %q has %d components, %s expects %d",
			ErrMalformedCoordinate, body, len(parts), f, f.tokens())
	}

	var magnitude float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || !isFinite(v) {
			return Angle{}, fmt.Errorf("%w: %q is not a number", ErrMalformedCoordinate, p)
		}
		magnitude += v / math.Pow(60, float64(i))
	}
	if !isFinite(magnitude) {
		return Angle{}, fmt.Errorf("%w: %q is out of range", ErrMalformedCoordinate, body)
	}

	if direction == negative {
		magnitude = -magnitude
	}
	return Angle{Degrees: magnitude, Axis: axis}, nil
}

// FormatAngle encodes a into f. Degrees truncate toward zero; the remainder is
// carried by minutes and seconds. Output precision is 3 decimals for minutes,
// 2 for seconds and 4 for decimal degrees.
func FormatAngle(a Angle, f Format) (string, error) {
	if !isFinite(a.Degrees) {
		return "", fmt.Errorf("%w: %v %s", ErrMalformedCoordinate, a.Degrees, a.Axis)
	}
	positive, negative := a.Axis.hemispheres()
	direction := positive
	value := a.Degrees
	if value < 0 {
		direction = negative
		value = -value
	}

	switch f {
	case FormatDegMin:
		degrees := math.Trunc(value)
		minutes := (value - degrees) * 60
		m := strconv.FormatFloat(minutes, 'f', 3, 64)
		if m == "60.000" {
			degrees++
			m = "0.000"
		}
		return fmt.Sprintf("%s %s %c", formatDegrees(degrees), m, direction), nil
	case FormatDegMinSec:
		degrees := math.Trunc(value)
		minutesFull := (value - degrees) * 60
		minutes := math.Trunc(minutesFull)
		sec := strconv.FormatFloat((minutesFull-minutes)*60, 'f', 2, 64)
		if sec == "60.00" {
			minutes++
			sec = "0.00"
		}
		if minutes == 60 {
			degrees++
			minutes = 0
		}
		return fmt.Sprintf("%s %d %s %c", formatDegrees(degrees), int(minutes), sec, direction), nil
	case FormatDecimal:
		return fmt.Sprintf("%s %c", strconv.FormatFloat(value, 'f', 4, 64), direction), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// FormatPair encodes a latitude/longitude pair into f, joined as "<lat>, <lon>".
func FormatPair(lat, lon Angle, f Format) (string, error) {
	latText, err := FormatAngle(lat, f)
	if err != nil {
		return "", err
	}
	lonText, err := FormatAngle(lon, f)
	if err != nil {
		return "", err
	}
	return latText + ", " + lonText, nil
}

// formatDegrees renders a whole degree count. Large magnitudes stay exact
// instead of overflowing an int conversion.
func formatDegrees(d float64) string {
	return strconv.FormatFloat(d, 'f', 0, 64)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
