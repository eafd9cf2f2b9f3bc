package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeOfDay is a naive wall-clock time with microsecond resolution. No time
// zone is attached; report times are UTC by convention of the form.
type TimeOfDay struct {
	Hour        int
	Minute      int
	Second      int
	Microsecond int
}

// AssembleTime builds a TimeOfDay from separate hour, minute and seconds
// inputs. The fractional part of seconds is truncated (not rounded) to whole
// microseconds.
func AssembleTime(hour, minute int, seconds float64) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: hour %d", ErrTimeOutOfRange, hour)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: minute %d", ErrTimeOutOfRange, minute)
	}
	if math.IsNaN(seconds) || seconds < 0 || seconds >= 60 {
		return TimeOfDay{}, fmt.Errorf("%w: seconds %v", ErrTimeOutOfRange, seconds)
	}

	whole, micros := splitSeconds(seconds)
	return TimeOfDay{Hour: hour, Minute: minute, Second: whole, Microsecond: micros}, nil
}

// splitSeconds truncates on the shortest decimal form of s, so the value as
// typed into the sheet is what gets truncated: 45.123456 gives 123456 even
// though 45.123456-45 is 0.1234559999... in binary.
func splitSeconds(s float64) (whole, micros int) {
	text := strconv.FormatFloat(s, 'f', -1, 64)
	intPart, frac, _ := strings.Cut(text, ".")
	whole, _ = strconv.Atoi(intPart)
	if len(frac) > 6 {
		frac = frac[:6]
	}
	frac += strings.Repeat("0", 6-len(frac))
	micros, _ = strconv.Atoi(frac)
	return whole, micros
}

// String renders ISO-8601 time: HH:MM:SS, with .ffffff when sub-second.
func (t TimeOfDay) String() string {
	if t.Microsecond == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Microsecond)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimeOfDay reads the String form back.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	clock, frac, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	var h, m, sec int
	if _, err := fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &sec); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	micros := 0
	if hasFrac {
		if len(frac) == 0 || len(frac) > 6 {
			return TimeOfDay{}, fmt.Errorf("parse time of day %q: bad fraction", s)
		}
		v, err := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
		}
		micros = v
	}
	t, err := AssembleTime(h, m, float64(sec))
	if err != nil {
		return TimeOfDay{}, err
	}
	t.Microsecond = micros
	return t, nil
}
