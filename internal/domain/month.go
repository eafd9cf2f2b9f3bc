package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// monthsByName indexes case-folded English month names.
var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 12)
	fold := cases.Fold()
	for month := time.January; month <= time.December; month++ {
		m[fold.String(month.String())] = month
	}
	return m
}()

// lookupMonth resolves a full English month name, ignoring case and
// surrounding whitespace. Abbreviations are not accepted.
func lookupMonth(name string) (time.Month, bool) {
	m, ok := monthsByName[cases.Fold().String(strings.TrimSpace(name))]
	return m, ok
}
