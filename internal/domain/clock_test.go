package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSetClock(t *testing.T) {
	fixed := time.Date(2024, 3, 8, 9, 30, 0, 0, time.FixedZone("PST", -8*3600))
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, fixed.UTC(), Now())
	assert.Equal(t, time.UTC, Now().Location())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), Now(), time.Minute)
}
