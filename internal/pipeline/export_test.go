package pipeline

import "time"

// SetBackoff shortens retry delays in tests.
func (d *Delivery) SetBackoff(initial, maxBackoff time.Duration) {
	d.initialBackoff = initial
	d.maxBackoff = maxBackoff
}
