package overlay

import "time"

// DefaultDebounce is the quiescence interval before input settles.
const DefaultDebounce = 240 * time.Millisecond

// Debouncer tags each input change. Only the most recent tag may fire, so a
// timer scheduled for an older change settles nothing. It does not own a
// clock; the caller schedules one timer per tag.
type Debouncer struct {
	seq int
}

// Touch records an input change and returns its tag.
func (d *Debouncer) Touch() int {
	d.seq++
	return d.seq
}

// Fire reports whether tag is still the latest input change.
func (d *Debouncer) Fire(tag int) bool {
	return tag == d.seq
}

// Cancel invalidates every outstanding tag.
func (d *Debouncer) Cancel() {
	d.seq++
}
