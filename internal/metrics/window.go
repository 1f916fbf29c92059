package metrics

import "time"

// Window lengths.
const (
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
	Window30d = 30 * 24 * time.Hour
)

// Windows holds the window boundaries of one run in Unix seconds.
// All boundaries are derived from the same instant so every series in a
// run is measured against identical cutoffs.
type Windows struct {
	Now int64
	H24 int64
	D7  int64
	D30 int64
}

// NewWindows derives the window boundaries from the run-start instant.
func NewWindows(runStart time.Time) Windows {
	now := runStart.Unix()
	return Windows{
		Now: now,
		H24: now - int64(Window24h/time.Second),
		D7:  now - int64(Window7d/time.Second),
		D30: now - int64(Window30d/time.Second),
	}
}
