package consumer

import (
	"fmt"
	"time"
)

// ActivityWindow is the daily local-time interval during which a consumer is
// permitted to ingest. A window whose start equals its end is always active.
type ActivityWindow struct {
	loc   *time.Location
	start int // minutes since midnight
	end   int
}

// NewActivityWindow parses "HH:MM" bounds in the given IANA timezone.
func NewActivityWindow(timezone, start, end string) (ActivityWindow, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return ActivityWindow{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	startMin, err := parseClock(start)
	if err != nil {
		return ActivityWindow{}, err
	}

	endMin, err := parseClock(end)
	if err != nil {
		return ActivityWindow{}, err
	}

	return ActivityWindow{loc: loc, start: startMin, end: endMin}, nil
}

// AlwaysOpen returns a window that never gates.
func AlwaysOpen() ActivityWindow {
	return ActivityWindow{loc: time.UTC}
}

// Contains reports whether t falls inside the window. Windows may wrap past
// midnight (start 22:00, end 06:00).
func (w ActivityWindow) Contains(t time.Time) bool {
	if w.start == w.end {
		return true
	}

	local := t.In(w.loc)
	minute := local.Hour()*60 + local.Minute()

	if w.start < w.end {
		return minute >= w.start && minute < w.end
	}
	return minute >= w.start || minute < w.end
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid window time %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
