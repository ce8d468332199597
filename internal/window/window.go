// Package window implements the daily batch window gate.
package window

import (
	"fmt"
	"strconv"
	"time"
)

// Window is a daily time-of-day range with minute resolution. The range may
// cross midnight (end before start). A zero-width window is always open.
type Window struct {
	start int // minutes since midnight
	end   int
}

// Parse builds a Window from "HH:MM" start and end marks.
func Parse(start, end string) (Window, error) {
	s, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	return Window{start: s, end: e}, nil
}

// Contains reports whether t falls inside the window. Seconds are ignored.
func (w Window) Contains(t time.Time) bool {
	now := t.Hour()*60 + t.Minute()
	switch {
	case w.start == w.end:
		return true
	case w.end < w.start: // crosses midnight
		return now >= w.start || now < w.end
	default:
		return w.start <= now && now < w.end
	}
}

func parseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%q is not an HH:MM time", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%q has an hour outside 00-23", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%q has a minute outside 00-59", s)
	}
	return h*60 + m, nil
}
