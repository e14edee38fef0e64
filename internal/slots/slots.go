// Package slots is the time-slot engine: pure functions computing the
// fixed grid of candidate mission start times for a day and the occupied
// windows used for overlap tests. Nothing in this package performs I/O.
//
// Times of day are represented as minutes since midnight. Windows are
// half-open, [Start, End): a window ending at 10:00 and one starting at
// 10:00 do not overlap.
package slots

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidClock is returned for a time of day not in strict HH:MM form.
	ErrInvalidClock = errors.New("time must be HH:MM (00:00-23:59)")
	// ErrInvalidDate is returned for a date not in strict YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

const dateLayout = "2006-01-02"

// ParseClock parses a strict "HH:MM" label into minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseDate parses a strict "YYYY-MM-DD" date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil || d.Format(dateLayout) != s {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// At combines a date and a time-of-day label into an instant in loc.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(m) * time.Minute), nil
}

// Window is a half-open interval of minutes since midnight.
type Window struct {
	Start int
	End   int
}

// WindowAt returns the window occupied by a mission starting at start.
func WindowAt(start int, duration time.Duration) Window {
	return Window{Start: start, End: start + int(duration/time.Minute)}
}

// Overlaps reports whether w and o intersect (half-open).
func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}

// Grid describes the business-hours slot grid.
type Grid struct {
	Start    time.Duration // offset from midnight of the first slot, e.g. 9h
	End      time.Duration // offset from midnight business hours close, e.g. 18h
	Step     time.Duration // distance between consecutive slot starts
	Duration time.Duration // fixed mission duration
}

// DefaultGrid is 09:00-18:00 every 30 minutes with 60-minute missions.
var DefaultGrid = Grid{
	Start:    9 * time.Hour,
	End:      18 * time.Hour,
	Step:     30 * time.Minute,
	Duration: 60 * time.Minute,
}

// Validate reports whether the grid is usable.
func (g Grid) Validate() error {
	switch {
	case g.Step < time.Minute:
		return errors.New("slot step must be at least one minute")
	case g.Duration < time.Minute:
		return errors.New("mission duration must be at least one minute")
	case g.Start < 0 || g.End > 24*time.Hour:
		return errors.New("business hours must lie within a day")
	case g.Start+g.Duration > g.End:
		return errors.New("business hours shorter than one mission")
	}
	return nil
}

// Starts returns the slot start offsets (minutes since midnight) whose full
// mission window fits inside business hours, in ascending order.
func (g Grid) Starts() []int {
	if g.Validate() != nil {
		return nil
	}
	var out []int
	for t := g.Start; t+g.Duration <= g.End; t += g.Step {
		out = append(out, int(t/time.Minute))
	}
	return out
}

// Labels returns the ordered "HH:MM" labels of Starts.
func (g Grid) Labels() []string {
	starts := g.Starts()
	out := make([]string, len(starts))
	for i, s := range starts {
		out[i] = FormatClock(s)
	}
	return out
}

// Window returns the window a mission starting at start occupies on g.
func (g Grid) Window(start int) Window { return WindowAt(start, g.Duration) }
