// Package timeofday provides a date-less wall-clock time value ("HH:MM")
// used for business hours, bookable slots and the access-control window.
package timeofday

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a time of day expressed as minutes since midnight.
type TimeOfDay int

// Parse parses a "HH:MM" string.
func Parse(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// FromTime extracts the time of day from t in t's location.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Add returns the time of day m minutes later. The result is not clamped;
// callers comparing against a day boundary should check bounds themselves.
func (t TimeOfDay) Add(m int) TimeOfDay { return t + TimeOfDay(m) }

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// InWindow reports whether t falls within [start, end). Windows that cross
// midnight (start > end, e.g. 21:00-06:00) are supported.
func InWindow(t, start, end TimeOfDay) bool {
	if start == end {
		return false
	}
	if start < end {
		return t >= start && t < end
	}
	return t >= start || t < end
}
