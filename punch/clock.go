package punch

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// CLOCK TIME - "HH:MM" time of day as minutes past midnight
// =============================================================================

// ClockTime is a time of day stored as minutes past midnight. Its wire
// format is "HH:MM", the shape the schedule documents use.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime(h*60 + m), nil
}

// MustParseClockTime parses "HH:MM" and panics on malformed input.
// For constants and tests.
func MustParseClockTime(s string) ClockTime {
	ct, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return ct
}

func (c ClockTime) Hour() int    { return int(c) / 60 }
func (c ClockTime) Minute() int  { return int(c) % 60 }
func (c ClockTime) Minutes() int { return int(c) }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalJSON emits the "HH:MM" wire format.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM". An empty string is zero (midnight), which
// matches inactive schedule entries that carry blank start/end fields.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = 0
		return nil
	}
	ct, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

// =============================================================================
// DAY HELPERS
// =============================================================================

// DayKey formats a calendar day as "2006-01-02" in the time's own location.
// All per-day grouping in the engine keys on this.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// SameDay reports whether a and b fall on the same calendar day when both
// are viewed in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// MinuteOfDay returns t's position within its day in minutes, comparable
// against ClockTime values.
func MinuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// DayBounds returns [start, end) of t's calendar day in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns [start, end) of a calendar month in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// AtClock pins a clock time onto a calendar day.
func AtClock(day time.Time, c ClockTime) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location())
}
