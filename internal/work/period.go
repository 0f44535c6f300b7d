package work

import (
	"fmt"
	"time"
)

// Period is the span an elapsed summary covers.
type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
)

// ParsePeriod accepts day, week or month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Day, Week, Month:
		return p, nil
	}
	return "", fmt.Errorf("invalid period %q, expected day, week or month", s)
}

// StartOfDay is 00:00:00 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is 23:59:59 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// Range returns the first and last second of the period containing now.
// Weeks run Sunday to Saturday.
func Range(p Period, now time.Time) (start, end time.Time, err error) {
	switch p {
	case Day:
		return StartOfDay(now), EndOfDay(now), nil
	case Week:
		sunday := now.AddDate(0, 0, -int(now.Weekday()))
		return StartOfDay(sunday), EndOfDay(sunday.AddDate(0, 0, 6)), nil
	case Month:
		y, m, _ := now.Date()
		first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		return first, EndOfDay(first.AddDate(0, 1, -1)), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q", p)
}

// PrevOptions is the stored setting of the previous work list.
type PrevOptions struct {
	Count int    `json:"count"`
	Type  Period `json:"type"`
}

// DefaultPrevOptions is the last day.
var DefaultPrevOptions = PrevOptions{Count: 1, Type: Day}

// Validate allows 1 to 30 days or weeks.
func (o PrevOptions) Validate() error {
	if o.Count < 1 || o.Count > 30 {
		return fmt.Errorf("count must be between 1 and 30, got %d", o.Count)
	}
	if o.Type != Day && o.Type != Week {
		return fmt.Errorf("type must be day or week, got %q", o.Type)
	}
	return nil
}

// Timeframe runs from midnight Count days (or weeks) ago to the end of today.
func (o PrevOptions) Timeframe(now time.Time) (start, end time.Time, err error) {
	if err := o.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	days := o.Count
	if o.Type == Week {
		days *= 7
	}
	return StartOfDay(now.AddDate(0, 0, -days)), EndOfDay(now), nil
}

// FormatElapsed renders d as hours and minutes, e.g. 0:05 or 12:30.
func FormatElapsed(d time.Duration) string {
	m := int64(d / time.Minute)
	return fmt.Sprintf("%d:%02d", m/60, m%60)
}
