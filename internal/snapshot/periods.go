package snapshot

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of every date exchanged with the coaching service.
const DateLayout = "2006-01-02"

const (
	PeriodCurrentWeek   = "CURRENT_WEEK"
	PeriodPreviousWeek  = "PREVIOUS_WEEK"
	PeriodCurrentMonth  = "CURRENT_MONTH"
	PeriodPreviousMonth = "PREVIOUS_MONTH"
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekBounds returns the Monday-based week containing t, shifted by offset weeks.
func WeekBounds(t time.Time, offset int) (time.Time, time.Time) {
	day := startOfDay(t)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -sinceMonday+7*offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns [first day of month, first day of next month).
// Month overflow is normalised, so month 0 is December of the previous year.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// RelativeMonthBounds returns the month containing t shifted by offset months.
func RelativeMonthBounds(t time.Time, offset int) (time.Time, time.Time) {
	return MonthBounds(t.Year(), t.Month()+time.Month(offset), t.Location())
}

// PeriodToDates resolves a named period relative to today.
func PeriodToDates(key string, today time.Time) (time.Time, time.Time, error) {
	switch key {
	case PeriodCurrentWeek:
		start, end := WeekBounds(today, 0)
		return start, end, nil
	case PeriodPreviousWeek:
		start, end := WeekBounds(today, -1)
		return start, end, nil
	case PeriodCurrentMonth:
		start, end := RelativeMonthBounds(today, 0)
		return start, end, nil
	case PeriodPreviousMonth:
		start, end := RelativeMonthBounds(today, -1)
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period: %s", key)
	}
}

// FormatPeriod renders [start, end) in the wire layout.
func FormatPeriod(start, end time.Time) Period {
	return Period{Start: start.Format(DateLayout), End: end.Format(DateLayout)}
}

// ParseDate parses a wire date in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, value, loc)
}

// Label names a period: ISO week for exact Monday weeks, otherwise the date span.
func Label(start, end time.Time) string {
	ws, we := WeekBounds(start, 0)
	if ws.Equal(start) && we.Equal(end) {
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return fmt.Sprintf("%s → %s", start.Format(DateLayout), end.Format(DateLayout))
}
