package review

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateKey is the artifact key of a daily review.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ISOWeekKey returns the ISO-8601 week key of t, e.g. 2024-12-31 -> "2025-W01".
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekWindow returns the Monday 00:00 and Sunday 23:59:59.999999999 bounding the ISO week of t,
// in t's location.
func WeekWindow(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	offset := int(t.Weekday()+6) % 7 // days since Monday
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d-offset+7, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
	return start, end
}
