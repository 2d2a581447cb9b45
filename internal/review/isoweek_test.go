package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestISOWeekKey(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-12-31", "2025-W01"},
		{"2025-01-01", "2025-W01"},
		{"2021-01-03", "2020-W53"},
		{"2021-01-04", "2021-W01"},
		{"2025-03-14", "2025-W11"},
		{"2026-12-31", "2026-W53"},
	}
	for _, tt := range tests {
		d, err := time.Parse(dateLayout, tt.date)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, ISOWeekKey(d), tt.date)
	}
}

func TestWeekWindow(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)

	// Tuesday
	start, end := WeekWindow(time.Date(2024, 12, 31, 15, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 1, 5, 23, 59, 59, 999999999, loc), end)

	// Sunday belongs to the week that started six days earlier
	start, _ = WeekWindow(time.Date(2025, 1, 5, 23, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, loc), start)

	// Monday midnight starts a new week
	start, _ = WeekWindow(time.Date(2025, 1, 6, 0, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, loc), start)
}

func TestDateKey(t *testing.T) {
	assert.Equal(t, "2025-01-02", DateKey(time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC)))
}
