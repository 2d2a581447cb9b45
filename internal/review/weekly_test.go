package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openmined/notereview/internal/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekly_NoDailyReviews(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	_, err := NewWeekly(a, generate.Echo{}).Run(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrNoDailyReviews)

	// reviews outside the window do not count
	_, err = a.WriteDaily(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "old")
	require.NoError(t, err)
	_, err = NewWeekly(a, generate.Echo{}).Run(context.Background(), time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNoDailyReviews)
}

func TestWeekly_Run(t *testing.T) {
	dir := t.TempDir()
	a := NewArtifacts(dir)

	write := func(date, content string) {
		d, err := time.Parse(dateLayout, date)
		require.NoError(t, err)
		_, err = a.WriteDaily(d, content)
		require.NoError(t, err)
	}
	write("2024-12-29", "previous week")
	write("2025-01-02", "thursday work")
	write("2024-12-30", "monday work")
	write("2025-01-05", "sunday work")
	write("2025-01-06", "next week")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daily", "notes.md"), []byte("not a date"), 0o644))

	now := time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC)
	res, err := NewWeekly(a, generate.Echo{}).Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2025-W01", res.Key)
	assert.Equal(t, 3, res.Days)
	assert.Equal(t, filepath.Join(dir, "weekly", "2025-W01.md"), res.Path)

	content, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	report := string(content)
	assert.NotContains(t, report, "previous week")
	assert.NotContains(t, report, "next week")

	mon := strings.Index(report, "monday work")
	thu := strings.Index(report, "thursday work")
	sun := strings.Index(report, "sunday work")
	assert.True(t, mon >= 0 && mon < thu && thu < sun, "daily reviews in date order")

	// rerun overwrites
	write("2025-01-03", "friday work")
	res, err = NewWeekly(a, generate.Echo{}).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Days)
}

func TestWeekly_GenerationFailure(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	now := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	_, err := a.WriteDaily(now, "today")
	require.NoError(t, err)

	failing := generate.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	})
	_, err = NewWeekly(a, failing).Run(context.Background(), now)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.NoFileExists(t, a.WeeklyPath(now))
}
