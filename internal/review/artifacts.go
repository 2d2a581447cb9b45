package review

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openmined/notereview/internal/utils"
)

const (
	dailyDir    = "daily"
	weeklyDir   = "weekly"
	artifactExt = ".md"
)

// DailyArtifact is one persisted daily review.
type DailyArtifact struct {
	Key     string
	Date    time.Time
	Content string
}

// Artifacts stores review reports as markdown files under a reviews directory.
type Artifacts struct {
	dir string
}

func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{dir: dir}
}

func (a *Artifacts) Dir() string {
	return a.dir
}

func (a *Artifacts) DailyPath(day time.Time) string {
	return filepath.Join(a.dir, dailyDir, DateKey(day)+artifactExt)
}

func (a *Artifacts) WeeklyPath(t time.Time) string {
	return filepath.Join(a.dir, weeklyDir, ISOWeekKey(t)+artifactExt)
}

func (a *Artifacts) HasDaily(day time.Time) bool {
	return utils.FileExists(a.DailyPath(day))
}

// WriteDaily persists content as the daily review of day, replacing any earlier one.
func (a *Artifacts) WriteDaily(day time.Time, content string) (string, error) {
	path := a.DailyPath(day)
	if err := utils.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write daily review: %w", err)
	}
	return path, nil
}

func (a *Artifacts) ReadDaily(day time.Time) (string, error) {
	data, err := os.ReadFile(a.DailyPath(day))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteWeekly persists content as the review of t's ISO week, replacing any earlier one.
func (a *Artifacts) WriteWeekly(t time.Time, content string) (string, error) {
	path := a.WeeklyPath(t)
	if err := utils.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write weekly review: %w", err)
	}
	return path, nil
}

// DailyBetween returns the daily reviews dated within [start, end] in date order.
// Dates are interpreted in start's location. Files whose name is not a date are ignored.
func (a *Artifacts) DailyBetween(start, end time.Time) ([]DailyArtifact, error) {
	dir := filepath.Join(a.dir, dailyDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("list daily reviews: %w", err)
	}

	var out []DailyArtifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := strings.CutSuffix(e.Name(), artifactExt)
		if !ok {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, key, start.Location())
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read daily review %s: %w", key, err)
		}
		out = append(out, DailyArtifact{Key: key, Date: date, Content: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LatestKeys returns the newest daily and weekly review keys, empty when there are none.
// Both key formats sort chronologically as strings.
func (a *Artifacts) LatestKeys() (daily string, weekly string, err error) {
	if daily, err = latestKey(filepath.Join(a.dir, dailyDir)); err != nil {
		return "", "", err
	}
	if weekly, err = latestKey(filepath.Join(a.dir, weeklyDir)); err != nil {
		return "", "", err
	}
	return daily, weekly, nil
}

func latestKey(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("list reviews: %w", err)
	}

	latest := ""
	for _, e := range entries {
		key, ok := strings.CutSuffix(e.Name(), artifactExt)
		if ok && !e.IsDir() && key > latest {
			latest = key
		}
	}
	return latest, nil
}
