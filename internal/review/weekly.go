package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openmined/notereview/internal/generate"
)

type WeeklyResult struct {
	RunID string `json:"runId"`
	Key   string `json:"key"`
	Path  string `json:"path"`
	Days  int    `json:"days"`
}

// Weekly aggregates the daily reviews of one ISO week.
type Weekly struct {
	artifacts *Artifacts
	gen       generate.Generator
}

func NewWeekly(artifacts *Artifacts, gen generate.Generator) *Weekly {
	return &Weekly{artifacts: artifacts, gen: gen}
}

// Run writes the weekly review for the ISO week containing now.
// It fails with ErrNoDailyReviews when the week has no daily review yet.
func (w *Weekly) Run(ctx context.Context, now time.Time) (*WeeklyResult, error) {
	runID := uuid.NewString()
	key := ISOWeekKey(now)
	start, end := WeekWindow(now)

	days, err := w.artifacts.DailyBetween(start, end)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w (%s, %s to %s)", ErrNoDailyReviews, key, DateKey(start), DateKey(end))
	}

	report, err := w.gen.Generate(ctx, weeklyPrompt(now, days))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	path, err := w.artifacts.WriteWeekly(now, report)
	if err != nil {
		return nil, err
	}

	slog.Info("weekly review done", "run", runID, "week", key, "days", len(days), "artifact", path)
	return &WeeklyResult{RunID: runID, Key: key, Path: path, Days: len(days)}, nil
}
