// Package scheduler triggers the daily and weekly reviews.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openmined/notereview/internal/review"
)

var ErrReviewRunning = errors.New("scheduler: review already running")

const (
	DefaultInterval    = time.Minute
	DefaultSettleDelay = 10 * time.Second
)

type DailyRunner interface {
	RunDaily(ctx context.Context, day time.Time) (*review.Result, error)
}

type WeeklyRunner interface {
	Run(ctx context.Context, now time.Time) (*review.WeeklyResult, error)
}

// DailyChecker reports whether the daily review of a date was already written.
type DailyChecker interface {
	HasDaily(day time.Time) bool
}

type Config struct {
	DailyAt     TimeOfDay
	WeeklyDay   time.Weekday
	WeeklyAt    TimeOfDay
	Interval    time.Duration // tick interval
	Window      time.Duration // how long after a trigger time a tick may still fire it
	SettleDelay time.Duration // wait before the startup catch-up

	// AfterWeekly runs under the review lock after a successful weekly review.
	AfterWeekly func(ctx context.Context) error
}

type Scheduler struct {
	cfg     Config
	daily   DailyRunner
	weekly  WeeklyRunner
	checker DailyChecker
	now     func() time.Time

	muRun sync.Mutex // held for the duration of a review

	mu         sync.Mutex
	lastTick   time.Time
	lastDaily  string
	lastWeekly string
}

func New(cfg Config, daily DailyRunner, weekly WeeklyRunner, checker DailyChecker) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = cfg.Interval
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	return &Scheduler{
		cfg:     cfg,
		daily:   daily,
		weekly:  weekly,
		checker: checker,
		now:     time.Now,
	}
}

// Run waits for the settle delay, performs the missed-run catch-up and then ticks every
// interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler start",
		"daily", s.cfg.DailyAt,
		"weekly", fmt.Sprintf("%s %s", s.cfg.WeeklyDay, s.cfg.WeeklyAt),
		"interval", s.cfg.Interval,
	)

	settle := time.NewTimer(s.cfg.SettleDelay)
	select {
	case <-ctx.Done():
		settle.Stop()
		return nil
	case <-settle.C:
	}

	if err := s.CatchUp(ctx, s.now()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("catch-up failed", "error", err)
	}

	// timer, not ticker: a long review must not queue ticks
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stop")
			return nil
		case <-timer.C:
			if err := s.Tick(ctx, s.now()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("scheduled review failed", "error", err)
			}
			timer.Reset(s.cfg.Interval)
		}
	}
}

// Tick fires the daily and weekly reviews whose trigger time has been reached.
// Each trigger fires at most once per date.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	prev := s.lastTick
	s.lastTick = now
	dailyDue := s.due(now, prev, s.cfg.DailyAt.On(now), s.lastDaily)
	weeklyDue := now.Weekday() == s.cfg.WeeklyDay && s.due(now, prev, s.cfg.WeeklyAt.On(now), s.lastWeekly)
	s.mu.Unlock()

	var errs []error

	if dailyDue {
		err := s.RunDaily(ctx, now)
		if !errors.Is(err, ErrReviewRunning) {
			s.markDaily(now)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if weeklyDue {
		err := s.RunWeekly(ctx, now)
		if !errors.Is(err, ErrReviewRunning) {
			s.mu.Lock()
			s.lastWeekly = review.DateKey(now)
			s.mu.Unlock()
		}
		if errors.Is(err, review.ErrNoDailyReviews) {
			slog.Info("weekly review skipped", "reason", err)
			err = nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// due reports whether trigger was crossed since the previous tick, or lies within the window
// before now, and has not fired on this date yet.
func (s *Scheduler) due(now, prev, trigger time.Time, lastFired string) bool {
	if lastFired == review.DateKey(now) || now.Before(trigger) {
		return false
	}
	if !prev.IsZero() && prev.Before(trigger) {
		return true
	}
	return now.Before(trigger.Add(s.cfg.Window))
}

func (s *Scheduler) markDaily(day time.Time) {
	s.mu.Lock()
	s.lastDaily = review.DateKey(day)
	s.mu.Unlock()
}

// CatchUp makes up for a daily review missed while the process was not running.
// It runs at most one review: today's if its trigger time has passed, otherwise
// yesterday's if that one is missing. It never goes further back.
func (s *Scheduler) CatchUp(ctx context.Context, now time.Time) error {
	if s.checker.HasDaily(now) {
		slog.Debug("catch-up not needed", "date", review.DateKey(now))
		return nil
	}

	if !now.Before(s.cfg.DailyAt.On(now)) {
		slog.Info("catch-up", "date", review.DateKey(now), "reason", "today's review missing")
		// marked before running: a failed catch-up is retried at tomorrow's trigger, not by today's tick
		s.markDaily(now)
		return s.RunDaily(ctx, now)
	}

	yesterday := now.AddDate(0, 0, -1)
	if !s.checker.HasDaily(yesterday) {
		slog.Info("catch-up", "date", review.DateKey(yesterday), "reason", "yesterday's review missing")
		return s.RunDaily(ctx, yesterday)
	}

	return nil
}

// RunDaily runs a daily review unless another review is in progress.
func (s *Scheduler) RunDaily(ctx context.Context, day time.Time) error {
	if !s.muRun.TryLock() {
		return ErrReviewRunning
	}
	defer s.muRun.Unlock()

	_, err := s.daily.RunDaily(ctx, day)
	return err
}

// RunWeekly runs the weekly review unless another review is in progress.
func (s *Scheduler) RunWeekly(ctx context.Context, now time.Time) error {
	if !s.muRun.TryLock() {
		return ErrReviewRunning
	}
	defer s.muRun.Unlock()

	if _, err := s.weekly.Run(ctx, now); err != nil {
		return err
	}

	if s.cfg.AfterWeekly != nil {
		if err := s.cfg.AfterWeekly(ctx); err != nil {
			slog.Warn("after weekly hook failed", "error", err)
		}
	}
	return nil
}

// NextRuns returns the next daily and weekly trigger times after now.
func (s *Scheduler) NextRuns(now time.Time) (time.Time, time.Time) {
	return NextRuns(s.cfg, now)
}

func NextRuns(cfg Config, now time.Time) (time.Time, time.Time) {
	daily := cfg.DailyAt.On(now)
	if !daily.After(now) {
		daily = cfg.DailyAt.On(now.AddDate(0, 0, 1))
	}

	weekly := cfg.WeeklyAt.On(now)
	for i := 0; i <= 7; i++ {
		candidate := cfg.WeeklyAt.On(now.AddDate(0, 0, i))
		if candidate.Weekday() == cfg.WeeklyDay && candidate.After(now) {
			weekly = candidate
			break
		}
	}
	return daily, weekly
}
