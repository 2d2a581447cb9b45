package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/notereview/internal/config"
	"github.com/openmined/notereview/internal/corpus"
	"github.com/openmined/notereview/internal/generate"
	"github.com/openmined/notereview/internal/review"
	"github.com/openmined/notereview/internal/scheduler"
	"github.com/openmined/notereview/internal/utils"
	"golang.org/x/sync/errgroup"
)

type options struct {
	gen generate.Generator
	now func() time.Time
}

type Option func(*options)

// WithGenerator replaces the generator configured in the generator section.
func WithGenerator(gen generate.Generator) Option {
	return func(o *options) {
		o.gen = gen
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// App is a fully wired notereview instance.
type App struct {
	*Storage

	Vault     *corpus.Vault
	Reviewer  *review.Reviewer
	Weekly    *review.Weekly
	Scheduler *scheduler.Scheduler
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	vault, err := corpus.NewVault(cfg.VaultDir, corpus.VaultOptions{
		Include: cfg.Include,
		Ignore:  append(vaultExclusions(cfg), cfg.Ignore...),
	})
	if err != nil {
		storage.Close()
		return nil, err
	}

	gen := o.gen
	if gen == nil {
		if gen, err = newGenerator(cfg.Generator); err != nil {
			storage.Close()
			return nil, err
		}
	}

	sched, err := cfg.Schedule()
	if err != nil {
		storage.Close()
		return nil, err
	}

	a := &App{
		Storage: storage,
		Vault:   vault,
		Reviewer: review.NewReviewer(storage.Store, storage.Blobs, vault, gen, storage.Artifacts, review.Options{
			MaxDiffLines: cfg.MaxDiffLines,
			Now:          o.now,
		}),
		Weekly: review.NewWeekly(storage.Artifacts, gen),
	}

	if cfg.GCAfterWeekly {
		sched.AfterWeekly = a.collectAfterWeekly
	}
	a.Scheduler = scheduler.New(sched, a.Reviewer, a.Weekly, storage.Artifacts)

	return a, nil
}

func newGenerator(cfg config.GeneratorConfig) (generate.Generator, error) {
	switch cfg.Provider {
	case config.ProviderEcho:
		return generate.Echo{}, nil
	case config.ProviderOpenAI, "":
		client := cfg.Client()
		slog.Debug("generator", "provider", cfg.Provider, "url", client.BaseURL, "model", client.Model, "key", utils.MaskSecret(client.APIKey))
		return generate.NewOpenAIClient(client)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// vaultExclusions keeps the reviews and data directories out of the corpus when they
// live inside the vault, so reports never review themselves.
func vaultExclusions(cfg *config.Config) []string {
	var lines []string
	for _, dir := range []string{cfg.ReviewsDir, cfg.DataDir} {
		rel, err := filepath.Rel(cfg.VaultDir, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		lines = append(lines, "/"+filepath.ToSlash(rel)+"/")
	}
	return lines
}

func (a *App) collectAfterWeekly(ctx context.Context) error {
	orphans, err := a.CollectOrphans(ctx, false)
	if err != nil {
		return err
	}
	slog.Info("gc after weekly", "deleted", len(orphans))
	return nil
}

// Start runs the scheduler until ctx is done. It holds the workspace lock for its lifetime.
func (a *App) Start(ctx context.Context) error {
	if err := a.Workspace.Setup(); err != nil {
		return err
	}
	defer a.Workspace.Unlock()

	slog.Info("daemon start", "vault", a.Config.VaultDir, "reviews", a.Config.ReviewsDir)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := a.Scheduler.Run(egCtx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping daemon")
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon failure", "error", err)
		return err
	}

	slog.Info("daemon stopped")
	return nil
}

// RunDaily runs one daily review outside the scheduler, under the workspace lock.
func (a *App) RunDaily(ctx context.Context, day time.Time) (*review.Result, error) {
	if err := a.Workspace.Setup(); err != nil {
		return nil, err
	}
	defer a.Workspace.Unlock()

	return a.Reviewer.RunDaily(ctx, day)
}

// RunWeekly runs the weekly review of now's ISO week, under the workspace lock.
func (a *App) RunWeekly(ctx context.Context, now time.Time) (*review.WeeklyResult, error) {
	if err := a.Workspace.Setup(); err != nil {
		return nil, err
	}
	defer a.Workspace.Unlock()

	res, err := a.Weekly.Run(ctx, now)
	if err != nil {
		return nil, err
	}

	if a.Config.GCAfterWeekly {
		if err := a.collectAfterWeekly(ctx); err != nil {
			slog.Warn("gc after weekly failed", "error", err)
		}
	}
	return res, nil
}
