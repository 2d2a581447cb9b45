// Package review runs the daily and weekly review state machines.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openmined/notereview/internal/changes"
	"github.com/openmined/notereview/internal/corpus"
	"github.com/openmined/notereview/internal/diff"
	"github.com/openmined/notereview/internal/generate"
	"github.com/openmined/notereview/internal/snapshot"
)

// Kind tells which branch a daily run took.
type Kind string

const (
	KindBootstrap Kind = "bootstrap"
	KindNoChanges Kind = "no-changes"
	KindChanges   Kind = "changes"
)

// Result describes a finished daily run.
type Result struct {
	RunID     string             `json:"runId"`
	Kind      Kind               `json:"kind"`
	Key       string             `json:"key"`
	Path      string             `json:"path"`
	Documents int                `json:"documents"` // entries in the index after the run
	Changes   *changes.ChangeSet `json:"changes,omitempty"`
	Skipped   int                `json:"skipped"`
}

type Options struct {
	MaxDiffLines int
	Now          func() time.Time
}

// Reviewer owns the snapshot index and blob store for the duration of a run.
// Runs must not overlap; the scheduler serializes them.
type Reviewer struct {
	store     *snapshot.Store
	blobs     snapshot.BlobStore
	corpus    corpus.Provider
	detector  *changes.Detector
	gen       generate.Generator
	artifacts *Artifacts

	maxDiffLines int
	now          func() time.Time
}

func NewReviewer(store *snapshot.Store, blobs snapshot.BlobStore, p corpus.Provider, gen generate.Generator, artifacts *Artifacts, opts Options) *Reviewer {
	if opts.MaxDiffLines <= 0 {
		opts.MaxDiffLines = diff.DefaultMaxLines
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reviewer{
		store:        store,
		blobs:        blobs,
		corpus:       p,
		detector:     changes.NewDetector(p),
		gen:          gen,
		artifacts:    artifacts,
		maxDiffLines: opts.MaxDiffLines,
		now:          opts.Now,
	}
}

func (r *Reviewer) Artifacts() *Artifacts {
	return r.artifacts
}

// RunDaily produces the daily review attributed to day.
// With no usable index it bootstraps; otherwise it reports the changes since the last run.
func (r *Reviewer) RunDaily(ctx context.Context, day time.Time) (*Result, error) {
	runID := uuid.NewString()
	log := slog.With("run", runID, "date", DateKey(day))

	idx, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, snapshot.ErrIndexEmpty):
		log.Info("review bootstrap", "reason", "no snapshot index")
		return r.bootstrap(ctx, log, runID, day)

	case errors.Is(err, snapshot.ErrCorruptIndex):
		log.Warn("review bootstrap", "reason", "snapshot index corrupt, rebuilding", "error", err)
		if err := r.store.Reset(); err != nil {
			return nil, err
		}
		return r.bootstrap(ctx, log, runID, day)

	case err != nil:
		return nil, fmt.Errorf("load snapshot index: %w", err)
	}

	return r.incremental(ctx, log, runID, day, idx)
}

func (r *Reviewer) bootstrap(ctx context.Context, log *slog.Logger, runID string, day time.Time) (*Result, error) {
	paths, err := r.corpus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}

	idx := snapshot.NewIndex()
	overview := corpus.NewOverviewBuilder()
	skipped := 0

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := r.corpus.ReadText(path)
		if err != nil {
			log.Warn("bootstrap skip", "path", path, "error", err)
			skipped++
			continue
		}

		hash, err := snapshot.PutText(ctx, r.blobs, text)
		if err != nil {
			return nil, err
		}

		mtime, err := r.corpus.ModTime(path)
		if err != nil {
			log.Warn("bootstrap mtime", "path", path, "error", err)
		}

		idx.Put(snapshot.NewEntry(path, hash, mtime))
		overview.Add(path, text)
	}

	report, err := r.gen.Generate(ctx, overviewPrompt(day, overview.Build()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	artifact, err := r.artifacts.WriteDaily(day, report)
	if err != nil {
		return nil, err
	}

	idx.LastSnapshotTime = r.now()
	if err := r.store.Save(ctx, idx); err != nil {
		return nil, err
	}

	log.Info("review done", "kind", KindBootstrap, "documents", idx.Len(), "skipped", skipped, "artifact", artifact)
	return &Result{
		RunID:     runID,
		Kind:      KindBootstrap,
		Key:       DateKey(day),
		Path:      artifact,
		Documents: idx.Len(),
		Skipped:   skipped,
	}, nil
}

func (r *Reviewer) incremental(ctx context.Context, log *slog.Logger, runID string, day time.Time, idx *snapshot.Index) (*Result, error) {
	cs, err := r.detector.Detect(ctx, idx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Key:       DateKey(day),
		Documents: idx.Len(),
		Changes:   cs,
		Skipped:   cs.Skipped,
	}

	if cs.Empty() {
		artifact, err := r.artifacts.WriteDaily(day, noChangesReport(day, cs.Skipped))
		if err != nil {
			return nil, err
		}
		log.Info("review done", "kind", KindNoChanges, "skipped", cs.Skipped, "artifact", artifact)
		result.Kind = KindNoChanges
		result.Path = artifact
		return result, nil
	}

	for _, m := range cs.Modified {
		old, err := snapshot.GetText(ctx, r.blobs, m.OldHash)
		if errors.Is(err, snapshot.ErrBlobNotFound) || errors.Is(err, snapshot.ErrCorruptBlob) {
			log.Warn("diff omitted", "path", m.Path, "error", err)
			m.DiffOmitted = true
			continue
		} else if err != nil {
			return nil, fmt.Errorf("load previous revision of %s: %w", m.Path, err)
		}
		m.Diff = diff.Lines(old, m.Text, r.maxDiffLines)
	}

	report, err := r.gen.Generate(ctx, dailyPrompt(day, cs))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	artifact, err := r.artifacts.WriteDaily(day, report)
	if err != nil {
		return nil, err
	}

	// blobs first, index last: an interrupted run leaves orphans, never dangling entries
	next := idx.Clone()
	for _, group := range [][]*changes.FileChange{cs.Added, cs.Modified} {
		for _, c := range group {
			hash, err := snapshot.PutText(ctx, r.blobs, c.Text)
			if err != nil {
				return nil, err
			}
			next.Put(snapshot.NewEntry(c.Path, hash, c.ModTime))
		}
	}
	for _, c := range cs.Deleted {
		next.Remove(c.Path)
	}

	next.LastSnapshotTime = r.now()
	if err := r.store.Save(ctx, next); err != nil {
		return nil, err
	}

	log.Info("review done",
		"kind", KindChanges,
		"added", len(cs.Added),
		"modified", len(cs.Modified),
		"deleted", len(cs.Deleted),
		"skipped", cs.Skipped,
		"artifact", artifact,
	)
	result.Kind = KindChanges
	result.Path = artifact
	result.Documents = next.Len()
	return result, nil
}
