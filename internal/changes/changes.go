// Package changes compares the current corpus against the snapshot index.
package changes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/notereview/internal/corpus"
	"github.com/openmined/notereview/internal/snapshot"
)

// FileChange describes one added, modified or deleted document.
type FileChange struct {
	Path    string `json:"path"`
	OldHash string `json:"oldHash,omitempty"`
	NewHash string `json:"newHash,omitempty"`

	// Diff is filled in for modified documents by the review run.
	Diff string `json:"diff,omitempty"`
	// DiffOmitted marks a modified document whose previous revision could not be loaded.
	DiffOmitted bool `json:"diffOmitted,omitempty"`

	// Text is the content that was hashed, kept so the stored blob matches NewHash.
	Text    string `json:"-"`
	ModTime int64  `json:"-"`
}

// ChangeSet is the result of one detection pass. Each list is sorted by path.
type ChangeSet struct {
	Added    []*FileChange `json:"added"`
	Modified []*FileChange `json:"modified"`
	Deleted  []*FileChange `json:"deleted"`
	Skipped  int           `json:"skipped"`
}

// Empty reports whether nothing was added, modified or deleted.
// Skipped documents do not count as changes.
func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

func (c *ChangeSet) Total() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

// Detector finds the documents that changed since the index was written.
type Detector struct {
	corpus corpus.Provider
}

func NewDetector(p corpus.Provider) *Detector {
	return &Detector{corpus: p}
}

// Detect lists the corpus, hashes every document and compares it with idx.
// A renamed document shows up as one deletion and one addition.
func (d *Detector) Detect(ctx context.Context, idx *snapshot.Index) (*ChangeSet, error) {
	paths, err := d.corpus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}

	cs := &ChangeSet{}
	present := mapset.NewThreadUnsafeSetWithSize[string](len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// listed but unreadable documents are still present
		present.Add(path)

		text, err := d.corpus.ReadText(path)
		if err != nil {
			slog.Warn("change detection skip", "path", path, "error", err)
			cs.Skipped++
			continue
		}

		hash := snapshot.Hash(text)
		entry, tracked := idx.Get(path)
		if tracked && entry.ContentHash == hash {
			continue
		}

		mtime, err := d.corpus.ModTime(path)
		if err != nil {
			slog.Warn("change detection mtime", "path", path, "error", err)
		}

		change := &FileChange{
			Path:    path,
			NewHash: hash,
			Text:    text,
			ModTime: mtime,
		}
		if tracked {
			change.OldHash = entry.ContentHash
			cs.Modified = append(cs.Modified, change)
		} else {
			cs.Added = append(cs.Added, change)
		}
	}

	for _, path := range idx.Paths() {
		if present.Contains(path) {
			continue
		}
		entry, _ := idx.Get(path)
		cs.Deleted = append(cs.Deleted, &FileChange{Path: path, OldHash: entry.ContentHash})
	}

	sortChanges(cs.Added)
	sortChanges(cs.Modified)
	sortChanges(cs.Deleted)

	slog.Debug("changes detected",
		"added", len(cs.Added),
		"modified", len(cs.Modified),
		"deleted", len(cs.Deleted),
		"skipped", cs.Skipped,
	)
	return cs, nil
}

func sortChanges(c []*FileChange) {
	sort.Slice(c, func(i, j int) bool { return c[i].Path < c[j].Path })
}
