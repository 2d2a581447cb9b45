package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/notereview/internal/config"
	"github.com/openmined/notereview/internal/scheduler"
	"github.com/openmined/notereview/internal/snapshot"
	"github.com/openmined/notereview/internal/workspace"
)

type IndexState string

const (
	IndexOK      IndexState = "ok"
	IndexEmpty   IndexState = "empty"
	IndexCorrupt IndexState = "corrupt"
)

// Status is a point in time summary of a workspace, printed by `notereview status`.
type Status struct {
	VaultDir     string          `json:"vaultDir"`
	DataDir      string          `json:"dataDir"`
	ReviewsDir   string          `json:"reviewsDir"`
	BlobBackend  string          `json:"blobBackend"`
	IndexState   IndexState      `json:"indexState"`
	IndexError   string          `json:"indexError,omitempty"`
	Documents    int             `json:"documents"`
	LastSnapshot time.Time       `json:"lastSnapshot"`
	Blobs        int             `json:"blobs"`
	Orphans      int             `json:"orphans"`
	LastDaily    string          `json:"lastDaily,omitempty"`
	LastWeekly   string          `json:"lastWeekly,omitempty"`
	NextDaily    time.Time       `json:"nextDaily"`
	NextWeekly   time.Time       `json:"nextWeekly"`
	Locked       bool            `json:"daemonRunning"`
	Index        *snapshot.Index `json:"index,omitempty"`
}

// Status reads the index, blob store and artifacts without modifying them.
// The full index is included when withIndex is set.
func (s *Storage) Status(ctx context.Context, now time.Time, withIndex bool) (*Status, error) {
	st := &Status{
		VaultDir:    s.Config.VaultDir,
		DataDir:     s.Config.DataDir,
		ReviewsDir:  s.Config.ReviewsDir,
		BlobBackend: s.Config.BlobBackend,
		IndexState:  IndexOK,
	}

	idx, err := s.Store.Load(ctx)
	switch {
	case errors.Is(err, snapshot.ErrIndexEmpty):
		st.IndexState = IndexEmpty
	case errors.Is(err, snapshot.ErrCorruptIndex):
		st.IndexState = IndexCorrupt
		st.IndexError = err.Error()
	case err != nil:
		return nil, fmt.Errorf("load snapshot index: %w", err)
	default:
		st.Documents = idx.Len()
		st.LastSnapshot = idx.LastSnapshotTime
		if withIndex {
			st.Index = idx
		}
	}

	// sqlite blobs share the index database, which cannot be read when corrupt
	if st.IndexState != IndexCorrupt || s.Config.BlobBackend != config.BackendSQLite {
		hashes, err := s.Blobs.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}
		st.Blobs = len(hashes)
		if idx != nil {
			st.Orphans = st.Blobs - idx.Hashes().Intersect(mapset.NewThreadUnsafeSet(hashes...)).Cardinality()
		}
	}

	if st.LastDaily, st.LastWeekly, err = s.Artifacts.LatestKeys(); err != nil {
		return nil, err
	}

	sched, err := s.Config.Schedule()
	if err != nil {
		return nil, err
	}
	st.NextDaily, st.NextWeekly = scheduler.NextRuns(sched, now)

	if err := s.Workspace.Lock(); errors.Is(err, workspace.ErrWorkspaceLocked) {
		st.Locked = true
	} else if err == nil {
		_ = s.Workspace.Unlock()
	}

	return st, nil
}
