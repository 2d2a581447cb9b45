// Package app wires the notereview components together from a validated config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/notereview/internal/blob"
	"github.com/openmined/notereview/internal/config"
	"github.com/openmined/notereview/internal/review"
	"github.com/openmined/notereview/internal/snapshot"
	"github.com/openmined/notereview/internal/workspace"
)

// Storage is the persistent half of the app: the snapshot index, blob backend and artifacts.
// It can be opened without taking the workspace lock for read-only commands.
type Storage struct {
	Config    *config.Config
	Workspace *workspace.Workspace
	Store     *snapshot.Store
	Blobs     snapshot.BlobStore
	Artifacts *review.Artifacts
}

func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	ws, err := workspace.NewWorkspace(cfg.VaultDir, cfg.DataDir, cfg.ReviewsDir)
	if err != nil {
		return nil, err
	}

	store := snapshot.NewStore(ws.SnapshotDBPath())

	blobs, err := newBlobStore(ctx, cfg, ws, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Storage{
		Config:    cfg,
		Workspace: ws,
		Store:     store,
		Blobs:     blobs,
		Artifacts: review.NewArtifacts(ws.ReviewsDir),
	}, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, ws *workspace.Workspace, store *snapshot.Store) (snapshot.BlobStore, error) {
	var (
		blobs snapshot.BlobStore
		err   error
	)

	switch cfg.BlobBackend {
	case config.BackendSQLite, "":
		blobs = snapshot.NewSQLiteBlobStore(store)
	case config.BackendFS:
		blobs, err = snapshot.NewFSBlobStore(ws.BlobsDir)
	case config.BackendS3:
		blobs, err = blob.NewS3BlobStore(ctx, cfg.S3)
	default:
		err = fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}

	slog.Debug("blob store", "backend", cfg.BlobBackend, "cache", cfg.BlobCacheSize)
	if cfg.BlobCacheSize > 0 {
		return snapshot.NewCachedBlobStore(blobs, cfg.BlobCacheSize)
	}
	return blobs, nil
}

func (s *Storage) Close() error {
	return s.Store.Close()
}

// CollectOrphans removes blobs not referenced by the persisted index.
func (s *Storage) CollectOrphans(ctx context.Context, dryRun bool) ([]string, error) {
	idx, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot index: %w", err)
	}
	return snapshot.CollectOrphans(ctx, idx, s.Blobs, dryRun)
}
