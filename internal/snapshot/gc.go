package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// CollectOrphans deletes blobs that no entry of idx references and returns their hashes.
// With dryRun set nothing is deleted. The caller must hold the review lock so no run
// is writing blobs that its index does not reference yet.
func CollectOrphans(ctx context.Context, idx *Index, blobs BlobStore, dryRun bool) ([]string, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, fmt.Errorf("orphan collection needs a loaded index: %w", ErrIndexEmpty)
	}

	stored, err := blobs.List(ctx)
	if err != nil {
		return nil, err
	}

	orphans := mapset.NewThreadUnsafeSet(stored...).Difference(idx.Hashes()).ToSlice()
	sort.Strings(orphans)

	if dryRun {
		return orphans, nil
	}

	for _, hash := range orphans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := blobs.Delete(ctx, hash); err != nil {
			return nil, fmt.Errorf("delete orphan %s: %w", hash, err)
		}
	}

	slog.Info("orphan blobs collected", "deleted", len(orphans), "kept", len(stored)-len(orphans))
	return orphans, nil
}
