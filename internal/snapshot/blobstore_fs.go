package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openmined/notereview/internal/utils"
)

// FSBlobStore stores each blob as <dir>/<hash>.sn.
type FSBlobStore struct {
	dir string
}

func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("blob dir: %w", err)
	}
	return &FSBlobStore{dir: dir}, nil
}

func (b *FSBlobStore) path(hash string) string {
	return filepath.Join(b.dir, BlobRef(hash))
}

func (b *FSBlobStore) Put(_ context.Context, hash string, payload string) error {
	if !IsValidHash(hash) {
		return ErrInvalidHash
	}
	p := b.path(hash)
	if utils.FileExists(p) {
		return nil
	}
	return utils.WriteFileAtomic(p, []byte(payload), 0o644)
}

func (b *FSBlobStore) Get(_ context.Context, hash string) (string, error) {
	if !IsValidHash(hash) {
		return "", ErrInvalidHash
	}
	data, err := os.ReadFile(b.path(hash))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrBlobNotFound, hash)
	} else if err != nil {
		return "", fmt.Errorf("read blob: %w", err)
	}
	return string(data), nil
}

func (b *FSBlobStore) Delete(_ context.Context, hash string) error {
	if !IsValidHash(hash) {
		return ErrInvalidHash
	}
	if err := os.Remove(b.path(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (b *FSBlobStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	hashes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		hash, ok := strings.CutSuffix(e.Name(), BlobSuffix)
		if !ok || !IsValidHash(hash) {
			continue
		}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes, nil
}
