package snapshot

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedBlobStore keeps recently used payloads in memory in front of another store.
type CachedBlobStore struct {
	inner BlobStore
	cache *lru.Cache[string, string]
}

func NewCachedBlobStore(inner BlobStore, size int) (*CachedBlobStore, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("blob cache: %w", err)
	}
	return &CachedBlobStore{inner: inner, cache: cache}, nil
}

// Put always writes through. The inner store may have lost the blob since it
// was cached (the sqlite backend is wiped by Store.Reset), and every backend
// treats a repeated Put as a no-op.
func (c *CachedBlobStore) Put(ctx context.Context, hash string, payload string) error {
	if err := c.inner.Put(ctx, hash, payload); err != nil {
		return err
	}
	c.cache.Add(hash, payload)
	return nil
}

func (c *CachedBlobStore) Get(ctx context.Context, hash string) (string, error) {
	if payload, ok := c.cache.Get(hash); ok {
		return payload, nil
	}
	payload, err := c.inner.Get(ctx, hash)
	if err != nil {
		return "", err
	}
	c.cache.Add(hash, payload)
	return payload, nil
}

func (c *CachedBlobStore) Delete(ctx context.Context, hash string) error {
	c.cache.Remove(hash)
	return c.inner.Delete(ctx, hash)
}

func (c *CachedBlobStore) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}
