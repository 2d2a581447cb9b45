package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BlobStore is content-addressed storage for compressed document text.
// Keys are content hashes. Putting an existing key is a no-op.
type BlobStore interface {
	Put(ctx context.Context, hash string, payload string) error
	Get(ctx context.Context, hash string) (string, error)
	Delete(ctx context.Context, hash string) error
	List(ctx context.Context) ([]string, error)
}

// PutText compresses text and stores it under its content hash.
func PutText(ctx context.Context, blobs BlobStore, text string) (string, error) {
	hash := Hash(text)
	payload, err := Compress(text)
	if err != nil {
		return "", err
	}
	if err := blobs.Put(ctx, hash, payload); err != nil {
		return "", fmt.Errorf("put blob %s: %w", hash, err)
	}
	return hash, nil
}

// GetText fetches and decompresses the blob for hash.
// The decoded text must hash back to the key, otherwise ErrCorruptBlob is returned.
func GetText(ctx context.Context, blobs BlobStore, hash string) (string, error) {
	payload, err := blobs.Get(ctx, hash)
	if err != nil {
		return "", err
	}
	text, err := Decompress(payload)
	if err != nil {
		return "", fmt.Errorf("blob %s: %w", hash, err)
	}
	if Hash(text) != hash {
		return "", fmt.Errorf("%w: blob %s content does not match its hash", ErrCorruptBlob, hash)
	}
	return text, nil
}

// SQLiteBlobStore keeps blobs in the same database as the index.
type SQLiteBlobStore struct {
	store *Store
}

func NewSQLiteBlobStore(store *Store) *SQLiteBlobStore {
	return &SQLiteBlobStore{store: store}
}

func (b *SQLiteBlobStore) Put(ctx context.Context, hash string, payload string) error {
	if !IsValidHash(hash) {
		return ErrInvalidHash
	}
	conn, err := b.store.conn()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO blobs (hash, payload, size, created_at) VALUES (?, ?, ?, ?)",
		hash, payload, len(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert blob: %w", err)
	}
	return nil
}

func (b *SQLiteBlobStore) Get(ctx context.Context, hash string) (string, error) {
	if !IsValidHash(hash) {
		return "", ErrInvalidHash
	}
	conn, err := b.store.conn()
	if err != nil {
		return "", err
	}
	var payload string
	err = conn.GetContext(ctx, &payload, "SELECT payload FROM blobs WHERE hash = ?", hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrBlobNotFound, hash)
	} else if err != nil {
		return "", fmt.Errorf("query blob: %w", err)
	}
	return payload, nil
}

func (b *SQLiteBlobStore) Delete(ctx context.Context, hash string) error {
	conn, err := b.store.conn()
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM blobs WHERE hash = ?", hash); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (b *SQLiteBlobStore) List(ctx context.Context) ([]string, error) {
	conn, err := b.store.conn()
	if err != nil {
		return nil, err
	}
	var hashes []string
	if err := conn.SelectContext(ctx, &hashes, "SELECT hash FROM blobs ORDER BY hash"); err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return hashes, nil
}
