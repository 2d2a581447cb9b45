// Package corpus lists and reads the documents of a notes vault.
package corpus

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("corpus: document not found")
	ErrNotText  = errors.New("corpus: document is not valid utf-8 text")
)

// Provider gives the review pipeline access to the current documents.
// Paths are slash separated and relative to the corpus root.
type Provider interface {
	List(ctx context.Context) ([]string, error)
	ReadText(path string) (string, error)
	ModTime(path string) (int64, error)
}
