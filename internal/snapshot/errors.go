package snapshot

import "errors"

var (
	// ErrIndexEmpty means there is no prior snapshot state. A review run bootstraps.
	ErrIndexEmpty = errors.New("snapshot: index empty")

	// ErrCorruptIndex means the index record exists but cannot be read.
	// The review run discards it and rebuilds from scratch.
	ErrCorruptIndex = errors.New("snapshot: index corrupt")

	// ErrBlobNotFound is returned by BlobStore.Get for an unknown hash.
	ErrBlobNotFound = errors.New("snapshot: blob not found")

	// ErrCorruptBlob is returned when a stored payload cannot be decoded back to the original text.
	ErrCorruptBlob = errors.New("snapshot: blob corrupt")

	// ErrInvalidHash is returned for keys that are not a hex sha256 digest.
	ErrInvalidHash = errors.New("snapshot: invalid content hash")
)
