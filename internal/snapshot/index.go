package snapshot

import (
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/notereview/internal/utils"
)

// Entry is the last observed state of one tracked document.
type Entry struct {
	Path         string `json:"path" db:"path"`
	ContentHash  string `json:"contentHash" db:"content_hash"`
	BlobRef      string `json:"blobRef" db:"blob_ref"`
	ModifiedTime int64  `json:"modifiedTime" db:"modified_time"` // unix seconds
}

// NewEntry builds an entry whose blob reference is derived from the hash.
func NewEntry(path, hash string, modifiedTime int64) Entry {
	return Entry{
		Path:         path,
		ContentHash:  hash,
		BlobRef:      BlobRef(hash),
		ModifiedTime: modifiedTime,
	}
}

// Validate checks the entry invariants: normalized path, hex hash and derived blob ref.
func (e Entry) Validate() error {
	if e.Path == "" || utils.NormPath(e.Path) != e.Path {
		return fmt.Errorf("entry path %q is not normalized", e.Path)
	}
	if !IsValidHash(e.ContentHash) {
		return fmt.Errorf("entry %q: %w", e.Path, ErrInvalidHash)
	}
	if e.BlobRef != BlobRef(e.ContentHash) {
		return fmt.Errorf("entry %q: blob ref %q does not match hash", e.Path, e.BlobRef)
	}
	if e.ModifiedTime < 0 {
		return fmt.Errorf("entry %q: negative modified time", e.Path)
	}
	return nil
}

// Index maps document paths to their last snapshot entry.
type Index struct {
	LastSnapshotTime time.Time        `json:"lastSnapshotTime"`
	Entries          map[string]Entry `json:"entries"`
}

func NewIndex() *Index {
	return &Index{Entries: make(map[string]Entry)}
}

func (i *Index) Len() int {
	return len(i.Entries)
}

func (i *Index) Get(path string) (Entry, bool) {
	e, ok := i.Entries[path]
	return e, ok
}

// Put adds or replaces the entry for e.Path.
func (i *Index) Put(e Entry) {
	if i.Entries == nil {
		i.Entries = make(map[string]Entry)
	}
	i.Entries[e.Path] = e
}

func (i *Index) Remove(path string) {
	delete(i.Entries, path)
}

// Paths returns the tracked paths in lexical order.
func (i *Index) Paths() []string {
	paths := make([]string, 0, len(i.Entries))
	for p := range i.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Hashes returns the set of content hashes referenced by the index.
func (i *Index) Hashes() mapset.Set[string] {
	set := mapset.NewThreadUnsafeSetWithSize[string](len(i.Entries))
	for _, e := range i.Entries {
		set.Add(e.ContentHash)
	}
	return set
}

// Clone returns a deep copy so callers can stage changes without touching the loaded index.
func (i *Index) Clone() *Index {
	c := &Index{
		LastSnapshotTime: i.LastSnapshotTime,
		Entries:          make(map[string]Entry, len(i.Entries)),
	}
	for k, v := range i.Entries {
		c.Entries[k] = v
	}
	return c
}
