package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Validate(t *testing.T) {
	h := Hash("x")

	assert.NoError(t, NewEntry("a/b.md", h, 10).Validate())
	assert.Error(t, NewEntry("", h, 10).Validate())
	assert.Error(t, NewEntry("/a/b.md", h, 10).Validate())
	assert.Error(t, NewEntry("a\\b.md", h, 10).Validate())
	assert.Error(t, NewEntry("a.md", "nothex", 10).Validate())
	assert.Error(t, NewEntry("a.md", h, -1).Validate())

	bad := NewEntry("a.md", h, 10)
	bad.BlobRef = "other.sn"
	assert.Error(t, bad.Validate())
}

func TestIndex_Basics(t *testing.T) {
	idx := NewIndex()
	idx.Put(NewEntry("b.md", Hash("b"), 2))
	idx.Put(NewEntry("a.md", Hash("a"), 1))
	idx.Put(NewEntry("c.md", Hash("a"), 3))

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, idx.Paths())
	assert.Equal(t, 2, idx.Hashes().Cardinality())

	e, ok := idx.Get("a.md")
	require.True(t, ok)
	assert.Equal(t, Hash("a")+".sn", e.BlobRef)

	idx.Remove("a.md")
	_, ok = idx.Get("a.md")
	assert.False(t, ok)
}

func TestIndex_Clone(t *testing.T) {
	idx := NewIndex()
	idx.LastSnapshotTime = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	idx.Put(NewEntry("a.md", Hash("a"), 1))

	c := idx.Clone()
	c.Put(NewEntry("b.md", Hash("b"), 1))

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, idx.LastSnapshotTime, c.LastSnapshotTime)
}
