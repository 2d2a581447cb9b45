package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectOrphans(t *testing.T) {
	ctx := context.Background()
	bs := NewSQLiteBlobStore(newTestStore(t))

	keep, err := PutText(ctx, bs, "keep")
	require.NoError(t, err)
	orphan1, err := PutText(ctx, bs, "old version 1")
	require.NoError(t, err)
	orphan2, err := PutText(ctx, bs, "old version 2")
	require.NoError(t, err)

	idx := NewIndex()
	idx.Put(NewEntry("a.md", keep, 1))
	idx.Put(NewEntry("copy.md", keep, 1))

	dry, err := CollectOrphans(ctx, idx, bs, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{orphan1, orphan2}, dry)

	all, err := bs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	removed, err := CollectOrphans(ctx, idx, bs, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{orphan1, orphan2}, removed)

	all, err = bs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, all)

	text, err := GetText(ctx, bs, keep)
	require.NoError(t, err)
	assert.Equal(t, "keep", text)
}

func TestCollectOrphans_RefusesEmptyIndex(t *testing.T) {
	ctx := context.Background()
	bs := NewSQLiteBlobStore(newTestStore(t))
	_, err := PutText(ctx, bs, "x")
	require.NoError(t, err)

	_, err = CollectOrphans(ctx, NewIndex(), bs, false)
	assert.ErrorIs(t, err, ErrIndexEmpty)

	all, err := bs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
