package changes

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/openmined/notereview/internal/corpus"
	"github.com/openmined/notereview/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCorpus struct {
	docs       map[string]string
	unreadable map[string]bool
	listErr    error
}

func (f *fakeCorpus) List(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var paths []string
	for p := range f.docs {
		paths = append(paths, p)
	}
	for p := range f.unreadable {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (f *fakeCorpus) ReadText(path string) (string, error) {
	if f.unreadable[path] {
		return "", errors.New("permission denied")
	}
	text, ok := f.docs[path]
	if !ok {
		return "", corpus.ErrNotFound
	}
	return text, nil
}

func (f *fakeCorpus) ModTime(string) (int64, error) { return 1700000000, nil }

func indexOf(docs map[string]string) *snapshot.Index {
	idx := snapshot.NewIndex()
	for p, text := range docs {
		idx.Put(snapshot.NewEntry(p, snapshot.Hash(text), 1))
	}
	return idx
}

func paths(c []*FileChange) []string {
	out := make([]string, 0, len(c))
	for _, fc := range c {
		out = append(out, fc.Path)
	}
	return out
}

func TestDetect(t *testing.T) {
	idx := indexOf(map[string]string{"A.md": "x", "B.md": "y", "C.md": "same"})
	fc := &fakeCorpus{docs: map[string]string{"A.md": "x\nz", "C.md": "same", "D.md": "new"}}

	cs, err := NewDetector(fc).Detect(context.Background(), idx)
	require.NoError(t, err)

	assert.Equal(t, []string{"D.md"}, paths(cs.Added))
	assert.Equal(t, []string{"A.md"}, paths(cs.Modified))
	assert.Equal(t, []string{"B.md"}, paths(cs.Deleted))
	assert.Equal(t, 0, cs.Skipped)
	assert.False(t, cs.Empty())
	assert.Equal(t, 3, cs.Total())

	mod := cs.Modified[0]
	assert.Equal(t, snapshot.Hash("x"), mod.OldHash)
	assert.Equal(t, snapshot.Hash("x\nz"), mod.NewHash)
	assert.Equal(t, "x\nz", mod.Text)

	assert.Equal(t, snapshot.Hash("y"), cs.Deleted[0].OldHash)
	assert.Empty(t, cs.Added[0].OldHash)
	assert.Equal(t, int64(1700000000), cs.Added[0].ModTime)
}

func TestDetect_NoChanges(t *testing.T) {
	docs := map[string]string{"A.md": "x", "dir/B.md": "y"}
	cs, err := NewDetector(&fakeCorpus{docs: docs}).Detect(context.Background(), indexOf(docs))
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

func TestDetect_RenameIsDeleteAndAdd(t *testing.T) {
	idx := indexOf(map[string]string{"old.md": "content"})
	fc := &fakeCorpus{docs: map[string]string{"new.md": "content"}}

	cs, err := NewDetector(fc).Detect(context.Background(), idx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.md"}, paths(cs.Added))
	assert.Equal(t, []string{"old.md"}, paths(cs.Deleted))
	assert.Empty(t, cs.Modified)
}

func TestDetect_UnreadableIsNotDeleted(t *testing.T) {
	idx := indexOf(map[string]string{"A.md": "x", "locked.md": "secret"})
	fc := &fakeCorpus{
		docs:       map[string]string{"A.md": "x"},
		unreadable: map[string]bool{"locked.md": true, "new-locked.md": true},
	}

	cs, err := NewDetector(fc).Detect(context.Background(), idx)
	require.NoError(t, err)
	assert.True(t, cs.Empty())
	assert.Equal(t, 2, cs.Skipped)
}

func TestDetect_ListFailure(t *testing.T) {
	fc := &fakeCorpus{listErr: errors.New("disk gone")}
	_, err := NewDetector(fc).Detect(context.Background(), snapshot.NewIndex())
	assert.Error(t, err)
}

func TestDetect_SortedOutput(t *testing.T) {
	fc := &fakeCorpus{docs: map[string]string{"z.md": "1", "a.md": "2", "m/b.md": "3"}}
	cs, err := NewDetector(fc).Detect(context.Background(), snapshot.NewIndex())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "m/b.md", "z.md"}, paths(cs.Added))
}
