package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	root := t.TempDir()
	vault := filepath.Join(root, "vault")
	require.NoError(t, os.MkdirAll(vault, 0o755))

	w, err := NewWorkspace(vault, filepath.Join(root, "data"), filepath.Join(vault, "reviews"))
	require.NoError(t, err)
	return w
}

func TestWorkspaceSetup_CreatesLayout(t *testing.T) {
	w := newTestWorkspace(t)

	require.NoError(t, w.Setup())
	t.Cleanup(func() { _ = w.Unlock() })

	assert.DirExists(t, w.DataDir)
	assert.DirExists(t, w.LogsDir)
	assert.DirExists(t, w.ReviewsDir)
	assert.FileExists(t, w.LockPath())
	assert.Equal(t, filepath.Join(w.DataDir, "snapshots.db"), w.SnapshotDBPath())
}

func TestWorkspaceSetup_MissingVault(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspace(filepath.Join(root, "nope"), filepath.Join(root, "data"), filepath.Join(root, "reviews"))
	require.NoError(t, err)

	err = w.Setup()
	assert.ErrorIs(t, err, ErrVaultMissing)
	assert.NoFileExists(t, w.LockPath())
}

func TestWorkspaceLocking_SingleInstance(t *testing.T) {
	w1 := newTestWorkspace(t)
	w2, err := NewWorkspace(w1.VaultDir, w1.DataDir, w1.ReviewsDir)
	require.NoError(t, err)

	require.NoError(t, w1.Lock())

	err = w2.Lock()
	assert.ErrorIs(t, err, ErrWorkspaceLocked)

	// unlocking a workspace that never held the lock leaves the lock file alone
	require.NoError(t, w2.Unlock())
	assert.FileExists(t, w1.LockPath())

	require.NoError(t, w1.Unlock())
	assert.NoFileExists(t, w1.LockPath())

	require.NoError(t, w2.Lock())
	require.NoError(t, w2.Unlock())
}
