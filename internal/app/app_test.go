package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/notereview/internal/config"
	"github.com/openmined/notereview/internal/generate"
	"github.com/openmined/notereview/internal/review"
	"github.com/openmined/notereview/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, root, rel, text string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	root := t.TempDir()
	vault := filepath.Join(root, "vault")
	require.NoError(t, os.MkdirAll(vault, 0o755))

	cfg := config.Default()
	cfg.VaultDir = vault
	cfg.DataDir = filepath.Join(root, "data")
	cfg.BlobBackend = backend
	cfg.Generator.Provider = config.ProviderEcho
	cfg.Path = filepath.Join(root, "config.json")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 21, 0, 0, 0, time.Local)
}

func TestApp_DailyRuns(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFS} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)
			writeNote(t, cfg.VaultDir, "A.md", "alpha\n")
			writeNote(t, cfg.VaultDir, "notes/B.md", "beta\n")

			a := newTestApp(t, cfg)

			res, err := a.RunDaily(ctx, day(10))
			require.NoError(t, err)
			assert.Equal(t, review.KindBootstrap, res.Kind)
			assert.Equal(t, 2, res.Documents)
			assert.FileExists(t, filepath.Join(cfg.ReviewsDir, "daily", "2025-03-10.md"))

			// the reviews directory sits inside the vault but is not part of the corpus
			res, err = a.RunDaily(ctx, day(11))
			require.NoError(t, err)
			assert.Equal(t, review.KindNoChanges, res.Kind)

			writeNote(t, cfg.VaultDir, "A.md", "alpha\nmore\n")
			res, err = a.RunDaily(ctx, day(12))
			require.NoError(t, err)
			assert.Equal(t, review.KindChanges, res.Kind)
			require.Len(t, res.Changes.Modified, 1)
			assert.Equal(t, "A.md", res.Changes.Modified[0].Path)
			assert.Contains(t, res.Changes.Modified[0].Diff, "+ more")

			// lock is released after a manual run
			assert.NoFileExists(t, a.Workspace.LockPath())
		})
	}
}

func TestApp_RunDailyLocked(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	a := newTestApp(t, cfg)

	other, err := workspace.NewWorkspace(cfg.VaultDir, cfg.DataDir, cfg.ReviewsDir)
	require.NoError(t, err)
	require.NoError(t, other.Lock())
	t.Cleanup(func() { _ = other.Unlock() })

	_, err = a.RunDaily(context.Background(), day(10))
	assert.ErrorIs(t, err, workspace.ErrWorkspaceLocked)

	st, err := a.Status(context.Background(), day(10), false)
	require.NoError(t, err)
	assert.True(t, st.Locked)
}

func TestApp_WeeklyAndGC(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendFS)
	cfg.GCAfterWeekly = true
	writeNote(t, cfg.VaultDir, "A.md", "one\n")

	var prompts []string
	gen := generate.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "report", nil
	})
	a := newTestApp(t, cfg, WithGenerator(gen))

	_, err := a.RunWeekly(ctx, day(14))
	assert.ErrorIs(t, err, review.ErrNoDailyReviews)

	_, err = a.RunDaily(ctx, day(10))
	require.NoError(t, err)
	writeNote(t, cfg.VaultDir, "A.md", "two\n")
	_, err = a.RunDaily(ctx, day(11))
	require.NoError(t, err)

	// the first revision of A.md is no longer referenced
	orphans, err := a.CollectOrphans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)

	res, err := a.RunWeekly(ctx, day(14))
	require.NoError(t, err)
	assert.Equal(t, "2025-W11", res.Key)
	assert.Equal(t, 2, res.Days)
	assert.FileExists(t, filepath.Join(cfg.ReviewsDir, "weekly", "2025-W11.md"))
	assert.Len(t, prompts, 3)

	orphans, err = a.CollectOrphans(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestStorage_Status(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)
	writeNote(t, cfg.VaultDir, "A.md", "alpha\n")

	a := newTestApp(t, cfg)

	st, err := a.Status(ctx, day(10), true)
	require.NoError(t, err)
	assert.Equal(t, IndexEmpty, st.IndexState)
	assert.Zero(t, st.Documents)
	assert.Nil(t, st.Index)
	assert.False(t, st.Locked)
	assert.Equal(t, time.Date(2025, 3, 11, 21, 0, 0, 0, time.Local), st.NextDaily)
	assert.Equal(t, time.Date(2025, 3, 14, 18, 0, 0, 0, time.Local), st.NextWeekly)

	_, err = a.RunDaily(ctx, day(10))
	require.NoError(t, err)

	st, err = a.Status(ctx, day(10), true)
	require.NoError(t, err)
	assert.Equal(t, IndexOK, st.IndexState)
	assert.Equal(t, 1, st.Documents)
	assert.Equal(t, 1, st.Blobs)
	assert.Zero(t, st.Orphans)
	assert.Equal(t, "2025-03-10", st.LastDaily)
	assert.Empty(t, st.LastWeekly)
	require.NotNil(t, st.Index)
	assert.Contains(t, st.Index.Entries, "A.md")
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	cfg.Generator.Provider = config.ProviderOpenAI
	cfg.Generator.APIKey = ""

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, generate.ErrNoAPIKey)
}

func TestVaultExclusions(t *testing.T) {
	cfg := &config.Config{
		VaultDir:   filepath.FromSlash("/home/me/vault"),
		ReviewsDir: filepath.FromSlash("/home/me/vault/Reviews/auto"),
		DataDir:    filepath.FromSlash("/home/me/.notereview"),
	}
	assert.Equal(t, []string{"/Reviews/auto/"}, vaultExclusions(cfg))

	cfg.DataDir = filepath.FromSlash("/home/me/vault/.nr")
	assert.Equal(t, []string{"/Reviews/auto/", "/.nr/"}, vaultExclusions(cfg))

	cfg.ReviewsDir = filepath.FromSlash("/home/me/vaulted")
	assert.Equal(t, []string{"/.nr/"}, vaultExclusions(cfg))
}
