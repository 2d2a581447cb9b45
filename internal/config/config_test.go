package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/notereview/internal/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_NormalizesAndDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfg := &Config{
		VaultDir: filepath.Join(tmp, "vault", "..", "vault"),
		DataDir:  filepath.Join(tmp, "data"),
		Path:     filepath.Join(tmp, "config.json"),
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(tmp, "vault"), cfg.VaultDir)
	assert.Equal(t, filepath.Join(tmp, "vault", "reviews"), cfg.ReviewsDir)
	assert.Equal(t, 100, cfg.MaxDiffLines)
	assert.Equal(t, BackendSQLite, cfg.BlobBackend)
	assert.Equal(t, ProviderOpenAI, cfg.Generator.Provider)
	assert.True(t, filepath.IsAbs(cfg.Path))
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	tmp := t.TempDir()

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing vault", func(c *Config) { c.VaultDir = "" }},
		{"negative diff lines", func(c *Config) { c.MaxDiffLines = -1 }},
		{"bad daily time", func(c *Config) { c.DailyTime = "9pm" }},
		{"bad weekly day", func(c *Config) { c.WeeklyDay = "someday" }},
		{"bad weekly time", func(c *Config) { c.WeeklyTime = "24:30" }},
		{"bad include", func(c *Config) { c.Include = []string{"[a-"} }},
		{"bad backend", func(c *Config) { c.BlobBackend = "ftp" }},
		{"s3 without section", func(c *Config) { c.BlobBackend = BackendS3 }},
		{"s3 without bucket", func(c *Config) {
			c.BlobBackend = BackendS3
			c.S3 = &blob.S3Config{Region: "us-east-1"}
		}},
		{"bad provider", func(c *Config) { c.Generator.Provider = "magic" }},
		{"bad timeout", func(c *Config) { c.Generator.Timeout = "soon" }},
		{"bad temperature", func(c *Config) { c.Generator.Temperature = 3 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.VaultDir = filepath.Join(tmp, "vault")
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Schedule(t *testing.T) {
	cfg := Default()
	cfg.DailyTime = "07:30"
	cfg.WeeklyDay = "Sun"

	sched, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, 7, sched.DailyAt.Hour)
	assert.Equal(t, 30, sched.DailyAt.Minute)
	assert.Equal(t, time.Sunday, sched.WeeklyDay)
	assert.Equal(t, "18:00", sched.WeeklyAt.String())
}

func TestGeneratorConfig_Client(t *testing.T) {
	g := GeneratorConfig{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "m", Timeout: "5s"}
	c := g.Client()
	assert.Equal(t, "sk-test", c.APIKey)
	assert.Equal(t, "m", c.Model)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 4000, c.MaxTokens)
	assert.Equal(t, 0.7, c.Temperature)
}

func TestConfig_SaveLoad(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "config.json")

	cfg := Default()
	cfg.VaultDir = filepath.Join(tmp, "vault")
	cfg.WeeklyDay = "monday"
	cfg.Generator.APIKey = "sk-secret"
	require.NoError(t, cfg.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")
	assert.Contains(t, string(raw), `"weekly_day": "monday"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Path)
	assert.Equal(t, cfg.VaultDir, loaded.VaultDir)
	assert.Equal(t, "monday", loaded.WeeklyDay)
	assert.Equal(t, "21:00", loaded.DailyTime)
	assert.Empty(t, loaded.Generator.APIKey)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"vault_dir":"/tmp/v","max_diff_lines":20}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxDiffLines)
	assert.Equal(t, DefaultBlobBackend, cfg.BlobBackend)
	assert.Equal(t, DefaultWeeklyTime, cfg.WeeklyTime)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
