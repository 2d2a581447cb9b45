package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/openmined/notereview/internal/blob"
	"github.com/openmined/notereview/internal/config"
	"github.com/openmined/notereview/internal/utils"
	"github.com/openmined/notereview/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "NOTEREVIEW"
	logFile    = "notereview.log"
	apiKeyEnv  = "OPENROUTER_API_KEY"
	dateLayout = "2006-01-02"
)

var home, _ = os.UserHomeDir()

// closes the log file opened once the data directory is known
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:     "notereview",
	Short:   "Daily and weekly reviews of a notes vault",
	Version: version.Detailed(),
}

func init() {
	addPersistentFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", config.DefaultConfigPath, "notereview config file")
	flags.String("vault", "", "notes vault directory")
	flags.String("data-dir", config.DefaultDataDir, "directory holding the snapshot index and logs")
	flags.Bool("debug", false, "enable debug logging")
}

func main() {
	// logs go to stderr so that command output on stdout stays parseable
	logger, _, _ := utils.SetupLogger(utils.LoggerOptions{Level: slog.LevelInfo, Stdout: os.Stderr})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig merges, in increasing priority, the defaults, the config file, the
// <data_dir>/.env file, NOTEREVIEW_* environment variables and the command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	configPath := resolveConfigPath(cmd)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", configPath, err)
		}
	}

	setDefaults(v)

	for key, flag := range map[string]string{
		"vault_dir":      "vault",
		"data_dir":       "data-dir",
		"max_diff_lines": "max-diff-lines",
	} {
		if f := cmd.Flag(flag); f != nil {
			v.BindPFlag(key, f)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the .env file only fills variables that are not already set
	if dataDir, err := utils.ResolvePath(v.GetString("data_dir")); err == nil {
		envFile := filepath.Join(dataDir, ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &config.Config{
		VaultDir:      v.GetString("vault_dir"),
		DataDir:       v.GetString("data_dir"),
		ReviewsDir:    v.GetString("reviews_dir"),
		MaxDiffLines:  v.GetInt("max_diff_lines"),
		DailyTime:     v.GetString("daily_time"),
		WeeklyDay:     v.GetString("weekly_day"),
		WeeklyTime:    v.GetString("weekly_time"),
		Include:       v.GetStringSlice("include"),
		Ignore:        v.GetStringSlice("ignore"),
		BlobBackend:   v.GetString("blob_backend"),
		BlobCacheSize: v.GetInt("blob_cache_size"),
		GCAfterWeekly: v.GetBool("gc_after_weekly"),
		Generator: config.GeneratorConfig{
			Provider:    v.GetString("generator.provider"),
			BaseURL:     v.GetString("generator.base_url"),
			Model:       v.GetString("generator.model"),
			APIKey:      v.GetString("generator.api_key"),
			Temperature: v.GetFloat64("generator.temperature"),
			MaxTokens:   v.GetInt("generator.max_tokens"),
			Timeout:     v.GetString("generator.timeout"),
			MaxRetries:  v.GetInt("generator.max_retries"),
		},
		Path: configPath,
	}

	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = os.Getenv(apiKeyEnv)
	}

	if v.GetString("s3.bucket") != "" {
		cfg.S3 = &blob.S3Config{
			BucketName: v.GetString("s3.bucket"),
			Region:     v.GetString("s3.region"),
			AccessKey:  v.GetString("s3.access_key"),
			SecretKey:  v.GetString("s3.secret_key"),
			Endpoint:   v.GetString("s3.endpoint"),
			Prefix:     v.GetString("s3.prefix"),
		}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("max_diff_lines", d.MaxDiffLines)
	v.SetDefault("daily_time", d.DailyTime)
	v.SetDefault("weekly_day", d.WeeklyDay)
	v.SetDefault("weekly_time", d.WeeklyTime)
	v.SetDefault("include", d.Include)
	v.SetDefault("blob_backend", d.BlobBackend)
	v.SetDefault("blob_cache_size", d.BlobCacheSize)
	v.SetDefault("gc_after_weekly", d.GCAfterWeekly)
	v.SetDefault("generator.provider", d.Generator.Provider)
	v.SetDefault("generator.base_url", d.Generator.BaseURL)
	v.SetDefault("generator.model", d.Generator.Model)
	v.SetDefault("generator.temperature", d.Generator.Temperature)
	v.SetDefault("generator.max_tokens", d.Generator.MaxTokens)
	v.SetDefault("generator.timeout", d.Generator.Timeout)
	v.SetDefault("generator.max_retries", d.Generator.MaxRetries)
}

// setupConfig loads and validates the config, then starts logging to <data_dir>/logs.
func setupConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}

	logger, closer, err := utils.SetupLogger(utils.LoggerOptions{
		Level:   level,
		Stdout:  os.Stderr,
		LogFile: filepath.Join(cfg.DataDir, "logs", logFile),
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	logCloser = closer

	return cfg, nil
}
