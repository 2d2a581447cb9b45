package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/notereview/internal/utils"
)

const (
	logsDir    = "logs"
	blobsDir   = "blobs"
	lockFile   = "notereview.lock"
	snapshotDB = "snapshots.db"
	envFile    = ".env"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
	ErrVaultMissing    = errors.New("vault directory does not exist")
)

// Workspace is the on-disk layout of a notereview installation: the vault being reviewed,
// the data directory holding the snapshot index, blobs and logs, and the reviews directory.
type Workspace struct {
	VaultDir   string
	DataDir    string
	ReviewsDir string
	LogsDir    string
	BlobsDir   string

	flock *flock.Flock
}

func NewWorkspace(vaultDir, dataDir, reviewsDir string) (*Workspace, error) {
	vault, err := utils.ResolvePath(vaultDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", vaultDir, err)
	}

	data, err := utils.ResolvePath(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", dataDir, err)
	}

	reviews, err := utils.ResolvePath(reviewsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", reviewsDir, err)
	}

	return &Workspace{
		VaultDir:   vault,
		DataDir:    data,
		ReviewsDir: reviews,
		LogsDir:    filepath.Join(data, logsDir),
		BlobsDir:   filepath.Join(data, blobsDir),
		flock:      flock.New(filepath.Join(data, lockFile)),
	}, nil
}

func (w *Workspace) SnapshotDBPath() string {
	return filepath.Join(w.DataDir, snapshotDB)
}

func (w *Workspace) EnvFilePath() string {
	return filepath.Join(w.DataDir, envFile)
}

func (w *Workspace) LockPath() string {
	return w.flock.Path()
}

func (w *Workspace) Lock() error {
	// <data_dir>/notereview.lock keeps a second daemon or manual run off the same index
	if err := utils.EnsureDir(w.DataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.DataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup takes the workspace lock and creates the data and reviews directories.
// The vault itself must already exist.
func (w *Workspace) Setup() error {
	if !utils.DirExists(w.VaultDir) {
		return fmt.Errorf("%w: %s", ErrVaultMissing, w.VaultDir)
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "vault", w.VaultDir, "data", w.DataDir, "reviews", w.ReviewsDir)

	dirs := []string{w.DataDir, w.LogsDir, w.ReviewsDir}
	for _, dir := range dirs {
		if err := utils.EnsureDir(dir); err != nil {
			_ = w.Unlock()
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
