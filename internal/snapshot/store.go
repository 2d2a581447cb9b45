package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openmined/notereview/internal/db"
	"github.com/openmined/notereview/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    last_snapshot_time TEXT NOT NULL -- RFC3339Nano, UTC
);

CREATE TABLE IF NOT EXISTS snapshot_entries (
    path TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    blob_ref TEXT NOT NULL,
    modified_time INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS blobs (
    hash TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    size INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_hash ON snapshot_entries(content_hash);
`

// Store persists the snapshot index in a sqlite database.
// The database is opened lazily so a damaged file surfaces as ErrCorruptIndex from Load.
type Store struct {
	dbPath string

	mu sync.Mutex
	db *sqlx.DB
}

func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) Path() string {
	return s.dbPath
}

// conn opens the database on first use.
func (s *Store) conn() (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	existed := utils.FileExists(s.dbPath)

	conn, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		if existed {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorruptIndex, s.dbPath, err)
		}
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	if existed {
		if err := db.QuickCheck(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		if existed {
			return nil, fmt.Errorf("%w: schema: %v", ErrCorruptIndex, err)
		}
		return nil, fmt.Errorf("initialize snapshot schema: %w", err)
	}

	s.db = conn
	return conn, nil
}

// Load reads the persisted index.
// It returns ErrIndexEmpty when nothing was ever saved (or zero entries were saved)
// and ErrCorruptIndex when the record exists but fails to parse or validate.
func (s *Store) Load(ctx context.Context) (*Index, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}

	var lastSnapshot string
	err = conn.GetContext(ctx, &lastSnapshot, "SELECT last_snapshot_time FROM snapshot_meta WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIndexEmpty
	} else if err != nil {
		return nil, fmt.Errorf("%w: read meta: %v", ErrCorruptIndex, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, lastSnapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: last snapshot time %q: %v", ErrCorruptIndex, lastSnapshot, err)
	}

	var rows []Entry
	err = conn.SelectContext(ctx, &rows, "SELECT path, content_hash, blob_ref, modified_time FROM snapshot_entries")
	if err != nil {
		return nil, fmt.Errorf("%w: read entries: %v", ErrCorruptIndex, err)
	}

	if len(rows) == 0 {
		return nil, ErrIndexEmpty
	}

	idx := NewIndex()
	idx.LastSnapshotTime = ts
	for _, e := range rows {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
		}
		idx.Put(e)
	}

	slog.Debug("snapshot index loaded", "entries", idx.Len(), "lastSnapshotTime", ts)
	return idx, nil
}

// Save replaces the persisted index with idx in a single transaction.
// A failed save leaves the previous index in place.
func (s *Store) Save(ctx context.Context, idx *Index) error {
	if idx == nil {
		return fmt.Errorf("cannot save nil index")
	}
	for _, e := range idx.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("save index: %w", err)
		}
	}

	conn, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_entries"); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO snapshot_entries (path, content_hash, blob_ref, modified_time)
	          VALUES (:path, :content_hash, :blob_ref, :modified_time)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, path := range idx.Paths() {
		if _, err := stmt.ExecContext(ctx, idx.Entries[path]); err != nil {
			return fmt.Errorf("save entry %s: %w", path, err)
		}
	}

	ts := idx.LastSnapshotTime.UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO snapshot_meta (id, last_snapshot_time) VALUES (1, ?)", ts); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}

	slog.Debug("snapshot index saved", "entries", idx.Len(), "lastSnapshotTime", ts)
	return nil
}

// Reset moves the database aside so the next Load starts from an empty index.
// The old file is kept next to the original as <path>.<timestamp>.corrupt.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Warn("snapshot store close before reset", "error", err)
		}
		s.db = nil
	}

	if !utils.FileExists(s.dbPath) {
		return nil
	}

	timestamp := time.Now().Format("20060102150405")
	aside := fmt.Sprintf("%s.%s.corrupt", s.dbPath, timestamp)
	if err := os.Rename(s.dbPath, aside); err != nil {
		return fmt.Errorf("move snapshot store aside: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("snapshot store reset", "file", s.dbPath+suffix, "error", err)
		}
	}

	slog.Warn("snapshot store reset", "movedTo", aside)
	return nil
}

// Close closes the underlying database if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
