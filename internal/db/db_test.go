package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSqliteDB_Memory_Defaults(t *testing.T) {
	database, err := NewSqliteDB()
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT);")
	require.NoError(t, err)
	assert.NoError(t, QuickCheck(database))
}

func TestNewSqliteDB_File_CreatesParent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "state.db")

	database, err := NewSqliteDB(WithPath(dbPath), WithMaxOpenConns(1))
	require.NoError(t, err)
	defer database.Close()

	assert.DirExists(t, filepath.Dir(dbPath))
	assert.FileExists(t, dbPath)
}

func TestNewSqliteDB_AppliesPragmas(t *testing.T) {
	database, err := NewSqliteDB(WithPath(filepath.Join(t.TempDir(), "state.db")), WithMaxOpenConns(1))
	require.NoError(t, err)
	defer database.Close()

	var mode string
	require.NoError(t, database.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var timeout int
	require.NoError(t, database.Get(&timeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 5000, timeout)

	assert.Equal(t, 1, database.Stats().MaxOpenConnections)
}

func TestNewSqliteDB_GarbageFile_Fails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	garbage := strings.Repeat("this is not a sqlite database\n", 512)
	require.NoError(t, os.WriteFile(dbPath, []byte(garbage), 0o644))

	database, err := NewSqliteDB(WithPath(dbPath))
	if err == nil {
		// some drivers open lazily; the first real statement must fail instead
		defer database.Close()
		assert.Error(t, QuickCheck(database))
	}
}
