// Package sqlite implements the storage.Engine contract on top of a
// single-file SQLite database.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver

	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/sqlstore"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ` + sqlstore.TableMemories + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT UNIQUE NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS ` + sqlstore.TableHistory + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		content TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		metadata TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_filename ON ` + sqlstore.TableMemories + `(filename)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_history_filename ON ` + sqlstore.TableHistory + `(filename, version)`,
}

var dialect = sqlstore.Dialect{
	Name: string(storage.EngineSQLite),
	InsertMemorySQL: `INSERT INTO ` + sqlstore.TableMemories +
		` (filename, content, metadata, created_at, updated_at, version) VALUES (?, ?, ?, ?, ?, 1)`,
	CopyHistorySQL: `INSERT INTO ` + sqlstore.TableHistory +
		` (filename, content, version, created_at, metadata)` +
		` SELECT filename, content, version, ?, metadata FROM ` + sqlstore.TableMemories + ` WHERE filename = ?`,
	IsConnError: isConnError,
}

// The driver reports lock and open failures as plain errors; match on the
// messages that indicate the database file itself is unusable.
func isConnError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to open database") ||
		strings.Contains(msg, "database is locked")
}

// Engine is the SQLite implementation of storage.Engine.
type Engine struct {
	path string
	db   *sql.DB
}

// New creates an engine for the database file at path. No connection is
// opened until Connect.
func New(path string) *Engine {
	return &Engine{path: path}
}

// Connect opens the database file, creating its parent directory if needed.
// Calling Connect on a live engine is a no-op.
func (e *Engine) Connect() error {
	if e.db != nil {
		return nil
	}

	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errno.NewConnectionError(dialect.Name, err)
		}
	}

	db, err := sql.Open("sqlite3", e.path)
	if err != nil {
		return errno.NewConnectionError(dialect.Name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return errno.NewConnectionError(dialect.Name, err)
	}

	e.db = db
	return nil
}

// Close releases the connection. Safe to call on a disconnected engine.
func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// InitializeSchema creates the memory tables if absent. Safe to call on
// every process start.
func (e *Engine) InitializeSchema() error {
	if err := e.Connect(); err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, err := e.db.Exec(stmt); err != nil {
			return errno.NewStorageError(dialect.Name, "create tables", err)
		}
	}
	return nil
}

func (e *Engine) SaveMemory(filename, content string, metadata storage.Metadata) error {
	if err := e.Connect(); err != nil {
		return err
	}
	return sqlstore.SaveMemory(e.db, dialect, filename, content, metadata)
}

func (e *Engine) LoadMemory(filename string) (string, bool, error) {
	if err := e.Connect(); err != nil {
		return "", false, err
	}
	return sqlstore.LoadMemory(e.db, dialect, filename)
}

func (e *Engine) ListMemories() ([]string, error) {
	if err := e.Connect(); err != nil {
		return nil, err
	}
	return sqlstore.ListMemories(e.db, dialect)
}

func (e *Engine) DeleteMemory(filename string) (bool, error) {
	if err := e.Connect(); err != nil {
		return false, err
	}
	return sqlstore.DeleteMemory(e.db, dialect, filename)
}

func (e *Engine) GetMemoryMetadata(filename string) (storage.Metadata, error) {
	if err := e.Connect(); err != nil {
		return nil, err
	}
	return sqlstore.GetMemoryMetadata(e.db, dialect, filename)
}

func (e *Engine) SearchMemories(query string) ([]storage.SearchHit, error) {
	if err := e.Connect(); err != nil {
		return nil, err
	}
	return sqlstore.SearchMemories(e.db, dialect, query)
}

func (e *Engine) GetMemoryHistory(filename string, limit int) ([]storage.HistoryEntry, error) {
	if err := e.Connect(); err != nil {
		return nil, err
	}
	return sqlstore.GetMemoryHistory(e.db, dialect, filename, limit)
}
