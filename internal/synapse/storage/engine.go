// Package storage defines the database engine abstraction behind the memory
// store: a capability interface implemented by three interchangeable SQL
// backends (SQLite, DuckDB, MariaDB/MySQL) plus the record types they share.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// EngineType identifies one of the supported database backends.
type EngineType string

const (
	// EngineSQLite is the single-file embedded relational engine.
	EngineSQLite EngineType = "sqlite"
	// EngineDuckDB is the embedded analytical engine, used when no type
	// is configured.
	EngineDuckDB EngineType = "duckdb"
	// EngineMariaDB is the client/server relational engine.
	EngineMariaDB EngineType = "mariadb"
	// EngineMySQL is accepted as an alias for the MariaDB backend.
	EngineMySQL EngineType = "mysql"
)

// DefaultEngineType is used when neither an explicit type nor a configured
// type is present.
const DefaultEngineType = EngineDuckDB

// ParseEngineType normalizes a backend name from configuration or an
// explicit parameter. The set of accepted names is closed.
func ParseEngineType(s string) (EngineType, error) {
	switch EngineType(strings.ToLower(strings.TrimSpace(s))) {
	case EngineSQLite:
		return EngineSQLite, nil
	case EngineDuckDB:
		return EngineDuckDB, nil
	case EngineMariaDB:
		return EngineMariaDB, nil
	case EngineMySQL:
		return EngineMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database type: %q", s)
	}
}

// Metadata is the open mapping of annotations attached to a memory record.
type Metadata map[string]interface{}

// SearchHit is one match returned by a content search.
type SearchHit struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// HistoryEntry is one immutable snapshot from a record's revision history.
type HistoryEntry struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  Metadata  `json:"metadata,omitempty"`
}

// Engine is the capability interface every database backend implements.
// The contract is identical across all backends:
//
//   - Connect is idempotent; a second call on a live connection is a no-op.
//     Unreachable or unopenable targets fail with errno.ConnectionError.
//   - InitializeSchema creates the memories and memory_history tables if
//     absent and is safe to call on every process start.
//   - SaveMemory archives the current row into memory_history before
//     updating an existing filename (incrementing its version); a new
//     filename is inserted with version 1.
//   - LoadMemory reports absence via found=false, never via an error.
//   - ListMemories returns filenames in lexicographic order.
//   - DeleteMemory removes history rows first, then the record, and reports
//     whether a record existed.
//   - GetMemoryMetadata merges stored metadata with created_at, updated_at
//     and version; nil means the filename is unknown.
//   - SearchMemories substring-matches content, ordered by filename.
//   - GetMemoryHistory returns the most recent versions first, bounded by
//     limit.
//
// Row-level failures surface as errno.StorageError; connection-level
// failures as errno.ConnectionError.
type Engine interface {
	Connect() error
	Close() error
	InitializeSchema() error

	SaveMemory(filename, content string, metadata Metadata) error
	LoadMemory(filename string) (content string, found bool, err error)
	ListMemories() ([]string, error)
	DeleteMemory(filename string) (existed bool, err error)
	GetMemoryMetadata(filename string) (Metadata, error)
	SearchMemories(query string) ([]SearchHit, error)
	GetMemoryHistory(filename string, limit int) ([]HistoryEntry, error)
}
