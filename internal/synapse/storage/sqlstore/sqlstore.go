// Package sqlstore holds the memory-table operations shared by all SQL
// backends. The backends own connection setup and schema dialect; the row
// logic here is identical across them, which is the discipline the Engine
// contract enforces.
package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"time"

	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/pkg/utils/json"
)

const (
	TableMemories = "memories"
	TableHistory  = "memory_history"
)

// Dialect carries the per-backend variations: the two insert statements that
// differ in id generation, and the driver-specific connection failure check.
// All three drivers use ? placeholders, so everything else is shared.
type Dialect struct {
	// Name identifies the backend in error messages.
	Name string

	// InsertMemorySQL inserts a new record with version 1. Parameters:
	// filename, content, metadata, created_at, updated_at.
	InsertMemorySQL string

	// CopyHistorySQL snapshots the current row of a filename into
	// memory_history. Parameters: created_at, filename.
	CopyHistorySQL string

	// IsConnError reports driver-specific connection-class failures.
	// May be nil; the generic network check always applies.
	IsConnError func(error) bool
}

const (
	selectVersionSQL = `SELECT version FROM ` + TableMemories + ` WHERE filename = ?`
	updateMemorySQL  = `UPDATE ` + TableMemories + ` SET content = ?, updated_at = ?, metadata = ?, version = ? WHERE filename = ?`
	loadMemorySQL    = `SELECT content FROM ` + TableMemories + ` WHERE filename = ?`
	listMemoriesSQL  = `SELECT filename FROM ` + TableMemories + ` ORDER BY filename`
	deleteHistorySQL = `DELETE FROM ` + TableHistory + ` WHERE filename = ?`
	deleteMemorySQL  = `DELETE FROM ` + TableMemories + ` WHERE filename = ?`
	metadataSQL      = `SELECT metadata, created_at, updated_at, version FROM ` + TableMemories + ` WHERE filename = ?`
	searchSQL        = `SELECT filename, content FROM ` + TableMemories + ` WHERE content LIKE ? ORDER BY filename`
	historySQL       = `SELECT version, created_at, metadata FROM ` + TableHistory + ` WHERE filename = ? ORDER BY version DESC LIMIT ?`
)

// IsNetworkError reports whether err looks like a transport-level failure
// common to all drivers.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func wrap(d Dialect, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNetworkError(err) || (d.IsConnError != nil && d.IsConnError(err)) {
		return errno.NewConnectionError(d.Name, err)
	}
	return errno.NewStorageError(d.Name, op, err)
}

func marshalMetadata(m storage.Metadata) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	s, err := json.MarshalString(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func unmarshalMetadata(raw sql.NullString) (storage.Metadata, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var m storage.Metadata
	if err := json.UnmarshalString(raw.String, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveMemory inserts a new record or, for an existing filename, archives the
// current row into memory_history and applies the update with the version
// incremented by one. The archive and the update commit atomically.
func SaveMemory(db *sql.DB, d Dialect, filename, content string, metadata storage.Metadata) error {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return errno.NewStorageError(d.Name, "encode metadata", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return wrap(d, "begin save", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var version int
	err = tx.QueryRow(selectVersionSQL, filename).Scan(&version)
	switch {
	case err == nil:
		if _, err := tx.Exec(d.CopyHistorySQL, now, filename); err != nil {
			return wrap(d, "archive history", err)
		}
		if _, err := tx.Exec(updateMemorySQL, content, now, meta, version+1, filename); err != nil {
			return wrap(d, "update memory", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(d.InsertMemorySQL, filename, content, meta, now, now); err != nil {
			return wrap(d, "insert memory", err)
		}
	default:
		return wrap(d, "query version", err)
	}

	if err := tx.Commit(); err != nil {
		return wrap(d, "commit save", err)
	}
	return nil
}

// LoadMemory returns the content for filename, or found=false when absent.
func LoadMemory(db *sql.DB, d Dialect, filename string) (string, bool, error) {
	var content string
	err := db.QueryRow(loadMemorySQL, filename).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(d, "load memory", err)
	}
	return content, true, nil
}

// ListMemories returns all filenames in lexicographic order.
func ListMemories(db *sql.DB, d Dialect) ([]string, error) {
	rows, err := db.Query(listMemoriesSQL)
	if err != nil {
		return nil, wrap(d, "list memories", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap(d, "list memories", err)
		}
		names = append(names, name)
	}
	return names, wrap(d, "list memories", rows.Err())
}

// DeleteMemory removes the history rows for filename first, then the record
// itself, reporting whether a record existed.
func DeleteMemory(db *sql.DB, d Dialect, filename string) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, wrap(d, "begin delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(deleteHistorySQL, filename); err != nil {
		return false, wrap(d, "delete history", err)
	}
	res, err := tx.Exec(deleteMemorySQL, filename)
	if err != nil {
		return false, wrap(d, "delete memory", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, wrap(d, "delete memory", err)
	}
	if err := tx.Commit(); err != nil {
		return false, wrap(d, "commit delete", err)
	}
	return affected > 0, nil
}

// GetMemoryMetadata merges the stored metadata of filename with its
// created_at, updated_at and version columns. A nil map means the filename
// is unknown.
func GetMemoryMetadata(db *sql.DB, d Dialect, filename string) (storage.Metadata, error) {
	var (
		raw       sql.NullString
		createdAt time.Time
		updatedAt time.Time
		version   int
	)
	err := db.QueryRow(metadataSQL, filename).Scan(&raw, &createdAt, &updatedAt, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(d, "get metadata", err)
	}

	meta, err := unmarshalMetadata(raw)
	if err != nil {
		return nil, errno.NewStorageError(d.Name, "decode metadata", err)
	}
	if meta == nil {
		meta = storage.Metadata{}
	}
	meta["created_at"] = createdAt
	meta["updated_at"] = updatedAt
	meta["version"] = version
	return meta, nil
}

// SearchMemories substring-matches content, ordered by filename.
func SearchMemories(db *sql.DB, d Dialect, query string) ([]storage.SearchHit, error) {
	rows, err := db.Query(searchSQL, "%"+query+"%")
	if err != nil {
		return nil, wrap(d, "search memories", err)
	}
	defer rows.Close()

	var hits []storage.SearchHit
	for rows.Next() {
		var h storage.SearchHit
		if err := rows.Scan(&h.Filename, &h.Content); err != nil {
			return nil, wrap(d, "search memories", err)
		}
		hits = append(hits, h)
	}
	return hits, wrap(d, "search memories", rows.Err())
}

// GetMemoryHistory returns up to limit snapshots of filename, most recent
// version first.
func GetMemoryHistory(db *sql.DB, d Dialect, filename string, limit int) ([]storage.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(historySQL, filename, limit)
	if err != nil {
		return nil, wrap(d, "get history", err)
	}
	defer rows.Close()

	var entries []storage.HistoryEntry
	for rows.Next() {
		var (
			e   storage.HistoryEntry
			raw sql.NullString
		)
		if err := rows.Scan(&e.Version, &e.CreatedAt, &raw); err != nil {
			return nil, wrap(d, "get history", err)
		}
		meta, err := unmarshalMetadata(raw)
		if err != nil {
			return nil, errno.NewStorageError(d.Name, "decode metadata", err)
		}
		e.Metadata = meta
		entries = append(entries, e)
	}
	return entries, wrap(d, "get history", rows.Err())
}
