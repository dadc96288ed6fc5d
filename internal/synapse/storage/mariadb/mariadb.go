// Package mariadb implements the storage.Engine contract against a MariaDB
// or MySQL server. A reachable server is required before Connect succeeds;
// the target database is created on schema initialization if missing.
package mariadb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/sqlstore"
)

// MySQL server error 1049: unknown database.
const errUnknownDatabase = 1049

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ` + sqlstore.TableMemories + ` (
		id INT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) UNIQUE NOT NULL,
		content LONGTEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		version INT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS ` + sqlstore.TableHistory + ` (
		id INT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) NOT NULL,
		content LONGTEXT NOT NULL,
		version INT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		metadata TEXT,
		INDEX idx_memory_history_filename (filename, version)
	)`,
}

var dialect = sqlstore.Dialect{
	Name: string(storage.EngineMariaDB),
	InsertMemorySQL: `INSERT INTO ` + sqlstore.TableMemories +
		` (filename, content, metadata, created_at, updated_at, version) VALUES (?, ?, ?, ?, ?, 1)`,
	CopyHistorySQL: `INSERT INTO ` + sqlstore.TableHistory +
		` (filename, content, version, created_at, metadata)` +
		` SELECT filename, content, version, ?, metadata FROM ` + sqlstore.TableMemories + ` WHERE filename = ?`,
	IsConnError: isConnError,
}

func isConnError(err error) bool {
	return errors.Is(err, mysql.ErrInvalidConn)
}

// Params holds the connection parameters for a MariaDB/MySQL server.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Engine is the MariaDB/MySQL implementation of storage.Engine.
type Engine struct {
	params Params
	db     *sql.DB
}

// New creates an engine for the given server parameters. No connection is
// opened until Connect.
func New(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) dsn(database string) string {
	cfg := mysql.NewConfig()
	cfg.User = e.params.User
	cfg.Passwd = e.params.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", e.params.Host, e.params.Port)
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (e *Engine) open(database string) (*sql.DB, error) {
	db, err := sql.Open("mysql", e.dsn(database))
	if err != nil {
		return nil, errno.NewConnectionError(dialect.Name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Connect establishes a connection to the configured database. If the
// database does not exist yet it is created through a server-level
// connection first. Calling Connect on a live engine is a no-op.
func (e *Engine) Connect() error {
	if e.db != nil {
		return nil
	}

	db, err := e.open(e.params.Database)
	if err == nil {
		e.db = db
		return nil
	}

	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errUnknownDatabase {
		return errno.NewConnectionError(dialect.Name, err)
	}

	server, serr := e.open("")
	if serr != nil {
		return errno.NewConnectionError(dialect.Name, serr)
	}
	_, cerr := server.Exec("CREATE DATABASE IF NOT EXISTS " + e.params.Database)
	server.Close()
	if cerr != nil {
		return errno.NewStorageError(dialect.Name, "create database", cerr)
	}

	db, err = e.open(e.params.Database)
	if err != nil {
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
