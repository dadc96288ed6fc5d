// Package selector resolves which database engine to open and hands out
// fully initialized instances. The set of backends is a closed enum-keyed
// table; unsupported names are rejected in one place.
package selector

import (
	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/config"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/duckdb"
	"github.com/synapsehq/synapse/internal/synapse/storage/mariadb"
	"github.com/synapsehq/synapse/internal/synapse/storage/sqlite"
)

// Overrides replace individual connection parameters read from
// configuration. Zero values leave the configured value in place.
type Overrides struct {
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Selector builds engines from configuration.
type Selector struct {
	cfg *config.Config
}

// New creates a selector over the loaded configuration.
func New(cfg *config.Config) *Selector {
	return &Selector{cfg: cfg}
}

// ResolveType picks the backend type: explicit parameter first, then the
// configured database.type, then the default.
func (s *Selector) ResolveType(explicit string) (storage.EngineType, error) {
	name := explicit
	if name == "" {
		name = s.cfg.DatabaseType()
	}
	if name == "" {
		return storage.DefaultEngineType, nil
	}
	t, err := storage.ParseEngineType(name)
	if err != nil {
		return "", errno.NewSynapseError("resolve database type", err)
	}
	return t, nil
}

type constructor func(s *Selector, o Overrides) storage.Engine

// The closed backend table. MySQL is an alias: same constructor, same
// configuration block as MariaDB.
var constructors = map[storage.EngineType]constructor{
	storage.EngineSQLite:  buildSQLite,
	storage.EngineDuckDB:  buildDuckDB,
	storage.EngineMariaDB: buildMariaDB,
	storage.EngineMySQL:   buildMariaDB,
}

func buildSQLite(s *Selector, o Overrides) storage.Engine {
	path := o.Path
	if path == "" {
		path = s.cfg.GetString("database.sqlite.path", "synapse.db")
	}
	return sqlite.New(path)
}

func buildDuckDB(s *Selector, o Overrides) storage.Engine {
	path := o.Path
	if path == "" {
		path = s.cfg.GetString("database.duckdb.path", "synapse.duckdb")
	}
	return duckdb.New(path)
}

func buildMariaDB(s *Selector, o Overrides) storage.Engine {
	params := mariadb.Params{
		Host:     s.cfg.GetString("database.mariadb.host", "localhost"),
		Port:     s.cfg.GetInt("database.mariadb.port", 3306),
		User:     s.cfg.GetString("database.mariadb.user", "synapse_user"),
		Password: s.cfg.GetString("database.mariadb.password", ""),
		Database: s.cfg.GetString("database.mariadb.database", "synapse"),
	}
	if o.Host != "" {
		params.Host = o.Host
	}
	if o.Port != 0 {
		params.Port = o.Port
	}
	if o.User != "" {
		params.User = o.User
	}
	if o.Password != "" {
		params.Password = o.Password
	}
	if o.Database != "" {
		params.Database = o.Database
	}
	return mariadb.New(params)
}

// Open resolves the backend type, constructs the engine, connects, and
// initializes its schema. A raw, uninitialized engine is never returned:
// schema failure closes the engine and surfaces a wrapped error. Connection
// failures keep their class so read paths can fall back.
func (s *Selector) Open(explicit string, o Overrides) (storage.Engine, error) {
	t, err := s.ResolveType(explicit)
	if err != nil {
		return nil, err
	}

	eng := constructors[t](s, o)
	if err := eng.Connect(); err != nil {
		return nil, err
	}
	if err := eng.InitializeSchema(); err != nil {
		eng.Close()
		return nil, errno.NewSynapseError("initialize schema for "+string(t), err)
	}
	return eng, nil
}
