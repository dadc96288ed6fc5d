// Package config loads the synapse configuration document and resolves
// dotted keys with layered precedence: environment variable override, then
// the loaded JSON document, then hardcoded defaults, then the caller's
// fallback value. Loaded once at process start and immutable afterwards.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/viper"

	"github.com/synapsehq/synapse/internal/pkg/errno"
)

// EnvPrefix is the prefix of all environment variable overrides.
const EnvPrefix = "SYNAPSE"

// envBindings maps dotted keys to their override variables. The variable
// names follow the short convention (SYNAPSE_MARIADB_HOST rather than
// SYNAPSE_DATABASE_MARIADB_HOST).
var envBindings = map[string]string{
	"database.type":             "SYNAPSE_DB_TYPE",
	"database.sqlite.path":      "SYNAPSE_SQLITE_DB_PATH",
	"database.duckdb.path":      "SYNAPSE_DUCKDB_DB_PATH",
	"database.mariadb.host":     "SYNAPSE_MARIADB_HOST",
	"database.mariadb.port":     "SYNAPSE_MARIADB_PORT",
	"database.mariadb.user":     "SYNAPSE_MARIADB_USER",
	"database.mariadb.password": "SYNAPSE_MARIADB_PASSWORD",
	"database.mariadb.database": "SYNAPSE_MARIADB_DATABASE",
	"memory_dir":                "SYNAPSE_MEMORY_DIR",
	"documents_dir":             "SYNAPSE_DOCUMENTS_DIR",
	"encoding":                  "SYNAPSE_ENCODING",
	"log_level":                 "SYNAPSE_LOG_LEVEL",
}

// Config resolves dotted configuration keys. Safe for concurrent reads.
type Config struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")

	v.SetDefault("database.type", "duckdb")
	v.SetDefault("database.sqlite.path", "synapse.db")
	v.SetDefault("database.duckdb.path", "synapse.duckdb")
	v.SetDefault("database.mariadb.host", "localhost")
	v.SetDefault("database.mariadb.port", 3306)
	v.SetDefault("database.mariadb.user", "synapse_user")
	v.SetDefault("database.mariadb.password", "")
	v.SetDefault("database.mariadb.database", "synapse")
	v.SetDefault("memory_dir", "memories")
	v.SetDefault("documents_dir", "documents")
	v.SetDefault("encoding", "utf-8")
	v.SetDefault("log_level", "info")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads the configuration document at path. When path is empty the
// environment-specific file config.<SYNAPSE_ENV>.json is used if present,
// followed by a config.local.json overlay. A missing implicit file is not
// an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errno.NewSynapseError("load config file "+path, err)
		}
		return &Config{v: v}, nil
	}

	env := os.Getenv("SYNAPSE_ENV")
	if env == "" {
		env = "development"
	}
	v.SetConfigFile("config." + env + ".json")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, errno.NewSynapseError("load config file config."+env+".json", err)
	}

	v.SetConfigFile("config.local.json")
	if err := v.MergeInConfig(); err != nil && !isNotExist(err) {
		return nil, errno.NewSynapseError("load config file config.local.json", err)
	}

	return &Config{v: v}, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &nf)
}

// Get resolves a dotted key, returning def when the key is absent from the
// environment, the document, and the defaults. Never fails.
func (c *Config) Get(key string, def interface{}) interface{} {
	if val := c.v.Get(key); val != nil {
		return val
	}
	return def
}

// GetString resolves a dotted key as a string with a fallback.
func (c *Config) GetString(key, def string) string {
	if c.v.IsSet(key) {
		return c.v.GetString(key)
	}
	return def
}

// GetInt resolves a dotted key as an int with a fallback.
func (c *Config) GetInt(key string, def int) int {
	if c.v.IsSet(key) {
		return c.v.GetInt(key)
	}
	return def
}

// DatabaseType returns the configured backend type name, which may be
// empty when the operator explicitly cleared it.
func (c *Config) DatabaseType() string {
	return c.GetString("database.type", "")
}

// MemoryDir returns the root directory of the memory file store.
func (c *Config) MemoryDir() string {
	return c.GetString("memory_dir", "memories")
}

// Encoding returns the configured memory file encoding label.
func (c *Config) Encoding() string {
	return c.GetString("encoding", "utf-8")
}

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string {
	return c.GetString("log_level", "info")
}
