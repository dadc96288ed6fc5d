package selector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapsehq/synapse/internal/pkg/errno"
	"github.com/synapsehq/synapse/internal/synapse/config"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/mariadb"
	"github.com/synapsehq/synapse/internal/synapse/storage/sqlite"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestResolveTypeDefault(t *testing.T) {
	s := New(loadConfig(t))

	typ, err := s.ResolveType("")
	require.NoError(t, err)
	assert.Equal(t, storage.EngineDuckDB, typ)
}

func TestResolveTypeExplicitBeatsConfig(t *testing.T) {
	t.Setenv("SYNAPSE_DB_TYPE", "mariadb")
	s := New(loadConfig(t))

	typ, err := s.ResolveType("sqlite")
	require.NoError(t, err)
	assert.Equal(t, storage.EngineSQLite, typ)

	typ, err = s.ResolveType("")
	require.NoError(t, err)
	assert.Equal(t, storage.EngineMariaDB, typ)
}

func TestResolveTypeNormalizesName(t *testing.T) {
	s := New(loadConfig(t))

	typ, err := s.ResolveType("  SQLite ")
	require.NoError(t, err)
	assert.Equal(t, storage.EngineSQLite, typ)
}

func TestResolveTypeRejectsUnknown(t *testing.T) {
	s := New(loadConfig(t))

	_, err := s.ResolveType("oracle")
	require.Error(t, err)

	var se *errno.SynapseError
	assert.ErrorAs(t, err, &se)
}

func TestMySQLAliasesMariaDB(t *testing.T) {
	t.Setenv("SYNAPSE_MARIADB_HOST", "db.internal")
	s := New(loadConfig(t))

	typ, err := s.ResolveType("mysql")
	require.NoError(t, err)
	assert.Equal(t, storage.EngineMySQL, typ)

	eng := constructors[typ](s, Overrides{})
	_, ok := eng.(*mariadb.Engine)
	assert.True(t, ok)
}

func TestOverridesReplaceConfiguredValues(t *testing.T) {
	s := New(loadConfig(t))

	eng := constructors[storage.EngineSQLite](s, Overrides{Path: "/tmp/override.db"})
	_, ok := eng.(*sqlite.Engine)
	assert.True(t, ok)
}

func TestOpenInitializesSchema(t *testing.T) {
	t.Setenv("SYNAPSE_SQLITE_DB_PATH", filepath.Join(t.TempDir(), "open.db"))
	s := New(loadConfig(t))

	eng, err := s.Open("sqlite", Overrides{})
	require.NoError(t, err)
	defer eng.Close()

	// Schema is ready: a save on a fresh database succeeds immediately.
	require.NoError(t, eng.SaveMemory("note.md", "x", nil))
}

func TestOpenRejectsUnknownType(t *testing.T) {
	s := New(loadConfig(t))

	_, err := s.Open("oracle", Overrides{})
	require.Error(t, err)
}
