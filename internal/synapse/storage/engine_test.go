package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEngineType(t *testing.T) {
	cases := []struct {
		in   string
		want EngineType
	}{
		{"sqlite", EngineSQLite},
		{"duckdb", EngineDuckDB},
		{"mariadb", EngineMariaDB},
		{"mysql", EngineMySQL},
		{"SQLite", EngineSQLite},
		{" duckdb ", EngineDuckDB},
	}
	for _, tc := range cases {
		got, err := ParseEngineType(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, in := range []string{"", "oracle", "postgres", "sqlite3"} {
		_, err := ParseEngineType(in)
		assert.Error(t, err, "input %q", in)
	}
}
