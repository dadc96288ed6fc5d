package synapse

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandFlags(t *testing.T) {
	cmd := NewSynapseCommand()
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Parse([]string{"--db-type", "sqlite", "--memory-dir", "/tmp/mem"}))

	dbType, err := flags.GetString("db-type")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dbType)

	memoryDir, err := flags.GetString("memory-dir")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mem", memoryDir)
}

func TestFlagsStayOutOfGlobalViper(t *testing.T) {
	cmd := NewSynapseCommand()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--db-type", "sqlite"}))

	// Flags reach the service through Options; the process-wide viper
	// instance is not a side channel.
	assert.Nil(t, viper.Get("db-type"))
}
