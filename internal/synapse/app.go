package synapse

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

// NewSynapseCommand creates the `synapse` root command.
func NewSynapseCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "synapse",
		Short: "synapse serves agent memory over MCP",
		Long: heredoc.Doc(`
			Synapse is an MCP server that gives AI assistants durable memory.

			Memory files live as markdown in a local directory and are mirrored
			into a SQL database (SQLite, DuckDB or MariaDB). Writes go to both
			stores; reads prefer the database and fall back to the files when
			the database is unreachable.

			Configuration is read from config.<env>.json plus config.local.json,
			overridden by SYNAPSE_* environment variables and these flags.`),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.ErrOrStderr(), Banner())
			return Run(opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to an explicit configuration file")
	flags.StringVar(&opts.DBType, "db-type", "", "database backend (sqlite, duckdb, mariadb, mysql)")
	flags.StringVar(&opts.MemoryDir, "memory-dir", "", "directory holding the memory files")
	flags.StringVar(&opts.DebugAddr, "debug-addr", "", "address for the debug HTTP listener (disabled when empty)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}
