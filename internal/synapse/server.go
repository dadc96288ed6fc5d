// Package synapse wires the memory layer into an MCP server that speaks
// stdio. All logging goes to stderr so that stdout stays free for the
// protocol stream.
package synapse

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/synapsehq/synapse/internal/synapse/config"
	"github.com/synapsehq/synapse/internal/synapse/stats"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/filestore"
	"github.com/synapsehq/synapse/internal/synapse/storage/selector"
	"github.com/synapsehq/synapse/internal/synapse/storage/syncer"
	"github.com/synapsehq/synapse/internal/synapse/tools"
	"github.com/synapsehq/synapse/pkg/logger"
)

const (
	ServerName = "synapse"
	Version    = "1.0.0"
)

const instructions = `Synapse stores agent memory as markdown files mirrored into a SQL
database. Write operations hit both stores; reads prefer the database and
fall back to the files when the database is offline.`

// Options carries the command line overrides applied on top of the
// configuration file.
type Options struct {
	ConfigPath string
	DBType     string
	MemoryDir  string
	DebugAddr  string
	LogLevel   string
}

// Runtime holds the assembled service. Tests use Build directly and drive
// the coordinator without a transport.
type Runtime struct {
	Config *config.Config
	Stats  *stats.Stats
	Memory *syncer.Coordinator
	MCP    *server.MCPServer
	DBType storage.EngineType
}

// Build assembles the full service from configuration plus overrides.
func Build(opts *Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.LogLevel()
	}
	logger.Init(level)

	memoryDir := opts.MemoryDir
	if memoryDir == "" {
		memoryDir = cfg.MemoryDir()
	}
	files, err := filestore.New(memoryDir, cfg.Encoding())
	if err != nil {
		return nil, err
	}
	if err := files.EnsureDirectory(); err != nil {
		return nil, err
	}

	sel := selector.New(cfg)
	dbType, err := sel.ResolveType(opts.DBType)
	if err != nil {
		return nil, err
	}

	st := stats.New()
	open := func(explicit string) (storage.Engine, error) {
		if explicit == "" {
			explicit = string(dbType)
		}
		return sel.Open(explicit, selector.Overrides{})
	}
	mem := syncer.New(files, open, st)

	s := server.NewMCPServer(ServerName, Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	tools.Register(s, &tools.Deps{
		Memory:    mem,
		Stats:     st,
		DBType:    string(dbType),
		MemoryDir: memoryDir,
	})

	return &Runtime{
		Config: cfg,
		Stats:  st,
		Memory: mem,
		MCP:    s,
		DBType: dbType,
	}, nil
}

// Run builds the service and serves MCP over stdio until the client
// disconnects. When opts.DebugAddr is set a debug HTTP listener runs
// alongside the stdio transport.
func Run(opts *Options) error {
	rt, err := Build(opts)
	if err != nil {
		return err
	}

	if opts.DebugAddr != "" {
		go serveDebug(opts.DebugAddr, rt)
	}

	logger.Infof("serving MCP over stdio, backend=%s", rt.DBType)
	return server.ServeStdio(rt.MCP)
}
