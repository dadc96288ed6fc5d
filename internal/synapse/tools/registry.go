// Package tools exposes the memory layer as MCP tools. Registration is an
// explicit static table: every tool the server offers is listed in All, so
// the surface stays auditable.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/synapsehq/synapse/internal/synapse/stats"
	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/internal/synapse/storage/syncer"
)

// Memory is the coordinator surface the tools call.
type Memory interface {
	Read(filename string) (string, bool, error)
	Write(filename, content string, metadata storage.Metadata) syncer.WriteReport
	Delete(filename string) syncer.DeleteReport
	List() ([]string, error)
	Search(query string) ([]storage.SearchHit, error)
	Metadata(filename string) (storage.Metadata, error)
	History(filename string, limit int) ([]storage.HistoryEntry, error)
	MigrateFilesToDB(targetType string) (map[string]bool, error)
}

// Deps carries everything the tool handlers need. Constructed once at
// startup and passed down; nothing here is global.
type Deps struct {
	Memory    Memory
	Stats     *stats.Stats
	DBType    string
	MemoryDir string
}

// Tool pairs an MCP tool definition with its handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// All returns the complete tool set in registration order.
func All(deps *Deps) []Tool {
	return []Tool{
		NewListTool(deps.Memory),
		NewReadTool(deps.Memory),
		NewWriteTool(deps.Memory),
		NewDeleteTool(deps.Memory),
		NewSearchTool(deps.Memory),
		NewMetadataTool(deps.Memory),
		NewHistoryTool(deps.Memory),
		NewMigrateTool(deps.Memory),
		NewStatusTool(deps),
	}
}

// Register adds every tool to the MCP server.
func Register(s *server.MCPServer, deps *Deps) {
	for _, t := range All(deps) {
		s.AddTool(t.Definition(), t.Handle)
	}
}
