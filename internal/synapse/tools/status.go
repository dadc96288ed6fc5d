package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusTool reports the server configuration and operation counters.
type StatusTool struct {
	deps *Deps
}

func NewStatusTool(deps *Deps) *StatusTool { return &StatusTool{deps: deps} }

func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_status",
		mcp.WithDescription("Report the configured database backend, memory directory and operation counters."),
	)
}

func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]interface{}{
		"db_type":    t.deps.DBType,
		"memory_dir": t.deps.MemoryDir,
	}
	if t.deps.Stats != nil {
		status["counters"] = t.deps.Stats.Snapshot()
	}
	return jsonResult(status)
}
