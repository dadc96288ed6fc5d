package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/synapsehq/synapse/internal/synapse/storage"
	"github.com/synapsehq/synapse/pkg/logger"
	"github.com/synapsehq/synapse/pkg/utils/json"
)

// toolLog returns a log entry tagged with the tool name and a fresh
// per-invocation request id.
func toolLog(tool string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"tool":       tool,
		"request_id": uuid.NewString(),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	text, err := json.MarshalString(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// ListTool lists every memory filename known to either store.
type ListTool struct {
	mem Memory
}

func NewListTool(mem Memory) *ListTool { return &ListTool{mem: mem} }

func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_list_memories",
		mcp.WithDescription("List all memory files, merged across the database and the memory directory."),
	)
}

func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log := toolLog("synapse_list_memories")
	names, err := t.mem.List()
	if err != nil {
		log.Errorf("list failed: %v", err)
		return mcp.NewToolResultError(fmt.Sprintf("listing memories: %v", err)), nil
	}
	log.Debugf("listed %d memories", len(names))
	if names == nil {
		names = []string{}
	}
	return jsonResult(names)
}

// ReadTool returns the content of one memory file.
type ReadTool struct {
	mem Memory
}

func NewReadTool(mem Memory) *ReadTool { return &ReadTool{mem: mem} }

func (t *ReadTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_read_memory",
		mcp.WithDescription("Read the content of a memory file, falling back to the memory directory when the database is unavailable."),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Name of the memory file to read.")),
	)
}

func (t *ReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log := toolLog("synapse_read_memory")
	content, found, err := t.mem.Read(name)
	if err != nil {
		log.Errorf("read %q failed: %v", name, err)
		return mcp.NewToolResultError(fmt.Sprintf("reading memory %q: %v", name, err)), nil
	}
	if !found {
		return mcp.NewToolResultText(fmt.Sprintf("memory %q not found", name)), nil
	}
	return mcp.NewToolResultText(content), nil
}

// WriteTool stores a memory file in both stores.
type WriteTool struct {
	mem Memory
}

func NewWriteTool(mem Memory) *WriteTool { return &WriteTool{mem: mem} }

func (t *WriteTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_write_memory",
		mcp.WithDescription("Write a memory file to the memory directory and the database. Partial failure is reported per store."),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Name of the memory file to write.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content to store.")),
		mcp.WithObject("metadata", mcp.Description("Optional free-form annotations stored with the database record.")),
	)
}

func (t *WriteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var metadata storage.Metadata
	if m, ok := req.GetArguments()["metadata"].(map[string]interface{}); ok {
		metadata = storage.Metadata(m)
	}

	log := toolLog("synapse_write_memory")
	report := t.mem.Write(name, content, metadata)
	if report.OK() {
		log.Infof("wrote memory %q", name)
		return mcp.NewToolResultText(fmt.Sprintf("saved memory %q", name)), nil
	}

	var legs []string
	if report.FileErr != nil {
		legs = append(legs, fmt.Sprintf("filesystem: %v", report.FileErr))
	}
	if report.DBErr != nil {
		legs = append(legs, fmt.Sprintf("database: %v", report.DBErr))
	}
	log.Errorf("write %q partially failed: %s", name, strings.Join(legs, "; "))
	return mcp.NewToolResultError(fmt.Sprintf("writing memory %q failed in %s", name, strings.Join(legs, "; "))), nil
}

// DeleteTool removes a memory file from both stores.
type DeleteTool struct {
	mem Memory
}

func NewDeleteTool(mem Memory) *DeleteTool { return &DeleteTool{mem: mem} }

func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_delete_memory",
		mcp.WithDescription("Delete a memory file from the memory directory and the database, including its revision history."),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Name of the memory file to delete.")),
	)
}

func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log := toolLog("synapse_delete_memory")
	report := t.mem.Delete(name)
	if !report.OK() {
		var legs []string
		if report.FileErr != nil {
			legs = append(legs, fmt.Sprintf("filesystem: %v", report.FileErr))
		}
		if report.DBErr != nil {
			legs = append(legs, fmt.Sprintf("database: %v", report.DBErr))
		}
		log.Errorf("delete %q partially failed: %s", name, strings.Join(legs, "; "))
		return mcp.NewToolResultError(fmt.Sprintf("deleting memory %q failed in %s", name, strings.Join(legs, "; "))), nil
	}
	if !report.Existed {
		return mcp.NewToolResultText(fmt.Sprintf("memory %q not found", name)), nil
	}
	log.Infof("deleted memory %q", name)
	return mcp.NewToolResultText(fmt.Sprintf("deleted memory %q", name)), nil
}

// SearchTool substring-searches memory content.
type SearchTool struct {
	mem Memory
}

func NewSearchTool(mem Memory) *SearchTool { return &SearchTool{mem: mem} }

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_search_memories",
		mcp.WithDescription("Search memory content for a substring. Results are ordered by filename."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to search for.")),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log := toolLog("synapse_search_memories")
	hits, err := t.mem.Search(query)
	if err != nil {
		log.Errorf("search %q failed: %v", query, err)
		return mcp.NewToolResultError(fmt.Sprintf("searching memories: %v", err)), nil
	}
	log.Debugf("search %q matched %d memories", query, len(hits))
	if hits == nil {
		hits = []storage.SearchHit{}
	}
	return jsonResult(hits)
}

// MetadataTool returns the merged metadata of a memory record.
type MetadataTool struct {
	mem Memory
}

func NewMetadataTool(mem Memory) *MetadataTool { return &MetadataTool{mem: mem} }

func (t *MetadataTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_memory_metadata",
		mcp.WithDescription("Get the stored metadata of a memory record merged with its created_at, updated_at and version."),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Name of the memory file.")),
	)
}

func (t *MetadataTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log := toolLog("synapse_memory_metadata")
	meta, err := t.mem.Metadata(name)
	if err != nil {
		log.Errorf("metadata %q failed: %v", name, err)
		return mcp.NewToolResultError(fmt.Sprintf("getting metadata for %q: %v", name, err)), nil
	}
	if meta == nil {
		return mcp.NewToolResultText(fmt.Sprintf("memory %q not found", name)), nil
	}
	return jsonResult(meta)
}

// HistoryTool returns the revision history of a memory record.
type HistoryTool struct {
	mem Memory
}

func NewHistoryTool(mem Memory) *HistoryTool { return &HistoryTool{mem: mem} }

func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_memory_history",
		mcp.WithDescription("Get the revision history of a memory record, most recent versions first."),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("Name of the memory file.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of revisions to return (default 10).")),
	)
}

func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 10)

	log := toolLog("synapse_memory_history")
	entries, err := t.mem.History(name, limit)
	if err != nil {
		log.Errorf("history %q failed: %v", name, err)
		return mcp.NewToolResultError(fmt.Sprintf("getting history for %q: %v", name, err)), nil
	}
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}
	return jsonResult(entries)
}

// MigrateTool copies every memory file into a database backend.
type MigrateTool struct {
	mem Memory
}

func NewMigrateTool(mem Memory) *MigrateTool { return &MigrateTool{mem: mem} }

func (t *MigrateTool) Definition() mcp.Tool {
	return mcp.NewTool("synapse_migrate_memories",
		mcp.WithDescription("Copy every memory file from the memory directory into the database. "+
			"Re-running bumps versions and grows history for files the database already holds."),
		mcp.WithString("db_type", mcp.Description("Target backend (sqlite, duckdb, mariadb, mysql). Defaults to the configured backend.")),
	)
}

func (t *MigrateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := req.GetString("db_type", "")

	log := toolLog("synapse_migrate_memories")
	results, err := t.mem.MigrateFilesToDB(target)
	if err != nil {
		log.Errorf("migrate failed: %v", err)
		return mcp.NewToolResultError(fmt.Sprintf("migrating memories: %v", err)), nil
	}
	return jsonResult(results)
}
