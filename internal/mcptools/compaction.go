package mcptools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/compaction"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// StoreCompactionSummaryTool handles "store_compaction_summary".
type StoreCompactionSummaryTool struct {
	store *compaction.Store
}

func NewStoreCompactionSummaryTool(store *compaction.Store) *StoreCompactionSummaryTool {
	return &StoreCompactionSummaryTool{store: store}
}

func (t *StoreCompactionSummaryTool) Definition() mcp.Tool {
	return mcp.NewTool("store_compaction_summary",
		mcp.WithDescription(
			"Append a high-fidelity session summary to the bounded compaction "+
				"buffer (capacity 3, oldest evicted first, compaction_number "+
				"monotonic even across evictions).",
		),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session this summary belongs to")),
		mcp.WithString("summary_text", mcp.Required(), mcp.Description("The summary text")),
		mcp.WithString("key_points", mcp.Description("JSON array of key point strings")),
		mcp.WithString("active_tasks", mcp.Description("JSON array of active task strings")),
		mcp.WithString("recent_breakthroughs", mcp.Description("JSON array of recent breakthrough strings")),
	)
}

func (t *StoreCompactionSummaryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	summaryText := req.GetString("summary_text", "")
	if summaryText == "" {
		return mcp.NewToolResultError("'summary_text' is required"), nil
	}

	keyPoints, err := jsonStringList(req, "key_points")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	activeTasks, err := jsonStringList(req, "active_tasks")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	breakthroughs, err := jsonStringList(req, "recent_breakthroughs")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := t.store.Store(sessionID, summaryText, keyPoints, activeTasks, breakthroughs)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(summary)
}

func jsonStringList(req mcp.CallToolRequest, key string) ([]string, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, sverrors.New(sverrors.InvalidInput, "'"+key+"' is not a valid JSON array of strings")
	}
	return list, nil
}

// GetCompactionContextTool handles "get_compaction_context".
type GetCompactionContextTool struct {
	store *compaction.Store
}

func NewGetCompactionContextTool(store *compaction.Store) *GetCompactionContextTool {
	return &GetCompactionContextTool{store: store}
}

func (t *GetCompactionContextTool) Definition() mcp.Tool {
	return mcp.NewTool("get_compaction_context",
		mcp.WithDescription("Return all stored compaction summaries in chronological order, formatted as recovery text."),
	)
}

func (t *GetCompactionContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := t.store.GetContext()
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

// GetCompactionStatsTool handles "get_compaction_stats".
type GetCompactionStatsTool struct {
	store *compaction.Store
}

func NewGetCompactionStatsTool(store *compaction.Store) *GetCompactionStatsTool {
	return &GetCompactionStatsTool{store: store}
}

func (t *GetCompactionStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_compaction_stats",
		mcp.WithDescription("Report compaction buffer occupancy and the monotonic compaction counter."),
	)
}

func (t *GetCompactionStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.GetStats()
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(stats)
}
