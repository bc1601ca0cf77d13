package mcptools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/chronicle"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// RecordInsightTool handles "record_insight".
type RecordInsightTool struct {
	store *chronicle.Store
}

func NewRecordInsightTool(store *chronicle.Store) *RecordInsightTool {
	return &RecordInsightTool{store: store}
}

func (t *RecordInsightTool) Definition() mcp.Tool {
	return mcp.NewTool("record_insight",
		mcp.WithDescription("Append an insight to the Experiential Chronicle under one of three layers: ground_truth, hypothesis, or open_thread."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Topic area this insight belongs to")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The insight text")),
		mcp.WithNumber("intensity", mcp.Required(), mcp.Description("How strongly this insight should weigh on recall, in [0,1]")),
		mcp.WithString("layer", mcp.Required(), mcp.Description("One of: ground_truth, hypothesis, open_thread")),
		mcp.WithNumber("confidence", mcp.Description("Required when layer=hypothesis, forbidden otherwise; in [0,1]")),
		mcp.WithString("session_id", mcp.Description("Session recording this insight")),
	)
}

func (t *RecordInsightTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := req.GetString("domain", "")
	content := req.GetString("content", "")
	layer := chronicle.Layer(req.GetString("layer", ""))
	intensity := floatArg(req, "intensity", -1)
	confidence := optionalFloatArg(req, "confidence")
	sessionID := req.GetString("session_id", "")

	id, err := t.store.RecordInsight(domain, content, intensity, layer, confidence, sessionID)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(id), nil
}

// RecallInsightsTool handles "recall_insights".
type RecallInsightsTool struct {
	store *chronicle.Store
}

func NewRecallInsightsTool(store *chronicle.Store) *RecallInsightsTool {
	return &RecallInsightsTool{store: store}
}

func (t *RecallInsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_insights",
		mcp.WithDescription("Recall stored insights, most recent first, optionally filtered by domain and layer."),
		mcp.WithString("domain", mcp.Description("Restrict to this domain")),
		mcp.WithString("layer", mcp.Description("Restrict to this layer: ground_truth, hypothesis, or open_thread")),
		mcp.WithNumber("limit", mcp.Description("Maximum insights to return (default 10)")),
	)
}

func (t *RecallInsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := optionalStringArg(req, "domain")
	limit := intArg(req, "limit", 10)

	var layer *chronicle.Layer
	if l := req.GetString("layer", ""); l != "" {
		lv := chronicle.Layer(l)
		layer = &lv
	}

	insights, err := t.store.RecallInsights(domain, layer, limit)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(insights)
}

// RecordLearningTool handles "record_learning".
type RecordLearningTool struct {
	store *chronicle.Store
}

func NewRecordLearningTool(store *chronicle.Store) *RecordLearningTool {
	return &RecordLearningTool{store: store}
}

func (t *RecordLearningTool) Definition() mcp.Tool {
	return mcp.NewTool("record_learning",
		mcp.WithDescription("Record a lesson learned from a mistake, retrievable by future sessions via check_mistakes."),
		mcp.WithString("what_happened", mcp.Required(), mcp.Description("What went wrong")),
		mcp.WithString("what_learned", mcp.Required(), mcp.Description("What should be done differently")),
		mcp.WithString("applies_to", mcp.Description("Scope this lesson applies to")),
		mcp.WithString("session_id", mcp.Description("Session recording this learning")),
	)
}

func (t *RecordLearningTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	whatHappened := req.GetString("what_happened", "")
	whatLearned := req.GetString("what_learned", "")
	appliesTo := req.GetString("applies_to", "")
	sessionID := req.GetString("session_id", "")

	id, err := t.store.RecordLearning(whatHappened, whatLearned, appliesTo, sessionID)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(id), nil
}

// CheckMistakesTool handles "check_mistakes".
type CheckMistakesTool struct {
	store *chronicle.Store
}

func NewCheckMistakesTool(store *chronicle.Store) *CheckMistakesTool {
	return &CheckMistakesTool{store: store}
}

func (t *CheckMistakesTool) Definition() mcp.Tool {
	return mcp.NewTool("check_mistakes",
		mcp.WithDescription("Look up prior learnings relevant to the given context, scored by token overlap, most relevant first."),
		mcp.WithString("context", mcp.Required(), mcp.Description("Free text describing the task about to be attempted")),
		mcp.WithNumber("limit", mcp.Description("Maximum learnings to return (default 10)")),
	)
}

func (t *CheckMistakesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	context := req.GetString("context", "")
	limit := intArg(req, "limit", 10)

	learnings, err := t.store.CheckMistakes(context, limit)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(learnings)
}

// RecordOpenThreadTool handles "record_open_thread".
type RecordOpenThreadTool struct {
	store *chronicle.Store
}

func NewRecordOpenThreadTool(store *chronicle.Store) *RecordOpenThreadTool {
	return &RecordOpenThreadTool{store: store}
}

func (t *RecordOpenThreadTool) Definition() mcp.Tool {
	return mcp.NewTool("record_open_thread",
		mcp.WithDescription("Record an unresolved question for a later session to pick up."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Topic area this question belongs to")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The open question")),
		mcp.WithString("context", mcp.Description("Supporting context for the question")),
		mcp.WithString("session_id", mcp.Description("Session recording this thread")),
	)
}

func (t *RecordOpenThreadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := req.GetString("domain", "")
	question := req.GetString("question", "")
	threadContext := req.GetString("context", "")
	sessionID := req.GetString("session_id", "")

	id, err := t.store.RecordOpenThread(domain, question, threadContext, sessionID)
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(id), nil
}

// GetOpenThreadsTool handles "get_open_threads".
type GetOpenThreadsTool struct {
	store *chronicle.Store
}

func NewGetOpenThreadsTool(store *chronicle.Store) *GetOpenThreadsTool {
	return &GetOpenThreadsTool{store: store}
}

func (t *GetOpenThreadsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_open_threads",
		mcp.WithDescription("List open threads, optionally filtered by domain and to unresolved only."),
		mcp.WithString("domain", mcp.Description("Restrict to this domain")),
		mcp.WithBoolean("unresolved_only", mcp.Description("Exclude resolved threads (default true)")),
	)
}

func (t *GetOpenThreadsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := optionalStringArg(req, "domain")
	unresolvedOnly := boolArg(req, "unresolved_only", true)

	threads, err := t.store.GetOpenThreads(domain, unresolvedOnly)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(threads)
}

// ResolveThreadTool handles "resolve_thread".
type ResolveThreadTool struct {
	store *chronicle.Store
}

func NewResolveThreadTool(store *chronicle.Store) *ResolveThreadTool {
	return &ResolveThreadTool{store: store}
}

func (t *ResolveThreadTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_thread",
		mcp.WithDescription("Resolve the first unresolved thread in a domain whose question contains a fragment, recording a companion ground-truth insight citing the resolution."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain the thread belongs to")),
		mcp.WithString("question_fragment", mcp.Required(), mcp.Description("Substring to match against unresolved questions")),
		mcp.WithString("resolution", mcp.Description("The resolution text")),
		mcp.WithString("session_id", mcp.Description("Session recording the resolution")),
	)
}

func (t *ResolveThreadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := req.GetString("domain", "")
	fragment := req.GetString("question_fragment", "")
	resolution := req.GetString("resolution", "")
	sessionID := req.GetString("session_id", "")

	thread, insightID, err := t.store.ResolveThread(domain, fragment, resolution, sessionID)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"thread": thread, "insight_id": insightID})
}

// GetInheritableContextTool handles "get_inheritable_context".
type GetInheritableContextTool struct {
	store *chronicle.Store
}

func NewGetInheritableContextTool(store *chronicle.Store) *GetInheritableContextTool {
	return &GetInheritableContextTool{store: store}
}

func (t *GetInheritableContextTool) Definition() mcp.Tool {
	return mcp.NewTool("get_inheritable_context",
		mcp.WithDescription("Assemble the porous inheritance package for a new session: ground_truth carried verbatim, hypotheses offered as flagged non-canonical references, open_threads as invitations."),
		mcp.WithNumber("limit", mcp.Description("Maximum records per layer (default 20)")),
	)
}

func (t *GetInheritableContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)

	pkg, err := t.store.GetInheritableContext(limit)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(pkg)
}

// jsonResult marshals v and wraps it as a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult(sverrors.Wrap(sverrors.Internal, "marshaling result", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
