package mcptools

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/spiral"
)

// SpiralTools holds the single live spiral session for this server
// instance: at most one active session per transport connection,
// lazily started on first status/reflect call.
type SpiralTools struct {
	store *spiral.Store

	mu               sync.Mutex
	currentSessionID string
}

// NewSpiralTools constructs the spiral toolset backed by store.
func NewSpiralTools(store *spiral.Store) *SpiralTools {
	return &SpiralTools{store: store}
}

func (t *SpiralTools) ensureSession() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentSessionID != "" {
		return t.currentSessionID, nil
	}
	st, err := t.store.StartSession()
	if err != nil {
		return "", err
	}
	t.currentSessionID = st.SessionID
	return t.currentSessionID, nil
}

// CurrentStatus returns the current session's snapshot, starting a new
// session first if none is active yet. Exposed for the spiral/state
// resource, which mirrors what spiral_status would report.
func (t *SpiralTools) CurrentStatus() (spiral.State, error) {
	sessionID, err := t.ensureSession()
	if err != nil {
		return spiral.State{}, err
	}
	return t.store.Status(sessionID)
}

// StatusTool handles "spiral_status".
type StatusTool struct {
	tools *SpiralTools
}

func NewStatusTool(tools *SpiralTools) *StatusTool {
	return &StatusTool{tools: tools}
}

func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("spiral_status",
		mcp.WithDescription("Return the current session's spiral phase, reflection depth, and transition history, starting a new session if none is active yet."),
	)
}

func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := t.tools.ensureSession()
	if err != nil {
		return errResult(err), nil
	}
	st, err := t.tools.store.Status(sessionID)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(st)
}

// ReflectTool handles "spiral_reflect".
type ReflectTool struct {
	tools *SpiralTools
}

func NewReflectTool(tools *SpiralTools) *ReflectTool {
	return &ReflectTool{tools: tools}
}

func (t *ReflectTool) Definition() mcp.Tool {
	return mcp.NewTool("spiral_reflect",
		mcp.WithDescription("Record an observation against the current session, incrementing reflection depth and advancing phase per the depth-threshold rule."),
		mcp.WithString("observation", mcp.Required(), mcp.Description("The observation to append to the session's transitions")),
	)
}

func (t *ReflectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	observation := req.GetString("observation", "")
	if observation == "" {
		return mcp.NewToolResultError("'observation' is required"), nil
	}
	sessionID, err := t.tools.ensureSession()
	if err != nil {
		return errResult(err), nil
	}
	st, err := t.tools.store.Reflect(sessionID, observation)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(st)
}

// InheritTool handles "spiral_inherit".
type InheritTool struct {
	tools *SpiralTools
}

func NewInheritTool(tools *SpiralTools) *InheritTool {
	return &InheritTool{tools: tools}
}

func (t *InheritTool) Definition() mcp.Tool {
	return mcp.NewTool("spiral_inherit",
		mcp.WithDescription("Start a new session inheriting a pointer from a prior one (or the most recently updated session if none is named), resetting phase and reflection depth, and making it the current session."),
		mcp.WithString("session_id", mcp.Description("Session to inherit from; defaults to the most recently updated session")),
	)
}

func (t *InheritTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := req.GetString("session_id", "")

	st, err := t.tools.store.Inherit(from)
	if err != nil {
		return errResult(err), nil
	}

	t.tools.mu.Lock()
	t.tools.currentSessionID = st.SessionID
	t.tools.mu.Unlock()

	return jsonResult(st)
}
