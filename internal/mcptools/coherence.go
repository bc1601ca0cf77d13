package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/coherence"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// RouteTool handles the "route" tool, the MCP name for the Coherence
// Engine's transmit operation.
type RouteTool struct {
	engine *coherence.Engine
}

// NewRouteTool constructs a RouteTool backed by engine.
func NewRouteTool(engine *coherence.Engine) *RouteTool {
	return &RouteTool{engine: engine}
}

// Definition returns the MCP tool definition for "route".
func (t *RouteTool) Definition() mcp.Tool {
	return mcp.NewTool("route",
		mcp.WithDescription(
			"Route a packet of scalar values to a filesystem path via a schema "+
				"template, persisting it as JSON unless dry_run is set.",
		),
		mcp.WithString("packet",
			mcp.Required(),
			mcp.Description(
				"JSON object of string keys to scalar values (string, number, "+
					"boolean), e.g. \"{\\\"outcome\\\":\\\"success\\\",\\\"step\\\":3}\"",
			),
		),
		mcp.WithString("schema",
			mcp.Required(),
			mcp.Description("'/'-delimited schema template, e.g. \"outcome={outcome}/tool_family={tool_family}/decile(step)/{step}.json\""),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Compute the path without writing the packet to disk (default false)"),
		),
	)
}

// Handle processes the "route" tool call.
func (t *RouteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	packetRaw := req.GetString("packet", "")
	if packetRaw == "" {
		return mcp.NewToolResultError("'packet' is required and must be a JSON object"), nil
	}
	schemaTemplate := req.GetString("schema", "")
	if schemaTemplate == "" {
		return mcp.NewToolResultError("'schema' is required"), nil
	}
	dryRun := boolArg(req, "dry_run", false)

	var packet coherence.Packet
	if err := json.Unmarshal([]byte(packetRaw), &packet); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] 'packet' is not valid JSON: %v", sverrors.InvalidInput, err)), nil
	}

	schema, err := coherence.ParseSchema(schemaTemplate)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] invalid schema: %v", sverrors.InvalidInput, err)), nil
	}

	path, err := t.engine.Transmit(packet, schema, dryRun)
	if err != nil {
		return errResult(err), nil
	}

	return mcp.NewToolResultText(path), nil
}

// ReceiveTool handles the "receive" tool, the MCP name for the Coherence
// Engine's receive operation.
type ReceiveTool struct {
	engine *coherence.Engine
}

// NewReceiveTool constructs a ReceiveTool backed by engine.
func NewReceiveTool(engine *coherence.Engine) *ReceiveTool {
	return &ReceiveTool{engine: engine}
}

// Definition returns the MCP tool definition for "receive".
func (t *ReceiveTool) Definition() mcp.Tool {
	return mcp.NewTool("receive",
		mcp.WithDescription("Build a glob pattern against a schema template from partial constraints, to recover previously routed packets."),
		mcp.WithString("schema",
			mcp.Required(),
			mcp.Description("'/'-delimited schema template the constraints are matched against"),
		),
		mcp.WithString("constraints",
			mcp.Description(
				"JSON object of known key/value constraints, e.g. \"{\\\"outcome\\\":\\\"success\\\"}\". "+
					"Keys left unconstrained become glob wildcards.",
			),
		),
	)
}

// Handle processes the "receive" tool call.
func (t *ReceiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schemaTemplate := req.GetString("schema", "")
	if schemaTemplate == "" {
		return mcp.NewToolResultError("'schema' is required"), nil
	}

	var constraints coherence.Packet
	if constraintsRaw := req.GetString("constraints", ""); constraintsRaw != "" {
		if err := json.Unmarshal([]byte(constraintsRaw), &constraints); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] 'constraints' is not valid JSON: %v", sverrors.InvalidInput, err)), nil
		}
	}

	schema, err := coherence.ParseSchema(schemaTemplate)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] invalid schema: %v", sverrors.InvalidInput, err)), nil
	}

	glob := t.engine.Receive(schema, constraints)
	return mcp.NewToolResultText(glob), nil
}

// DeriveTool handles the "derive" tool.
type DeriveTool struct {
	engine *coherence.Engine
}

// NewDeriveTool constructs a DeriveTool backed by engine.
func NewDeriveTool(engine *coherence.Engine) *DeriveTool {
	return &DeriveTool{engine: engine}
}

// Definition returns the MCP tool definition for "derive".
func (t *DeriveTool) Definition() mcp.Tool {
	return mcp.NewTool("derive",
		mcp.WithDescription("Infer a routing schema from a corpus of paths previously produced by route."),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("JSON array of path strings to analyze, e.g. \"[\\\"a/b.json\\\",\\\"a/c.json\\\"]\""),
		),
	)
}

// Handle processes the "derive" tool call.
func (t *DeriveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathsRaw := req.GetString("paths", "")
	if pathsRaw == "" {
		return mcp.NewToolResultError("'paths' is required and must be a JSON array of strings"), nil
	}

	var paths []string
	if err := json.Unmarshal([]byte(pathsRaw), &paths); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] 'paths' is not valid JSON: %v", sverrors.InvalidInput, err)), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("'paths' must be a non-empty array of strings"), nil
	}

	schema, err := coherence.Derive(paths, coherence.DefaultMinFrequency)
	if err != nil {
		return errResult(err), nil
	}

	data, err := json.Marshal(map[string]string{"schema": schema.String()})
	if err != nil {
		return errResult(sverrors.Wrap(sverrors.Internal, "marshaling derived schema", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}
