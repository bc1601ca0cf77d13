// Package mcptools adapts each core subsystem operation to an MCP tool:
// one file per subsystem, each following the same struct/Definition/Handle
// shape — a tool holds the store it needs, declares its JSON-schema
// argument spec, and translates sverrors kinds into a structured
// {kind, message} tool-result error rather than letting a Go error or
// stack trace escape the MCP surface.
package mcptools

import (
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

// floatArg extracts a numeric argument (JSON numbers decode as float64).
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// intArg extracts an integer argument.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// optionalStringArg returns a pointer to the string argument, or nil if
// absent or empty — used for filters that distinguish "unset" from "".
func optionalStringArg(req mcp.CallToolRequest, key string) *string {
	v := req.GetString(key, "")
	if v == "" {
		return nil
	}
	return &v
}

// optionalFloatArg returns a pointer to the numeric argument, or nil if
// absent — used where the domain layer distinguishes "unset" from zero.
func optionalFloatArg(req mcp.CallToolRequest, key string) *float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

// errResult translates an sverrors-kinded error into a structured tool
// result. No stack trace or absolute path ever reaches this text: Internal
// errors are reduced to a generic message by sverrors.CallerMessage, and
// their full detail is logged locally under an incident id that the
// caller-facing message includes.
func errResult(err error) *mcp.CallToolResult {
	kind := sverrors.KindOf(err)
	msg := sverrors.CallerMessage(err)
	if kind == sverrors.Internal {
		incident := fmt.Sprintf("%x", time.Now().UnixNano())
		log.Printf("internal error [incident %s]: %v", incident, err)
		msg += " (incident " + incident + ")"
	}
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", kind, msg))
}
