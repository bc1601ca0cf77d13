// Package prompts implements MCP prompt handlers for Sovereign Stack.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence, distinct from tools
// (which the AI calls on its own initiative).
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// SessionStartPrompt handles the sovereign-session-start MCP prompt.
// It guides the AI to inherit prior context before doing anything else
// in a fresh session.
type SessionStartPrompt struct{}

// NewSessionStartPrompt creates a SessionStartPrompt.
func NewSessionStartPrompt() *SessionStartPrompt {
	return &SessionStartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SessionStartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("sovereign-session-start",
		mcp.WithPromptDescription(
			"Begin a session by inheriting prior context: open threads, "+
				"ground-truth insights, known mistakes, and the current "+
				"spiral phase.",
		),
		mcp.WithArgument("domain",
			mcp.ArgumentDescription("Restrict inheritance to a single domain, if known"),
		),
	)
}

// Handle processes the sovereign-session-start prompt request.
func (p *SessionStartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	domain := ""
	if args := req.Params.Arguments; args != nil {
		if d, ok := args["domain"]; ok && d != "" {
			domain = d
		}
	}

	instruction := "Please:\n" +
		"1. Run `get_inheritable_context` to receive ground truth, flagged " +
		"hypotheses, and open threads from prior sessions.\n" +
		"2. Run `check_mistakes` against a short description of what you're " +
		"about to do, so you don't repeat a recorded mistake.\n" +
		"3. Run `spiral_status` to see which phase of reflection you're " +
		"inheriting into.\n" +
		"4. Summarize what you inherited before starting new work."

	if domain != "" {
		instruction += "\n\nRestrict the inheritable-context and mistake checks to the '" + domain + "' domain."
	}

	return &mcp.GetPromptResult{
		Description: "Inherit prior session context before starting",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(instruction),
			},
		},
	}, nil
}
