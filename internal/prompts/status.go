package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the sovereign-status MCP prompt. It instructs the
// AI to gather and present a snapshot across all five subsystems rather
// than just one.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("sovereign-status",
		mcp.WithPromptDescription(
			"Check the current state of Sovereign Stack: spiral phase, "+
				"open threads, and component health.",
		),
	)
}

// Handle processes the sovereign-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Sovereign Stack status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please:\n" +
						"1. Read the sovereign://manifest resource for component health.\n" +
						"2. Run `spiral_status` for the current reflection phase.\n" +
						"3. Run `get_open_threads` with unresolved_only=true.\n" +
						"4. Present all three together, then tell me what, if " +
						"anything, needs my attention right now.",
				),
			},
		},
	}, nil
}
