package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/governance"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/deliberator"
)

// ScanThresholdsTool handles "scan_thresholds".
type ScanThresholdsTool struct {
	circuit *governance.Circuit
}

func NewScanThresholdsTool(circuit *governance.Circuit) *ScanThresholdsTool {
	return &ScanThresholdsTool{circuit: circuit}
}

func (t *ScanThresholdsTool) Definition() mcp.Tool {
	return mcp.NewTool("scan_thresholds",
		mcp.WithDescription("Scan a directory subtree for file_count, depth, entropy, self_reference, and growth_rate threshold violations."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Directory to scan")),
		mcp.WithBoolean("recursive", mcp.Description("Scan nested directories (default true)")),
	)
}

func (t *ScanThresholdsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	recursive := boolArg(req, "recursive", true)

	result, err := t.circuit.ScanThresholds(ctx, path, recursive)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(result)
}

// GovernTool handles "govern".
type GovernTool struct {
	circuit *governance.Circuit
}

func NewGovernTool(circuit *governance.Circuit) *GovernTool {
	return &GovernTool{circuit: circuit}
}

func (t *GovernTool) Definition() mcp.Tool {
	return mcp.NewTool("govern",
		mcp.WithDescription(
			"Run the full governance circuit against a target: scan for threshold "+
				"violations, rank remediation scenarios by reversibility, deliberate "+
				"on the supplied vote, and append the outcome to the tamper-evident "+
				"audit chain.",
		),
		mcp.WithString("target", mcp.Required(), mcp.Description("Directory the intervention concerns")),
		mcp.WithString("actor", mcp.Required(), mcp.Description("Identity of the caller requesting governance")),
		mcp.WithString("vote", mcp.Required(), mcp.Description("One of: proceed, pause, reject")),
		mcp.WithString("rationale", mcp.Description("Rationale accompanying the vote")),
	)
}

func (t *GovernTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := req.GetString("target", "")
	if target == "" {
		return mcp.NewToolResultError("'target' is required"), nil
	}
	actor := req.GetString("actor", "")
	if actor == "" {
		return mcp.NewToolResultError("'actor' is required"), nil
	}
	ballot := deliberator.Ballot(req.GetString("vote", ""))
	if !deliberator.ValidateBallot(ballot) {
		return mcp.NewToolResultError("'vote' must be one of: proceed, pause, reject"), nil
	}
	rationale := req.GetString("rationale", "")

	votes := []deliberator.Vote{{Ballot: ballot, Rationale: rationale}}

	result, err := t.circuit.Govern(ctx, target, actor, rationale, votes)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(result)
}

// VerifyAuditChainTool handles "verify_audit_chain".
type VerifyAuditChainTool struct {
	circuit *governance.Circuit
}

func NewVerifyAuditChainTool(circuit *governance.Circuit) *VerifyAuditChainTool {
	return &VerifyAuditChainTool{circuit: circuit}
}

func (t *VerifyAuditChainTool) Definition() mcp.Tool {
	return mcp.NewTool("verify_audit_chain",
		mcp.WithDescription("Recompute and verify the governance audit log's hash chain, detecting any tampering."),
	)
}

func (t *VerifyAuditChainTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.circuit.VerifyAuditChain(); err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText("audit chain intact"), nil
}
