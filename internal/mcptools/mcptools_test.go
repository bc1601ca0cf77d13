package mcptools

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// makeReq builds an mcp.CallToolRequest with the given arguments, the
// same way a real MCP client's parsed JSON-RPC call would arrive.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// requireNoToolError fails the test if r reports an error.
func requireNoToolError(t *testing.T, r *mcp.CallToolResult) {
	t.Helper()
	if r != nil && r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// requireToolError fails the test unless r reports an error whose text
// contains wantSubstr.
func requireToolError(t *testing.T, r *mcp.CallToolResult, wantSubstr string) {
	t.Helper()
	if r == nil || !r.IsError {
		t.Fatalf("expected tool error containing %q, got success: %v", wantSubstr, r)
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error text %q does not contain %q", resultText(r), wantSubstr)
	}
}

// decodeJSONResult unmarshals a tool result's text content into v.
func decodeJSONResult(t *testing.T, r *mcp.CallToolResult, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(resultText(r)), v); err != nil {
		t.Fatalf("decoding result %q: %v", resultText(r), err)
	}
}
