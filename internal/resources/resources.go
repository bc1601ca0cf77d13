// Package resources implements the three read-only MCP resources the
// server surface exposes: welcome, manifest, and spiral/state. Each is
// addressed by a sovereign:// URI following MCP convention.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sovereign-stack/sovereign-stack/internal/chronicle"
	"github.com/sovereign-stack/sovereign-stack/internal/mcptools"
	"github.com/sovereign-stack/sovereign-stack/internal/updater"
)

// Health reports whether each subsystem initialized successfully, for
// the manifest resource.
type Health struct {
	Coherence  bool
	Chronicle  bool
	Governance bool
	Spiral     bool
	Compaction bool
}

// Handler serves the three resources against the live subsystem stores.
// chronicle or spiral may be nil if their subsystem failed to
// initialize; the corresponding resource degrades gracefully rather
// than panicking.
type Handler struct {
	chronicle *chronicle.Store
	spiral    *mcptools.SpiralTools
	version   string
	health    Health

	// updateResult holds the outcome of the most recent background
	// version check, if any has completed yet. nil means no check has
	// reported back.
	updateResult atomic.Pointer[updater.UpdateResult]
}

// NewHandler constructs a Handler.
func NewHandler(chronicleStore *chronicle.Store, spiralTools *mcptools.SpiralTools, version string, health Health) *Handler {
	return &Handler{chronicle: chronicleStore, spiral: spiralTools, version: version, health: health}
}

// SetUpdateResult records the outcome of a background version check so
// the manifest resource can surface it. Safe to call concurrently with
// HandleManifest; a check that hasn't completed yet leaves the manifest
// silent on update status rather than blocking the read.
func (h *Handler) SetUpdateResult(result *updater.UpdateResult) {
	h.updateResult.Store(result)
}

// WelcomeResource returns the MCP resource definition for "welcome".
func (h *Handler) WelcomeResource() mcp.Resource {
	return mcp.NewResource(
		"sovereign://welcome",
		"Welcome",
		mcp.WithResourceDescription("Recent ground-truth insights digest plus a human-readable orientation"),
		mcp.WithMIMEType("text/plain"),
	)
}

// HandleWelcome renders the welcome text.
func (h *Handler) HandleWelcome(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var b strings.Builder
	b.WriteString("# Sovereign Stack\n\n")
	b.WriteString("A local, single-tenant persistence and governance server for an agent's ")
	b.WriteString("working memory, insight chronicle, and self-imposed growth guardrails.\n\n")

	if h.chronicle == nil {
		b.WriteString("Chronicle subsystem unavailable; no recent insights to show.\n")
		return textResource(req.Params.URI, "text/plain", b.String()), nil
	}

	gt := chronicle.GroundTruth
	insights, err := h.chronicle.RecallInsights(nil, &gt, 5)
	if err != nil {
		return textResource(req.Params.URI, "text/plain", b.String()), nil
	}
	if len(insights) == 0 {
		b.WriteString("No ground-truth insights recorded yet.\n")
	} else {
		b.WriteString("Recent ground truth:\n")
		for _, i := range insights {
			fmt.Fprintf(&b, "- [%s] %s\n", i.Domain, i.Content)
		}
	}
	return textResource(req.Params.URI, "text/plain", b.String()), nil
}

// ManifestResource returns the MCP resource definition for "manifest".
func (h *Handler) ManifestResource() mcp.Resource {
	return mcp.NewResource(
		"sovereign://manifest",
		"Manifest",
		mcp.WithResourceDescription("Architecture summary and current component health"),
		mcp.WithMIMEType("text/plain"),
	)
}

// HandleManifest renders the architecture summary and health snapshot.
func (h *Handler) HandleManifest(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "sovereign-stack %s\n\n", h.version)
	b.WriteString("Components:\n")
	fmt.Fprintf(&b, "- coherence_engine: %s\n", statusLabel(h.health.Coherence))
	fmt.Fprintf(&b, "- experiential_chronicle: %s\n", statusLabel(h.health.Chronicle))
	fmt.Fprintf(&b, "- governance_circuit: %s\n", statusLabel(h.health.Governance))
	fmt.Fprintf(&b, "- spiral_state_machine: %s\n", statusLabel(h.health.Spiral))
	fmt.Fprintf(&b, "- compaction_memory: %s\n", statusLabel(h.health.Compaction))

	if result := h.updateResult.Load(); result != nil {
		if result.UpdateAvailable {
			fmt.Fprintf(&b, "\nUpdate available: v%s -> v%s (%s)\n", result.CurrentVersion, result.LatestVersion, result.ReleaseURL)
		} else {
			fmt.Fprintf(&b, "\nUp to date: v%s\n", result.CurrentVersion)
		}
	}

	return textResource(req.Params.URI, "text/plain", b.String()), nil
}

// SpiralStateResource returns the MCP resource definition for "spiral/state".
func (h *Handler) SpiralStateResource() mcp.Resource {
	return mcp.NewResource(
		"sovereign://spiral/state",
		"Spiral State",
		mcp.WithResourceDescription("The current session's spiral phase snapshot"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSpiralState renders the current session snapshot as JSON.
func (h *Handler) HandleSpiralState(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.spiral == nil {
		return textResource(req.Params.URI, "text/plain", "spiral subsystem unavailable"), nil
	}
	st, err := h.spiral.CurrentStatus()
	if err != nil {
		return textResource(req.Params.URI, "text/plain", "Error: "+err.Error()), nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return textResource(req.Params.URI, "text/plain", "Error: "+err.Error()), nil
	}
	return textResource(req.Params.URI, "application/json", string(data)), nil
}

func statusLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "disabled"
}

func textResource(uri, mimeType, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeType, Text: text},
	}
}
