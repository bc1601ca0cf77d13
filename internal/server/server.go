// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/resources that depend on abstractions.
// No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/sovereign-stack/sovereign-stack/internal/chronicle"
	"github.com/sovereign-stack/sovereign-stack/internal/coherence"
	"github.com/sovereign-stack/sovereign-stack/internal/compaction"
	"github.com/sovereign-stack/sovereign-stack/internal/config"
	"github.com/sovereign-stack/sovereign-stack/internal/governance"
	"github.com/sovereign-stack/sovereign-stack/internal/mcptools"
	"github.com/sovereign-stack/sovereign-stack/internal/prompts"
	"github.com/sovereign-stack/sovereign-stack/internal/resources"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/spiral"
	"github.com/sovereign-stack/sovereign-stack/internal/updater"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and resources
// registered. This is the single place where all dependencies are
// resolved.
//
// The returned cleanup function is always non-nil and safe to call even
// if some subsystem failed to initialize.
func New() (*server.MCPServer, func(), error) {
	// --- Resolve the storage root ---

	rc, err := rootctx.Resolve()
	if err != nil {
		return nil, noop, fmt.Errorf("resolving storage root: %w", err)
	}

	limits, err := config.LoadThresholdLimits(rc.Path("thresholds.yaml"))
	if err != nil {
		log.Printf("WARNING: thresholds.yaml invalid, using defaults: %v", err)
		limits = config.DefaultThresholdLimits()
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"sovereign-stack",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	sessionStart := prompts.NewSessionStartPrompt()
	s.AddPrompt(sessionStart.Definition(), sessionStart.Handle)
	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	health := resources.Health{}

	// --- Coherence Engine ---

	coherenceEngine := coherence.New(rc)
	routeTool := mcptools.NewRouteTool(coherenceEngine)
	s.AddTool(routeTool.Definition(), routeTool.Handle)
	receiveTool := mcptools.NewReceiveTool(coherenceEngine)
	s.AddTool(receiveTool.Definition(), receiveTool.Handle)
	deriveTool := mcptools.NewDeriveTool(coherenceEngine)
	s.AddTool(deriveTool.Definition(), deriveTool.Handle)
	health.Coherence = true

	// --- Experiential Chronicle ---

	chronicleStore := chronicle.New(rc)
	registerChronicleTools(s, chronicleStore)
	health.Chronicle = true

	// --- Governance Circuit ---

	circuit := governance.New(rc, limits)
	scanTool := mcptools.NewScanThresholdsTool(circuit)
	s.AddTool(scanTool.Definition(), scanTool.Handle)
	governTool := mcptools.NewGovernTool(circuit)
	s.AddTool(governTool.Definition(), governTool.Handle)
	verifyTool := mcptools.NewVerifyAuditChainTool(circuit)
	s.AddTool(verifyTool.Definition(), verifyTool.Handle)
	health.Governance = true

	// --- Spiral State Machine ---

	spiralStore := spiral.New(rc)
	spiralTools := mcptools.NewSpiralTools(spiralStore)
	statusTool := mcptools.NewStatusTool(spiralTools)
	s.AddTool(statusTool.Definition(), statusTool.Handle)
	reflectTool := mcptools.NewReflectTool(spiralTools)
	s.AddTool(reflectTool.Definition(), reflectTool.Handle)
	inheritTool := mcptools.NewInheritTool(spiralTools)
	s.AddTool(inheritTool.Definition(), inheritTool.Handle)
	health.Spiral = true

	// --- Compaction Memory ---

	compactionStore := compaction.New(rc)
	registerCompactionTools(s, compactionStore)
	health.Compaction = true

	// --- Register resources ---

	resourceHandler := resources.NewHandler(chronicleStore, spiralTools, Version, health)
	s.AddResource(resourceHandler.WelcomeResource(), resourceHandler.HandleWelcome)
	s.AddResource(resourceHandler.ManifestResource(), resourceHandler.HandleManifest)
	s.AddResource(resourceHandler.SpiralStateResource(), resourceHandler.HandleSpiralState)

	go resourceHandler.SetUpdateResult(updater.CheckVersion(Version))

	return s, noop, nil
}

// noop is the default cleanup function: every subsystem here persists
// directly to the filesystem per call, so there is no connection pool
// or handle to release on shutdown.
func noop() {}

func registerChronicleTools(s *server.MCPServer, store *chronicle.Store) {
	recordInsight := mcptools.NewRecordInsightTool(store)
	s.AddTool(recordInsight.Definition(), recordInsight.Handle)

	recallInsights := mcptools.NewRecallInsightsTool(store)
	s.AddTool(recallInsights.Definition(), recallInsights.Handle)

	recordLearning := mcptools.NewRecordLearningTool(store)
	s.AddTool(recordLearning.Definition(), recordLearning.Handle)

	checkMistakes := mcptools.NewCheckMistakesTool(store)
	s.AddTool(checkMistakes.Definition(), checkMistakes.Handle)

	recordOpenThread := mcptools.NewRecordOpenThreadTool(store)
	s.AddTool(recordOpenThread.Definition(), recordOpenThread.Handle)

	getOpenThreads := mcptools.NewGetOpenThreadsTool(store)
	s.AddTool(getOpenThreads.Definition(), getOpenThreads.Handle)

	resolveThread := mcptools.NewResolveThreadTool(store)
	s.AddTool(resolveThread.Definition(), resolveThread.Handle)

	inheritableContext := mcptools.NewGetInheritableContextTool(store)
	s.AddTool(inheritableContext.Definition(), inheritableContext.Handle)
}

func registerCompactionTools(s *server.MCPServer, store *compaction.Store) {
	storeTool := mcptools.NewStoreCompactionSummaryTool(store)
	s.AddTool(storeTool.Definition(), storeTool.Handle)

	contextTool := mcptools.NewGetCompactionContextTool(store)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	statsTool := mcptools.NewGetCompactionStatsTool(store)
	s.AddTool(statsTool.Definition(), statsTool.Handle)
}

// serverInstructions returns the system instructions that tell an AI
// agent how to use Sovereign Stack effectively.
func serverInstructions() string {
	return `You have access to Sovereign Stack, a local, single-tenant
persistence and governance server for your own working memory.

## What this server is for

Sovereign Stack is not a knowledge base you write into once and forget.
It is the substrate your reasoning runs on across a session and across
sessions: where you route structured records to a stable path, where you
record what you learned and what remains unresolved, where you check
whether your own growth (in file count, nesting depth, entropy) is
heading somewhere reversible, and where you track which phase of
reflection you are currently in.

## Coherence Engine — route / receive / derive

Use route to persist a small structured record (a packet) to a path
computed from a schema template, so that later calls can predict where
to find it without you having invented the path convention on the fly.
Use receive to build a glob for recovering packets matching partial
constraints. Use derive when you have a corpus of paths already routed
and want to infer what schema template produced them — useful when
picking up someone else's routing convention.

## Experiential Chronicle — the three layers

Every insight belongs to exactly one of three layers:
- ground_truth: something you are confident is true and durable.
- hypothesis: something you believe with a stated confidence, offered
  to future sessions as a lead to verify, never as settled fact.
- open_thread: a question you have not resolved.

Call record_insight as you work, not just at the end of a session.
Call record_learning after a mistake — what happened, what you would
do differently — and call check_mistakes before starting a task whose
description resembles one you have gotten wrong before.
Call get_inheritable_context at the start of a new session to receive
the porous inheritance package: ground truth carried verbatim, hypotheses
clearly flagged as unverified, and open threads as invitations, never
merged into a single undifferentiated blob.

## Governance Circuit — before a large structural change

Before reorganizing, deleting, or otherwise restructuring a significant
part of a project's files, call scan_thresholds against the target
directory. If it reports violations, call govern with your vote
(proceed, pause, or reject) and a rationale — this ranks safer
alternatives by reversibility and appends a tamper-evident audit entry
regardless of outcome. Use verify_audit_chain if you suspect the audit
log has been tampered with.

## Spiral State Machine — track your own reflection depth

Call spiral_status to see your current phase. Call spiral_reflect with
an observation whenever you complete a meaningful unit of reasoning;
reflecting deepens your phase over time, saturating at a coherence
check, after which the next reflection returns you to meta-reflection
rather than stalling. Call spiral_inherit to start a new session that
points back at a prior one without duplicating its history.

## Compaction Memory — surviving context loss

Before your own conversation context is at risk of being compacted
away, call store_compaction_summary with what you were doing, active
tasks, and any breakthroughs — the buffer holds the three most recent
summaries. After a compaction event, call get_compaction_context to
recover a formatted recap before continuing.

## General rules

- Never call a mutating tool with placeholder content — every insight,
  learning, and summary you write persists indefinitely.
- Errors return a {kind, message} pair; a kind of Internal means the
  detail was intentionally withheld and logged locally instead.
- Resources welcome, manifest, and spiral/state are read-only context —
  fetch them, don't try to write through them.`
}
