// Package governance wires the four governance stages together:
// scan_thresholds runs the Threshold Detector alone; govern chains
// simulation, deliberation, and the audit log for a proposed
// intervention on a target subtree. No intervention execution code
// lives here — govern records a decision, it never applies one.
package governance

import (
	"context"
	"time"

	"github.com/sovereign-stack/sovereign-stack/internal/config"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/audit"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/deliberator"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/detector"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/simulator"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
)

// Circuit composes detection, simulation, deliberation, and the
// tamper-evident audit log behind three operations: ScanThresholds,
// Govern, and VerifyAuditChain.
type Circuit struct {
	detector    *detector.Detector
	simulator   *simulator.Simulator
	deliberator *deliberator.Deliberator
	audit       *audit.Log
}

// New constructs a Circuit rooted at rc, using the given threshold
// limits for detection.
func New(rc rootctx.RootContext, limits config.ThresholdLimits) *Circuit {
	return &Circuit{
		detector:    detector.New(limits),
		simulator:   simulator.New(),
		deliberator: deliberator.New(),
		audit:       audit.New(rc),
	}
}

// ScanThresholds runs the Threshold Detector over path and returns its
// raw result, with no simulation or deliberation attached.
func (c *Circuit) ScanThresholds(ctx context.Context, path string, recursive bool) (detector.Result, error) {
	return c.detector.Scan(ctx, path, recursive)
}

// GovernResult is the outcome of a full govern cycle: the detector
// events and scenario ranking that informed the decision, the
// decision itself, and the audit entry it produced.
type GovernResult struct {
	Events    []detector.Event
	Ranking   []simulator.Outcome
	Decision  deliberator.Decision
	AuditEntry audit.Entry
}

// Govern re-scans target, ranks candidate scenarios, aggregates the
// supplied votes into a decision, and appends the outcome to the
// tamper-evident audit log. actor identifies the caller recorded in
// the audit trail; rationale is a free-text summary attached to the
// audit entry alongside the decision's own per-vote rationales.
func (c *Circuit) Govern(ctx context.Context, target, actor, rationale string, votes []deliberator.Vote) (GovernResult, error) {
	scan, err := c.detector.Scan(ctx, target, true)
	if err != nil {
		return GovernResult{}, err
	}

	ranking, err := c.simulator.Rank(target, scan.Events)
	if err != nil {
		return GovernResult{}, err
	}

	decision, err := c.deliberator.Deliberate(scan.Events, ranking, votes)
	if err != nil {
		return GovernResult{}, err
	}

	action := auditAction(decision.Outcome)
	ballot := decision.Outcome
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	entry, err := c.audit.Append(ts, actor, action, target, &ballot, rationale)
	if err != nil {
		return GovernResult{}, err
	}

	return GovernResult{Events: scan.Events, Ranking: ranking, Decision: decision, AuditEntry: entry}, nil
}

// VerifyAuditChain checks the audit log's hash chain for tampering.
func (c *Circuit) VerifyAuditChain() error {
	return c.audit.Verify()
}

func auditAction(outcome deliberator.Ballot) string {
	switch outcome {
	case deliberator.BallotProceed:
		return "intervention_approved"
	case deliberator.BallotReject:
		return "intervention_rejected"
	default:
		return "intervention_paused"
	}
}
