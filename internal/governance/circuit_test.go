package governance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sovereign-stack/sovereign-stack/internal/config"
	"github.com/sovereign-stack/sovereign-stack/internal/governance/deliberator"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
)

func testCircuit(t *testing.T) (*Circuit, string) {
	t.Helper()
	rc := rootctx.RootContext{Root: t.TempDir()}
	target := filepath.Join(t.TempDir(), "subject")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return New(rc, config.DefaultThresholdLimits()), target
}

func TestScanThresholds_RunsDetectorAlone(t *testing.T) {
	c, target := testCircuit(t)
	result, err := c.ScanThresholds(context.Background(), target, true)
	if err != nil {
		t.Fatalf("ScanThresholds: %v", err)
	}
	if result.Incomplete {
		t.Error("expected a complete scan for a small tree")
	}
}

func TestGovern_ProceedAppendsApprovalEntry(t *testing.T) {
	c, target := testCircuit(t)
	votes := []deliberator.Vote{{Ballot: deliberator.BallotProceed}, {Ballot: deliberator.BallotProceed}}

	result, err := c.Govern(context.Background(), target, "operator", "routine cleanup", votes)
	if err != nil {
		t.Fatalf("Govern: %v", err)
	}
	if result.Decision.Outcome != deliberator.BallotProceed {
		t.Errorf("Outcome = %s, want proceed", result.Decision.Outcome)
	}
	if result.AuditEntry.Action != "intervention_approved" {
		t.Errorf("Action = %s, want intervention_approved", result.AuditEntry.Action)
	}
	if result.AuditEntry.PrevHash != "" && len(result.AuditEntry.PrevHash) != 64 {
		t.Errorf("PrevHash length = %d, want 64", len(result.AuditEntry.PrevHash))
	}
}

func TestGovern_SequentialCallsChainAuditEntries(t *testing.T) {
	c, target := testCircuit(t)
	votes := []deliberator.Vote{{Ballot: deliberator.BallotProceed}}

	r0, err := c.Govern(context.Background(), target, "operator", "first", votes)
	if err != nil {
		t.Fatalf("Govern first: %v", err)
	}
	r1, err := c.Govern(context.Background(), target, "operator", "second", votes)
	if err != nil {
		t.Fatalf("Govern second: %v", err)
	}

	if r1.AuditEntry.PrevHash != r0.AuditEntry.Hash {
		t.Errorf("second entry's PrevHash = %s, want %s", r1.AuditEntry.PrevHash, r0.AuditEntry.Hash)
	}
	if err := c.VerifyAuditChain(); err != nil {
		t.Errorf("VerifyAuditChain: %v", err)
	}
}

func TestGovern_DissentingVoteIsPreservedInAuditedDecision(t *testing.T) {
	c, target := testCircuit(t)
	votes := []deliberator.Vote{
		{Ballot: deliberator.BallotProceed},
		{Ballot: deliberator.BallotReject, Rationale: "too risky"},
	}

	result, err := c.Govern(context.Background(), target, "operator", "contested change", votes)
	if err != nil {
		t.Fatalf("Govern: %v", err)
	}
	if result.AuditEntry.Action == "intervention_approved" && result.Decision.Overridden {
		t.Error("overridden decision should not record as approved")
	}

	found := false
	for _, v := range result.Decision.Votes {
		if v.Ballot == deliberator.BallotReject && v.Rationale == "too risky" {
			found = true
		}
	}
	if !found {
		t.Error("dissenting rationale was not preserved in the decision passed to audit")
	}
}
