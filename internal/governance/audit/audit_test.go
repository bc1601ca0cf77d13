package audit

import (
	"os"
	"strings"
	"testing"

	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	return New(rootctx.RootContext{Root: t.TempDir()})
}

func TestAppend_GenesisPrevHash(t *testing.T) {
	l := testLog(t)
	entry, err := l.Append("2026-08-03T00:00:00Z", "operator", "intervention_approved", "/x", nil, "")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.PrevHash != GenesisPrevHash {
		t.Errorf("PrevHash = %s, want genesis", entry.PrevHash)
	}
	if entry.Hash == "" {
		t.Error("expected non-empty hash")
	}
}

func TestAppend_ChainsHashes(t *testing.T) {
	l := testLog(t)
	e0, err := l.Append("t0", "op", "a0", "/x", nil, "")
	if err != nil {
		t.Fatalf("Append e0: %v", err)
	}
	e1, err := l.Append("t1", "op", "a1", "/y", nil, "")
	if err != nil {
		t.Fatalf("Append e1: %v", err)
	}

	if e1.PrevHash != e0.Hash {
		t.Errorf("e1.PrevHash = %s, want %s", e1.PrevHash, e0.Hash)
	}
}

func TestVerify_ValidChainPasses(t *testing.T) {
	l := testLog(t)
	l.Append("t0", "op", "a0", "/x", nil, "")
	l.Append("t1", "op", "a1", "/y", nil, "")
	l.Append("t2", "op", "a2", "/z", nil, "")

	if err := l.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	l := testLog(t)
	l.Append("t0", "op", "a0", "/x", nil, "original rationale")
	l.Append("t1", "op", "a1", "/y", nil, "")

	data, err := os.ReadFile(l.path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := strings.Replace(string(data), "original rationale", "corrupted!!!!!!!!!", 1)
	if err := os.WriteFile(l.path, []byte(tampered), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := l.Verify(); err == nil {
		t.Fatal("expected ChainBroken error after tampering")
	}
}

func TestAppend_RefusesToExtendATamperedChain(t *testing.T) {
	l := testLog(t)
	l.Append("t0", "op", "a0", "/x", nil, "original rationale")
	l.Append("t1", "op", "a1", "/y", nil, "")

	data, err := os.ReadFile(l.path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	tampered := strings.Replace(string(data), "original rationale", "corrupted!!!!!!!!!", 1)
	if err := os.WriteFile(l.path, []byte(tampered), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = l.Append("t2", "op", "a2", "/z", nil, "")
	if err == nil {
		t.Fatal("expected Append to refuse extending a tampered chain")
	}
	if sverrors.KindOf(err) != sverrors.ChainBroken {
		t.Errorf("KindOf(err) = %v, want ChainBroken", sverrors.KindOf(err))
	}
}
