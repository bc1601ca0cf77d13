package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/sovereign-stack/sovereign-stack/internal/compaction"
	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
)

func newTestCompactionStore(t *testing.T) *compaction.Store {
	t.Helper()
	return compaction.New(rootctx.RootContext{Root: t.TempDir()})
}

func TestStoreCompactionSummaryTool_Success(t *testing.T) {
	tool := NewStoreCompactionSummaryTool(newTestCompactionStore(t))
	req := makeReq(map[string]interface{}{
		"session_id":   "sess-1",
		"summary_text": "made progress on the router",
		"key_points":   `["routing table finished"]`,
	})

	r, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	requireNoToolError(t, r)

	var summary compaction.Summary
	decodeJSONResult(t, r, &summary)
	if summary.CompactionNumber != 1 {
		t.Errorf("compaction_number = %d, want 1", summary.CompactionNumber)
	}
	if len(summary.KeyPoints) != 1 || summary.KeyPoints[0] != "routing table finished" {
		t.Errorf("key_points = %v, want [routing table finished]", summary.KeyPoints)
	}
}

func TestStoreCompactionSummaryTool_InvalidKeyPointsJSON(t *testing.T) {
	tool := NewStoreCompactionSummaryTool(newTestCompactionStore(t))
	req := makeReq(map[string]interface{}{
		"session_id":   "sess-1",
		"summary_text": "progress",
		"key_points":   "not json",
	})

	r, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	requireToolError(t, r, "key_points")
}

func TestStoreCompactionSummaryTool_MissingRequiredArgs(t *testing.T) {
	tool := NewStoreCompactionSummaryTool(newTestCompactionStore(t))

	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"summary_text": "x"}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	requireToolError(t, r, "session_id")
}

func TestStoreCompactionSummaryTool_EvictsOldestAtCapacity(t *testing.T) {
	store := newTestCompactionStore(t)
	tool := NewStoreCompactionSummaryTool(store)

	for i := 0; i < compaction.Capacity+1; i++ {
		r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
			"session_id":   "sess-1",
			"summary_text": "step",
		}))
		if err != nil {
			t.Fatalf("Handle returned error: %v", err)
		}
		requireNoToolError(t, r)
	}

	statsTool := NewGetCompactionStatsTool(store)
	sr, err := statsTool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	var stats compaction.Stats
	decodeJSONResult(t, sr, &stats)

	if stats.TotalSummaries != compaction.Capacity {
		t.Errorf("total_summaries = %d, want %d", stats.TotalSummaries, compaction.Capacity)
	}
	if stats.TotalCompactions != compaction.Capacity+1 {
		t.Errorf("total_compactions = %d, want %d (monotonic across eviction)", stats.TotalCompactions, compaction.Capacity+1)
	}
}

func TestGetCompactionContextTool_EmptyBuffer(t *testing.T) {
	tool := NewGetCompactionContextTool(newTestCompactionStore(t))
	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	requireNoToolError(t, r)
	if !strings.Contains(resultText(r), "No compaction history") {
		t.Errorf("got %q, want a no-history message", resultText(r))
	}
}

func TestGetCompactionContextTool_ChronologicalOrder(t *testing.T) {
	store := newTestCompactionStore(t)
	if _, err := store.Store("sess-1", "first", nil, nil, nil); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if _, err := store.Store("sess-1", "second", nil, nil, nil); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	tool := NewGetCompactionContextTool(store)
	r, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	text := resultText(r)
	if strings.Index(text, "first") > strings.Index(text, "second") {
		t.Errorf("expected chronological order (oldest first), got: %s", text)
	}
}
