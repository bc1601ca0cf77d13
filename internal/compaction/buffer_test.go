package compaction

import (
	"strings"
	"testing"

	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(rootctx.RootContext{Root: t.TempDir()})
}

func TestStore_FirstSummaryGetsCompactionNumberOne(t *testing.T) {
	s := testStore(t)
	sm, err := s.Store("sess-1", "did some work", []string{"point a"}, nil, nil)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if sm.CompactionNumber != 1 {
		t.Errorf("CompactionNumber = %d, want 1", sm.CompactionNumber)
	}
}

func TestStore_EvictsOldestPastCapacity(t *testing.T) {
	s := testStore(t)
	s.Store("sess-1", "first", nil, nil, nil)
	s.Store("sess-1", "second", nil, nil, nil)
	s.Store("sess-1", "third", nil, nil, nil)
	fourth, err := s.Store("sess-1", "fourth", nil, nil, nil)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if fourth.CompactionNumber != 4 {
		t.Errorf("CompactionNumber = %d, want 4 (monotonic across evictions)", fourth.CompactionNumber)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalSummaries != Capacity {
		t.Errorf("TotalSummaries = %d, want %d", stats.TotalSummaries, Capacity)
	}

	ctx, err := s.GetContext()
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if strings.Contains(ctx, "first") {
		t.Error("evicted summary \"first\" should not appear in context")
	}
	if !strings.Contains(ctx, "fourth") {
		t.Error("expected most recent summary \"fourth\" in context")
	}
}

func TestGetContext_EmptyBufferMessage(t *testing.T) {
	s := testStore(t)
	ctx, err := s.GetContext()
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if ctx != "No compaction history available." {
		t.Errorf("GetContext = %q, want the empty-buffer message", ctx)
	}
}

func TestGetContext_ChronologicalOrder(t *testing.T) {
	s := testStore(t)
	s.Store("sess-1", "alpha summary", nil, nil, nil)
	s.Store("sess-1", "beta summary", nil, nil, nil)

	ctx, err := s.GetContext()
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if strings.Index(ctx, "alpha summary") > strings.Index(ctx, "beta summary") {
		t.Error("expected the older summary to appear before the more recent one")
	}
}

func TestGetStats_EmptyBufferHasNilTimestamps(t *testing.T) {
	s := testStore(t)
	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalSummaries != 0 || stats.OldestTimestamp != nil || stats.NewestTimestamp != nil {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}
