package chronicle

import (
	"testing"

	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(rootctx.RootContext{Root: t.TempDir()})
}

func TestRecordInsight_HypothesisRequiresConfidence(t *testing.T) {
	s := testStore(t)

	_, err := s.RecordInsight("d", "maybe true", 0.8, Hypothesis, nil, "sess1")
	if sverrors.KindOf(err) != sverrors.InvalidInput {
		t.Fatalf("err kind = %s, want InvalidInput", sverrors.KindOf(err))
	}

	conf := 0.9
	id, err := s.RecordInsight("d", "maybe true", 0.8, Hypothesis, &conf, "sess1")
	if err != nil {
		t.Fatalf("RecordInsight: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}
}

func TestRecordInsight_GroundTruthForbidsConfidence(t *testing.T) {
	s := testStore(t)
	conf := 0.5
	_, err := s.RecordInsight("d", "fact", 0.5, GroundTruth, &conf, "sess1")
	if sverrors.KindOf(err) != sverrors.InvalidInput {
		t.Fatalf("err kind = %s, want InvalidInput", sverrors.KindOf(err))
	}
}

func TestRecallInsights_MostRecentFirst(t *testing.T) {
	s := testStore(t)
	id1, _ := s.RecordInsight("d", "first", 0.1, GroundTruth, nil, "s")
	id2, _ := s.RecordInsight("d", "second", 0.1, GroundTruth, nil, "s")

	insights, err := s.RecallInsights(nil, nil, 10)
	if err != nil {
		t.Fatalf("RecallInsights: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("len = %d, want 2", len(insights))
	}
	if insights[0].ID != id2 || insights[1].ID != id1 {
		t.Errorf("order = [%s, %s], want most-recent-first [%s, %s]", insights[0].ID, insights[1].ID, id2, id1)
	}
}

func TestRecordOpenThread_ResolveEmitsCompanionInsight(t *testing.T) {
	s := testStore(t)
	_, err := s.RecordOpenThread("d", "does X scale?", "context", "sess1")
	if err != nil {
		t.Fatalf("RecordOpenThread: %v", err)
	}

	thread, insightID, err := s.ResolveThread("d", "scale", "yes, tested", "sess1")
	if err != nil {
		t.Fatalf("ResolveThread: %v", err)
	}
	if !thread.Resolved {
		t.Error("thread.Resolved = false, want true")
	}
	if thread.Resolution == nil || *thread.Resolution != "yes, tested" {
		t.Errorf("thread.Resolution = %v, want 'yes, tested'", thread.Resolution)
	}
	if insightID == "" {
		t.Error("expected companion insight id")
	}

	gtLayer := GroundTruth
	insights, _ := s.RecallInsights(nil, &gtLayer, 10)
	found := false
	for _, ins := range insights {
		if ins.ID == insightID {
			found = true
			if ins.Content == "" {
				t.Error("companion insight has empty content")
			}
		}
	}
	if !found {
		t.Error("companion ground-truth insight not found via RecallInsights")
	}
}

func TestResolveThread_EmptyResolutionStillEmitsInsight(t *testing.T) {
	s := testStore(t)
	s.RecordOpenThread("d", "why does this happen?", "ctx", "sess1")

	_, insightID, err := s.ResolveThread("d", "happen", "", "sess1")
	if err != nil {
		t.Fatalf("ResolveThread: %v", err)
	}
	if insightID == "" {
		t.Error("expected companion insight even with empty resolution")
	}
}

func TestGetOpenThreads_UnresolvedOnly(t *testing.T) {
	s := testStore(t)
	s.RecordOpenThread("d", "unresolved one", "ctx", "sess1")
	s.RecordOpenThread("d", "will be resolved", "ctx", "sess1")
	s.ResolveThread("d", "will be resolved", "done", "sess1")

	threads, err := s.GetOpenThreads(nil, true)
	if err != nil {
		t.Fatalf("GetOpenThreads: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("len = %d, want 1", len(threads))
	}
	if threads[0].Question != "unresolved one" {
		t.Errorf("question = %s, want 'unresolved one'", threads[0].Question)
	}
}

func TestGetInheritableContext_ThreeListsDisjoint(t *testing.T) {
	s := testStore(t)
	s.RecordInsight("d", "truth one", 0.5, GroundTruth, nil, "sA")
	conf := 0.7
	s.RecordInsight("d", "maybe", 0.5, Hypothesis, &conf, "sA")
	s.RecordOpenThread("d", "open question?", "ctx", "sA")

	pkg, err := s.GetInheritableContext(20)
	if err != nil {
		t.Fatalf("GetInheritableContext: %v", err)
	}
	if len(pkg.GroundTruth) != 1 {
		t.Errorf("GroundTruth len = %d, want 1", len(pkg.GroundTruth))
	}
	if len(pkg.Hypotheses) != 1 {
		t.Errorf("Hypotheses len = %d, want 1", len(pkg.Hypotheses))
	}
	if pkg.Hypotheses[0].Flag != "offered, not canon" {
		t.Errorf("hypothesis flag = %q, want 'offered, not canon'", pkg.Hypotheses[0].Flag)
	}
	if len(pkg.OpenThreads) != 1 {
		t.Errorf("OpenThreads len = %d, want 1", len(pkg.OpenThreads))
	}

	ids := map[string]bool{}
	for _, i := range pkg.GroundTruth {
		ids[i.ID] = true
	}
	for _, h := range pkg.Hypotheses {
		if ids[h.Insight.ID] {
			t.Error("hypothesis id collides with ground_truth id")
		}
	}
}

func TestCheckMistakes_ScoresByTokenOverlap(t *testing.T) {
	s := testStore(t)
	s.RecordLearning("deployed without running migrations", "always run migrations first", "deploy", "sess1")
	s.RecordLearning("forgot to update docs", "update docs with every release", "release", "sess1")

	learnings, err := s.CheckMistakes("about to deploy migrations to prod", 5)
	if err != nil {
		t.Fatalf("CheckMistakes: %v", err)
	}
	if len(learnings) == 0 {
		t.Fatal("expected at least one matching learning")
	}
	if learnings[0].WhatHappened != "deployed without running migrations" {
		t.Errorf("top match = %q, want the migrations learning", learnings[0].WhatHappened)
	}
}
