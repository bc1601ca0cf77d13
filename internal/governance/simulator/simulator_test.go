package simulator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRank_ReturnsAllFiveScenarios(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644)

	s := New()
	outcomes, err := s.Rank(dir, nil)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(outcomes) != 5 {
		t.Fatalf("len(outcomes) = %d, want 5", len(outcomes))
	}

	seen := map[Scenario]bool{}
	for _, o := range outcomes {
		seen[o.Scenario] = true
	}
	for _, sc := range allScenarios {
		if !seen[sc] {
			t.Errorf("missing scenario %s in ranking", sc)
		}
	}
}

func TestRank_OrderedByReversibilityThenViolationsThenConfidence(t *testing.T) {
	dir := t.TempDir()
	s := New()
	outcomes, err := s.Rank(dir, nil)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	for i := 1; i < len(outcomes); i++ {
		prev, cur := outcomes[i-1], outcomes[i]
		if prev.Reversibility < cur.Reversibility {
			t.Fatalf("outcomes not sorted by reversibility desc at index %d: %v then %v", i, prev, cur)
		}
		if prev.Reversibility == cur.Reversibility && len(prev.ProjectedViolations) > len(cur.ProjectedViolations) {
			t.Fatalf("outcomes not sorted by violation count asc at index %d: %v then %v", i, prev, cur)
		}
	}
}

func TestRank_NonexistentTargetErrors(t *testing.T) {
	s := New()
	_, err := s.Rank("/nonexistent/xyz", nil)
	if err == nil {
		t.Fatal("expected error for nonexistent target")
	}
}

func TestRank_DeferAndRejectAreFullyReversible(t *testing.T) {
	dir := t.TempDir()
	s := New()
	outcomes, _ := s.Rank(dir, nil)

	for _, o := range outcomes {
		if o.Scenario == Defer || o.Scenario == Reject {
			if o.Reversibility != 1.0 {
				t.Errorf("%s reversibility = %v, want 1.0", o.Scenario, o.Reversibility)
			}
		}
	}
}
