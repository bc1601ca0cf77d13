package spiral

import (
	"testing"

	"github.com/sovereign-stack/sovereign-stack/internal/rootctx"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(rootctx.RootContext{Root: t.TempDir()})
}

func TestStartSession_BeginsAtInitialization(t *testing.T) {
	s := testStore(t)
	st, err := s.StartSession()
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if st.Phase != Initialization {
		t.Errorf("Phase = %s, want INITIALIZATION", st.Phase)
	}
	if st.ReflectionDepth != 0 {
		t.Errorf("ReflectionDepth = %d, want 0", st.ReflectionDepth)
	}
}

func TestReflect_AdvancesPhaseEveryOtherReflection(t *testing.T) {
	s := testStore(t)
	st, _ := s.StartSession()

	st, err := s.Reflect(st.SessionID, "first observation")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if st.Phase != Initialization {
		t.Errorf("after depth=1, Phase = %s, want unchanged INITIALIZATION", st.Phase)
	}

	st, err = s.Reflect(st.SessionID, "second observation")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if st.Phase != FirstOrderObservation {
		t.Errorf("after depth=2, Phase = %s, want FIRST_ORDER_OBSERVATION", st.Phase)
	}
	if len(st.Transitions) != 2 {
		t.Errorf("len(Transitions) = %d, want 2", len(st.Transitions))
	}
}

func TestReflect_SaturatesAtCoherenceCheck(t *testing.T) {
	s := testStore(t)
	st, _ := s.StartSession()

	for i := 0; i < 40; i++ {
		var err error
		st, err = s.Reflect(st.SessionID, "observation")
		if err != nil {
			t.Fatalf("Reflect: %v", err)
		}
	}
	if st.Phase != CoherenceCheck {
		t.Errorf("Phase after many reflections = %s, want COHERENCE_CHECK (saturated)", st.Phase)
	}
}

func TestReflect_ReturnsFromCoherenceCheckToMetaReflection(t *testing.T) {
	s := testStore(t)
	st, _ := s.StartSession()
	for i := 0; i < 16; i++ {
		st, _ = s.Reflect(st.SessionID, "observation")
	}
	if st.Phase != CoherenceCheck {
		t.Fatalf("precondition: Phase = %s, want COHERENCE_CHECK", st.Phase)
	}

	st, err := s.Reflect(st.SessionID, "post-coherence reflection")
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if st.Phase != MetaReflection {
		t.Errorf("Phase after post-coherence reflection = %s, want META_REFLECTION", st.Phase)
	}
}

func TestInherit_ResetsPhaseAndPointsAtOrigin(t *testing.T) {
	s := testStore(t)
	origin, _ := s.StartSession()
	s.Reflect(origin.SessionID, "obs1")
	s.Reflect(origin.SessionID, "obs2")

	inherited, err := s.Inherit(origin.SessionID)
	if err != nil {
		t.Fatalf("Inherit: %v", err)
	}
	if inherited.Phase != Initialization {
		t.Errorf("Phase = %s, want INITIALIZATION", inherited.Phase)
	}
	if inherited.ReflectionDepth != 0 {
		t.Errorf("ReflectionDepth = %d, want 0", inherited.ReflectionDepth)
	}
	if inherited.InheritedFrom == nil || *inherited.InheritedFrom != origin.SessionID {
		t.Errorf("InheritedFrom = %v, want %s", inherited.InheritedFrom, origin.SessionID)
	}
}

func TestInherit_DefaultsToMostRecentSession(t *testing.T) {
	s := testStore(t)
	first, _ := s.StartSession()
	second, _ := s.StartSession()
	s.Reflect(second.SessionID, "touch so it sorts last")

	inherited, err := s.Inherit("")
	if err != nil {
		t.Fatalf("Inherit: %v", err)
	}
	if inherited.InheritedFrom == nil || *inherited.InheritedFrom != second.SessionID {
		t.Errorf("InheritedFrom = %v, want most recent session %s (not %s)", inherited.InheritedFrom, second.SessionID, first.SessionID)
	}
}

func TestStatus_UnknownSessionIsNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Status("does-not-exist")
	if err == nil {
		t.Fatal("expected NotFound error")
	}
}
