package lockfile

import (
	"path/filepath"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	g, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := g.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestTryAcquire_FailsWhileHeld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spiral-session.json")

	g, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer g.Release()

	_, ok, err := TryAcquire(path)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if ok {
		t.Error("TryAcquire succeeded while lock held, want failure")
	}
}
