package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWrite_CreatesFileAndParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.json")

	if err := Write(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("content = %s, want {\"a\":1}", data)
	}
}

func TestWrite_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.json")

	if err := Write(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %s, want second", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover temp files in dir: %v", entries)
	}
}

func TestAppendLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	if err := AppendLine(path, []byte(`{"n":1}`)); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}
	if err := AppendLine(path, []byte(`{"n":2}`)); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}

	data, _ := os.ReadFile(path)
	want := "{\"n\":1}\n{\"n\":2}\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestCreateNew_FailsOnExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	if err := CreateNew(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("CreateNew: %v", err)
	}
	if err := CreateNew(path, []byte("b"), 0o644); !os.IsExist(err) {
		t.Errorf("second CreateNew err = %v, want IsExist", err)
	}
}
