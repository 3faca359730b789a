package audit

import (
	"path/filepath"
	"testing"
)

func TestBuildAndQueryIndex(t *testing.T) {
	logPath := writeEntries(t)
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	n, err := BuildIndex(logPath, dbPath)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 indexed entries, got %d", n)
	}

	entries, err := QueryIndex(dbPath, Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	blocked, err := QueryIndex(dbPath, Filter{Decision: "block"})
	if err != nil {
		t.Fatalf("query blocked: %v", err)
	}
	if len(blocked) != 2 {
		t.Fatalf("expected 2 blocked entries, got %d", len(blocked))
	}

	byGuard, err := QueryIndex(dbPath, Filter{Guard: "history-rewrite"})
	if err != nil {
		t.Fatalf("query by guard: %v", err)
	}
	if len(byGuard) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(byGuard))
	}
	if !byGuard[0].OverrideOK {
		t.Error("override flag lost through the index round trip")
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	logPath := writeEntries(t)
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	if _, err := BuildIndex(logPath, dbPath); err != nil {
		t.Fatalf("first build: %v", err)
	}
	n, err := BuildIndex(logPath, dbPath)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 4 {
		t.Fatalf("rebuild should replace, not append: got %d entries", n)
	}

	entries, err := QueryIndex(dbPath, Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries after rebuild, got %d", len(entries))
	}
}

func TestQueryIndexLimit(t *testing.T) {
	logPath := writeEntries(t)
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	if _, err := BuildIndex(logPath, dbPath); err != nil {
		t.Fatalf("build: %v", err)
	}

	entries, err := QueryIndex(dbPath, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries with limit, got %d", len(entries))
	}
}
