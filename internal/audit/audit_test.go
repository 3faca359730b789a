package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	return l, path
}

func testEntry(decision string) Entry {
	return Entry{
		Timestamp:    time.Now().UTC().Format(TimestampFormat),
		InvocationID: "inv-test123",
		Source:       "stdin-json",
		Tool:         "Bash",
		Command:      "echo hello",
		Guard:        "",
		Decision:     decision,
		Reason:       "test reason",
	}
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 5; i++ {
		if err := l.Record(testEntry("allow")); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestFirstEntryUsesGenesisHash(t *testing.T) {
	l, path := newTestLog(t)

	if err := l.Record(testEntry("allow")); err != nil {
		t.Fatalf("record: %v", err)
	}
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), GenesisHash) {
		t.Fatal("first entry should carry the genesis prev_hash")
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 3; i++ {
		if err := l.Record(testEntry("allow")); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	// Tamper: change decision in line 2
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"allow"`, `"block"`, 1)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected error at line 3, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 4; i++ {
		if err := l.Record(testEntry("allow")); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	// Delete line 2
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines = append(lines[:1], lines[2:]...)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with deleted entry to be invalid")
	}
}

func TestConcurrentWritersKeepChainIntact(t *testing.T) {
	l, path := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Record(testEntry("block")); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after concurrent writes, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 10 {
		t.Fatalf("expected 10 lines, got %d", result.Lines)
	}
}

func TestReopenContinuesChain(t *testing.T) {
	l, path := newTestLog(t)
	if err := l.Record(testEntry("allow")); err != nil {
		t.Fatalf("record: %v", err)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := l2.Record(testEntry("block")); err != nil {
		t.Fatalf("record after reopen: %v", err)
	}
	l2.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain across reopen, got: %s", result.Error)
	}
	if result.Lines != 2 {
		t.Fatalf("expected 2 lines, got %d", result.Lines)
	}
}

func TestVerifyRejectsForgedEntryWithoutDecision(t *testing.T) {
	l, path := newTestLog(t)
	if err := l.Record(testEntry("allow")); err != nil {
		t.Fatalf("record: %v", err)
	}
	l.Close()

	// Append a hand-written line with a correct prev_hash but no decision.
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	forged := Entry{
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		PrevHash:  HashLine([]byte(lines[len(lines)-1])),
	}
	raw, err := json.Marshal(forged)
	if err != nil {
		t.Fatal(err)
	}
	lines = append(lines, string(raw))
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected forged entry to fail verification")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected error at line 2, got line %d", result.ErrorLine)
	}
}

func TestVerifyEmptyLogIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	os.WriteFile(path, nil, 0o600)

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("empty log should verify clean, got: %s", result.Error)
	}
	if result.Lines != 0 {
		t.Fatalf("expected 0 lines, got %d", result.Lines)
	}
}
