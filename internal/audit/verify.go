package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify walks a JSONL audit log and checks every prev_hash link, starting
// from the genesis hash. It also rejects entries missing the fields Record
// always sets, so a hand-written line cannot pass as a recorded one.
// Returns Valid=true for an intact chain, or the first broken link.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	broken := func(line int, format string, args ...any) VerifyResult {
		return VerifyResult{ErrorLine: line, Error: fmt.Sprintf(format, args...)}
	}

	want := GenesisHash
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
		// Copy: the scanner reuses its buffer and the line is hashed below.
		line := append([]byte(nil), scanner.Bytes()...)

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return broken(n, "parse error: %v", err)
		}
		if entry.PrevHash != want {
			if n == 1 {
				return broken(1, "first entry prev_hash is %q, expected genesis hash", entry.PrevHash)
			}
			return broken(n, "hash mismatch: expected %s, got %s", want, entry.PrevHash)
		}
		if entry.Timestamp == "" || entry.Decision == "" {
			return broken(n, "entry missing timestamp or decision")
		}
		want = HashLine(line)
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: n}
}
