// Package audit is the append-only record of every invocation's outcome.
// Entries form a SHA-256 hash chain: each entry's prev_hash is the hash of
// the previous JSON line, making deletion and edits detectable. The log
// never rejects a write for application-level reasons; append failures are
// the caller's to report, not to act on.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// GenesisHash is the prev_hash for the first entry in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log appends hash-chained JSONL entries. Safe for concurrent appenders
// across processes: each Record takes an exclusive flock, re-reads the
// chain tail under the lock, and appends with O_APPEND semantics.
type Log struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open opens (or creates) an audit log file for appending.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{path: path, file: file}, nil
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Record appends an Entry with hash chaining. It sets Timestamp (if empty)
// and PrevHash, writes one JSON line, and syncs to disk. The chain tail is
// re-read under the file lock so concurrent processes cannot fork the chain.
func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("audit: lock: %w", err)
	}
	defer syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)

	prevHash, err := tailHash(l.path)
	if err != nil {
		return fmt.Errorf("audit: read chain tail: %w", err)
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	entry.PrevHash = prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// tailHash returns the hash of the last line in the log, or GenesisHash
// for an empty or absent log.
func tailHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GenesisHash, nil
		}
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lastLine []byte
	for scanner.Scan() {
		lastLine = make([]byte, len(scanner.Bytes()))
		copy(lastLine, scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(lastLine) == 0 {
		return GenesisHash, nil
	}
	return HashLine(lastLine), nil
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
