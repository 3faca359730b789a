package audit

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// indexSchema mirrors the JSONL entry fields. The log stays the source of
// truth; the index is rebuilt, never written back.
const indexSchema = `
CREATE TABLE IF NOT EXISTS entries (
	line               INTEGER PRIMARY KEY,
	ts                 TEXT NOT NULL,
	invocation_id      TEXT NOT NULL,
	source             TEXT NOT NULL,
	tool               TEXT NOT NULL,
	command            TEXT,
	file_path          TEXT,
	guard              TEXT,
	decision           TEXT NOT NULL,
	reason             TEXT,
	override_attempted INTEGER NOT NULL DEFAULT 0,
	override_ok        INTEGER NOT NULL DEFAULT 0,
	human_approved     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entries_guard ON entries(guard);
CREATE INDEX IF NOT EXISTS idx_entries_decision ON entries(decision);
CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(ts);
`

// BuildIndex loads the JSONL log into a sqlite database for querying.
// Existing index contents are replaced. Returns the number of entries
// indexed.
func BuildIndex(logPath, dbPath string) (int, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return 0, fmt.Errorf("audit index: open log: %w", err)
	}
	defer f.Close()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("audit index: open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(indexSchema); err != nil {
		return 0, fmt.Errorf("audit index: create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("audit index: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return 0, fmt.Errorf("audit index: clear: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO entries
		(line, ts, invocation_id, source, tool, command, file_path, guard,
		 decision, reason, override_attempted, override_ok, human_approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("audit index: prepare: %w", err)
	}
	defer stmt.Close()

	count := 0
	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines, same as Read
		}
		if _, err := stmt.Exec(line, e.Timestamp, e.InvocationID, e.Source,
			e.Tool, e.Command, e.FilePath, e.Guard, e.Decision, e.Reason,
			boolInt(e.OverrideAttempted), boolInt(e.OverrideOK), boolInt(e.HumanApproved)); err != nil {
			return 0, fmt.Errorf("audit index: insert line %d: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("audit index: scan log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("audit index: commit: %w", err)
	}
	return count, nil
}

// QueryIndex runs a filtered query against a previously built index.
func QueryIndex(dbPath string, filter Filter) ([]Entry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("audit index: open database: %w", err)
	}
	defer db.Close()

	query := `SELECT ts, invocation_id, source, tool, command, file_path, guard,
		decision, reason, override_attempted, override_ok, human_approved
		FROM entries WHERE 1=1`
	var args []any
	if filter.Guard != "" {
		query += ` AND guard = ?`
		args = append(args, filter.Guard)
	}
	if filter.Decision != "" {
		query += ` AND decision = ? COLLATE NOCASE`
		args = append(args, filter.Decision)
	}
	if !filter.Since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, filter.Since.UTC().Format(TimestampFormat))
	}
	query += ` ORDER BY line`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit index: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var overrideAttempted, overrideOK, humanApproved int
		if err := rows.Scan(&e.Timestamp, &e.InvocationID, &e.Source, &e.Tool,
			&e.Command, &e.FilePath, &e.Guard, &e.Decision, &e.Reason,
			&overrideAttempted, &overrideOK, &humanApproved); err != nil {
			return nil, fmt.Errorf("audit index: scan row: %w", err)
		}
		e.OverrideAttempted = overrideAttempted != 0
		e.OverrideOK = overrideOK != 0
		e.HumanApproved = humanApproved != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Since is a convenience for CLI flags: parses "how far back" strings.
// Accepts Go durations plus a day suffix ("24h", "7d").
func Since(ago string) (time.Time, error) {
	if ago == "" {
		return time.Time{}, nil
	}
	if days, ok := strings.CutSuffix(ago, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n >= 0 {
			return time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour), nil
		}
	}
	d, err := time.ParseDuration(ago)
	if err != nil {
		return time.Time{}, fmt.Errorf("audit: invalid duration %q: %w", ago, err)
	}
	return time.Now().UTC().Add(-d), nil
}
