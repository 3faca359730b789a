package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Filter holds criteria for reading back audit entries.
type Filter struct {
	Guard    string
	Decision string
	Since    time.Time // zero value = no lower bound
	Limit    int       // 0 = unlimited
}

// Summary holds decision counts for a filtered read.
type Summary struct {
	Total          int    `json:"total"`
	AllowCount     int    `json:"allow_count"`
	BlockCount     int    `json:"block_count"`
	OverrideCount  int    `json:"override_count"`
	HumanApproved  int    `json:"human_approved_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReadResult holds filtered entries and their summary.
type ReadResult struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Read scans the audit log and returns entries matching the filter, oldest
// first. When Limit is set, only the most recent matches are kept.
func Read(path string, filter Filter) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReadResult{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		if filter.Guard != "" && entry.Guard != filter.Guard {
			continue
		}
		if filter.Decision != "" && !strings.EqualFold(entry.Decision, filter.Decision) {
			continue
		}
		if !filter.Since.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil || ts.Before(filter.Since) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		if filter.Limit > 0 && len(result.Entries) > filter.Limit {
			result.Entries = result.Entries[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	for _, entry := range result.Entries {
		updateSummary(&result.Summary, entry)
	}
	return result, nil
}

func updateSummary(s *Summary, entry Entry) {
	s.Total++

	switch strings.ToLower(entry.Decision) {
	case "allow":
		s.AllowCount++
	case "block":
		s.BlockCount++
	case "allow_with_override":
		s.AllowCount++
		s.OverrideCount++
	}

	if entry.HumanApproved {
		s.HumanApproved++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
