package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReadResult as a human-readable text timeline.
func FormatTimeline(result *ReadResult) string {
	if len(result.Entries) == 0 {
		return "No entries found.\n"
	}

	var b strings.Builder

	first := formatDateRange(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("%s–%s UTC\n", first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		tool := truncate(e.Tool, 12)
		target := e.Command
		if target == "" {
			target = e.FilePath
		}
		target = truncate(target, 40)

		tag := ""
		if e.HumanApproved {
			tag = "  [approved]"
		}

		b.WriteString(fmt.Sprintf("%-10s %-9s %-13s %-14s %-40s%s\n",
			ts, displayDecision(e.Decision), truncate(e.Guard, 13), tool, target, tag))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReadResult as indented JSON.
func FormatJSON(result *ReadResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal read result: %w", err)
	}
	return string(data), nil
}

// displayDecision keeps the decision column narrow: the long
// allow_with_override value gets its own badge.
func displayDecision(d string) string {
	if strings.EqualFold(d, "allow_with_override") {
		return "OVERRIDE"
	}
	return strings.ToUpper(d)
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s Summary) string {
	parts := []string{}
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	if s.OverrideCount > 0 {
		parts = append(parts, fmt.Sprintf("%d override", s.OverrideCount))
	}
	if s.HumanApproved > 0 {
		parts = append(parts, fmt.Sprintf("%d human-approved", s.HumanApproved))
	}
	if len(parts) == 0 {
		parts = append(parts, "no decisions")
	}
	return fmt.Sprintf("Summary: %s\n", strings.Join(parts, ", "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
