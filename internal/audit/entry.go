package audit

// Entry is one line in the hash-chained JSONL audit log.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp         string `json:"ts"`
	InvocationID      string `json:"invocation_id"`
	Source            string `json:"source"`
	Tool              string `json:"tool"`
	Command           string `json:"command,omitempty"`
	FilePath          string `json:"file_path,omitempty"`
	Guard             string `json:"guard,omitempty"`
	Decision          string `json:"decision"`
	Reason            string `json:"reason,omitempty"`
	OverrideAttempted bool   `json:"override_attempted,omitempty"`
	OverrideOK        bool   `json:"override_ok,omitempty"`
	HumanApproved     bool   `json:"human_approved,omitempty"`
	PrevHash          string `json:"prev_hash"`
}

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"
