package models

// Progress is the advisory progress document (progress.json). Readers may
// observe a stale snapshot; atomic renames guarantee they never observe a
// torn one. Within one job run Current is monotonically non-decreasing and
// never exceeds Total.
type Progress struct {
	Current          int    `json:"current"`
	Total            int    `json:"total"`
	CurrentOperation string `json:"current_operation"`
	CurrentFile      string `json:"current_file,omitempty"`
}

// IdleProgress is the zeroed default returned when progress.json is missing
// or unparsable.
func IdleProgress() Progress {
	return Progress{Current: 0, Total: 0, CurrentOperation: "Idle"}
}
