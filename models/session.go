package models

import "time"

// SessionStatus is the coarse lifecycle state persisted in session.json.
type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusError      SessionStatus = "error"
)

// UploadedFile records one persisted client upload inside a session's
// uploads area. Entries are append-only; they disappear only when the
// whole session is destroyed.
type UploadedFile struct {
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"stored_path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Session is the metadata document (session.json) at a session root.
// The id is always re-stamped on write and never derived from user input.
type Session struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Status        SessionStatus  `json:"status"`
	UploadedFiles []UploadedFile `json:"uploaded_files"`
	// LastJob echoes the options of the most recent job so a polling UI
	// can render them without a second request.
	LastJob *ConversionOptions `json:"last_job,omitempty"`
	// Succeeded/Failed summarize the last completed job.
	Succeeded int `json:"succeeded,omitempty"`
	Failed    int `json:"failed,omitempty"`
}

// Expired reports whether the session's TTL has elapsed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
