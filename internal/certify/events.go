package certify

import "time"

// Audit event types emitted on the certification stream.
const (
	EventAnalyzed  = "evidence.analyzed"
	EventCertified = "evidence.certified"
	EventAnchored  = "evidence.anchored"
)

// AuditEvent is emitted after each successful workflow milestone. Events
// are keyed by primary digest, so one file's trail stays ordered.
type AuditEvent struct {
	SessionID     string    `json:"session_id"`
	Type          string    `json:"type"`
	Stage         string    `json:"stage"`
	FileName      string    `json:"file_name,omitempty"`
	SizeBytes     int64     `json:"size_bytes,omitempty"`
	PrimaryDigest string    `json:"primary_digest,omitempty"`
	AnchorRef     string    `json:"anchor_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
