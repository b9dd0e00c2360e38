package scanerrors

import "time"

// ScanError represents a persisted provider-call failure inside a scan
type ScanError struct {
	ID        int64     `json:"id"`
	ScanID    string    `json:"scanId"`
	QueryID   string    `json:"queryId,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Phase     string    `json:"phase,omitempty"` // scan status when it happened
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
