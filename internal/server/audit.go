package server

import (
	"time"
)

// AuditLogEntry captures one API call for the request audit trail. Distinct
// from the per-case event log: this records the HTTP surface, including
// rejected calls.
type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Route      string    `json:"route,omitempty"`
	StatusCode int       `json:"status_code"`
	Username   string    `json:"username,omitempty"`
	CaseID     string    `json:"case_id,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
}
