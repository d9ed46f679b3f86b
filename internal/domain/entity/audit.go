package entity

import "time"

// AuditEntry records one mutation of a workflow record
type AuditEntry struct {
	ID       string    `json:"id"`
	ActorID  string    `json:"actor_id"`
	Table    string    `json:"table_name"`
	RecordID string    `json:"record_id"`
	Action   string    `json:"action"`
	Before   string    `json:"before,omitempty"`
	After    string    `json:"after,omitempty"`
	At       time.Time `json:"timestamp"`
}
