package entity

import (
	"encoding/json"
	"time"
)

// ProposalStatus is the lifecycle status of a schedule proposal
type ProposalStatus string

const (
	ProposalProposed ProposalStatus = "proposed"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// ScheduleEventKind enumerates the entries of a proposal history
type ScheduleEventKind string

const (
	ScheduleEventProposed ScheduleEventKind = "proposed"
	ScheduleEventApproved ScheduleEventKind = "approved"
	ScheduleEventRejected ScheduleEventKind = "rejected"
)

// ScheduleEvent is one entry of a proposal's history
type ScheduleEvent struct {
	Kind    ScheduleEventKind `json:"kind"`
	ActorID string            `json:"actor_id"`
	At      time.Time         `json:"at"`
	Comment string            `json:"comment,omitempty"`
}

// ScheduleHistory is an append-only ordered list of events
type ScheduleHistory struct {
	events []ScheduleEvent
}

// NewScheduleHistory rebuilds a history from stored events
func NewScheduleHistory(events ...ScheduleEvent) ScheduleHistory {
	return ScheduleHistory{events: append([]ScheduleEvent(nil), events...)}
}

// Append returns a history with the event added at the end
func (h ScheduleHistory) Append(e ScheduleEvent) ScheduleHistory {
	events := make([]ScheduleEvent, len(h.events), len(h.events)+1)
	copy(events, h.events)
	return ScheduleHistory{events: append(events, e)}
}

// Events returns a copy of the events in order
func (h ScheduleHistory) Events() []ScheduleEvent {
	return append([]ScheduleEvent(nil), h.events...)
}

// MarshalJSON encodes the history as a plain event array
func (h ScheduleHistory) MarshalJSON() ([]byte, error) {
	if h.events == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.events)
}

// UnmarshalJSON decodes a plain event array
func (h *ScheduleHistory) UnmarshalJSON(b []byte) error {
	var events []ScheduleEvent
	if err := json.Unmarshal(b, &events); err != nil {
		return err
	}
	*h = NewScheduleHistory(events...)
	return nil
}

// Len returns the number of events
func (h ScheduleHistory) Len() int {
	return len(h.events)
}

// ScheduleProposal is a planned working slot for a staff member at a host site
type ScheduleProposal struct {
	ID          string          `json:"id"`
	StaffID     string          `json:"staff_id"`
	Date        time.Time       `json:"date"`
	StartTime   TimeOfDay       `json:"start_time"`
	EndTime     TimeOfDay       `json:"end_time"`
	SiteID      string          `json:"site_id"`
	Status      ProposalStatus  `json:"status"`
	ProposedBy  string          `json:"proposed_by"`
	Comment     string          `json:"validation_comment,omitempty"`
	ValidatedBy string          `json:"validated_by,omitempty"`
	ValidatedAt *time.Time      `json:"validated_at,omitempty"`
	History     ScheduleHistory `json:"history"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
