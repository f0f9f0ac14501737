package models

import "time"

// RecordStatus is the persisted status of a traceability record.
type RecordStatus string

const (
	RecordStatusInProgress RecordStatus = "in_progress" // Received, not yet delivered
	RecordStatusCompleted  RecordStatus = "completed"   // Closed by a deliver action
	RecordStatusReturned   RecordStatus = "returned"    // Closed by a return action
)

// ActionType identifies an action applied to the current phase of a reference.
type ActionType string

const (
	ActionDeliver ActionType = "deliver"
	ActionReturn  ActionType = "return"
)

// IsValid reports whether the action type is known.
func (a ActionType) IsValid() bool {
	return a == ActionDeliver || a == ActionReturn
}

// TraceabilityRecord is one attempt of a reference at a phase.
type TraceabilityRecord struct {
	ID              int64         `json:"id"`
	ReferenceID     int64         `json:"reference_id"`
	PhaseSlug       string        `json:"phase_slug"`
	ResponsibleUser string        `json:"responsible_user,omitempty"`
	ReceivedAt      time.Time     `json:"received_at"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	Status          RecordStatus  `json:"status"`
	Notes           string        `json:"notes,omitempty"`
	ActualHours     *float64      `json:"actual_hours,omitempty"`
	Events          []ActionEvent `json:"events,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IsOpen reports whether the record was received and not delivered.
func (r *TraceabilityRecord) IsOpen() bool {
	return r.DeliveredAt == nil
}

// LastAction returns the most recent action event, if any.
func (r *TraceabilityRecord) LastAction() *ActionEvent {
	if len(r.Events) == 0 {
		return nil
	}

	return &r.Events[len(r.Events)-1]
}

// ActionEvent is an immutable audit entry appended to a record.
type ActionEvent struct {
	ID         int64      `json:"id"`
	RecordID   int64      `json:"record_id"`
	Type       ActionType `json:"type"`
	At         time.Time  `json:"at"`
	ActingUser string     `json:"acting_user"`
	Notes      string     `json:"notes,omitempty"`
}
