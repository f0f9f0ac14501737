package models

import "time"

// ChangeKind classifies a change pushed to live subscribers.
type ChangeKind string

const (
	ChangeCreated       ChangeKind = "created"
	ChangeUpdated       ChangeKind = "updated"
	ChangeDeleted       ChangeKind = "deleted"
	ChangeStatusChanged ChangeKind = "status_changed"
	ChangeHeartbeat     ChangeKind = "heartbeat"
	ChangeConnected     ChangeKind = "connected"
)

// Fine-grained change types carried by ChangeEvent.Type.
const (
	TypePhaseDelivered      = "phase_delivered"
	TypePhaseReturned       = "phase_returned"
	TypePhaseOverdue        = "phase_overdue"
	TypeReferenceCreated    = "reference_created"
	TypeReferenceCompleted  = "reference_completed"
	TypeReferenceArchived   = "reference_archived"
	TypeUserCreated         = "user_created"
	TypeUserUpdated         = "user_updated"
	TypeUserDeleted         = "user_deleted"
	TypeUserStatusChanged   = "user_status_changed"
	TypeHeartbeat           = "heartbeat"
	TypeConnectionConfirmed = "connected"
)

// ChangeEvent is a transient notification describing a state change.
type ChangeEvent struct {
	ID        string     `json:"id"`
	Kind      ChangeKind `json:"kind"`
	Type      string     `json:"type"`
	EntityID  string     `json:"entity_id,omitempty"`
	Payload   any        `json:"payload,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Tag       string     `json:"tag,omitempty"`
}

// PhaseChange is the payload of phase status change events.
type PhaseChange struct {
	ReferenceID   int64       `json:"reference_id"`
	ReferenceCode string      `json:"reference_code"`
	PhaseSlug     string      `json:"phase_slug"`
	Action        ActionType  `json:"action,omitempty"`
	Status        PhaseStatus `json:"status"`
	CurrentPhase  string      `json:"current_phase,omitempty"`
	ActingUser    string      `json:"acting_user,omitempty"`
}
