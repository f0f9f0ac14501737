package models

import "time"

// PhaseStatus is the status derived for a phase at a point in time.
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
	PhaseStatusReturned   PhaseStatus = "returned"
	PhaseStatusOverdue    PhaseStatus = "overdue"
)

// RiskLevel summarizes how likely a reference is to miss its schedule.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PhaseView is one phase of a timeline with its latest record and derived status.
type PhaseView struct {
	PhaseTemplate

	Index           int          `json:"index"`
	RecordID        int64        `json:"record_id,omitempty"`
	ResponsibleUser string       `json:"responsible_user,omitempty"`
	ReceivedAt      *time.Time   `json:"received_at,omitempty"`
	DeliveredAt     *time.Time   `json:"delivered_at,omitempty"`
	ActualHours     *float64     `json:"actual_hours,omitempty"`
	LastAction      *ActionEvent `json:"last_action,omitempty"`
	Attempts        int          `json:"attempts"`
	Status          PhaseStatus  `json:"status"`
}

// StageView groups the phase views of one stage.
type StageView struct {
	Slug   string      `json:"slug"`
	Name   string      `json:"name"`
	Phases []PhaseView `json:"phases"`
}

// StageVariance compares actual and estimated hours of a stage.
type StageVariance struct {
	Stage              string  `json:"stage"`
	EstimatedHours     float64 `json:"estimated_hours"`
	ActualHours        float64 `json:"actual_hours"`
	Variance           float64 `json:"variance"`
	VariancePercentage float64 `json:"variance_percentage"`
	Complete           bool    `json:"complete"`
	OnSchedule         bool    `json:"on_schedule"`
}

// TimelineSummary holds the aggregates shown next to a timeline.
type TimelineSummary struct {
	CompletionPercentage int             `json:"completion_percentage"`
	CompletedPhases      int             `json:"completed_phases"`
	TotalPhases          int             `json:"total_phases"`
	OverduePhases        int             `json:"overdue_phases"`
	EstimatedHours       float64         `json:"estimated_hours"`
	ActualHours          float64         `json:"actual_hours"`
	Efficiency           float64         `json:"efficiency"`
	VariancePercentage   float64         `json:"variance_percentage"`
	RiskLevel            RiskLevel       `json:"risk_level"`
	Stages               []StageVariance `json:"stages"`
}

// Timeline is the snapshot of a reference across all phases of its product line.
type Timeline struct {
	Reference   Reference       `json:"reference"`
	Phases      []PhaseView     `json:"phases"`
	Stages      []StageView     `json:"stages"`
	Summary     TimelineSummary `json:"summary"`
	GeneratedAt time.Time       `json:"generated_at"`
}
