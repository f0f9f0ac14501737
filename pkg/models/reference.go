// Package models defines the core domain models for garment phase traceability.
package models

import "time"

// Reference is a tracked garment instance moving through the phases of its product line.
type Reference struct {
	ID           int64      `json:"id"`
	Code         string     `json:"code"                    validate:"required"`
	Collection   string     `json:"collection"              validate:"required"`
	ProductLine  string     `json:"product_line"            validate:"required"`
	CurrentPhase *string    `json:"current_phase,omitempty"` // nil once every phase was delivered
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsCompleted reports whether the reference delivered its last phase.
func (r *Reference) IsCompleted() bool {
	return r.CurrentPhase == nil && r.CompletedAt != nil
}

// IsArchived reports whether the reference was soft-archived.
func (r *Reference) IsArchived() bool {
	return r.ArchivedAt != nil
}

// CurrentPhaseSlug returns the current phase slug or an empty string.
func (r *Reference) CurrentPhaseSlug() string {
	if r.CurrentPhase == nil {
		return ""
	}

	return *r.CurrentPhase
}
