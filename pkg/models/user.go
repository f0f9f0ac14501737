package models

import "time"

// UserStatus marks whether a collaborator is active.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a collaborator identity referenced by traceability records.
type User struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"       validate:"required"`
	Name      string     `json:"name"       validate:"required"`
	Email     string     `json:"email"      validate:"omitempty,email"`
	Area      string     `json:"area"`
	Role      string     `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
