// Package web provides HTTP request and response types for the traceability API.
package web

import (
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/services"
)

// ActingUserHeader carries the user applying an action.
const ActingUserHeader = "X-Acting-User"

// ActionRequest represents the request body of POST /actions.
type ActionRequest struct {
	ReferenceID int64  `json:"reference_id" validate:"required,gt=0"`
	PhaseSlug   string `json:"phase_slug"   validate:"required"`
	Action      string `json:"action"       validate:"required,oneof=deliver return"`
	Notes       string `json:"notes"        validate:"required_if=Action return,max=2000"`
}

// ToService converts the request for the action processor.
func (r ActionRequest) ToService(actingUser string) services.ActionRequest {
	return services.ActionRequest{
		ReferenceID: r.ReferenceID,
		PhaseSlug:   r.PhaseSlug,
		Action:      models.ActionType(r.Action),
		ActingUser:  actingUser,
		Notes:       r.Notes,
	}
}

// RegisterReferenceRequest represents the request body of POST /references.
type RegisterReferenceRequest struct {
	Code        string `json:"code"                   validate:"required,max=64"`
	Collection  string `json:"collection"             validate:"required,max=64"`
	ProductLine string `json:"product_line,omitempty" validate:"omitempty,max=64"`
}

// CreateUserRequest represents the request body of POST /users.
type CreateUserRequest struct {
	Code   string `json:"code"             validate:"required,max=64"`
	Name   string `json:"name"             validate:"required,min=1,max=255"`
	Email  string `json:"email,omitempty"  validate:"omitempty,email"`
	Area   string `json:"area,omitempty"   validate:"omitempty,max=64"`
	Role   string `json:"role,omitempty"   validate:"omitempty,max=64"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// UpdateUserRequest represents the request body of PATCH /users/:id.
// All fields are optional to support partial updates.
type UpdateUserRequest struct {
	Code   *string `json:"code,omitempty"   validate:"omitempty,min=1,max=64"`
	Name   *string `json:"name,omitempty"   validate:"omitempty,min=1,max=255"`
	Email  *string `json:"email,omitempty"  validate:"omitempty,email"`
	Area   *string `json:"area,omitempty"   validate:"omitempty,max=64"`
	Role   *string `json:"role,omitempty"   validate:"omitempty,max=64"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// ToService converts the request for the user service.
func (r UpdateUserRequest) ToService() services.UpdateUserRequest {
	req := services.UpdateUserRequest{
		Code:  r.Code,
		Name:  r.Name,
		Email: r.Email,
		Area:  r.Area,
		Role:  r.Role,
	}

	if r.Status != nil {
		status := models.UserStatus(*r.Status)
		req.Status = &status
	}

	return req
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	Checkers    map[string]string `json:"checkers"`
	Subscribers int               `json:"subscribers"`
	Timestamp   time.Time         `json:"timestamp"`
}
