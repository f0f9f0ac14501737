package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/google/uuid"
)

// UpdateUserRequest carries the fields to change; nil fields are left untouched.
type UpdateUserRequest struct {
	Code   *string
	Name   *string
	Email  *string
	Area   *string
	Role   *string
	Status *models.UserStatus
}

// Users manages collaborator identities and announces every change.
type Users struct {
	persistence persistence.Persistence
	notifier    Notifier
	options
}

// NewUsers creates a new user service.
func NewUsers(persistence persistence.Persistence, notifier Notifier, opts ...Option) *Users {
	return &Users{
		persistence: persistence,
		notifier:    notifier,
		options:     newOptions("users", opts),
	}
}

// List returns every user.
func (u *Users) List(ctx context.Context) ([]*models.User, error) {
	return u.persistence.Users(ctx)
}

// Get returns a user by id.
func (u *Users) Get(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, invalidUserID("GetUser")
	}

	return u.persistence.UserByID(ctx, id)
}

// Create stores a new user. Users start active unless a status is given.
func (u *Users) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || strings.TrimSpace(user.Code) == "" || strings.TrimSpace(user.Name) == "" {
		return nil, NewValidationError("CreateUser", "missing_fields", "code and name are required", ErrInvalidRequest)
	}

	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	if !validUserStatus(user.Status) {
		return nil, invalidUserStatus("CreateUser", user.Status)
	}

	now := u.timestamp()
	user.ID = 0
	user.CreatedAt = now
	user.UpdatedAt = now

	err := u.persistence.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	u.announce(ctx, models.ChangeCreated, models.TypeUserCreated, user)

	return user, nil
}

// Update applies a partial update and announces user_updated.
func (u *Users) Update(ctx context.Context, id int64, req UpdateUserRequest) (*models.User, error) {
	if id <= 0 {
		return nil, invalidUserID("UpdateUser")
	}

	user, err := u.persistence.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		if strings.TrimSpace(*req.Code) == "" {
			return nil, NewValidationError("UpdateUser", "missing_fields", "code cannot be empty", ErrInvalidRequest)
		}

		user.Code = *req.Code
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, NewValidationError("UpdateUser", "missing_fields", "name cannot be empty", ErrInvalidRequest)
		}

		user.Name = *req.Name
	}

	if req.Email != nil {
		user.Email = *req.Email
	}

	if req.Area != nil {
		user.Area = *req.Area
	}

	if req.Role != nil {
		user.Role = *req.Role
	}

	statusChanged := false

	if req.Status != nil {
		if !validUserStatus(*req.Status) {
			return nil, invalidUserStatus("UpdateUser", *req.Status)
		}

		statusChanged = user.Status != *req.Status
		user.Status = *req.Status
	}

	user.UpdatedAt = u.timestamp()

	err = u.persistence.UpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	if statusChanged {
		u.announce(ctx, models.ChangeStatusChanged, models.TypeUserStatusChanged, user)
	} else {
		u.announce(ctx, models.ChangeUpdated, models.TypeUserUpdated, user)
	}

	return user, nil
}

// SoftDelete deactivates a user, keeping the row, and announces user_status_changed.
func (u *Users) SoftDelete(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, invalidUserID("SoftDeleteUser")
	}

	user, err := u.persistence.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Status = models.UserStatusInactive
	user.UpdatedAt = u.timestamp()

	err = u.persistence.UpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	u.announce(ctx, models.ChangeStatusChanged, models.TypeUserStatusChanged, user)

	return user, nil
}

// HardDelete removes a user row and announces user_deleted.
func (u *Users) HardDelete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalidUserID("HardDeleteUser")
	}

	user, err := u.persistence.UserByID(ctx, id)
	if err != nil {
		return err
	}

	err = u.persistence.DeleteUser(ctx, id)
	if err != nil {
		return err
	}

	u.announce(ctx, models.ChangeDeleted, models.TypeUserDeleted, user)

	return nil
}

func (u *Users) announce(ctx context.Context, kind models.ChangeKind, eventType string, user *models.User) {
	u.logger.InfoContext(ctx, "User changed", "user_id", user.ID, "type", eventType)

	publish(ctx, u.logger, u.notifier, models.ChangeEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Type:      eventType,
		EntityID:  strconv.FormatInt(user.ID, 10),
		Payload:   user,
		Timestamp: u.timestamp(),
		Tag:       user.Area,
	})
}

func validUserStatus(status models.UserStatus) bool {
	return status == models.UserStatusActive || status == models.UserStatusInactive
}

func invalidUserID(op string) error {
	return NewValidationError(op, "invalid_user_id", "user id must be a positive number", ErrInvalidRequest)
}

func invalidUserStatus(op string, status models.UserStatus) error {
	return NewValidationError(op, "invalid_status", "unknown user status "+strconv.Quote(string(status)), ErrInvalidRequest)
}
