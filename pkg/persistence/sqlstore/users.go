package sqlstore

import (
	"context"
	"fmt"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/persistence"
	"github.com/dukex/phasetrack/pkg/persistence/sqlbase"
)

const userColumns = `
	id
  , code
  , name
  , email
  , area
  , role
  , status
  , created_at
  , updated_at
`

// UserRepository handles user-related database operations.
type UserRepository struct {
	db runner
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db runner) *UserRepository {
	return &UserRepository{db: db}
}

// GetAll returns every user ordered by ID.
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, "SELECT"+userColumns+"FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := make([]*models.User, 0, rows.Len())
	for _, row := range rows.Records {
		users = append(users, scanUser(row))
	}

	return users, nil
}

// GetByID returns a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	rows, err := r.db.Query(ctx, "SELECT"+userColumns+"FROM users WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if rows.Len() == 0 {
		return nil, &persistence.UserError{Op: "GetByID", UserID: id, Err: persistence.ErrUserNotFound}
	}

	return scanUser(rows.First()), nil
}

// Create inserts a user and sets its generated ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (code, name, email, area, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query,
		user.Code,
		user.Name,
		user.Email,
		user.Area,
		user.Role,
		string(user.Status),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if sqlbase.IsUniqueViolation(err) {
			return &persistence.UserError{Op: "Create", Err: persistence.ErrUserAlreadyExists}
		}

		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = rows.First().Int64("id")

	return nil
}

// Update persists every mutable field of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET code = $1, name = $2, email = $3, area = $4, role = $5, status = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.Exec(ctx, query,
		user.Code,
		user.Name,
		user.Email,
		user.Area,
		user.Role,
		string(user.Status),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if sqlbase.IsUniqueViolation(err) {
			return &persistence.UserError{Op: "Update", UserID: user.ID, Err: persistence.ErrUserAlreadyExists}
		}

		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected == 0 {
		return &persistence.UserError{Op: "Update", UserID: user.ID, Err: persistence.ErrUserNotFound}
	}

	return nil
}

// Delete removes a user row.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected == 0 {
		return &persistence.UserError{Op: "Delete", UserID: id, Err: persistence.ErrUserNotFound}
	}

	return nil
}

func scanUser(row sqlbase.Row) *models.User {
	return &models.User{
		ID:        row.Int64("id"),
		Code:      row.String("code"),
		Name:      row.String("name"),
		Email:     row.String("email"),
		Area:      row.String("area"),
		Role:      row.String("role"),
		Status:    models.UserStatus(row.String("status")),
		CreatedAt: row.Time("created_at"),
		UpdatedAt: row.Time("updated_at"),
	}
}
