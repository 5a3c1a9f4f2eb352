package ports

import (
	"context"

	"github.com/99minutos/users-api/internal/core/domain"
)

// CreateUserInput carries the fields accepted when creating a user.
// Role is kept in its textual form so that non-numeric input can be reported
// as a validation failure rather than a decoding error.
type CreateUserInput struct {
	Email                string `json:"email"                 validate:"required,email,max=255"`
	Password             string `json:"password"              validate:"required,min=8,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role"                  validate:"required,numeric"`
}

// UpdateUserInput carries a partial update. A nil field is absent and keeps
// the stored value.
type UpdateUserInput struct {
	Email                *string
	Password             *string
	PasswordConfirmation *string
	Status               *string
	Role                 *string
}

// SetRoleInput carries the role reassignment payload.
type SetRoleInput struct {
	Role string `json:"role" validate:"required,numeric"`
}

// UserService defines the use-case operations exposed over /users.
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, id string) (*domain.User, error)
	Block(ctx context.Context, id string) (*domain.User, error)
	SetRole(ctx context.Context, id string, input SetRoleInput) (*domain.User, error)
}
