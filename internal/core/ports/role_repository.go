package ports

import (
	"context"

	"github.com/99minutos/users-api/internal/core/domain"
)

// RoleRepository is the read side of roles used for foreign-key checks,
// plus the write path used by the seeding command.
type RoleRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Upsert(ctx context.Context, role domain.Role) error
	List(ctx context.Context) ([]domain.Role, error)
}
