package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/core/ports"
	"github.com/99minutos/users-api/internal/core/validation"
)

const statusRule = "oneof=pending approved blocked"

// UserService implements ports.UserService.
type UserService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	hasher    PasswordHasher
	validator *validation.Validator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewUserService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	hasher PasswordHasher,
	validator *validation.Validator,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		roles:     roles,
		hasher:    hasher,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// List returns every stored user.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create validates input, hashes the password and stores a new user. New users
// are always approved; any status in the request is ignored.
func (s *UserService) Create(ctx context.Context, input ports.CreateUserInput) (*domain.User, error) {
	verr := &domain.ValidationError{}
	if err := s.validator.Struct(input, verr); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	email := normalizeEmail(input.Email)
	if !verr.Has("email") {
		if err := s.checkEmailAvailable(ctx, email, "", verr); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}
	var roleID int64
	if !verr.Has("role") {
		id, err := s.checkRoleExists(ctx, input.Role, verr)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		roleID = id
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	now := s.now()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		Status:       domain.StatusApproved,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, uniqueEmailError()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Int64("role", created.RoleID).Msg("user created")
	return created, nil
}

// Get resolves a single user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.resolve(ctx, id)
}

// Update merges the present fields of input onto the stored user. Absent
// fields, including the password hash, keep their stored values.
func (s *UserService) Update(ctx context.Context, id string, input ports.UpdateUserInput) (*domain.User, error) {
	current, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	if input.Password != nil {
		if err := s.validator.Var("password", *input.Password, "min=8", verr); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if !verr.Has("password") && (input.PasswordConfirmation == nil || *input.PasswordConfirmation != *input.Password) {
			verr.Add("password", domain.RuleConfirmed, "")
		}
	}
	var email string
	if input.Email != nil {
		if err := s.validator.Var("email", *input.Email, "required,email,max=255", verr); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		email = normalizeEmail(*input.Email)
		if !verr.Has("email") && email != current.Email {
			if err := s.checkEmailAvailable(ctx, email, current.ID, verr); err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
	}
	var roleID int64
	if input.Role != nil {
		if err := s.validator.Var("role", *input.Role, "required,numeric", verr); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if !verr.Has("role") {
			if roleID, err = s.checkRoleExists(ctx, *input.Role, verr); err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
	}
	if input.Status != nil {
		if err := s.validator.Var("status", *input.Status, "required,"+statusRule, verr); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	next := *current
	if input.Email != nil {
		next.Email = email
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("update user: hash password: %w", err)
		}
		next.PasswordHash = hash
	}
	if input.Role != nil {
		next.RoleID = roleID
	}
	if input.Status != nil {
		next.Status = domain.UserStatus(*input.Status)
	}

	if err := s.save(ctx, &next); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info().Str("user_id", next.ID).Bool("password_changed", input.Password != nil).Msg("user updated")
	return &next, nil
}

// Delete removes the user permanently.
func (s *UserService) Delete(ctx context.Context, id string) error {
	current, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, current.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info().Str("user_id", current.ID).Msg("user deleted")
	return nil
}

// Approve sets the status to approved regardless of the current status.
func (s *UserService) Approve(ctx context.Context, id string) (*domain.User, error) {
	return s.transition(ctx, id, domain.StatusApproved)
}

// Block sets the status to blocked regardless of the current status.
func (s *UserService) Block(ctx context.Context, id string) (*domain.User, error) {
	return s.transition(ctx, id, domain.StatusBlocked)
}

// SetRole reassigns the user's role. The stored role is untouched when the
// requested one does not exist.
func (s *UserService) SetRole(ctx context.Context, id string, input ports.SetRoleInput) (*domain.User, error) {
	current, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	if err := s.validator.Struct(input, verr); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	var roleID int64
	if !verr.Has("role") {
		if roleID, err = s.checkRoleExists(ctx, input.Role, verr); err != nil {
			return nil, fmt.Errorf("set role: %w", err)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	next := *current
	next.RoleID = roleID
	if err := s.save(ctx, &next); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}

	s.logger.Info().Str("user_id", next.ID).Int64("from", current.RoleID).Int64("to", roleID).Msg("user role changed")
	return &next, nil
}

func (s *UserService) transition(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	current, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Status = status
	if err := s.save(ctx, &next); err != nil {
		return nil, fmt.Errorf("set status %s: %w", status, err)
	}

	s.logger.Info().Str("user_id", next.ID).Str("from", string(current.Status)).Str("to", string(status)).Msg("user status changed")
	return &next, nil
}

// resolve loads the target user or returns domain.ErrUserNotFound.
func (s *UserService) resolve(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return uniqueEmailError()
		}
		return err
	}
	return nil
}

// checkEmailAvailable records a unique violation when email belongs to a user
// other than selfID.
func (s *UserService) checkEmailAvailable(ctx context.Context, email, selfID string, verr *domain.ValidationError) error {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		verr.Add("email", domain.RuleUnique, "")
	}
	return nil
}

// checkRoleExists parses raw and records an exists violation when it does not
// name a stored role.
func (s *UserService) checkRoleExists(ctx context.Context, raw string, verr *domain.ValidationError) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		verr.Add("role", domain.RuleExists, "")
		return 0, nil
	}
	ok, err := s.roles.Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		verr.Add("role", domain.RuleExists, "")
		return 0, nil
	}
	return id, nil
}

// normalizeEmail lowercases addresses so uniqueness ignores case.
func normalizeEmail(email string) string {
	return strings.ToLower(email)
}

func uniqueEmailError() error {
	verr := &domain.ValidationError{}
	verr.Add("email", domain.RuleUnique, "")
	return verr
}
