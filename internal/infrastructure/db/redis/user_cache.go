package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/core/ports"
)

const defaultUserTTL = 30 * time.Second

// deletedMarker replaces the entry of a deleted user for one TTL so that a
// read which loaded the user before the delete cannot refill the key.
var deletedMarker = []byte("deleted")

// Client is the subset of the Redis API the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// UserCache decorates a UserRepository with a read-through cache on FindByID.
// Key format: users:id:<id>
//
// Reads fill the key only when it is absent. Writes overwrite it: Update with
// the stored user, Delete with deletedMarker. A fill racing a write therefore
// never replaces the write's entry.
type UserCache struct {
	repo   ports.UserRepository
	client Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewUserCache wraps repo. A non-positive ttl selects defaultUserTTL.
func NewUserCache(repo ports.UserRepository, client Client, ttl time.Duration, log zerolog.Logger) *UserCache {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	return &UserCache{repo: repo, client: client, ttl: ttl, log: log}
}

// cachedUser keeps the password hash, which domain.User hides from JSON.
type cachedUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Status       string    `json:"status"`
	RoleID       int64     `json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newCachedUser(u *domain.User) cachedUser {
	return cachedUser{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       string(u.Status),
		RoleID:       u.RoleID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (cu cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:           cu.ID,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		Status:       domain.UserStatus(cu.Status),
		RoleID:       cu.RoleID,
		CreatedAt:    cu.CreatedAt,
		UpdatedAt:    cu.UpdatedAt,
	}
}

func (c *UserCache) key(id string) string {
	return "users:id:" + id
}

func (c *UserCache) FindByID(ctx context.Context, id string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil && bytes.Equal(raw, deletedMarker):
		return nil, domain.ErrUserNotFound
	case err == nil:
		var cu cachedUser
		uerr := json.Unmarshal(raw, &cu)
		if uerr == nil {
			return cu.toDomain(), nil
		}
		c.log.Warn().Err(uerr).Str("user_id", id).Msg("discarding unreadable cache entry")
		c.invalidate(ctx, id)
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("user_id", id).Msg("user cache read failed")
	}

	user, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(newCachedUser(user))
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("failed to encode user for cache")
		return user, nil
	}
	if err := c.client.SetNX(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("user cache write failed")
	}
	return user, nil
}

// Update persists user and replaces its cache entry with the stored value.
func (c *UserCache) Update(ctx context.Context, user *domain.User) error {
	if err := c.repo.Update(ctx, user); err != nil {
		return err
	}
	payload, err := json.Marshal(newCachedUser(user))
	if err != nil {
		c.invalidate(ctx, user.ID)
		return nil
	}
	c.overwrite(ctx, user.ID, payload)
	return nil
}

// Delete removes the user and marks its key as deleted for one TTL.
func (c *UserCache) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.overwrite(ctx, id, deletedMarker)
	return nil
}

// overwrite falls back to deleting the key when it cannot be written.
func (c *UserCache) overwrite(ctx context.Context, id string, payload []byte) {
	if err := c.client.Set(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("user cache write failed")
		c.invalidate(ctx, id)
	}
}

func (c *UserCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", id).Msg("user cache invalidation failed")
	}
}

// Delegated to the wrapped repository.

func (c *UserCache) List(ctx context.Context) ([]*domain.User, error) {
	return c.repo.List(ctx)
}

func (c *UserCache) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.repo.FindByEmail(ctx, email)
}

func (c *UserCache) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	return c.repo.Create(ctx, user)
}
