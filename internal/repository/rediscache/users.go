// Package rediscache puts a Redis read-through cache in front of user
// lookups made by the authorization guard.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/repository"
)

const DefaultTTL = 30 * time.Second

// Client is the slice of the go-redis API the cache needs.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Users caches GetByID results. Cached entries carry no password hash, which
// is fine for the guard; credential checks go through GetByEmail uncached.
type Users struct {
	repo   repository.Users
	client Client
	ttl    time.Duration
}

func NewUsers(repo repository.Users, client Client, ttl time.Duration) *Users {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Users{repo: repo, client: client, ttl: ttl}
}

func userKey(id string) string { return fmt.Sprintf("imagegen:user:id:%s", id) }

func (c *Users) GetByID(ctx context.Context, id string) (models.User, error) {
	key := userKey(id)

	cached := c.client.Get(ctx, key)
	if cached.Err() == nil {
		var u models.User
		err := json.Unmarshal([]byte(cached.Val()), &u)
		if err == nil {
			slog.DebugContext(ctx, "user cache hit", "cache_key", key)
			return u, nil
		}
		slog.DebugContext(ctx, "failed to unmarshal cached user", "err", err)
	} else if cached.Err() != redis.Nil {
		slog.WarnContext(ctx, "user cache read failed", "err", cached.Err())
	}

	u, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	b, err := json.Marshal(u)
	if err != nil {
		slog.WarnContext(ctx, "failed to marshal user for cache", "err", err)
		return u, nil
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "failed to cache user", "err", err)
	}
	return u, nil
}

func (c *Users) Create(ctx context.Context, u models.User) (models.User, error) {
	return c.repo.Create(ctx, u)
}

func (c *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return c.repo.GetByEmail(ctx, email)
}

func (c *Users) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return c.repo.ExistsByEmailOrUsername(ctx, email, username)
}

func (c *Users) List(ctx context.Context) ([]models.User, error) {
	return c.repo.List(ctx)
}

var _ repository.Users = (*Users)(nil)
