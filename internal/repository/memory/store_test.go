package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/models"
)

func newTestStore(t *testing.T) (*Store, Repositories) {
	t.Helper()
	s := NewStore()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s, NewRepositories(s)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create and fetch users", func(t *testing.T) {
		_, repos := newTestStore(t)
		u, err := repos.Users.Create(ctx, models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"})
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, models.RoleUser, u.Role)

		byID, err := repos.Users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)

		byEmail, err := repos.Users.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("Should reject duplicate email or username", func(t *testing.T) {
		_, repos := newTestStore(t)
		_, err := repos.Users.Create(ctx, models.User{Username: "alice", Email: "alice@example.com"})
		require.NoError(t, err)

		_, err = repos.Users.Create(ctx, models.User{Username: "alice2", Email: "alice@example.com"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		_, err = repos.Users.Create(ctx, models.User{Username: "alice", Email: "other@example.com"})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		exists, err := repos.Users.ExistsByEmailOrUsername(ctx, "nobody@example.com", "alice")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repos.Users.ExistsByEmailOrUsername(ctx, "nobody@example.com", "nobody")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should report missing users as not found", func(t *testing.T) {
		_, repos := newTestStore(t)
		_, err := repos.Users.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = repos.Users.GetByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Should list users newest first", func(t *testing.T) {
		_, repos := newTestStore(t)
		for _, name := range []string{"ann", "ben", "cid"} {
			_, err := repos.Users.Create(ctx, models.User{Username: name, Email: name + "@example.com"})
			require.NoError(t, err)
		}
		users, err := repos.Users.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, "cid", users[0].Username)
		assert.Equal(t, "ann", users[2].Username)
	})
}

func TestImages(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (Repositories, models.User) {
		_, repos := newTestStore(t)
		owner, err := repos.Users.Create(ctx, models.User{Username: "alice", Email: "alice@example.com"})
		require.NoError(t, err)
		return repos, owner
	}

	t.Run("Should annotate owner username", func(t *testing.T) {
		repos, owner := setup(t)
		img, err := repos.Images.Create(ctx, models.Image{Prompt: "p", CreatedBy: models.UserRef{ID: owner.ID}, Public: true})
		require.NoError(t, err)
		assert.Equal(t, "alice", img.CreatedBy.Username)

		got, err := repos.Images.GetByID(ctx, img.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.CreatedBy.Username)
		assert.NotNil(t, got.Likes)
	})

	t.Run("Should list only public images newest first within limit", func(t *testing.T) {
		repos, owner := setup(t)
		for i := 0; i < 5; i++ {
			_, err := repos.Images.Create(ctx, models.Image{
				Prompt:    fmt.Sprintf("prompt %d", i),
				CreatedBy: models.UserRef{ID: owner.ID},
				Public:    i%2 == 0,
			})
			require.NoError(t, err)
		}

		list, err := repos.Images.ListPublic(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "prompt 4", list[0].Prompt)
		assert.Equal(t, "prompt 2", list[1].Prompt)
		for _, img := range list {
			assert.True(t, img.Public)
		}

		mine, err := repos.Images.ListByOwner(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 5)
		assert.Equal(t, "prompt 4", mine[0].Prompt)
	})

	t.Run("Should toggle likes idempotently per pair", func(t *testing.T) {
		repos, owner := setup(t)
		img, err := repos.Images.Create(ctx, models.Image{Prompt: "p", CreatedBy: models.UserRef{ID: owner.ID}})
		require.NoError(t, err)

		likes, err := repos.Images.ToggleLike(ctx, img.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, likes)

		likes, err = repos.Images.ToggleLike(ctx, img.ID, "carol")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "carol"}, likes)

		likes, err = repos.Images.ToggleLike(ctx, img.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"carol"}, likes)

		_, err = repos.Images.ToggleLike(ctx, "missing", "bob")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Should serialize concurrent toggles", func(t *testing.T) {
		repos, owner := setup(t)
		img, err := repos.Images.Create(ctx, models.Image{Prompt: "p", CreatedBy: models.UserRef{ID: owner.ID}})
		require.NoError(t, err)

		var g errgroup.Group
		for i := 0; i < 50; i++ {
			user := fmt.Sprintf("user-%d", i%10)
			g.Go(func() error {
				_, err := repos.Images.ToggleLike(ctx, img.ID, user)
				return err
			})
		}
		require.NoError(t, g.Wait())

		// every user toggled five times, so each ends liked exactly once
		got, err := repos.Images.GetByID(ctx, img.ID)
		require.NoError(t, err)
		assert.Len(t, got.Likes, 10)
		seen := map[string]bool{}
		for _, l := range got.Likes {
			assert.False(t, seen[l], "duplicate like %s", l)
			seen[l] = true
		}
	})

	t.Run("Should delete images", func(t *testing.T) {
		repos, owner := setup(t)
		img, err := repos.Images.Create(ctx, models.Image{Prompt: "p", CreatedBy: models.UserRef{ID: owner.ID}})
		require.NoError(t, err)

		require.NoError(t, repos.Images.Delete(ctx, img.ID))
		_, err = repos.Images.GetByID(ctx, img.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, repos.Images.Delete(ctx, img.ID), apperr.ErrNotFound)
	})

	t.Run("Should not leak internal slices", func(t *testing.T) {
		repos, owner := setup(t)
		img, err := repos.Images.Create(ctx, models.Image{Prompt: "p", Tags: []string{"tag1"}, CreatedBy: models.UserRef{ID: owner.ID}})
		require.NoError(t, err)

		img.Tags[0] = "mutated"
		got, err := repos.Images.GetByID(ctx, img.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"tag1"}, got.Tags)
	})
}

func TestAuditLogs(t *testing.T) {
	s, repos := newTestStore(t)
	actor := "u1"
	require.NoError(t, repos.AuditLogs.Create(context.Background(), models.AuditLog{
		EntityType: "image", EntityID: "i1", ActorID: &actor, Action: models.AuditImageCreated,
	}))

	logs := s.AuditLogs()
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].ID)
	assert.Equal(t, models.AuditImageCreated, logs[0].Action)
	assert.False(t, logs[0].CreatedAt.IsZero())
}
