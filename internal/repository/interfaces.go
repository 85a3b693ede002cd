package repository

import (
	"context"

	"github.com/baharkarakas/imagegen-backend/internal/models"
)

// Implementations return errors of kind apperr.ErrNotFound for absent rows
// and apperr.ErrConflict for uniqueness violations.

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// ExistsByEmailOrUsername reports whether either value is already taken.
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
}

type Images interface {
	Create(ctx context.Context, img models.Image) (models.Image, error)
	GetByID(ctx context.Context, id string) (models.Image, error)
	ListPublic(ctx context.Context, limit int) ([]models.Image, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Image, error)
	// ToggleLike flips userID's membership in the likes set as one atomic
	// read-modify-write and returns the resulting set.
	ToggleLike(ctx context.Context, imageID, userID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
