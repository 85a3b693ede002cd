package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/baharkarakas/imagegen-backend/internal/apperr"
	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/repository"
)

var userColumns = []string{"id", "username", "email", "password_hash", "role", "created_at"}

type usersRepo struct{ db DBInterface }

func NewUsers(db DBInterface) repository.Users {
	return &usersRepo{db: db}
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	query, args, err := squirrel.Insert("users").
		Columns("id", "username", "email", "password_hash", "role").
		Values(u.ID, u.Username, u.Email, u.PasswordHash, u.Role).
		Suffix("RETURNING created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("building insert query: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperr.New(apperr.ErrConflict, "User already exists")
		}
		return models.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	if !validID(id) {
		return models.User{}, notFound("User not found")
	}
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

func (r *usersRepo) getOne(ctx context.Context, where squirrel.Sqlizer) (models.User, error) {
	query, args, err := squirrel.Select(userColumns...).
		From("users").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("building select query: %w", err)
	}
	var u models.User
	if err := pgxscan.Get(ctx, r.db, &u, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return models.User{}, notFound("User not found")
		}
		return models.User{}, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

func (r *usersRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	query, args, err := squirrel.Select("1").
		From("users").
		Where(squirrel.Or{
			squirrel.Expr("lower(email) = lower(?)", email),
			squirrel.Eq{"username": username},
		}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}
	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

func (r *usersRepo) List(ctx context.Context) ([]models.User, error) {
	query, args, err := squirrel.Select(userColumns...).
		From("users").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	users := []models.User{}
	if err := pgxscan.Select(ctx, r.db, &users, query, args...); err != nil {
		return nil, fmt.Errorf("scanning users: %w", err)
	}
	return users, nil
}
