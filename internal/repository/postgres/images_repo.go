package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/repository"
)

// imageRow is an images row joined with its owner's username.
type imageRow struct {
	ID            string    `db:"id"`
	Prompt        string    `db:"prompt"`
	ImageURL      string    `db:"image_url"`
	OwnerID       string    `db:"owner_id"`
	OwnerUsername string    `db:"owner_username"`
	Likes         []string  `db:"likes"`
	Public        bool      `db:"public"`
	Tags          []string  `db:"tags"`
	IsFallback    bool      `db:"is_fallback"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r imageRow) model() models.Image {
	likes, tags := r.Likes, r.Tags
	if likes == nil {
		likes = []string{}
	}
	if tags == nil {
		tags = []string{}
	}
	return models.Image{
		ID:         r.ID,
		Prompt:     r.Prompt,
		ImageURL:   r.ImageURL,
		CreatedBy:  models.UserRef{ID: r.OwnerID, Username: r.OwnerUsername},
		Likes:      likes,
		Public:     r.Public,
		Tags:       tags,
		IsFallback: r.IsFallback,
		CreatedAt:  r.CreatedAt,
	}
}

type imagesRepo struct{ db DBInterface }

func NewImages(db DBInterface) repository.Images {
	return &imagesRepo{db: db}
}

func selectImages() squirrel.SelectBuilder {
	return squirrel.Select(
		"i.id", "i.prompt", "i.image_url", "i.owner_id", "u.username AS owner_username",
		"i.likes", "i.public", "i.tags", "i.is_fallback", "i.created_at",
	).
		From("images i").
		Join("users u ON u.id = i.owner_id").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *imagesRepo) Create(ctx context.Context, img models.Image) (models.Image, error) {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if img.Likes == nil {
		img.Likes = []string{}
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	query, args, err := squirrel.Insert("images").
		Columns("id", "prompt", "image_url", "owner_id", "likes", "public", "tags", "is_fallback").
		Values(img.ID, img.Prompt, img.ImageURL, img.CreatedBy.ID, img.Likes, img.Public, img.Tags, img.IsFallback).
		Suffix("RETURNING created_at, (SELECT username FROM users WHERE users.id = images.owner_id)").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return models.Image{}, fmt.Errorf("building insert query: %w", err)
	}
	var username *string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&img.CreatedAt, &username); err != nil {
		return models.Image{}, fmt.Errorf("inserting image: %w", err)
	}
	if username != nil {
		img.CreatedBy.Username = *username
	}
	return img, nil
}

func (r *imagesRepo) GetByID(ctx context.Context, id string) (models.Image, error) {
	if !validID(id) {
		return models.Image{}, notFound("Image not found")
	}
	query, args, err := selectImages().Where(squirrel.Eq{"i.id": id}).ToSql()
	if err != nil {
		return models.Image{}, fmt.Errorf("building select query: %w", err)
	}
	var row imageRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return models.Image{}, notFound("Image not found")
		}
		return models.Image{}, fmt.Errorf("scanning image: %w", err)
	}
	return row.model(), nil
}

func (r *imagesRepo) ListPublic(ctx context.Context, limit int) ([]models.Image, error) {
	qb := selectImages().
		Where(squirrel.Eq{"i.public": true}).
		OrderBy("i.created_at DESC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	return r.list(ctx, qb)
}

func (r *imagesRepo) ListByOwner(ctx context.Context, userID string) ([]models.Image, error) {
	if !validID(userID) {
		return []models.Image{}, nil
	}
	return r.list(ctx, selectImages().
		Where(squirrel.Eq{"i.owner_id": userID}).
		OrderBy("i.created_at DESC"))
}

func (r *imagesRepo) list(ctx context.Context, qb squirrel.SelectBuilder) ([]models.Image, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var rows []imageRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scanning images: %w", err)
	}
	out := make([]models.Image, len(rows))
	for i, row := range rows {
		out[i] = row.model()
	}
	return out, nil
}

// ToggleLike flips membership in a single UPDATE so concurrent toggles on the
// same row serialize on the row lock.
func (r *imagesRepo) ToggleLike(ctx context.Context, imageID, userID string) ([]string, error) {
	if !validID(imageID) {
		return nil, notFound("Image not found")
	}
	query, args, err := squirrel.Update("images").
		Set("likes", squirrel.Expr(
			"CASE WHEN ?::text = ANY(likes) THEN array_remove(likes, ?::text) ELSE array_append(likes, ?::text) END",
			userID, userID, userID,
		)).
		Where(squirrel.Eq{"id": imageID}).
		Suffix("RETURNING likes").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building update query: %w", err)
	}
	var likes []string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&likes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("Image not found")
		}
		return nil, fmt.Errorf("toggling like: %w", err)
	}
	if likes == nil {
		likes = []string{}
	}
	return likes, nil
}

func (r *imagesRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("Image not found")
	}
	query, args, err := squirrel.Delete("images").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("Image not found")
	}
	return nil
}
