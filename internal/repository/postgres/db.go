package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baharkarakas/imagegen-backend/internal/apperr"
)

const uniqueViolation = "23505"

// DBInterface is the subset of *pgxpool.Pool the repositories use.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// validID rejects ids the uuid columns could never hold, so they read as
// missing rows instead of driver errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(msg string) error { return apperr.New(apperr.ErrNotFound, msg) }
