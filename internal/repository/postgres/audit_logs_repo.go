package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/baharkarakas/imagegen-backend/internal/models"
	"github.com/baharkarakas/imagegen-backend/internal/repository"
)

type auditLogsRepo struct{ db DBInterface }

func NewAuditLogs(db DBInterface) repository.AuditLogs {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	query, args, err := squirrel.Insert("audit_logs").
		Columns("entity_type", "entity_id", "actor_id", "action", "details").
		Values(l.EntityType, l.EntityID, l.ActorID, l.Action, l.Details).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}
