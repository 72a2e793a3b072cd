package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"caseflow/internal/models"
)

// AuditRepository reads the immutable transition history. There is no write
// path here; entries are appended inside engine transactions only.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates the audit read repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Trail returns the full history of one entity in sequence order.
func (r *AuditRepository) Trail(ctx context.Context, kind models.EntityKind, id uuid.UUID) ([]*models.AuditEntry, error) {
	var out []*models.AuditEntry
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM audit_entries
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY sequence`, kind, id)
	return out, errors.Wrap(err, "failed to read audit trail")
}

// List returns audit entries matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter *models.AuditFilter) ([]*models.AuditEntry, int64, error) {
	whereConditions := []string{"1=1"}
	var args []interface{}
	argIndex := 0

	if filter != nil {
		if filter.EntityKind != nil {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("entity_kind = $%d", argIndex))
			args = append(args, *filter.EntityKind)
		}
		if filter.EntityID != nil {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("entity_id = $%d", argIndex))
			args = append(args, *filter.EntityID)
		}
		if filter.Actor != nil {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("actor = $%d", argIndex))
			args = append(args, *filter.Actor)
		}
	}

	whereClause := strings.Join(whereConditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_entries WHERE %s", whereClause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count audit entries")
	}

	limit, offset := 0, 0
	if filter != nil {
		limit, offset = filter.Limit, filter.Offset
	}
	limit, offset = pageBounds(limit, offset)
	dataQuery := fmt.Sprintf(`
		SELECT * FROM audit_entries
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex+1, argIndex+2)
	args = append(args, limit, offset)

	var out []*models.AuditEntry
	if err := r.db.SelectContext(ctx, &out, dataQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list audit entries")
	}
	return out, total, nil
}
