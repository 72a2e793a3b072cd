package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// CaseRepository is the read side for cases. Writes go through the lifecycle
// engines only.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates the case read repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// GetByID fetches one case.
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	err := r.db.GetContext(ctx, &c, `SELECT * FROM cases WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFound("case", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get case")
	}
	return &c, nil
}

// List returns cases matching the filter, newest first.
func (r *CaseRepository) List(ctx context.Context, filter *models.CaseFilter) ([]*models.Case, int64, error) {
	whereConditions := []string{"1=1"}
	var args []interface{}
	argIndex := 0

	if filter != nil {
		if len(filter.Statuses) > 0 {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("status = ANY($%d)", argIndex))
			args = append(args, pq.Array(filter.Statuses))
		}
		if len(filter.Severities) > 0 {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("crime_severity = ANY($%d)", argIndex))
			args = append(args, pq.Array(filter.Severities))
		}
		if len(filter.CreationPaths) > 0 {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("creation_path = ANY($%d)", argIndex))
			args = append(args, pq.Array(filter.CreationPaths))
		}
		if filter.CreatedBy != nil {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("created_by = $%d", argIndex))
			args = append(args, *filter.CreatedBy)
		}
		if filter.DetectiveID != nil {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("detective_id = $%d", argIndex))
			args = append(args, *filter.DetectiveID)
		}
		if filter.Search != nil && *filter.Search != "" {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
			args = append(args, "%"+*filter.Search+"%")
		}
	}

	whereClause := strings.Join(whereConditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cases WHERE %s", whereClause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count cases")
	}

	limit, offset := pageBounds(filterLimit(filter), filterOffset(filter))
	dataQuery := fmt.Sprintf(`
		SELECT * FROM cases
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex+1, argIndex+2)
	args = append(args, limit, offset)

	var out []*models.Case
	if err := r.db.SelectContext(ctx, &out, dataQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	return out, total, nil
}

func filterLimit(f *models.CaseFilter) int {
	if f == nil {
		return 0
	}
	return f.Limit
}

func filterOffset(f *models.CaseFilter) int {
	if f == nil {
		return 0
	}
	return f.Offset
}

// pageBounds clamps pagination to sane bounds.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
