package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// SuspectRepository is the read side for suspects and the records hanging
// off them.
type SuspectRepository struct {
	db *sqlx.DB
}

// NewSuspectRepository creates the suspect read repository.
func NewSuspectRepository(db *sqlx.DB) *SuspectRepository {
	return &SuspectRepository{db: db}
}

// GetByID fetches one suspect.
func (r *SuspectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	var s models.Suspect
	err := r.db.GetContext(ctx, &s, `SELECT * FROM suspects WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFound("suspect", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get suspect")
	}
	return &s, nil
}

// List returns suspects matching the filter, most recently wanted first.
func (r *SuspectRepository) List(ctx context.Context, filter *models.SuspectFilter) ([]*models.Suspect, int64, error) {
	whereConditions := []string{"1=1"}
	var args []interface{}
	argIndex := 0

	if filter != nil {
		if filter.CaseID != nil {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("case_id = $%d", argIndex))
			args = append(args, *filter.CaseID)
		}
		if len(filter.Statuses) > 0 {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("status = ANY($%d)", argIndex))
			args = append(args, pq.Array(filter.Statuses))
		}
		if filter.NationalID != nil && *filter.NationalID != "" {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("national_id = $%d", argIndex))
			args = append(args, *filter.NationalID)
		}
		if filter.Search != nil && *filter.Search != "" {
			argIndex++
			whereConditions = append(whereConditions, fmt.Sprintf("full_name ILIKE $%d", argIndex))
			args = append(args, "%"+*filter.Search+"%")
		}
	}

	whereClause := strings.Join(whereConditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM suspects WHERE %s", whereClause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count suspects")
	}

	limit, offset := 0, 0
	if filter != nil {
		limit, offset = filter.Limit, filter.Offset
	}
	limit, offset = pageBounds(limit, offset)
	dataQuery := fmt.Sprintf(`
		SELECT * FROM suspects
		WHERE %s
		ORDER BY wanted_since DESC
		LIMIT $%d OFFSET $%d`, whereClause, argIndex+1, argIndex+2)
	args = append(args, limit, offset)

	var out []*models.Suspect
	if err := r.db.SelectContext(ctx, &out, dataQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list suspects")
	}
	return out, total, nil
}

// MostWanted returns approved wanted suspects ordered by how long they have
// been wanted, with the bounty computed per entry.
func (r *SuspectRepository) MostWanted(ctx context.Context, limit int) ([]*models.MostWantedEntry, error) {
	limit, _ = pageBounds(limit, 0)
	var out []*models.MostWantedEntry
	err := r.db.SelectContext(ctx, &out, `
		SELECT s.*, c.crime_severity
		FROM suspects s
		JOIN cases c ON c.id = s.case_id
		WHERE s.status = $1 AND s.sergeant_approval = $2
		ORDER BY s.wanted_since ASC
		LIMIT $3`, models.SuspectWanted, models.ApprovalApproved, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list most wanted suspects")
	}

	now := time.Now()
	for _, e := range out {
		e.Bounty = models.Bounty(e.WantedSince, e.CrimeSeverity, now)
	}
	return out, nil
}

// Warrants returns every warrant for a suspect, newest first.
func (r *SuspectRepository) Warrants(ctx context.Context, suspectID uuid.UUID) ([]*models.Warrant, error) {
	var out []*models.Warrant
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM warrants WHERE suspect_id = $1 ORDER BY issued_at DESC`, suspectID)
	return out, errors.Wrap(err, "failed to list warrants")
}

// Interrogations returns a suspect's interrogation sessions in order.
func (r *SuspectRepository) Interrogations(ctx context.Context, suspectID uuid.UUID) ([]*models.Interrogation, error) {
	var out []*models.Interrogation
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM interrogations WHERE suspect_id = $1 ORDER BY created_at`, suspectID)
	return out, errors.Wrap(err, "failed to list interrogations")
}

// Trials returns a suspect's trial records.
func (r *SuspectRepository) Trials(ctx context.Context, suspectID uuid.UUID) ([]*models.Trial, error) {
	var out []*models.Trial
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM trials WHERE suspect_id = $1 ORDER BY created_at`, suspectID)
	return out, errors.Wrap(err, "failed to list trials")
}
