package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// Postgres error classes eligible for caller-side retry.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// Store is the Postgres-backed lifecycle.Store. Row locks taken by the
// ...ForUpdate getters serialize concurrent units of work against the same
// entity; lost races surface as retryable conflicts.
type Store struct {
	db *sqlx.DB
}

// NewStore creates the SQL store.
func NewStore(db *Database) *Store {
	return &Store{db: db.DB()}
}

// InTx runs fn inside one transaction. Serialization failures and deadlocks
// roll back and come out as conflict errors.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
		tx.Rollback()
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return translate(errors.Wrap(err, "failed to commit transaction"))
	}
	return nil
}

// translate maps storage-level failures onto the gateway error taxonomy,
// passing gateway errors through untouched.
func translate(err error) error {
	if lifecycle.KindOf(err) != "" {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			return lifecycle.NewConflict(err)
		}
	}
	return err
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) CreateCase(ctx context.Context, c *models.Case) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO cases (
			id, title, description, crime_severity, status, creation_path,
			rejection_count, created_by, approved_by, detective_id,
			sergeant_id, captain_id, judge_id, closed_at, created_at, updated_at
		) VALUES (
			:id, :title, :description, :crime_severity, :status, :creation_path,
			:rejection_count, :created_by, :approved_by, :detective_id,
			:sergeant_id, :captain_id, :judge_id, :closed_at, :created_at, :updated_at
		)`, c)
	return errors.Wrap(err, "failed to create case")
}

func (t *sqlTx) GetCaseForUpdate(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	err := t.tx.GetContext(ctx, &c, `SELECT * FROM cases WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFound("case", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock case")
	}
	return &c, nil
}

func (t *sqlTx) UpdateCase(ctx context.Context, c *models.Case) error {
	_, err := t.tx.NamedExecContext(ctx, `
		UPDATE cases SET
			title = :title,
			description = :description,
			status = :status,
			rejection_count = :rejection_count,
			approved_by = :approved_by,
			detective_id = :detective_id,
			sergeant_id = :sergeant_id,
			captain_id = :captain_id,
			judge_id = :judge_id,
			closed_at = :closed_at,
			updated_at = :updated_at
		WHERE id = :id`, c)
	return errors.Wrap(err, "failed to update case")
}

func (t *sqlTx) CreateSuspect(ctx context.Context, s *models.Suspect) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO suspects (
			id, case_id, full_name, national_id, status, sergeant_approval,
			approval_decided_by, rejection_message, wanted_since, arrested_at,
			created_by, created_at, updated_at
		) VALUES (
			:id, :case_id, :full_name, :national_id, :status, :sergeant_approval,
			:approval_decided_by, :rejection_message, :wanted_since, :arrested_at,
			:created_by, :created_at, :updated_at
		)`, s)
	return errors.Wrap(err, "failed to create suspect")
}

func (t *sqlTx) GetSuspect(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	var s models.Suspect
	err := t.tx.GetContext(ctx, &s, `SELECT * FROM suspects WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFound("suspect", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get suspect")
	}
	return &s, nil
}

func (t *sqlTx) GetSuspectForUpdate(ctx context.Context, id uuid.UUID) (*models.Suspect, error) {
	var s models.Suspect
	err := t.tx.GetContext(ctx, &s, `SELECT * FROM suspects WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NewNotFound("suspect", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock suspect")
	}
	return &s, nil
}

func (t *sqlTx) UpdateSuspect(ctx context.Context, s *models.Suspect) error {
	_, err := t.tx.NamedExecContext(ctx, `
		UPDATE suspects SET
			full_name = :full_name,
			national_id = :national_id,
			status = :status,
			sergeant_approval = :sergeant_approval,
			approval_decided_by = :approval_decided_by,
			rejection_message = :rejection_message,
			arrested_at = :arrested_at,
			updated_at = :updated_at
		WHERE id = :id`, s)
	return errors.Wrap(err, "failed to update suspect")
}

func (t *sqlTx) ListCaseSuspects(ctx context.Context, caseID uuid.UUID) ([]*models.Suspect, error) {
	var out []*models.Suspect
	err := t.tx.SelectContext(ctx, &out, `
		SELECT * FROM suspects WHERE case_id = $1 ORDER BY created_at`, caseID)
	return out, errors.Wrap(err, "failed to list case suspects")
}

func (t *sqlTx) ActiveWarrant(ctx context.Context, suspectID uuid.UUID) (*models.Warrant, error) {
	var w models.Warrant
	err := t.tx.GetContext(ctx, &w, `
		SELECT * FROM warrants WHERE suspect_id = $1 AND status = $2`,
		suspectID, models.WarrantActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get active warrant")
	}
	return &w, nil
}

func (t *sqlTx) CreateWarrant(ctx context.Context, w *models.Warrant) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO warrants (
			id, suspect_id, status, priority, reason, issued_by, issued_at,
			expires_at, executed_at, executed_by, cancelled_at, cancelled_by
		) VALUES (
			:id, :suspect_id, :status, :priority, :reason, :issued_by, :issued_at,
			:expires_at, :executed_at, :executed_by, :cancelled_at, :cancelled_by
		)`, w)
	return errors.Wrap(err, "failed to create warrant")
}

func (t *sqlTx) UpdateWarrant(ctx context.Context, w *models.Warrant) error {
	_, err := t.tx.NamedExecContext(ctx, `
		UPDATE warrants SET
			status = :status,
			executed_at = :executed_at,
			executed_by = :executed_by,
			cancelled_at = :cancelled_at,
			cancelled_by = :cancelled_by
		WHERE id = :id`, w)
	return errors.Wrap(err, "failed to update warrant")
}

func (t *sqlTx) CreateInterrogation(ctx context.Context, i *models.Interrogation) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO interrogations (
			id, suspect_id, detective_score, sergeant_score, notes,
			conducted_by, created_at
		) VALUES (
			:id, :suspect_id, :detective_score, :sergeant_score, :notes,
			:conducted_by, :created_at
		)`, i)
	return errors.Wrap(err, "failed to create interrogation")
}

func (t *sqlTx) CreateTrial(ctx context.Context, tr *models.Trial) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO trials (
			id, suspect_id, judge_id, verdict, punishment_title,
			punishment_details, created_at
		) VALUES (
			:id, :suspect_id, :judge_id, :verdict, :punishment_title,
			:punishment_details, :created_at
		)`, tr)
	return errors.Wrap(err, "failed to create trial")
}

// AppendAudit assigns the next per-entity sequence number under the caller's
// row lock and inserts the entry in the same transaction as the state write.
func (t *sqlTx) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	err := t.tx.GetContext(ctx, &e.Sequence, `
		SELECT COALESCE(MAX(sequence), 0) + 1
		FROM audit_entries
		WHERE entity_kind = $1 AND entity_id = $2`, e.EntityKind, e.EntityID)
	if err != nil {
		return errors.Wrap(err, "failed to allocate audit sequence")
	}

	_, err = t.tx.NamedExecContext(ctx, `
		INSERT INTO audit_entries (
			id, entity_kind, entity_id, sequence, from_state, to_state,
			actor, reason, created_at
		) VALUES (
			:id, :entity_kind, :entity_id, :sequence, :from_state, :to_state,
			:actor, :reason, :created_at
		)`, e)
	return errors.Wrap(err, "failed to append audit entry")
}
