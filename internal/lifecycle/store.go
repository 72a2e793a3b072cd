package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"caseflow/internal/models"
)

// Store is the persistence port of both engines. InTx runs fn inside one
// atomic unit of work: either every mutation fn performed commits, or none
// do. Implementations translate commit conflicts into KindConflict errors.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transaction-scoped data access surface. The ...ForUpdate getters
// take an exclusive row-level lock held until commit or rollback; that lock
// is the sole serialization point for the read-validate-mutate-log sequence.
//
// Lock ordering: when a unit of work touches both entities it must lock the
// case before any of its suspects.
type Tx interface {
	CreateCase(ctx context.Context, c *models.Case) error
	GetCaseForUpdate(ctx context.Context, id uuid.UUID) (*models.Case, error)
	UpdateCase(ctx context.Context, c *models.Case) error

	CreateSuspect(ctx context.Context, s *models.Suspect) error
	// GetSuspect reads without locking. Suspect units of work use it to
	// learn the owning case id before taking locks in case-first order;
	// CaseID is immutable so the unlocked read cannot go stale.
	GetSuspect(ctx context.Context, id uuid.UUID) (*models.Suspect, error)
	GetSuspectForUpdate(ctx context.Context, id uuid.UUID) (*models.Suspect, error)
	UpdateSuspect(ctx context.Context, s *models.Suspect) error
	ListCaseSuspects(ctx context.Context, caseID uuid.UUID) ([]*models.Suspect, error)

	// ActiveWarrant returns the suspect's active warrant, or nil when none.
	ActiveWarrant(ctx context.Context, suspectID uuid.UUID) (*models.Warrant, error)
	CreateWarrant(ctx context.Context, w *models.Warrant) error
	UpdateWarrant(ctx context.Context, w *models.Warrant) error

	CreateInterrogation(ctx context.Context, i *models.Interrogation) error

	CreateTrial(ctx context.Context, t *models.Trial) error

	// AppendAudit writes one immutable history row; it must succeed within
	// the same transaction as the state write.
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}
