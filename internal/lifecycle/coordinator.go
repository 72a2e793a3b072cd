package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/models"
)

// Coordinator holds the cross-entity rules that neither engine owns alone:
// which case states admit new suspects, and the auto-close of a judiciary
// case once every suspect is resolved. It runs inside the caller's
// transaction and inherits its locks.
type Coordinator struct {
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoordinator creates the cross-entity coordinator.
func NewCoordinator(recorder Recorder, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		recorder: recorder,
		logger:   logger.Named("coordinator"),
		now:      time.Now,
	}
}

// EnsureInvestigable checks that the case admits new suspects.
func (co *Coordinator) EnsureInvestigable(c *models.Case) error {
	switch c.Status {
	case models.CaseInvestigation, models.CaseSuspectIdentified:
		return nil
	}
	return NewDomainError("suspects can only be added during investigation, case is %s", c.Status)
}

// EnsureClosable checks that every suspect on the case sits in a resolved
// sub-state. Manual close and auto-close share this rule.
func (co *Coordinator) EnsureClosable(ctx context.Context, tx Tx, c *models.Case) error {
	suspects, err := tx.ListCaseSuspects(ctx, c.ID)
	if err != nil {
		return err
	}
	for _, s := range suspects {
		if !s.Status.Resolved() {
			return NewDomainError("case cannot close while suspect %s is %s", s.ID, s.Status)
		}
	}
	return nil
}

// MaybeClose closes a judiciary case once every suspect is resolved. The
// close is system-triggered: no capability check, recorded in the audit with
// a fixed reason. It is idempotent; a case already closed or not yet at the
// judiciary is left untouched with no duplicate audit entry.
func (co *Coordinator) MaybeClose(ctx context.Context, tx Tx, c *models.Case, actor uuid.UUID) ([]Notification, error) {
	if c.Status != models.CaseJudiciary {
		return nil, nil
	}
	if err := co.EnsureClosable(ctx, tx, c); err != nil {
		if IsDomainError(err) {
			return nil, nil
		}
		return nil, err
	}

	now := co.now()
	from := c.Status
	c.Status = models.CaseClosed
	c.ClosedAt = &now
	c.UpdatedAt = now
	if err := tx.UpdateCase(ctx, c); err != nil {
		return nil, err
	}
	if err := tx.AppendAudit(ctx, &models.AuditEntry{
		ID:         uuid.New(),
		EntityKind: models.KindCase,
		EntityID:   c.ID,
		FromState:  string(from),
		ToState:    string(models.CaseClosed),
		Actor:      actor,
		Reason:     strptr("all suspects resolved"),
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	co.recorder.AutoTransition(models.KindCase, string(models.CaseClosed))
	co.logger.Info("case auto-closed", zap.String("case_id", c.ID.String()))

	var out []Notification
	if recipients := caseRecipients(c, models.CaseClosed); len(recipients) > 0 {
		out = append(out, Notification{
			Actor:      actor,
			Recipients: recipients,
			Event:      EventCaseStatusChanged,
			EntityKind: models.KindCase,
			EntityID:   c.ID,
			State:      string(models.CaseClosed),
			OccurredAt: now,
		})
	}
	return out, nil
}
