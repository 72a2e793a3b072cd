package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/models"
)

// CaseEngine owns every case state change. All mutations flow through the
// single transition gateway; the named operations are thin wrappers that
// pre-validate ownership or role preconditions before delegating to it.
type CaseEngine struct {
	store       Store
	authz       Authorizer
	notifier    Notifier
	recorder    Recorder
	coordinator *Coordinator
	logger      *zap.Logger
	now         func() time.Time
}

// NewCaseEngine creates a case lifecycle engine.
func NewCaseEngine(store Store, authz Authorizer, notifier Notifier, recorder Recorder, coordinator *Coordinator, logger *zap.Logger) *CaseEngine {
	return &CaseEngine{
		store:       store,
		authz:       authz,
		notifier:    notifier,
		recorder:    recorder,
		coordinator: coordinator,
		logger:      logger.Named("case_engine"),
		now:         time.Now,
	}
}

// RegisterComplaint creates a case on the complaint intake path. The case
// starts at complaint_registered and must be submitted for cadet review by
// its creator.
func (e *CaseEngine) RegisterComplaint(ctx context.Context, actor uuid.UUID, req *models.RegisterComplaintRequest) (*models.Case, error) {
	if err := e.requireCapability(ctx, actor, CapComplaintSubmit); err != nil {
		return nil, err
	}
	return e.createCase(ctx, actor, req.Title, req.Description, req.CrimeSeverity, models.PathComplaint, models.CaseComplaintRegistered, nil)
}

// OpenCrimeSceneCase creates a case on the crime-scene intake path. It starts
// at pending_approval, or directly at open when the creating actor holds the
// chief auto-approval capability.
func (e *CaseEngine) OpenCrimeSceneCase(ctx context.Context, actor uuid.UUID, req *models.OpenCrimeSceneCaseRequest) (*models.Case, error) {
	auto, err := e.authz.HasCapability(ctx, actor, models.KindCase, CapSceneAutoApprove)
	if err != nil {
		return nil, err
	}

	status := models.CasePendingApproval
	var approvedBy *uuid.UUID
	if auto {
		status = models.CaseOpen
		approvedBy = &actor
	} else if err := e.requireCapability(ctx, actor, CapSceneReport); err != nil {
		return nil, err
	}

	return e.createCase(ctx, actor, req.Title, req.Description, req.CrimeSeverity, models.PathCrimeScene, status, approvedBy)
}

func (e *CaseEngine) createCase(
	ctx context.Context,
	actor uuid.UUID,
	title string,
	description *string,
	severity models.CrimeSeverity,
	path models.CreationPath,
	status models.CaseStatus,
	approvedBy *uuid.UUID,
) (*models.Case, error) {
	if blank(&title) {
		return nil, NewDomainError("case title must not be blank")
	}
	if !severity.Valid() {
		return nil, NewDomainError("crime severity %d outside ordinal range 1..%d", severity, models.MaxCrimeSeverity)
	}

	now := e.now()
	c := &models.Case{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		CrimeSeverity: severity,
		Status:        status,
		CreationPath:  path,
		CreatedBy:     actor,
		ApprovedBy:    approvedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateCase(ctx, c); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &models.AuditEntry{
			ID:         uuid.New(),
			EntityKind: models.KindCase,
			EntityID:   c.ID,
			ToState:    string(status),
			Actor:      actor,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("case created",
		zap.String("case_id", c.ID.String()),
		zap.String("path", string(path)),
		zap.String("status", string(status)))
	return c, nil
}

// Transition is the gateway contract: it validates the edge against the
// static table, checks the actor's capability tokens, evaluates guards,
// mutates under the row lock, appends one audit entry and queues
// notifications, all in one unit of work.
func (e *CaseEngine) Transition(ctx context.Context, caseID uuid.UUID, target models.CaseStatus, actor uuid.UUID, reason *string) (*models.Case, error) {
	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		return e.transitionLocked(ctx, tx, c, target, actor, reason)
	})
}

// SubmitForReview sends a freshly registered complaint to cadet review. Only
// the primary complainant may submit.
func (e *CaseEngine) SubmitForReview(ctx context.Context, caseID, actor uuid.UUID) (*models.Case, error) {
	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		if c.CreatedBy != actor {
			return nil, NewPermissionDenied("only the primary complainant may submit the case for review")
		}
		return e.transitionLocked(ctx, tx, c, models.CaseCadetReview, actor, nil)
	})
}

// Resubmit returns a case from returned_to_complainant back to cadet review.
// Only the primary complainant may resubmit.
func (e *CaseEngine) Resubmit(ctx context.Context, caseID, actor uuid.UUID) (*models.Case, error) {
	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		if c.CreatedBy != actor {
			return nil, NewPermissionDenied("only the primary complainant may resubmit the case")
		}
		return e.transitionLocked(ctx, tx, c, models.CaseCadetReview, actor, nil)
	})
}

// CadetDecision records the first review tier outcome. A rejection is
// rejection-class: it requires a reason, increments the rejection counter and
// lands on voided once the counter reaches its threshold.
func (e *CaseEngine) CadetDecision(ctx context.Context, caseID, actor uuid.UUID, req *models.ReviewDecisionRequest) (*models.Case, error) {
	target := models.CaseOfficerReview
	if !req.Approve {
		target = models.CaseReturnedToComplainant
	}
	return e.Transition(ctx, caseID, target, actor, req.Reason)
}

// OfficerDecision records the second review tier outcome.
func (e *CaseEngine) OfficerDecision(ctx context.Context, caseID, actor uuid.UUID, req *models.ReviewDecisionRequest) (*models.Case, error) {
	target := models.CaseOpen
	if !req.Approve {
		target = models.CaseReturnedToCadet
	}
	return e.Transition(ctx, caseID, target, actor, req.Reason)
}

// CrimeSceneApproval decides a pending crime-scene case.
func (e *CaseEngine) CrimeSceneApproval(ctx context.Context, caseID, actor uuid.UUID, req *models.ReviewDecisionRequest) (*models.Case, error) {
	target := models.CaseOpen
	if !req.Approve {
		target = models.CaseVoided
	}
	return e.Transition(ctx, caseID, target, actor, req.Reason)
}

// DeclareSuspectsIdentified moves an investigation to suspect_identified.
// When a detective is assigned, only that detective may declare.
func (e *CaseEngine) DeclareSuspectsIdentified(ctx context.Context, caseID, actor uuid.UUID) (*models.Case, error) {
	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		if c.DetectiveID != nil && *c.DetectiveID != actor {
			return nil, NewPermissionDenied("only the assigned detective may declare suspects identified")
		}
		return e.transitionLocked(ctx, tx, c, models.CaseSuspectIdentified, actor, nil)
	})
}

// SubmitForSergeantReview forwards identified suspects for sergeant review.
func (e *CaseEngine) SubmitForSergeantReview(ctx context.Context, caseID, actor uuid.UUID) (*models.Case, error) {
	return e.Transition(ctx, caseID, models.CaseSergeantReview, actor, nil)
}

// SergeantDecision approves the arrest phase or sends the case back to
// investigation.
func (e *CaseEngine) SergeantDecision(ctx context.Context, caseID, actor uuid.UUID, req *models.ReviewDecisionRequest) (*models.Case, error) {
	target := models.CaseArrestOrdered
	if !req.Approve {
		target = models.CaseInvestigation
	}
	return e.Transition(ctx, caseID, target, actor, req.Reason)
}

// ForwardToJudiciary moves a reviewed case to the judiciary. From captain
// review on a maximum-severity case the forward routes through chief review.
func (e *CaseEngine) ForwardToJudiciary(ctx context.Context, caseID, actor uuid.UUID) (*models.Case, error) {
	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		target := models.CaseJudiciary
		if c.Status == models.CaseCaptainReview && c.CrimeSeverity == models.MaxCrimeSeverity {
			target = models.CaseChiefReview
		}
		return e.transitionLocked(ctx, tx, c, target, actor, nil)
	})
}

// AssignDetective assigns a detective and, as one combined operation, moves
// the case from open to investigation. The assignee must itself hold the
// detective-assignable capability.
func (e *CaseEngine) AssignDetective(ctx context.Context, caseID, actor, detectiveID uuid.UUID) (*models.Case, error) {
	assignable, err := e.authz.HasCapability(ctx, detectiveID, models.KindCase, CapDetectiveAssignable)
	if err != nil {
		return nil, err
	}
	if !assignable {
		return nil, NewDomainError("assignee %s cannot be assigned as detective", detectiveID)
	}

	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		c.DetectiveID = &detectiveID
		return e.transitionLocked(ctx, tx, c, models.CaseInvestigation, actor, nil)
	})
}

// AssignSergeant assigns the reviewing sergeant. Personnel assignment is a
// side-channel mutation: no state transition, no audit entry.
func (e *CaseEngine) AssignSergeant(ctx context.Context, caseID, actor, sergeantID uuid.UUID) (*models.Case, error) {
	return e.assignPersonnel(ctx, caseID, actor, sergeantID, "sergeant", func(c *models.Case, id uuid.UUID) { c.SergeantID = &id })
}

// AssignCaptain assigns the reviewing captain.
func (e *CaseEngine) AssignCaptain(ctx context.Context, caseID, actor, captainID uuid.UUID) (*models.Case, error) {
	return e.assignPersonnel(ctx, caseID, actor, captainID, "captain", func(c *models.Case, id uuid.UUID) { c.CaptainID = &id })
}

// AssignJudge assigns the presiding judge for the judiciary phase.
func (e *CaseEngine) AssignJudge(ctx context.Context, caseID, actor, judgeID uuid.UUID) (*models.Case, error) {
	return e.assignPersonnel(ctx, caseID, actor, judgeID, "judge", func(c *models.Case, id uuid.UUID) { c.JudgeID = &id })
}

func (e *CaseEngine) assignPersonnel(ctx context.Context, caseID, actor, assignee uuid.UUID, role string, set func(*models.Case, uuid.UUID)) (*models.Case, error) {
	if err := e.requireCapability(ctx, actor, CapAssignPersonnel); err != nil {
		return nil, err
	}

	return e.run(ctx, caseID, func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error) {
		if c.Status.Terminal() {
			return nil, NewDomainError("cannot assign %s on a %s case", role, c.Status)
		}
		set(c, assignee)
		c.UpdatedAt = e.now()
		if err := tx.UpdateCase(ctx, c); err != nil {
			return nil, err
		}
		e.logger.Info("personnel assigned",
			zap.String("case_id", c.ID.String()),
			zap.String("role", role),
			zap.String("assignee", assignee.String()))
		return []Notification{{
			Actor:      actor,
			Recipients: []uuid.UUID{assignee},
			Event:      EventCasePersonnelChanged,
			EntityKind: models.KindCase,
			EntityID:   c.ID,
			State:      string(c.Status),
			OccurredAt: e.now(),
		}}, nil
	})
}

// transitionLocked applies one edge to an already-locked case. Callers must
// hold the case row lock through tx.
func (e *CaseEngine) transitionLocked(ctx context.Context, tx Tx, c *models.Case, target models.CaseStatus, actor uuid.UUID, reason *string) ([]Notification, error) {
	rule, ok := caseRule(c.Status, target)
	if !ok {
		return nil, NewInvalidTransition(string(models.KindCase), string(c.Status), string(target))
	}

	allowed, err := hasAny(ctx, e.authz, actor, models.KindCase, rule.Capabilities)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewPermissionDenied("actor %s holds no capability for case transition %s -> %s", actor, c.Status, target)
	}

	if rule.RejectionClass && blank(reason) {
		e.recorder.GuardFailure(models.KindCase)
		return nil, NewDomainError("a non-blank reason is required for transition %s -> %s", c.Status, target)
	}
	if rule.Guard != nil {
		if err := rule.Guard(GuardContext{Case: c}); err != nil {
			e.recorder.GuardFailure(models.KindCase)
			return nil, err
		}
	}
	// A manual close obeys the same resolution rule as the auto-close: no
	// suspect may remain unresolved. The check needs the suspect list, so it
	// runs here against the transaction instead of as a table guard.
	if target == models.CaseClosed {
		if err := e.coordinator.EnsureClosable(ctx, tx, c); err != nil {
			e.recorder.GuardFailure(models.KindCase)
			return nil, err
		}
	}

	// The counter increment and the auto-void redirect are part of the same
	// locked unit as the status write.
	applied := target
	if rule.RejectionClass && c.Status == models.CaseCadetReview && target == models.CaseReturnedToComplainant {
		c.RejectionCount++
		if c.RejectionCount >= rejectionThreshold {
			applied = models.CaseVoided
			e.recorder.AutoTransition(models.KindCase, string(applied))
		}
	}

	now := e.now()
	from := c.Status
	c.Status = applied
	c.UpdatedAt = now
	switch {
	case applied == models.CaseClosed || applied == models.CaseVoided:
		c.ClosedAt = &now
	case applied == models.CaseOpen && from == models.CasePendingApproval:
		c.ApprovedBy = &actor
	}

	if err := tx.UpdateCase(ctx, c); err != nil {
		return nil, err
	}
	if err := tx.AppendAudit(ctx, &models.AuditEntry{
		ID:         uuid.New(),
		EntityKind: models.KindCase,
		EntityID:   c.ID,
		FromState:  string(from),
		ToState:    string(applied),
		Actor:      actor,
		Reason:     reason,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	e.logger.Info("case transition applied",
		zap.String("case_id", c.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(applied)),
		zap.String("actor", actor.String()))

	var out []Notification
	if recipients := caseRecipients(c, applied); len(recipients) > 0 {
		out = append(out, Notification{
			Actor:      actor,
			Recipients: recipients,
			Event:      EventCaseStatusChanged,
			EntityKind: models.KindCase,
			EntityID:   c.ID,
			State:      string(applied),
			OccurredAt: now,
		})
	}
	return out, nil
}

// run wraps one case unit of work: lock, execute, observe, dispatch
// notifications only after the commit succeeded.
func (e *CaseEngine) run(ctx context.Context, caseID uuid.UUID, fn func(ctx context.Context, tx Tx, c *models.Case) ([]Notification, error)) (*models.Case, error) {
	start := e.now()
	var out *models.Case
	var pending []Notification

	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.GetCaseForUpdate(ctx, caseID)
		if err != nil {
			return err
		}
		ns, err := fn(ctx, tx, c)
		if err != nil {
			return err
		}
		out = c
		pending = ns
		return nil
	})

	outcome := OutcomeApplied
	if err != nil {
		outcome = OutcomeRejected
	}
	e.recorder.ObserveTransition(models.KindCase, outcome, e.now().Sub(start))

	if err != nil {
		return nil, err
	}
	for _, n := range pending {
		e.notifier.Dispatch(ctx, n)
	}
	return out, nil
}

func (e *CaseEngine) requireCapability(ctx context.Context, actor uuid.UUID, cap Capability) error {
	ok, err := e.authz.HasCapability(ctx, actor, models.KindCase, cap)
	if err != nil {
		return err
	}
	if !ok {
		return NewPermissionDenied("actor %s lacks capability %s", actor, cap)
	}
	return nil
}
