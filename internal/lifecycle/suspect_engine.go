package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/models"
)

// SuspectEngine owns every suspect state change plus the warrant,
// interrogation and trial records hanging off a suspect. Every unit of work
// locks the owning case before the suspect so case-level guards see a stable
// case and the lock order stays fixed across the whole module.
type SuspectEngine struct {
	store       Store
	authz       Authorizer
	roles       RoleResolver
	notifier    Notifier
	recorder    Recorder
	coordinator *Coordinator
	logger      *zap.Logger
	now         func() time.Time
}

// NewSuspectEngine creates a suspect lifecycle engine.
func NewSuspectEngine(store Store, authz Authorizer, roles RoleResolver, notifier Notifier, recorder Recorder, coordinator *Coordinator, logger *zap.Logger) *SuspectEngine {
	return &SuspectEngine{
		store:       store,
		authz:       authz,
		roles:       roles,
		notifier:    notifier,
		recorder:    recorder,
		coordinator: coordinator,
		logger:      logger.Named("suspect_engine"),
		now:         time.Now,
	}
}

// CreateSuspect registers a new suspect on an investigable case. The suspect
// starts wanted with the sergeant approval sub-state pending.
func (e *SuspectEngine) CreateSuspect(ctx context.Context, caseID, actor uuid.UUID, req *models.CreateSuspectRequest) (*models.Suspect, error) {
	if err := e.requireCapability(ctx, actor, CapSuspectCreate); err != nil {
		return nil, err
	}
	if blank(&req.FullName) {
		return nil, NewDomainError("suspect full name must not be blank")
	}

	now := e.now()
	s := &models.Suspect{
		ID:               uuid.New(),
		CaseID:           caseID,
		FullName:         req.FullName,
		NationalID:       req.NationalID,
		Status:           models.SuspectWanted,
		SergeantApproval: models.ApprovalPending,
		WantedSince:      now,
		CreatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var pending []Notification
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.GetCaseForUpdate(ctx, caseID)
		if err != nil {
			return err
		}
		if err := e.coordinator.EnsureInvestigable(c); err != nil {
			return err
		}
		if err := tx.CreateSuspect(ctx, s); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, &models.AuditEntry{
			ID:         uuid.New(),
			EntityKind: models.KindSuspect,
			EntityID:   s.ID,
			ToState:    string(models.SuspectWanted),
			Actor:      actor,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if c.DetectiveID != nil {
			pending = append(pending, Notification{
				Actor:      actor,
				Recipients: []uuid.UUID{*c.DetectiveID},
				Event:      EventSuspectIdentified,
				EntityKind: models.KindSuspect,
				EntityID:   s.ID,
				State:      string(models.SuspectWanted),
				OccurredAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("suspect created",
		zap.String("suspect_id", s.ID.String()),
		zap.String("case_id", caseID.String()))
	for _, n := range pending {
		e.notifier.Dispatch(ctx, n)
	}
	return s, nil
}

// DecideApproval records the sergeant approval sub-state. The decision is
// terminal: once decided it can never be changed. A rejection requires a
// non-blank message. The sub-state is orthogonal to suspect status, so no
// audit entry is written.
func (e *SuspectEngine) DecideApproval(ctx context.Context, suspectID, actor uuid.UUID, req *models.ApprovalDecisionRequest) (*models.Suspect, error) {
	if err := e.requireCapability(ctx, actor, CapSuspectApprove); err != nil {
		return nil, err
	}

	return e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		if s.SergeantApproval != models.ApprovalPending {
			return nil, NewDomainError("suspect approval already decided as %s", s.SergeantApproval)
		}
		if req.Approve {
			s.SergeantApproval = models.ApprovalApproved
		} else {
			if blank(req.Message) {
				return nil, NewDomainError("a non-blank message is required to reject a suspect")
			}
			s.SergeantApproval = models.ApprovalRejected
			s.RejectionMessage = req.Message
		}
		s.ApprovalDecidedBy = &actor
		s.UpdatedAt = e.now()
		return nil, tx.UpdateSuspect(ctx, s)
	})
}

// IssueWarrant issues an arrest warrant for an approved wanted suspect. At
// most one warrant per suspect may be active at any time.
func (e *SuspectEngine) IssueWarrant(ctx context.Context, suspectID, actor uuid.UUID, req *models.IssueWarrantRequest) (*models.Warrant, error) {
	if err := e.requireCapability(ctx, actor, CapWarrantIssue); err != nil {
		return nil, err
	}
	if blank(&req.Reason) {
		return nil, NewDomainError("warrant reason must not be blank")
	}

	var w *models.Warrant
	_, err := e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		if s.SergeantApproval != models.ApprovalApproved {
			return nil, NewDomainError("warrants require an approved suspect, approval is %s", s.SergeantApproval)
		}
		if s.Status != models.SuspectWanted {
			return nil, NewDomainError("warrants can only target wanted suspects, suspect is %s", s.Status)
		}
		active, err := e.usableWarrant(ctx, tx, s)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, NewDomainError("suspect already has an active warrant %s", active.ID)
		}

		now := e.now()
		w = &models.Warrant{
			ID:        uuid.New(),
			SuspectID: s.ID,
			Status:    models.WarrantActive,
			Priority:  req.Priority,
			Reason:    req.Reason,
			IssuedBy:  actor,
			IssuedAt:  now,
			ExpiresAt: req.ExpiresAt,
		}
		if err := tx.CreateWarrant(ctx, w); err != nil {
			return nil, err
		}
		return []Notification{{
			Actor:      actor,
			Recipients: suspectRecipients(c),
			Event:      EventWarrantIssued,
			EntityKind: models.KindSuspect,
			EntityID:   s.ID,
			State:      string(models.WarrantActive),
			OccurredAt: now,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CancelWarrant cancels the suspect's active warrant. Cancellation is
// terminal for the warrant; the suspect state is untouched.
func (e *SuspectEngine) CancelWarrant(ctx context.Context, suspectID, actor uuid.UUID, reason *string) (*models.Warrant, error) {
	if err := e.requireCapability(ctx, actor, CapWarrantCancel); err != nil {
		return nil, err
	}
	if blank(reason) {
		return nil, NewDomainError("a non-blank reason is required to cancel a warrant")
	}

	var w *models.Warrant
	_, err := e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		active, err := e.usableWarrant(ctx, tx, s)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, NewDomainError("suspect has no active warrant to cancel")
		}

		now := e.now()
		active.Status = models.WarrantCancelled
		active.CancelledAt = &now
		active.CancelledBy = &actor
		if err := tx.UpdateWarrant(ctx, active); err != nil {
			return nil, err
		}
		w = active
		return []Notification{{
			Actor:      actor,
			Recipients: suspectRecipients(c),
			Event:      EventWarrantCancelled,
			EntityKind: models.KindSuspect,
			EntityID:   s.ID,
			State:      string(models.WarrantCancelled),
			OccurredAt: now,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Arrest moves a wanted suspect to arrested. The arrest either executes the
// active warrant or, absent one, carries an override justification that is
// recorded verbatim as the audit reason. An expired warrant never satisfies
// the arrest. Marking the warrant executed and flipping the suspect state
// happen in the same unit of work.
func (e *SuspectEngine) Arrest(ctx context.Context, suspectID, actor uuid.UUID, req *models.ArrestRequest) (*models.Suspect, error) {
	return e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		// The table lookup comes first so the rejection order matches the
		// gateway: an impossible edge is an invalid transition before any
		// domain precondition is consulted.
		if _, ok := suspectRule(s.Status, models.SuspectArrested); !ok {
			return nil, NewInvalidTransition(string(models.KindSuspect), string(s.Status), string(models.SuspectArrested))
		}
		if s.SergeantApproval != models.ApprovalApproved {
			return nil, NewDomainError("arrest requires an approved suspect, approval is %s", s.SergeantApproval)
		}

		active, err := e.usableWarrant(ctx, tx, s)
		if err != nil {
			return nil, err
		}
		var reason *string
		if active != nil {
			now := e.now()
			active.Status = models.WarrantExecuted
			active.ExecutedAt = &now
			active.ExecutedBy = &actor
			if err := tx.UpdateWarrant(ctx, active); err != nil {
				return nil, err
			}
		} else {
			if blank(req.OverrideJustification) {
				return nil, NewDomainError("arrest without an active warrant requires an override justification")
			}
			reason = req.OverrideJustification
		}

		ns, err := e.transitionLocked(ctx, tx, c, s, models.SuspectArrested, actor, reason)
		if err != nil {
			return nil, err
		}
		if s.ArrestedAt == nil {
			at := e.now()
			s.ArrestedAt = &at
			if err := tx.UpdateSuspect(ctx, s); err != nil {
				return nil, err
			}
		}
		return ns, nil
	})
}

// RecordInterrogation stores one interrogation session. Both guilt scores
// must sit in [1,10]. The first session against an arrested suspect
// auto-transitions the suspect to under_interrogation.
func (e *SuspectEngine) RecordInterrogation(ctx context.Context, suspectID, actor uuid.UUID, req *models.CreateInterrogationRequest) (*models.Interrogation, error) {
	if err := e.requireCapability(ctx, actor, CapInterrogate); err != nil {
		return nil, err
	}
	if req.DetectiveScore < 1 || req.DetectiveScore > 10 {
		return nil, NewDomainError("detective score %d outside range 1..10", req.DetectiveScore)
	}
	if req.SergeantScore < 1 || req.SergeantScore > 10 {
		return nil, NewDomainError("sergeant score %d outside range 1..10", req.SergeantScore)
	}

	var rec *models.Interrogation
	_, err := e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		if s.Status != models.SuspectArrested && s.Status != models.SuspectUnderInterrogation {
			return nil, NewDomainError("interrogations require an arrested suspect, suspect is %s", s.Status)
		}

		rec = &models.Interrogation{
			ID:             uuid.New(),
			SuspectID:      s.ID,
			DetectiveScore: req.DetectiveScore,
			SergeantScore:  req.SergeantScore,
			Notes:          req.Notes,
			ConductedBy:    actor,
			CreatedAt:      e.now(),
		}
		if err := tx.CreateInterrogation(ctx, rec); err != nil {
			return nil, err
		}

		if s.Status == models.SuspectArrested {
			e.recorder.AutoTransition(models.KindSuspect, string(models.SuspectUnderInterrogation))
			return e.transitionLocked(ctx, tx, c, s, models.SuspectUnderInterrogation, actor, nil)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SubmitForVerdict forwards an interrogated suspect to the captain verdict
// queue.
func (e *SuspectEngine) SubmitForVerdict(ctx context.Context, suspectID, actor uuid.UUID) (*models.Suspect, error) {
	return e.TransitionStatus(ctx, suspectID, models.SuspectPendingCaptainVerdict, actor, nil)
}

// CaptainVerdict records the captain's verdict. A guilty verdict routes to
// under_trial, or to pending_chief_approval when the owning case carries the
// maximum severity. A not-guilty verdict releases the suspect. A suspect
// still under interrogation is submitted for verdict as part of the same
// unit of work.
func (e *SuspectEngine) CaptainVerdict(ctx context.Context, suspectID, actor uuid.UUID, req *models.CaptainVerdictRequest) (*models.Suspect, error) {
	return e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		var out []Notification
		if s.Status == models.SuspectUnderInterrogation {
			ns, err := e.transitionLocked(ctx, tx, c, s, models.SuspectPendingCaptainVerdict, actor, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, ns...)
		}

		target := models.SuspectReleased
		if req.Guilty {
			target = models.SuspectUnderTrial
			if c.CrimeSeverity == models.MaxCrimeSeverity {
				target = models.SuspectPendingChiefApproval
			}
		}
		ns, err := e.transitionLocked(ctx, tx, c, s, target, actor, req.Reason)
		if err != nil {
			return nil, err
		}
		out = append(out, ns...)

		if s.Status.Resolved() {
			closed, err := e.coordinator.MaybeClose(ctx, tx, c, actor)
			if err != nil {
				return nil, err
			}
			out = append(out, closed...)
		}
		return out, nil
	})
}

// ChiefDecision decides an escalated maximum-severity verdict. Approval
// sends the suspect to trial; rejection reverts to under_interrogation and
// requires a non-blank reason.
func (e *SuspectEngine) ChiefDecision(ctx context.Context, suspectID, actor uuid.UUID, req *models.ChiefDecisionRequest) (*models.Suspect, error) {
	target := models.SuspectUnderTrial
	if !req.Approve {
		target = models.SuspectUnderInterrogation
	}
	return e.TransitionStatus(ctx, suspectID, target, actor, req.Reason)
}

// CreateTrial records the judiciary outcome. Only the case's assigned judge
// may try the suspect, the owning case must be at the judiciary, a guilty
// verdict requires both punishment fields and an innocent verdict carries
// none. Resolving the last unresolved suspect auto-closes the case.
func (e *SuspectEngine) CreateTrial(ctx context.Context, suspectID, actor uuid.UUID, req *models.CreateTrialRequest) (*models.Trial, error) {
	role, err := e.roles.RoleOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	if role != models.RoleJudge {
		return nil, NewPermissionDenied("only a judge may record a trial outcome")
	}

	var trial *models.Trial
	_, err = e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		if c.JudgeID == nil || *c.JudgeID != actor {
			return nil, NewPermissionDenied("only the assigned judge may try suspects on case %s", c.ID)
		}
		if c.Status != models.CaseJudiciary {
			return nil, NewDomainError("trials require the case at the judiciary, case is %s", c.Status)
		}

		target := models.SuspectAcquitted
		switch req.Verdict {
		case models.VerdictGuilty:
			target = models.SuspectConvicted
			if blank(req.PunishmentTitle) || blank(req.PunishmentDetails) {
				return nil, NewDomainError("a guilty verdict requires punishment title and details")
			}
		case models.VerdictInnocent:
			req.PunishmentTitle = nil
			req.PunishmentDetails = nil
		default:
			return nil, NewDomainError("unknown verdict %q", req.Verdict)
		}

		trial = &models.Trial{
			ID:                uuid.New(),
			SuspectID:         s.ID,
			JudgeID:           actor,
			Verdict:           req.Verdict,
			PunishmentTitle:   req.PunishmentTitle,
			PunishmentDetails: req.PunishmentDetails,
			CreatedAt:         e.now(),
		}
		if err := tx.CreateTrial(ctx, trial); err != nil {
			return nil, err
		}

		ns, err := e.transitionLocked(ctx, tx, c, s, target, actor, nil)
		if err != nil {
			return nil, err
		}
		closed, err := e.coordinator.MaybeClose(ctx, tx, c, actor)
		if err != nil {
			return nil, err
		}
		return append(ns, closed...), nil
	})
	if err != nil {
		return nil, err
	}
	return trial, nil
}

// Release moves a suspect to the released terminal state from any
// releasable state. Releasing the last unresolved suspect of a judiciary
// case auto-closes the case.
func (e *SuspectEngine) Release(ctx context.Context, suspectID, actor uuid.UUID, reason *string) (*models.Suspect, error) {
	return e.TransitionStatus(ctx, suspectID, models.SuspectReleased, actor, reason)
}

// TransitionStatus is the generic suspect gateway entry point.
func (e *SuspectEngine) TransitionStatus(ctx context.Context, suspectID uuid.UUID, target models.SuspectStatus, actor uuid.UUID, reason *string) (*models.Suspect, error) {
	return e.run(ctx, suspectID, func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error) {
		ns, err := e.transitionLocked(ctx, tx, c, s, target, actor, reason)
		if err != nil {
			return nil, err
		}
		if s.Status.Resolved() {
			closed, err := e.coordinator.MaybeClose(ctx, tx, c, actor)
			if err != nil {
				return nil, err
			}
			ns = append(ns, closed...)
		}
		return ns, nil
	})
}

// transitionLocked applies one edge to an already-locked suspect. The owning
// case is locked too so severity guards see a stable value.
func (e *SuspectEngine) transitionLocked(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect, target models.SuspectStatus, actor uuid.UUID, reason *string) ([]Notification, error) {
	rule, ok := suspectRule(s.Status, target)
	if !ok {
		return nil, NewInvalidTransition(string(models.KindSuspect), string(s.Status), string(target))
	}

	allowed, err := hasAny(ctx, e.authz, actor, models.KindSuspect, rule.Capabilities)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewPermissionDenied("actor %s holds no capability for suspect transition %s -> %s", actor, s.Status, target)
	}

	if rule.RejectionClass && blank(reason) {
		e.recorder.GuardFailure(models.KindSuspect)
		return nil, NewDomainError("a non-blank reason is required for transition %s -> %s", s.Status, target)
	}
	if rule.Guard != nil {
		if err := rule.Guard(GuardContext{Case: c, Suspect: s}); err != nil {
			e.recorder.GuardFailure(models.KindSuspect)
			return nil, err
		}
	}

	now := e.now()
	from := s.Status
	s.Status = target
	s.UpdatedAt = now

	if err := tx.UpdateSuspect(ctx, s); err != nil {
		return nil, err
	}
	if err := tx.AppendAudit(ctx, &models.AuditEntry{
		ID:         uuid.New(),
		EntityKind: models.KindSuspect,
		EntityID:   s.ID,
		FromState:  string(from),
		ToState:    string(target),
		Actor:      actor,
		Reason:     reason,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	e.logger.Info("suspect transition applied",
		zap.String("suspect_id", s.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", actor.String()))

	var out []Notification
	if recipients := suspectRecipients(c); len(recipients) > 0 {
		out = append(out, Notification{
			Actor:      actor,
			Recipients: recipients,
			Event:      EventSuspectStatusChanged,
			EntityKind: models.KindSuspect,
			EntityID:   s.ID,
			State:      string(target),
			OccurredAt: now,
		})
	}
	return out, nil
}

// run wraps one suspect unit of work in case-first lock order. The suspect
// is first read unlocked to learn its owning case; CaseID never changes, so
// the two-step read cannot observe a moved suspect.
func (e *SuspectEngine) run(ctx context.Context, suspectID uuid.UUID, fn func(ctx context.Context, tx Tx, c *models.Case, s *models.Suspect) ([]Notification, error)) (*models.Suspect, error) {
	start := e.now()
	var out *models.Suspect
	var pending []Notification

	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		probe, err := tx.GetSuspect(ctx, suspectID)
		if err != nil {
			return err
		}
		c, err := tx.GetCaseForUpdate(ctx, probe.CaseID)
		if err != nil {
			return err
		}
		s, err := tx.GetSuspectForUpdate(ctx, suspectID)
		if err != nil {
			return err
		}
		ns, err := fn(ctx, tx, c, s)
		if err != nil {
			return err
		}
		out = s
		pending = ns
		return nil
	})

	outcome := OutcomeApplied
	if err != nil {
		outcome = OutcomeRejected
	}
	e.recorder.ObserveTransition(models.KindSuspect, outcome, e.now().Sub(start))

	if err != nil {
		return nil, err
	}
	for _, n := range pending {
		e.notifier.Dispatch(ctx, n)
	}
	return out, nil
}

// usableWarrant returns the suspect's active warrant, or nil when none. A
// warrant whose expiry time has passed is expired in place within the caller's
// transaction rather than waiting for the scheduler sweep, so it neither
// satisfies an arrest nor holds the single-active slot.
func (e *SuspectEngine) usableWarrant(ctx context.Context, tx Tx, s *models.Suspect) (*models.Warrant, error) {
	active, err := tx.ActiveWarrant(ctx, s.ID)
	if err != nil || active == nil {
		return active, err
	}
	if active.Expired(e.now()) {
		active.Status = models.WarrantExpired
		if err := tx.UpdateWarrant(ctx, active); err != nil {
			return nil, err
		}
		e.logger.Info("warrant expired in place",
			zap.String("warrant_id", active.ID.String()),
			zap.String("suspect_id", s.ID.String()))
		return nil, nil
	}
	return active, nil
}

func (e *SuspectEngine) requireCapability(ctx context.Context, actor uuid.UUID, cap Capability) error {
	ok, err := e.authz.HasCapability(ctx, actor, models.KindSuspect, cap)
	if err != nil {
		return err
	}
	if !ok {
		return NewPermissionDenied("actor %s lacks capability %s", actor, cap)
	}
	return nil
}

// suspectRecipients routes suspect events to the case personnel who act on
// them.
func suspectRecipients(c *models.Case) []uuid.UUID {
	var out []uuid.UUID
	if c.DetectiveID != nil {
		out = append(out, *c.DetectiveID)
	}
	if c.SergeantID != nil {
		out = append(out, *c.SergeantID)
	}
	return out
}
