package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

func TestCreateSuspect(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("starts wanted with pending approval", func(t *testing.T) {
		c := e.investigationCase(2)
		s, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{
			FullName: "Jane Roe",
		})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectWanted, s.Status)
		assert.Equal(t, models.ApprovalPending, s.SergeantApproval)
		assert.False(t, s.WantedSince.IsZero())

		trail := e.store.Audit(models.KindSuspect, s.ID)
		require.Len(t, trail, 1)
		assert.Equal(t, string(models.SuspectWanted), trail[0].ToState)
	})

	t.Run("rejected outside investigation states", func(t *testing.T) {
		c := e.openCase(2)
		_, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{
			FullName: "Jane Roe",
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})

	t.Run("allowed at suspect_identified", func(t *testing.T) {
		c := e.investigationCase(2)
		_, err := e.cases.Transition(ctx, c.ID, models.CaseSuspectIdentified, e.detective, nil)
		require.NoError(t, err)

		_, err = e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{
			FullName: "Second Suspect",
		})
		require.NoError(t, err)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		c := e.investigationCase(2)
		_, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{
			FullName: "   ",
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})
}

func TestDecideApproval(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	newSuspect := func() *models.Suspect {
		c := e.investigationCase(2)
		s, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{FullName: "John Doe"})
		require.NoError(t, err)
		return s
	}

	t.Run("approval records decider", func(t *testing.T) {
		s := newSuspect()
		updated, err := e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalApproved, updated.SergeantApproval)
		require.NotNil(t, updated.ApprovalDecidedBy)
		assert.Equal(t, e.sergeant, *updated.ApprovalDecidedBy)
	})

	t.Run("rejection requires a non-blank message", func(t *testing.T) {
		s := newSuspect()
		_, err := e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{Approve: false})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))

		updated, err := e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{
			Approve: false,
			Message: strptr("mistaken identity"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalRejected, updated.SergeantApproval)
		require.NotNil(t, updated.RejectionMessage)
	})

	t.Run("decision is terminal", func(t *testing.T) {
		s := newSuspect()
		_, err := e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{Approve: true})
		require.NoError(t, err)

		_, err = e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{Approve: false, Message: strptr("changed my mind")})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})

	t.Run("approval sub-state writes no audit entry", func(t *testing.T) {
		s := newSuspect()
		before := len(e.store.Audit(models.KindSuspect, s.ID))
		_, err := e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Len(t, e.store.Audit(models.KindSuspect, s.ID), before)
	})
}

func TestIssueWarrant(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("requires approved suspect", func(t *testing.T) {
		c := e.investigationCase(2)
		s, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{FullName: "John Doe"})
		require.NoError(t, err)

		_, err = e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityHigh,
			Reason:   "seen fleeing the scene",
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})

	t.Run("blank reason is rejected", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		_, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityHigh,
			Reason:   "  ",
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})

	t.Run("at most one active warrant", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		w, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityHigh,
			Reason:   "seen fleeing the scene",
		})
		require.NoError(t, err)
		assert.Equal(t, models.WarrantActive, w.Status)

		_, err = e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityLow,
			Reason:   "second warrant",
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})

	t.Run("expired warrant does not hold the slot", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		past := time.Now().Add(-time.Minute)
		stale, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority:  models.PriorityMedium,
			Reason:    "seen fleeing the scene",
			ExpiresAt: &past,
		})
		require.NoError(t, err)

		fresh, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityHigh,
			Reason:   "further evidence surfaced",
		})
		require.NoError(t, err)
		assert.Equal(t, models.WarrantActive, fresh.Status)

		for _, w := range e.store.Warrants(s.ID) {
			if w.ID == stale.ID {
				assert.Equal(t, models.WarrantExpired, w.Status)
			}
		}
	})

	t.Run("cancellation frees the slot", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		_, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityHigh,
			Reason:   "seen fleeing the scene",
		})
		require.NoError(t, err)

		cancelled, err := e.suspects.CancelWarrant(ctx, s.ID, e.sergeant, strptr("new evidence clears the suspect"))
		require.NoError(t, err)
		assert.Equal(t, models.WarrantCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledBy)

		_, err = e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityMedium,
			Reason:   "further evidence surfaced",
		})
		require.NoError(t, err)
	})
}

func TestArrest(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("executes the active warrant atomically", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		w, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority: models.PriorityHigh,
			Reason:   "identified on camera",
		})
		require.NoError(t, err)

		arrested, err := e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectArrested, arrested.Status)
		require.NotNil(t, arrested.ArrestedAt)

		warrants := e.store.Warrants(s.ID)
		require.Len(t, warrants, 1)
		assert.Equal(t, w.ID, warrants[0].ID)
		assert.Equal(t, models.WarrantExecuted, warrants[0].Status)
		require.NotNil(t, warrants[0].ExecutedBy)
		assert.Equal(t, e.officer, *warrants[0].ExecutedBy)
	})

	t.Run("without warrant requires override justification recorded verbatim", func(t *testing.T) {
		_, s := e.approvedSuspect(2)

		_, err := e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))

		justification := "caught in the act during patrol"
		arrested, err := e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{
			OverrideJustification: &justification,
		})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectArrested, arrested.Status)

		trail := e.store.Audit(models.KindSuspect, s.ID)
		last := trail[len(trail)-1]
		require.NotNil(t, last.Reason)
		assert.Equal(t, justification, *last.Reason)
	})

	t.Run("expired warrant cannot satisfy the arrest", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		past := time.Now().Add(-time.Hour)
		w, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
			Priority:  models.PriorityHigh,
			Reason:    "identified on camera",
			ExpiresAt: &past,
		})
		require.NoError(t, err)

		_, err = e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))

		justification := "spotted at a checkpoint"
		arrested, err := e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{
			OverrideJustification: &justification,
		})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectArrested, arrested.Status)

		// The stale warrant is expired in place, never executed.
		warrants := e.store.Warrants(s.ID)
		require.Len(t, warrants, 1)
		assert.Equal(t, w.ID, warrants[0].ID)
		assert.Equal(t, models.WarrantExpired, warrants[0].Status)
		assert.Nil(t, warrants[0].ExecutedBy)
	})

	t.Run("second arrest is an invalid transition", func(t *testing.T) {
		_, s := e.arrestedSuspect(2)
		justification := "caught again"
		_, err := e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{
			OverrideJustification: &justification,
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsInvalidTransition(err))
	})

	t.Run("unapproved suspect cannot be arrested", func(t *testing.T) {
		c := e.investigationCase(2)
		s, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{FullName: "John Doe"})
		require.NoError(t, err)

		justification := "caught in the act"
		_, err = e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{OverrideJustification: &justification})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})
}

func TestRecordInterrogation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("scores must sit in the closed range", func(t *testing.T) {
		_, s := e.arrestedSuspect(2)
		for _, scores := range [][2]int{{0, 5}, {11, 5}, {5, 0}, {5, 11}} {
			_, err := e.suspects.RecordInterrogation(ctx, s.ID, e.detective, &models.CreateInterrogationRequest{
				DetectiveScore: scores[0],
				SergeantScore:  scores[1],
			})
			require.Error(t, err)
			assert.True(t, lifecycle.IsDomainError(err))
		}
	})

	t.Run("first session auto-transitions to under_interrogation", func(t *testing.T) {
		_, s := e.arrestedSuspect(2)
		_, err := e.suspects.RecordInterrogation(ctx, s.ID, e.detective, &models.CreateInterrogationRequest{
			DetectiveScore: 6,
			SergeantScore:  7,
		})
		require.NoError(t, err)

		updated, ok := e.store.Suspect(s.ID)
		require.True(t, ok)
		assert.Equal(t, models.SuspectUnderInterrogation, updated.Status)

		// A second session leaves the state alone.
		_, err = e.suspects.RecordInterrogation(ctx, s.ID, e.sergeant, &models.CreateInterrogationRequest{
			DetectiveScore: 9,
			SergeantScore:  8,
		})
		require.NoError(t, err)
		updated, ok = e.store.Suspect(s.ID)
		require.True(t, ok)
		assert.Equal(t, models.SuspectUnderInterrogation, updated.Status)
	})

	t.Run("wanted suspect cannot be interrogated", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		_, err := e.suspects.RecordInterrogation(ctx, s.ID, e.detective, &models.CreateInterrogationRequest{
			DetectiveScore: 6,
			SergeantScore:  7,
		})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))
	})
}

func TestCaptainVerdict(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("guilty below max severity goes to trial", func(t *testing.T) {
		_, s := e.suspectPendingVerdict(2)
		updated, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: true})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectUnderTrial, updated.Status)
	})

	t.Run("guilty at max severity requires chief approval", func(t *testing.T) {
		_, s := e.suspectPendingVerdict(models.MaxCrimeSeverity)
		updated, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: true})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectPendingChiefApproval, updated.Status)
	})

	t.Run("not guilty releases", func(t *testing.T) {
		_, s := e.suspectPendingVerdict(2)
		updated, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: false})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectReleased, updated.Status)
	})

	t.Run("under interrogation is submitted as part of the verdict", func(t *testing.T) {
		_, s := e.arrestedSuspect(2)
		_, err := e.suspects.RecordInterrogation(ctx, s.ID, e.detective, &models.CreateInterrogationRequest{
			DetectiveScore: 6,
			SergeantScore:  7,
		})
		require.NoError(t, err)

		updated, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: true})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectUnderTrial, updated.Status)
	})
}

func TestChiefDecision(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	escalated := func() *models.Suspect {
		_, s := e.suspectPendingVerdict(models.MaxCrimeSeverity)
		updated, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: true})
		require.NoError(t, err)
		require.Equal(t, models.SuspectPendingChiefApproval, updated.Status)
		return updated
	}

	t.Run("approval sends to trial", func(t *testing.T) {
		s := escalated()
		updated, err := e.suspects.ChiefDecision(ctx, s.ID, e.chief, &models.ChiefDecisionRequest{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectUnderTrial, updated.Status)
	})

	t.Run("rejection reverts to interrogation with mandatory reason", func(t *testing.T) {
		s := escalated()
		_, err := e.suspects.ChiefDecision(ctx, s.ID, e.chief, &models.ChiefDecisionRequest{Approve: false})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))

		updated, err := e.suspects.ChiefDecision(ctx, s.ID, e.chief, &models.ChiefDecisionRequest{
			Approve: false,
			Reason:  strptr("confession obtained under duress"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.SuspectUnderInterrogation, updated.Status)
	})

	t.Run("captain cannot decide a chief escalation", func(t *testing.T) {
		s := escalated()
		_, err := e.suspects.ChiefDecision(ctx, s.ID, e.captain, &models.ChiefDecisionRequest{Approve: true})
		require.Error(t, err)
		assert.True(t, lifecycle.IsPermissionDenied(err))
	})
}

func TestCreateTrial(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("only the assigned judge may try", func(t *testing.T) {
		_, s := e.judiciaryCase(2)

		// Not a judge at all.
		_, err := e.suspects.CreateTrial(ctx, s.ID, e.captain, &models.CreateTrialRequest{Verdict: models.VerdictGuilty})
		require.Error(t, err)
		assert.True(t, lifecycle.IsPermissionDenied(err))

		// A judge, but not the one assigned to this case.
		otherJudge := uuid.New()
		e.authz.SetRole(otherJudge, models.RoleJudge)
		_, err = e.suspects.CreateTrial(ctx, s.ID, otherJudge, &models.CreateTrialRequest{Verdict: models.VerdictGuilty})
		require.Error(t, err)
		assert.True(t, lifecycle.IsPermissionDenied(err))
	})

	t.Run("guilty requires punishment fields", func(t *testing.T) {
		_, s := e.judiciaryCase(2)
		_, err := e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{Verdict: models.VerdictGuilty})
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))

		trial, err := e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{
			Verdict:           models.VerdictGuilty,
			PunishmentTitle:   strptr("grand theft"),
			PunishmentDetails: strptr("four years imprisonment"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.VerdictGuilty, trial.Verdict)

		updated, ok := e.store.Suspect(s.ID)
		require.True(t, ok)
		assert.Equal(t, models.SuspectConvicted, updated.Status)
	})

	t.Run("innocent verdict carries no punishment", func(t *testing.T) {
		_, s := e.judiciaryCase(2)
		trial, err := e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{
			Verdict:           models.VerdictInnocent,
			PunishmentTitle:   strptr("should be dropped"),
			PunishmentDetails: strptr("should be dropped"),
		})
		require.NoError(t, err)
		assert.Nil(t, trial.PunishmentTitle)
		assert.Nil(t, trial.PunishmentDetails)

		updated, ok := e.store.Suspect(s.ID)
		require.True(t, ok)
		assert.Equal(t, models.SuspectAcquitted, updated.Status)
	})

	t.Run("trial outside the judiciary phase is rejected", func(t *testing.T) {
		// Suspect reaches under_trial while the case is still mid-review.
		_, s := e.suspectPendingVerdict(2)
		updated, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: true})
		require.NoError(t, err)
		require.Equal(t, models.SuspectUnderTrial, updated.Status)

		_, err = e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{
			Verdict:           models.VerdictGuilty,
			PunishmentTitle:   strptr("theft"),
			PunishmentDetails: strptr("one year"),
		})
		require.Error(t, err)
		// The judge is not assigned to this case.
		assert.True(t, lifecycle.IsPermissionDenied(err))
	})
}

func TestAutoCloseCase(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("closing the last resolved suspect closes the case", func(t *testing.T) {
		c, s := e.judiciaryCase(2)
		_, err := e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{
			Verdict:           models.VerdictGuilty,
			PunishmentTitle:   strptr("burglary"),
			PunishmentDetails: strptr("two years imprisonment"),
		})
		require.NoError(t, err)

		closed, ok := e.store.Case(c.ID)
		require.True(t, ok)
		assert.Equal(t, models.CaseClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)

		trail := e.store.Audit(models.KindCase, c.ID)
		last := trail[len(trail)-1]
		assert.Equal(t, string(models.CaseClosed), last.ToState)
		require.NotNil(t, last.Reason)
		assert.Equal(t, "all suspects resolved", *last.Reason)
	})

	t.Run("unresolved co-suspect keeps the case open", func(t *testing.T) {
		c, s := e.judiciaryCase(2)

		// A second suspect still wanted blocks the close. The case is past
		// investigation, so seed it directly through the store.
		second := *s
		second.ID = uuid.New()
		second.Status = models.SuspectWanted
		require.NoError(t, e.store.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
			return tx.CreateSuspect(ctx, &second)
		}))

		_, err := e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{
			Verdict: models.VerdictInnocent,
		})
		require.NoError(t, err)

		current, ok := e.store.Case(c.ID)
		require.True(t, ok)
		assert.Equal(t, models.CaseJudiciary, current.Status)

		// Releasing the straggler closes the case.
		_, err = e.suspects.Release(ctx, second.ID, e.captain, strptr("insufficient evidence"))
		require.NoError(t, err)

		closed, ok := e.store.Case(c.ID)
		require.True(t, ok)
		assert.Equal(t, models.CaseClosed, closed.Status)
	})

	t.Run("resolutions after closure do not duplicate the close", func(t *testing.T) {
		c, s := e.judiciaryCase(2)
		_, err := e.suspects.CreateTrial(ctx, s.ID, e.judge, &models.CreateTrialRequest{
			Verdict:           models.VerdictGuilty,
			PunishmentTitle:   strptr("arson"),
			PunishmentDetails: strptr("three years imprisonment"),
		})
		require.NoError(t, err)

		// A straggler surfaces on the already-closed case and is released.
		late := *s
		late.ID = uuid.New()
		late.Status = models.SuspectWanted
		require.NoError(t, e.store.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
			return tx.CreateSuspect(ctx, &late)
		}))
		_, err = e.suspects.Release(ctx, late.ID, e.captain, strptr("cleared by alibi"))
		require.NoError(t, err)

		var closes int
		for _, entry := range e.store.Audit(models.KindCase, c.ID) {
			if entry.ToState == string(models.CaseClosed) {
				closes++
			}
		}
		assert.Equal(t, 1, closes)
	})
}

func TestManualCloseCase(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// caseAtJudiciary walks a case with no suspects to the judiciary.
	caseAtJudiciary := func(t *testing.T) *models.Case {
		c := e.investigationCase(2)
		_, err := e.cases.Transition(ctx, c.ID, models.CaseSuspectIdentified, e.detective, nil)
		require.NoError(t, err)
		_, err = e.cases.SubmitForSergeantReview(ctx, c.ID, e.detective)
		require.NoError(t, err)
		_, err = e.cases.SergeantDecision(ctx, c.ID, e.sergeant, &models.ReviewDecisionRequest{Approve: true})
		require.NoError(t, err)
		_, err = e.cases.Transition(ctx, c.ID, models.CaseInterrogation, e.sergeant, nil)
		require.NoError(t, err)
		_, err = e.cases.Transition(ctx, c.ID, models.CaseCaptainReview, e.captain, nil)
		require.NoError(t, err)
		updated, err := e.cases.ForwardToJudiciary(ctx, c.ID, e.captain)
		require.NoError(t, err)
		return updated
	}

	t.Run("blocked while a suspect is unresolved", func(t *testing.T) {
		c, s := e.judiciaryCase(2)
		require.Equal(t, models.SuspectUnderTrial, s.Status)

		_, err := e.cases.Transition(ctx, c.ID, models.CaseClosed, e.judge, nil)
		require.Error(t, err)
		assert.True(t, lifecycle.IsDomainError(err))

		current, ok := e.store.Case(c.ID)
		require.True(t, ok)
		assert.Equal(t, models.CaseJudiciary, current.Status)
		assert.Nil(t, current.ClosedAt)
	})

	t.Run("closes when no suspect remains unresolved", func(t *testing.T) {
		c := caseAtJudiciary(t)
		closed, err := e.cases.Transition(ctx, c.ID, models.CaseClosed, e.judge, nil)
		require.NoError(t, err)
		assert.Equal(t, models.CaseClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
	})
}

func TestRelease(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	t.Run("wanted suspect can be released", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		updated, err := e.suspects.Release(ctx, s.ID, e.captain, strptr("alibi confirmed"))
		require.NoError(t, err)
		assert.Equal(t, models.SuspectReleased, updated.Status)
	})

	t.Run("terminal states have no outgoing transitions", func(t *testing.T) {
		_, s := e.approvedSuspect(2)
		_, err := e.suspects.Release(ctx, s.ID, e.captain, strptr("alibi confirmed"))
		require.NoError(t, err)

		_, err = e.suspects.TransitionStatus(ctx, s.ID, models.SuspectArrested, e.officer, nil)
		require.Error(t, err)
		assert.True(t, lifecycle.IsInvalidTransition(err))
	})
}
