package lifecycle_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"caseflow/internal/authz"
	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// captureNotifier records dispatched notifications for assertions.
type captureNotifier struct {
	mu    sync.Mutex
	items []lifecycle.Notification
}

func (n *captureNotifier) Dispatch(_ context.Context, notification lifecycle.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, notification)
}

func (n *captureNotifier) byEvent(event lifecycle.EventType) []lifecycle.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []lifecycle.Notification
	for _, item := range n.items {
		if item.Event == event {
			out = append(out, item)
		}
	}
	return out
}

// env is the shared engine test fixture: an in-memory store, role-based
// capability grants and one actor per role.
type env struct {
	store    *lifecycle.MemStore
	authz    *authz.Static
	notifier *captureNotifier
	cases    *lifecycle.CaseEngine
	suspects *lifecycle.SuspectEngine

	citizen   uuid.UUID
	cadet     uuid.UUID
	officer   uuid.UUID
	detective uuid.UUID
	sergeant  uuid.UUID
	captain   uuid.UUID
	chief     uuid.UUID
	judge     uuid.UUID
}

func newEnv() *env {
	e := &env{
		store:    lifecycle.NewMemStore(),
		authz:    authz.NewStatic(),
		notifier: &captureNotifier{},

		citizen:   uuid.New(),
		cadet:     uuid.New(),
		officer:   uuid.New(),
		detective: uuid.New(),
		sergeant:  uuid.New(),
		captain:   uuid.New(),
		chief:     uuid.New(),
		judge:     uuid.New(),
	}

	e.authz.SetRole(e.citizen, models.RoleCitizen)
	e.authz.SetRole(e.cadet, models.RoleCadet)
	e.authz.SetRole(e.officer, models.RoleOfficer)
	e.authz.SetRole(e.detective, models.RoleDetective)
	e.authz.SetRole(e.sergeant, models.RoleSergeant)
	e.authz.SetRole(e.captain, models.RoleCaptain)
	e.authz.SetRole(e.chief, models.RoleChief)
	e.authz.SetRole(e.judge, models.RoleJudge)

	logger := zap.NewNop()
	coordinator := lifecycle.NewCoordinator(lifecycle.NopRecorder{}, logger)
	e.cases = lifecycle.NewCaseEngine(e.store, e.authz, e.notifier, lifecycle.NopRecorder{}, coordinator, logger)
	e.suspects = lifecycle.NewSuspectEngine(e.store, e.authz, e.authz, e.notifier, lifecycle.NopRecorder{}, coordinator, logger)
	return e
}

func strptr(s string) *string { return &s }

// registerComplaint creates a complaint-path case at complaint_registered.
func (e *env) registerComplaint(severity models.CrimeSeverity) (*models.Case, error) {
	return e.cases.RegisterComplaint(context.Background(), e.citizen, &models.RegisterComplaintRequest{
		Title:         "stolen vehicle",
		CrimeSeverity: severity,
	})
}

// openCase walks a complaint-path case all the way to open.
func (e *env) openCase(severity models.CrimeSeverity) *models.Case {
	ctx := context.Background()
	c, err := e.registerComplaint(severity)
	if err != nil {
		panic(err)
	}
	if _, err := e.cases.SubmitForReview(ctx, c.ID, e.citizen); err != nil {
		panic(err)
	}
	if _, err := e.cases.CadetDecision(ctx, c.ID, e.cadet, &models.ReviewDecisionRequest{Approve: true}); err != nil {
		panic(err)
	}
	opened, err := e.cases.OfficerDecision(ctx, c.ID, e.officer, &models.ReviewDecisionRequest{Approve: true})
	if err != nil {
		panic(err)
	}
	return opened
}

// investigationCase opens a case and assigns the detective, landing on
// investigation.
func (e *env) investigationCase(severity models.CrimeSeverity) *models.Case {
	c := e.openCase(severity)
	updated, err := e.cases.AssignDetective(context.Background(), c.ID, e.captain, e.detective)
	if err != nil {
		panic(err)
	}
	return updated
}

// approvedSuspect creates a suspect on an investigation case and approves it.
func (e *env) approvedSuspect(severity models.CrimeSeverity) (*models.Case, *models.Suspect) {
	ctx := context.Background()
	c := e.investigationCase(severity)
	s, err := e.suspects.CreateSuspect(ctx, c.ID, e.detective, &models.CreateSuspectRequest{FullName: "John Doe"})
	if err != nil {
		panic(err)
	}
	s, err = e.suspects.DecideApproval(ctx, s.ID, e.sergeant, &models.ApprovalDecisionRequest{Approve: true})
	if err != nil {
		panic(err)
	}
	return c, s
}

// arrestedSuspect walks a suspect to arrested via a warrant.
func (e *env) arrestedSuspect(severity models.CrimeSeverity) (*models.Case, *models.Suspect) {
	ctx := context.Background()
	c, s := e.approvedSuspect(severity)
	if _, err := e.suspects.IssueWarrant(ctx, s.ID, e.sergeant, &models.IssueWarrantRequest{
		Priority: models.PriorityHigh,
		Reason:   "positively identified by witness",
	}); err != nil {
		panic(err)
	}
	s, err := e.suspects.Arrest(ctx, s.ID, e.officer, &models.ArrestRequest{})
	if err != nil {
		panic(err)
	}
	return c, s
}

// suspectPendingVerdict walks a suspect to pending_captain_verdict.
func (e *env) suspectPendingVerdict(severity models.CrimeSeverity) (*models.Case, *models.Suspect) {
	ctx := context.Background()
	c, s := e.arrestedSuspect(severity)
	if _, err := e.suspects.RecordInterrogation(ctx, s.ID, e.detective, &models.CreateInterrogationRequest{
		DetectiveScore: 8,
		SergeantScore:  7,
	}); err != nil {
		panic(err)
	}
	s, err := e.suspects.SubmitForVerdict(ctx, s.ID, e.detective)
	if err != nil {
		panic(err)
	}
	return c, s
}

// judiciaryCase walks a case with one suspect under trial to the judiciary
// with the judge assigned. Returns the case and the suspect.
func (e *env) judiciaryCase(severity models.CrimeSeverity) (*models.Case, *models.Suspect) {
	ctx := context.Background()
	c, s := e.suspectPendingVerdict(severity)

	s, err := e.suspects.CaptainVerdict(ctx, s.ID, e.captain, &models.CaptainVerdictRequest{Guilty: true})
	if err != nil {
		panic(err)
	}
	if s.Status == models.SuspectPendingChiefApproval {
		s, err = e.suspects.ChiefDecision(ctx, s.ID, e.chief, &models.ChiefDecisionRequest{Approve: true})
		if err != nil {
			panic(err)
		}
	}

	// Walk the case itself through the review tiers to the judiciary.
	if _, err := e.cases.Transition(ctx, c.ID, models.CaseSuspectIdentified, e.detective, nil); err != nil {
		panic(err)
	}
	if _, err := e.cases.SubmitForSergeantReview(ctx, c.ID, e.detective); err != nil {
		panic(err)
	}
	if _, err := e.cases.SergeantDecision(ctx, c.ID, e.sergeant, &models.ReviewDecisionRequest{Approve: true}); err != nil {
		panic(err)
	}
	if _, err := e.cases.Transition(ctx, c.ID, models.CaseInterrogation, e.sergeant, nil); err != nil {
		panic(err)
	}
	if _, err := e.cases.Transition(ctx, c.ID, models.CaseCaptainReview, e.captain, nil); err != nil {
		panic(err)
	}
	updated, err := e.cases.ForwardToJudiciary(ctx, c.ID, e.captain)
	if err != nil {
		panic(err)
	}
	if updated.Status == models.CaseChiefReview {
		updated, err = e.cases.Transition(ctx, c.ID, models.CaseJudiciary, e.chief, nil)
		if err != nil {
			panic(err)
		}
	}
	updated, err = e.cases.AssignJudge(ctx, c.ID, e.captain, e.judge)
	if err != nil {
		panic(err)
	}
	return updated, s
}
