package lifecycle

import (
	"caseflow/internal/models"
)

// GuardContext carries the locked entities a guard may inspect. Guards run
// after the table lookup and capability check succeed, before the mutation
// commits.
type GuardContext struct {
	Case    *models.Case
	Suspect *models.Suspect
}

// GuardFunc evaluates one business precondition. A non-nil return must be a
// KindDomain error.
type GuardFunc func(g GuardContext) error

// Rule describes one allowed edge: the capability tokens that authorize it
// (OR-satisfied), whether it is rejection-class (non-blank reason mandatory),
// and an optional guard.
type Rule struct {
	Capabilities   []Capability
	RejectionClass bool
	Guard          GuardFunc
}

// caseTransitions is the static case transition table. It is package-constant
// data: built once, never re-derived per request.
var caseTransitions = map[models.CaseStatus]map[models.CaseStatus]Rule{
	models.CaseComplaintRegistered: {
		models.CaseCadetReview: {Capabilities: []Capability{CapComplaintSubmit}},
	},
	models.CaseReturnedToComplainant: {
		models.CaseCadetReview: {Capabilities: []Capability{CapComplaintSubmit}},
	},
	models.CaseCadetReview: {
		models.CaseOfficerReview:         {Capabilities: []Capability{CapCadetDecision}},
		models.CaseReturnedToComplainant: {Capabilities: []Capability{CapCadetDecision}, RejectionClass: true},
	},
	models.CaseOfficerReview: {
		models.CaseOpen:            {Capabilities: []Capability{CapOfficerDecision}},
		models.CaseReturnedToCadet: {Capabilities: []Capability{CapOfficerDecision}, RejectionClass: true},
	},
	models.CaseReturnedToCadet: {
		models.CaseOfficerReview: {Capabilities: []Capability{CapCadetDecision}},
	},
	models.CasePendingApproval: {
		models.CaseOpen:   {Capabilities: []Capability{CapSceneApprove, CapSceneAutoApprove}},
		models.CaseVoided: {Capabilities: []Capability{CapSceneApprove, CapSceneAutoApprove}, RejectionClass: true},
	},
	models.CaseOpen: {
		models.CaseInvestigation: {Capabilities: []Capability{CapAssignPersonnel}},
	},
	models.CaseInvestigation: {
		models.CaseSuspectIdentified: {Capabilities: []Capability{CapDeclareSuspects}},
	},
	models.CaseSuspectIdentified: {
		models.CaseSergeantReview: {Capabilities: []Capability{CapDeclareSuspects}},
	},
	models.CaseSergeantReview: {
		models.CaseArrestOrdered: {Capabilities: []Capability{CapSergeantDecision}},
		models.CaseInvestigation: {Capabilities: []Capability{CapSergeantDecision}, RejectionClass: true},
	},
	models.CaseArrestOrdered: {
		models.CaseInterrogation: {Capabilities: []Capability{CapSergeantDecision, CapArrest}},
	},
	models.CaseInterrogation: {
		models.CaseCaptainReview: {Capabilities: []Capability{CapInterrogate, CapCaptainDecision}},
	},
	models.CaseCaptainReview: {
		models.CaseJudiciary: {Capabilities: []Capability{CapCaptainDecision, CapForwardJudiciary}},
		models.CaseChiefReview: {
			Capabilities: []Capability{CapCaptainDecision},
			Guard:        requireMaxSeverity,
		},
	},
	models.CaseChiefReview: {
		models.CaseJudiciary:     {Capabilities: []Capability{CapChiefDecision}},
		models.CaseInterrogation: {Capabilities: []Capability{CapChiefDecision}, RejectionClass: true},
	},
	models.CaseJudiciary: {
		models.CaseClosed: {Capabilities: []Capability{CapCloseCase}},
	},
}

// suspectTransitions is the static suspect transition table, distinct from
// the case table.
var suspectTransitions = map[models.SuspectStatus]map[models.SuspectStatus]Rule{
	models.SuspectWanted: {
		models.SuspectArrested: {Capabilities: []Capability{CapArrest}},
		models.SuspectReleased: {Capabilities: []Capability{CapRelease}},
	},
	models.SuspectArrested: {
		models.SuspectUnderInterrogation: {Capabilities: []Capability{CapInterrogate}},
		models.SuspectReleased:           {Capabilities: []Capability{CapRelease}},
	},
	models.SuspectUnderInterrogation: {
		models.SuspectPendingCaptainVerdict: {Capabilities: []Capability{CapVerdictSubmit, CapCaptainVerdict}},
		models.SuspectReleased:              {Capabilities: []Capability{CapRelease}},
	},
	models.SuspectPendingCaptainVerdict: {
		models.SuspectUnderTrial: {
			Capabilities: []Capability{CapCaptainVerdict},
			Guard:        requireBelowMaxSeverity,
		},
		models.SuspectPendingChiefApproval: {
			Capabilities: []Capability{CapCaptainVerdict},
			Guard:        requireMaxSeverity,
		},
		models.SuspectReleased: {Capabilities: []Capability{CapCaptainVerdict, CapRelease}},
	},
	models.SuspectPendingChiefApproval: {
		models.SuspectUnderTrial:         {Capabilities: []Capability{CapChiefApproval}},
		models.SuspectUnderInterrogation: {Capabilities: []Capability{CapChiefApproval}, RejectionClass: true},
	},
	models.SuspectUnderTrial: {
		models.SuspectConvicted: {Capabilities: []Capability{CapTrialCreate}},
		models.SuspectAcquitted: {Capabilities: []Capability{CapTrialCreate}},
	},
}

// requireMaxSeverity gates the chief escalation tier: reachable only when the
// crime severity equals its maximum ordinal.
func requireMaxSeverity(g GuardContext) error {
	if g.Case == nil {
		return NewDomainError("owning case required for severity check")
	}
	if g.Case.CrimeSeverity < models.MaxCrimeSeverity {
		return NewDomainError(
			"chief escalation requires severity %d, case has %d",
			models.MaxCrimeSeverity, g.Case.CrimeSeverity)
	}
	return nil
}

// requireBelowMaxSeverity is the complement: at maximum severity the captain
// verdict must route through the chief tier, never directly to trial.
func requireBelowMaxSeverity(g GuardContext) error {
	if g.Case == nil {
		return NewDomainError("owning case required for severity check")
	}
	if g.Case.CrimeSeverity >= models.MaxCrimeSeverity {
		return NewDomainError(
			"severity %d verdicts require chief approval before trial",
			g.Case.CrimeSeverity)
	}
	return nil
}

// caseRule looks up the rule for a case edge.
func caseRule(from, to models.CaseStatus) (Rule, bool) {
	targets, ok := caseTransitions[from]
	if !ok {
		return Rule{}, false
	}
	r, ok := targets[to]
	return r, ok
}

// suspectRule looks up the rule for a suspect edge.
func suspectRule(from, to models.SuspectStatus) (Rule, bool) {
	targets, ok := suspectTransitions[from]
	if !ok {
		return Rule{}, false
	}
	r, ok := targets[to]
	return r, ok
}

// rejectionThreshold is the bounded rejection counter limit: the transition
// that brings the count to this value lands on the voided terminal state
// instead of the requested returned state.
const rejectionThreshold = 3
