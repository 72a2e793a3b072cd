package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"caseflow/internal/models"
)

// Capability is a named permission grant an actor either holds or does not.
// Transitions are authorized by OR-matching the actor's grants against the
// transition's required set.
type Capability string

// Case namespace tokens.
const (
	CapComplaintSubmit     Capability = "case:complaint:submit"
	CapCadetDecision       Capability = "case:review:cadet"
	CapOfficerDecision     Capability = "case:review:officer"
	CapSceneReport         Capability = "case:scene:report"
	CapSceneApprove        Capability = "case:scene:approve"
	CapSceneAutoApprove    Capability = "case:scene:auto-approve"
	CapAssignPersonnel     Capability = "case:assign"
	CapDetectiveAssignable Capability = "case:assignable:detective"
	CapDeclareSuspects     Capability = "case:suspects:declare"
	CapSergeantDecision    Capability = "case:review:sergeant"
	CapCaptainDecision     Capability = "case:review:captain"
	CapChiefDecision       Capability = "case:review:chief"
	CapForwardJudiciary    Capability = "case:judiciary:forward"
	CapCloseCase           Capability = "case:close"
)

// Suspect namespace tokens.
const (
	CapSuspectCreate  Capability = "suspect:create"
	CapSuspectApprove Capability = "suspect:approve"
	CapWarrantIssue   Capability = "suspect:warrant:issue"
	CapWarrantCancel  Capability = "suspect:warrant:cancel"
	CapArrest         Capability = "suspect:arrest"
	CapInterrogate    Capability = "suspect:interrogate"
	CapVerdictSubmit  Capability = "suspect:verdict:submit"
	CapCaptainVerdict Capability = "suspect:verdict:captain"
	CapChiefApproval  Capability = "suspect:verdict:chief"
	CapTrialCreate    Capability = "suspect:trial:create"
	CapRelease        Capability = "suspect:release"
)

// Authorizer answers whether an actor holds a capability token within an
// entity namespace. Implementations must re-resolve from the authoritative
// store per call or cache with a bounded TTL and explicit invalidation,
// never with implicit per-object caches.
type Authorizer interface {
	HasCapability(ctx context.Context, actor uuid.UUID, namespace models.EntityKind, cap Capability) (bool, error)
}

// RoleResolver resolves an actor's role name. It backs the small number of
// identity-equality checks (such as "is this actor the assigned judge") that
// capability tokens alone cannot express.
type RoleResolver interface {
	RoleOf(ctx context.Context, actor uuid.UUID) (models.Role, error)
}

// hasAny evaluates the OR semantics over a transition's required set.
func hasAny(ctx context.Context, authz Authorizer, actor uuid.UUID, ns models.EntityKind, caps []Capability) (bool, error) {
	for _, c := range caps {
		ok, err := authz.HasCapability(ctx, actor, ns, c)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
