package authz

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

// Grant is one (namespace, capability) pair.
type Grant struct {
	Namespace  models.EntityKind
	Capability lifecycle.Capability
}

func caseGrant(c lifecycle.Capability) Grant    { return Grant{models.KindCase, c} }
func suspectGrant(c lifecycle.Capability) Grant { return Grant{models.KindSuspect, c} }

// DefaultGrants is the role to capability mapping the migrations seed. The
// chief tier is a strict superset of the captain tier; judges hold only the
// judiciary tokens.
var DefaultGrants = map[models.Role][]Grant{
	models.RoleCitizen: {
		caseGrant(lifecycle.CapComplaintSubmit),
	},
	models.RoleCadet: {
		caseGrant(lifecycle.CapCadetDecision),
	},
	models.RoleOfficer: {
		caseGrant(lifecycle.CapOfficerDecision),
		caseGrant(lifecycle.CapSceneReport),
		suspectGrant(lifecycle.CapArrest),
	},
	models.RoleDetective: {
		caseGrant(lifecycle.CapSceneReport),
		caseGrant(lifecycle.CapDetectiveAssignable),
		caseGrant(lifecycle.CapDeclareSuspects),
		suspectGrant(lifecycle.CapSuspectCreate),
		suspectGrant(lifecycle.CapArrest),
		suspectGrant(lifecycle.CapInterrogate),
		suspectGrant(lifecycle.CapVerdictSubmit),
	},
	models.RoleSergeant: {
		caseGrant(lifecycle.CapSceneReport),
		caseGrant(lifecycle.CapSergeantDecision),
		suspectGrant(lifecycle.CapSuspectApprove),
		suspectGrant(lifecycle.CapWarrantIssue),
		suspectGrant(lifecycle.CapWarrantCancel),
		suspectGrant(lifecycle.CapInterrogate),
		suspectGrant(lifecycle.CapVerdictSubmit),
		suspectGrant(lifecycle.CapRelease),
	},
	models.RoleCaptain: {
		caseGrant(lifecycle.CapSceneApprove),
		caseGrant(lifecycle.CapAssignPersonnel),
		caseGrant(lifecycle.CapCaptainDecision),
		caseGrant(lifecycle.CapForwardJudiciary),
		suspectGrant(lifecycle.CapCaptainVerdict),
		suspectGrant(lifecycle.CapRelease),
	},
	models.RoleChief: {
		caseGrant(lifecycle.CapSceneApprove),
		caseGrant(lifecycle.CapSceneAutoApprove),
		caseGrant(lifecycle.CapAssignPersonnel),
		caseGrant(lifecycle.CapChiefDecision),
		suspectGrant(lifecycle.CapChiefApproval),
		suspectGrant(lifecycle.CapRelease),
	},
	models.RoleJudge: {
		caseGrant(lifecycle.CapCloseCase),
		suspectGrant(lifecycle.CapTrialCreate),
	},
}

// Static is an in-memory Authorizer and RoleResolver backed by DefaultGrants.
// Tests and local runs use it in place of the Postgres-backed service.
type Static struct {
	mu    sync.RWMutex
	roles map[uuid.UUID]models.Role
}

// NewStatic creates an empty static resolver.
func NewStatic() *Static {
	return &Static{roles: make(map[uuid.UUID]models.Role)}
}

// SetRole assigns a role to an actor.
func (s *Static) SetRole(actor uuid.UUID, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[actor] = role
}

func (s *Static) HasCapability(ctx context.Context, actor uuid.UUID, namespace models.EntityKind, cap lifecycle.Capability) (bool, error) {
	s.mu.RLock()
	role, ok := s.roles[actor]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	for _, g := range DefaultGrants[role] {
		if g.Namespace == namespace && g.Capability == cap {
			return true, nil
		}
	}
	return false, nil
}

func (s *Static) RoleOf(ctx context.Context, actor uuid.UUID) (models.Role, error) {
	s.mu.RLock()
	role, ok := s.roles[actor]
	s.mu.RUnlock()
	if !ok {
		return "", lifecycle.NewNotFound("personnel", actor)
	}
	return role, nil
}
