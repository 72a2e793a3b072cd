package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

func TestStaticHasCapability(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	citizen := uuid.New()
	officer := uuid.New()
	s.SetRole(citizen, models.RoleCitizen)
	s.SetRole(officer, models.RoleOfficer)

	t.Run("grants are namespaced", func(t *testing.T) {
		ok, err := s.HasCapability(ctx, citizen, models.KindCase, lifecycle.CapComplaintSubmit)
		require.NoError(t, err)
		assert.True(t, ok)

		// The same token in the other namespace does not match.
		ok, err = s.HasCapability(ctx, citizen, models.KindSuspect, lifecycle.CapComplaintSubmit)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ungranted capability is denied", func(t *testing.T) {
		ok, err := s.HasCapability(ctx, citizen, models.KindSuspect, lifecycle.CapArrest)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.HasCapability(ctx, officer, models.KindSuspect, lifecycle.CapArrest)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown actor is denied, not errored", func(t *testing.T) {
		ok, err := s.HasCapability(ctx, uuid.New(), models.KindCase, lifecycle.CapComplaintSubmit)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStaticRoleOf(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()
	judge := uuid.New()
	s.SetRole(judge, models.RoleJudge)

	role, err := s.RoleOf(ctx, judge)
	require.NoError(t, err)
	assert.Equal(t, models.RoleJudge, role)

	_, err = s.RoleOf(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, lifecycle.IsNotFound(err))
}

func TestDefaultGrantsShape(t *testing.T) {
	t.Run("every role has at least one grant", func(t *testing.T) {
		for _, role := range []models.Role{
			models.RoleCitizen, models.RoleCadet, models.RoleOfficer, models.RoleDetective,
			models.RoleSergeant, models.RoleCaptain, models.RoleChief, models.RoleJudge,
		} {
			assert.NotEmpty(t, DefaultGrants[role], "role %s has no grants", role)
		}
	})

	t.Run("only the chief holds scene auto-approval", func(t *testing.T) {
		for role, grants := range DefaultGrants {
			for _, g := range grants {
				if g.Capability == lifecycle.CapSceneAutoApprove {
					assert.Equal(t, models.RoleChief, role)
				}
			}
		}
	})
}
