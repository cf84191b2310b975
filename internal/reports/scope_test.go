package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
)

func TestResolveScopes(t *testing.T) {
	r := NewScopeResolver(config.ViewerReadOnly)

	admin, err := r.Resolve(auth.Identity{UserID: 1, Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, admin.Unrestricted)
	assert.False(t, admin.ReadOnly)
	assert.True(t, admin.Allows(42))

	sec, err := r.Resolve(auth.Identity{UserID: 3, Role: auth.RoleSection})
	require.NoError(t, err)
	assert.False(t, sec.Unrestricted)
	assert.EqualValues(t, 3, sec.SectionID)
	assert.True(t, sec.Allows(3))
	assert.False(t, sec.Allows(4))

	viewer, err := r.Resolve(auth.Identity{UserID: 9, Role: auth.RoleViewer})
	require.NoError(t, err)
	assert.True(t, viewer.Unrestricted)
	assert.True(t, viewer.ReadOnly)
}

func TestResolveRejectsUnknownRoles(t *testing.T) {
	r := NewScopeResolver(config.ViewerNone)

	_, err := r.Resolve(auth.Identity{UserID: 9, Role: auth.RoleViewer})
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	_, err = r.Resolve(auth.Identity{UserID: 9, Role: "treasurer"})
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	_, err = r.Resolve(auth.Identity{Role: auth.RoleSection})
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))
}

func TestRegisterCustomRole(t *testing.T) {
	r := NewScopeResolver(config.ViewerNone)
	r.Register("treasurer", func(id auth.Identity) (Scope, error) {
		return Scope{Role: id.Role, Unrestricted: true, ReadOnly: true}, nil
	})
	s, err := r.Resolve(auth.Identity{UserID: 5, Role: "treasurer"})
	require.NoError(t, err)
	assert.True(t, s.ReadOnly)
}

func TestScopeFilter(t *testing.T) {
	rs := []ActivityReport{rep(1, "2024-01-01", 1, "1"), rep(2, "2024-01-01", 1, "1"), rep(1, "2024-01-02", 1, "1")}
	got := Scope{SectionID: 1}.filter(rs)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.EqualValues(t, 1, r.SectionID)
	}
	assert.Len(t, Scope{Unrestricted: true}.filter(rs), 3)
	assert.Empty(t, Scope{}.filter(rs))
}
