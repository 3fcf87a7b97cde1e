package auth

import (
	"context"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), "org-1", "user-1", RoleOrgAdmin)

	orgID, ok := OrgIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "org-1", orgID)

	userID, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	role, ok := RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleOrgAdmin, role)

	// Empty values read back as absent.
	_, ok = OrgIDFromContext(WithIdentity(context.Background(), "", "", RoleMember))
	assert.False(t, ok)
	_, ok = OrgIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	member := WithIdentity(context.Background(), "org-1", "u", RoleMember)
	operator := WithIdentity(context.Background(), "", "u", RolePlatformOperator)
	dev := WithIdentity(context.Background(), "", "u", RoleDeveloper)

	err := RequireRole(context.Background(), RolePlatformOperator)
	require.Error(t, err)
	assert.True(t, kerrors.IsUnauthorized(err))

	err = RequireRole(member, RolePlatformOperator)
	require.Error(t, err)
	assert.True(t, kerrors.IsForbidden(err))

	assert.NoError(t, RequireRole(operator, RolePlatformOperator))
	assert.NoError(t, RequireRole(member, RolePlatformOperator, RoleMember))
	assert.NoError(t, RequireRole(dev, RolePlatformOperator), "developers pass every role gate")
}

func TestCheckOrgAccess(t *testing.T) {
	member := WithIdentity(context.Background(), "org-1", "u", RoleMember)
	operator := WithIdentity(context.Background(), "org-9", "u", RolePlatformOperator)

	assert.NoError(t, CheckOrgAccess(member, "org-1"))

	err := CheckOrgAccess(member, "org-2")
	require.Error(t, err)
	assert.True(t, kerrors.IsForbidden(err))

	assert.NoError(t, CheckOrgAccess(operator, "org-2"), "operators act across organizations")

	err = CheckOrgAccess(context.Background(), "org-1")
	require.Error(t, err)
	assert.True(t, kerrors.IsUnauthorized(err))
}
