package auth

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
)

type contextKey string

const (
	// OrgIDKey carries the organization (tenant) ID for the request.
	OrgIDKey contextKey = "org_id"
	// UserIDKey carries the acting user's ID.
	UserIDKey contextKey = "user_id"
	// UserRoleKey carries the acting user's role.
	UserRoleKey contextKey = "user_role"
)

// Role is the caller's role within the platform.
type Role string

const (
	RoleMember           Role = "member"
	RoleOrgAdmin         Role = "org_admin"
	RolePlatformOperator Role = "platform_operator"
	// RoleDeveloper bypasses all feature and subscription gates.
	RoleDeveloper Role = "developer"
)

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, orgID, userID string, role Role) context.Context {
	ctx = context.WithValue(ctx, OrgIDKey, orgID)
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}

// OrgIDFromContext returns the organization ID attached to the request.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(OrgIDKey).(string)
	return orgID, ok && orgID != ""
}

// UserIDFromContext returns the acting user's ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}

// RoleFromContext returns the acting user's role.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(UserRoleKey).(Role)
	return role, ok
}

// IsDeveloper reports whether the caller holds the developer role.
func IsDeveloper(ctx context.Context) bool {
	role, ok := RoleFromContext(ctx)
	return ok && role == RoleDeveloper
}

// RequireRole errors unless the caller holds one of the given roles.
// Developers pass unconditionally.
func RequireRole(ctx context.Context, roles ...Role) error {
	role, ok := RoleFromContext(ctx)
	if !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	if role == RoleDeveloper {
		return nil
	}
	for _, r := range roles {
		if role == r {
			return nil
		}
	}
	return errors.Forbidden("FORBIDDEN", "permission denied: elevated role required")
}

// CheckOrgAccess errors unless the caller may act on the given organization.
// Platform operators and developers may act on any organization; org admins
// and members only on their own.
func CheckOrgAccess(ctx context.Context, orgID string) error {
	role, ok := RoleFromContext(ctx)
	if !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	if role == RoleDeveloper || role == RolePlatformOperator {
		return nil
	}
	current, ok := OrgIDFromContext(ctx)
	if !ok || current != orgID {
		return errors.Forbidden("FORBIDDEN", "permission denied: you can only access your own organization")
	}
	return nil
}
