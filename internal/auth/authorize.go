package auth

import (
	"context"
	"fmt"

	"github.com/iliyamo/user-access-service/internal/model"
)

// RoleChecker answers "does this user hold this role right now". Checks
// always hit the store, never token claims: revoking a role takes effect
// on the very next request instead of waiting out the token's expiry.
type RoleChecker interface {
	UserHasRole(ctx context.Context, userID uint64, role model.RoleType) (bool, error)
}

// Authorizer decides allow/deny for a resolved identity. A nil user is
// anonymous and fails every check with ErrInvalidToken (unauthenticated),
// which is distinct from ErrPermissionDenied (authenticated but lacking
// standing).
type Authorizer struct {
	roles RoleChecker
}

func NewAuthorizer(roles RoleChecker) *Authorizer {
	return &Authorizer{roles: roles}
}

// HasRole reports whether the user currently holds the role.
func (a *Authorizer) HasRole(ctx context.Context, u *model.User, role model.RoleType) (bool, error) {
	if u == nil {
		return false, nil
	}
	return a.roles.UserHasRole(ctx, u.ID, role)
}

// RequireRole allows only identities holding the given role.
func (a *Authorizer) RequireRole(ctx context.Context, u *model.User, role model.RoleType) error {
	if u == nil {
		return invalidToken("authentication required")
	}
	ok, err := a.roles.UserHasRole(ctx, u.ID, role)
	if err != nil {
		return err
	}
	if !ok {
		return denied(fmt.Sprintf("missing role %d", role))
	}
	return nil
}

// RequireSelfOrAdministrator allows the owner of a resource, or any
// administrator regardless of ownership.
func (a *Authorizer) RequireSelfOrAdministrator(ctx context.Context, u *model.User, ownerID uint64) error {
	if u == nil {
		return invalidToken("authentication required")
	}
	if u.ID == ownerID {
		return nil
	}
	ok, err := a.roles.UserHasRole(ctx, u.ID, model.RoleAdministrator)
	if err != nil {
		return err
	}
	if !ok {
		return denied("not owner and not administrator")
	}
	return nil
}

// RequireSuperuser gates the most sensitive management operations on the
// superuser flag, which is independent of the role table.
func (a *Authorizer) RequireSuperuser(u *model.User) error {
	if u == nil {
		return invalidToken("authentication required")
	}
	if !u.IsSuperuser {
		return denied("superuser flag not set")
	}
	return nil
}
