package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-access-service/internal/model"
)

type assignmentBody struct {
	ID       uint64 `json:"id"`
	UserID   uint64 `json:"user_id"`
	RoleType int    `json:"role_type"`
}

func TestUserRoles_SuperuserOnly(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	v.seedUser(t, "alice", "pw", false)
	// Administrator role is not enough for role management.
	v.seedUser(t, "admin", "pw", false, model.RoleAdministrator)
	v.seedUser(t, "root", "pw", true)

	require.Equal(t, http.StatusUnauthorized, v.do(http.MethodGet, "/v1/user-roles", "", nil).Code)

	endUser := v.login(t, "alice", "pw")
	require.Equal(t, http.StatusForbidden, v.do(http.MethodGet, "/v1/user-roles", endUser, nil).Code)

	admin := v.login(t, "admin", "pw")
	require.Equal(t, http.StatusForbidden, v.do(http.MethodGet, "/v1/user-roles", admin, nil).Code)

	root := v.login(t, "root", "pw")
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/v1/user-roles", root, nil).Code)
}

func TestAssignRole_GrantTakesEffectOnExistingToken(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	bobID := v.seedUser(t, "bob", "pw", false)
	v.seedUser(t, "root", "pw", true)

	// Bob's token is issued while he is still a plain end user.
	bob := v.login(t, "bob", "pw")
	require.Equal(t, http.StatusForbidden, v.do(http.MethodGet, "/v1/users", bob, nil).Code)

	root := v.login(t, "root", "pw")
	rec := v.do(http.MethodPost, "/v1/user-roles", root, map[string]any{
		"user_id": bobID, "role_type": int(model.RoleAdministrator),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[assignmentBody](t, rec)
	assert.Equal(t, bobID, created.UserID)
	assert.Equal(t, int(model.RoleAdministrator), created.RoleType)

	// Same token, issued before the grant, passes the administrator-only
	// check on the very next request: role state is read live.
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/v1/users", bob, nil).Code)

	// Revocation is just as immediate.
	require.Equal(t, http.StatusNoContent,
		v.do(http.MethodDelete, fmt.Sprintf("/v1/user-roles/%d", created.ID), root, nil).Code)
	require.Equal(t, http.StatusForbidden, v.do(http.MethodGet, "/v1/users", bob, nil).Code)
}

func TestUpdateAssignment_RewritesThePair(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	bobID := v.seedUser(t, "bob", "pw", false)
	v.seedUser(t, "root", "pw", true)

	bob := v.login(t, "bob", "pw")
	require.Equal(t, http.StatusForbidden, v.do(http.MethodGet, "/v1/users", bob, nil).Code)

	root := v.login(t, "root", "pw")
	listed := v.do(http.MethodGet, fmt.Sprintf("/v1/user-roles?user=%d", bobID), root, nil)
	require.Equal(t, http.StatusOK, listed.Code)
	assignments := decodeJSON[[]assignmentBody](t, listed)
	require.Len(t, assignments, 1)

	// Promote bob's END_USER assignment in place.
	rec := v.do(http.MethodPut, fmt.Sprintf("/v1/user-roles/%d", assignments[0].ID), root, map[string]any{
		"user_id": bobID, "role_type": int(model.RoleAdministrator),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeJSON[assignmentBody](t, rec)
	assert.Equal(t, bobID, updated.UserID)
	assert.Equal(t, int(model.RoleAdministrator), updated.RoleType)

	// The rewrite applies to bob's existing token on the next request.
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/v1/users", bob, nil).Code)
}

func TestUpdateAssignment_Validation(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	bobID := v.seedUser(t, "bob", "pw", false)
	carolID := v.seedUser(t, "carol", "pw", false)
	v.seedUser(t, "root", "pw", true)
	root := v.login(t, "root", "pw")

	listed := v.do(http.MethodGet, fmt.Sprintf("/v1/user-roles?user=%d", bobID), root, nil)
	require.Equal(t, http.StatusOK, listed.Code)
	bobAssign := decodeJSON[[]assignmentBody](t, listed)[0]
	path := fmt.Sprintf("/v1/user-roles/%d", bobAssign.ID)

	// Rewriting onto a pair another row already holds is a conflict:
	// carol already has END_USER from creation.
	dup := v.do(http.MethodPut, path, root, map[string]any{
		"user_id": carolID, "role_type": int(model.RoleEndUser),
	})
	require.Equal(t, http.StatusConflict, dup.Code)

	// An unchanged body is not a conflict with itself.
	same := v.do(http.MethodPut, path, root, map[string]any{
		"user_id": bobID, "role_type": int(model.RoleEndUser),
	})
	require.Equal(t, http.StatusOK, same.Code)

	badRole := v.do(http.MethodPut, path, root, map[string]any{
		"user_id": bobID, "role_type": 42,
	})
	require.Equal(t, http.StatusBadRequest, badRole.Code)

	ghostUser := v.do(http.MethodPut, path, root, map[string]any{
		"user_id": 9999, "role_type": int(model.RoleAdministrator),
	})
	require.Equal(t, http.StatusBadRequest, ghostUser.Code)

	missing := v.do(http.MethodPut, "/v1/user-roles/9999", root, map[string]any{
		"user_id": bobID, "role_type": int(model.RoleAdministrator),
	})
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAssignRole_Validation(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	bobID := v.seedUser(t, "bob", "pw", false)
	v.seedUser(t, "root", "pw", true)
	root := v.login(t, "root", "pw")

	// Duplicate (user, role) pair: bob already has END_USER from creation.
	dup := v.do(http.MethodPost, "/v1/user-roles", root, map[string]any{
		"user_id": bobID, "role_type": int(model.RoleEndUser),
	})
	require.Equal(t, http.StatusConflict, dup.Code)

	unknownRole := v.do(http.MethodPost, "/v1/user-roles", root, map[string]any{
		"user_id": bobID, "role_type": 42,
	})
	require.Equal(t, http.StatusBadRequest, unknownRole.Code)

	unknownUser := v.do(http.MethodPost, "/v1/user-roles", root, map[string]any{
		"user_id": 9999, "role_type": int(model.RoleAdministrator),
	})
	require.Equal(t, http.StatusBadRequest, unknownUser.Code)
}

func TestListAssignments_Filters(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	bobID := v.seedUser(t, "bob", "pw", false)
	v.seedUser(t, "carol", "pw", false)
	v.seedUser(t, "root", "pw", true, model.RoleAdministrator)
	root := v.login(t, "root", "pw")

	byUser := v.do(http.MethodGet, fmt.Sprintf("/v1/user-roles?user=%d", bobID), root, nil)
	require.Equal(t, http.StatusOK, byUser.Code)
	assert.Len(t, decodeJSON[[]assignmentBody](t, byUser), 1)

	byRole := v.do(http.MethodGet, fmt.Sprintf("/v1/user-roles?role=%d", model.RoleAdministrator), root, nil)
	require.Equal(t, http.StatusOK, byRole.Code)
	assert.Len(t, decodeJSON[[]assignmentBody](t, byRole), 1)

	all := v.do(http.MethodGet, "/v1/user-roles", root, nil)
	require.Equal(t, http.StatusOK, all.Code)
	assert.Len(t, decodeJSON[[]assignmentBody](t, all), 4)
}

func TestGetAssignment_NotFound(t *testing.T) {
	t.Parallel()

	v := newEnv(t)
	v.seedUser(t, "root", "pw", true)
	root := v.login(t, "root", "pw")

	require.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/v1/user-roles/9999", root, nil).Code)
	require.Equal(t, http.StatusNotFound, v.do(http.MethodDelete, "/v1/user-roles/9999", root, nil).Code)
}
