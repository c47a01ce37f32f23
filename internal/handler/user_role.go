package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-access-service/internal/model"
	"github.com/iliyamo/user-access-service/internal/repository"
)

// UserRoleHandler manages role assignments. Every route in this group is
// superuser-only; the middleware enforces that before any handler runs.
type UserRoleHandler struct {
	Users UserStore
	Roles RoleStore
}

func NewUserRoleHandler(users UserStore, roles RoleStore) *UserRoleHandler {
	return &UserRoleHandler{Users: users, Roles: roles}
}

// ----- DTOs -----

type assignRoleReq struct {
	UserID   uint64 `json:"user_id"`
	RoleType int    `json:"role_type"`
}

type assignmentResponse struct {
	ID       uint64 `json:"id"`
	UserID   uint64 `json:"user_id"`
	RoleID   uint64 `json:"role_id"`
	RoleType int    `json:"role_type"`
}

func newAssignmentResponse(ur model.UserRole) assignmentResponse {
	return assignmentResponse{ID: ur.ID, UserID: ur.UserID, RoleID: ur.RoleID, RoleType: int(ur.Type)}
}

// List returns assignments, optionally filtered with ?user= and ?role=.
func (h *UserRoleHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	var userID uint64
	if v := c.QueryParam("user"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user filter"})
		}
		userID = n
	}
	var role model.RoleType
	if v := c.QueryParam("role"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role filter"})
		}
		role = model.RoleType(n)
	}

	assignments, err := h.Roles.ListAssignments(ctx, userID, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list assignments failed"})
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for _, ur := range assignments {
		out = append(out, newAssignmentResponse(ur))
	}
	return c.JSON(http.StatusOK, out)
}

// Create assigns a role to a user. The unique (user, role) constraint
// turns a repeat into a 409.
func (h *UserRoleHandler) Create(c echo.Context) error {
	var req assignRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := model.RoleType(req.RoleType)
	if req.UserID == 0 || !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and valid role_type required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "user does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	id, err := h.Roles.Assign(ctx, req.UserID, role)
	if err != nil {
		if errors.Is(err, repository.ErrRoleAssigned) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "role already assigned"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign role failed"})
	}
	ur, err := h.Roles.GetAssignment(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load assignment failed"})
	}
	return c.JSON(http.StatusCreated, newAssignmentResponse(ur))
}

// Update rewrites an assignment to a new (user, role) pair, replacing the
// whole resource. An unchanged body is accepted and returns the row as-is.
func (h *UserRoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := model.RoleType(req.RoleType)
	if req.UserID == 0 || !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and valid role_type required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	current, err := h.Roles.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load assignment failed"})
	}
	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "user does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if current.UserID != req.UserID || current.Type != role {
		if err := h.Roles.UpdateAssignment(ctx, id, req.UserID, role); err != nil {
			if errors.Is(err, repository.ErrRoleAssigned) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "role already assigned"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update assignment failed"})
		}
	}
	ur, err := h.Roles.GetAssignment(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load assignment failed"})
	}
	return c.JSON(http.StatusOK, newAssignmentResponse(ur))
}

// Get returns a single assignment by its row ID.
func (h *UserRoleHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	ur, err := h.Roles.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load assignment failed"})
	}
	return c.JSON(http.StatusOK, newAssignmentResponse(ur))
}

// Delete revokes an assignment. The role stops applying on the user's
// very next request; their tokens are untouched.
func (h *UserRoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Roles.Revoke(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke assignment failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
