package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-access-service/internal/auth"
	"github.com/iliyamo/user-access-service/internal/config"
	"github.com/iliyamo/user-access-service/internal/middleware"
	"github.com/iliyamo/user-access-service/internal/model"
	"github.com/iliyamo/user-access-service/internal/queue"
	"github.com/iliyamo/user-access-service/internal/repository"
	"github.com/iliyamo/user-access-service/internal/utils"
)

// UserHandler implements the user resource. Creation is public
// registration; list and typeahead are administrator-only (enforced by
// route middleware); retrieve/update/delete are owner-or-administrator,
// checked per object here.
type UserHandler struct {
	Cfg    config.Config
	Users  UserStore
	Roles  RoleStore
	Authz  *auth.Authorizer
	Events func(context.Context, queue.AuthEvent) error
}

func NewUserHandler(cfg config.Config, users UserStore, roles RoleStore, az *auth.Authorizer) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Roles: roles, Authz: az}
}

// ----- DTOs -----

type registerReq struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
}

type updateUserReq struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type passwordUpdateReq struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Register creates a user. Public, no authentication required. The new
// user gets the END_USER role in the same transaction as the insert.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}
	if req.Password == "" || req.PasswordConfirm == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password and password_confirm required"})
	}
	if req.Password != req.PasswordConfirm {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	id, err := h.Users.Create(ctx, model.User{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		c.Logger().Errorf("register error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	roles, err := h.Roles.TypesOf(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	if h.Events != nil {
		_ = h.Events(ctx, queue.AuthEvent{
			Type:     "user.registered",
			Username: u.Username,
			UserID:   u.ID,
			At:       time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusCreated, newUserResponse(u, roles))
}

// List returns every user. Administrator-only, enforced on the route.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		roles, err := h.Roles.TypesOf(ctx, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
		}
		out = append(out, newUserResponse(u, roles))
	}
	return c.JSON(http.StatusOK, out)
}

// Typeahead returns users matching a search query. The substring filter
// only kicks in for queries longer than 2 characters; shorter queries
// return everyone. Administrator-only, enforced on the route.
func (h *UserHandler) Typeahead(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	query := c.QueryParam("query")
	var (
		users []model.User
		err   error
	)
	if utf8.RuneCountInString(query) > 2 {
		users, err = h.Users.SearchByUsername(ctx, query)
	} else {
		users, err = h.Users.List(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search users failed"})
	}
	out := make([]simpleUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, simpleUserResponse{
			ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns a single user. Owner or administrator.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Authz.RequireSelfOrAdministrator(ctx, middleware.CurrentUser(c), id); err != nil {
		return middleware.RejectAuthz(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	roles, err := h.Roles.TypesOf(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	return c.JSON(http.StatusOK, newUserResponse(u, roles))
}

// Update rewrites profile fields. Owner or administrator. Empty fields in
// the body keep their current value.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Authz.RequireSelfOrAdministrator(ctx, middleware.CurrentUser(c), id); err != nil {
		return middleware.RejectAuthz(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if err := h.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}
	roles, err := h.Roles.TypesOf(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	return c.JSON(http.StatusOK, newUserResponse(u, roles))
}

// Delete removes a user. Owner or administrator. Role assignments cascade
// with the row; outstanding tokens are intentionally not revoked.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Authz.RequireSelfOrAdministrator(ctx, middleware.CurrentUser(c), id); err != nil {
		return middleware.RejectAuthz(c, err)
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdatePassword changes a user's password after re-verifying the current
// one. Owner or administrator; the current password checked is always the
// target user's own.
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req passwordUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Password == "" || req.PasswordConfirm == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password and password_confirm required"})
	}
	if req.Password != req.PasswordConfirm {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Authz.RequireSelfOrAdministrator(ctx, middleware.CurrentUser(c), id); err != nil {
		return middleware.RejectAuthz(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current password invalid"})
	}
	if err := h.Users.UpdatePassword(ctx, id, req.Password, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update password failed"})
	}
	roles, err := h.Roles.TypesOf(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	return c.JSON(http.StatusOK, newUserResponse(u, roles))
}
