package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-access-service/internal/auth"
	"github.com/iliyamo/user-access-service/internal/middleware"
	"github.com/iliyamo/user-access-service/internal/queue"
)

// AuthHandler bundles dependencies for the session endpoints. Events is
// optional; when set, login/logout publish best-effort audit events.
type AuthHandler struct {
	Sessions *auth.SessionManager
	Roles    RoleStore
	Events   func(context.Context, queue.AuthEvent) error
}

func NewAuthHandler(sessions *auth.SessionManager, roles RoleStore) *AuthHandler {
	return &AuthHandler{Sessions: sessions, Roles: roles}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns the user record in the body with
// the issued token in the x-authtoken response header. Bad username and
// bad password produce the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	token, u, err := h.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrLoginFailed) {
			c.Logger().Warnf("login rejected: %v", err)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login failed"})
		}
		c.Logger().Errorf("login error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	roles, err := h.Roles.TypesOf(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	h.publish(ctx, "session.login", u.Username, u.ID)

	// The token travels in a dedicated header, never in the body.
	c.Response().Header().Set("x-authtoken", token)
	return c.JSON(http.StatusOK, newUserResponse(*u, roles))
}

// Logout revokes the exact token the request authenticated with. The
// route is wrapped in RequireAuth, so the header is present and already
// validated by the time we get here.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Sessions.Logout(ctx, raw); err != nil {
		c.Logger().Errorf("logout error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	if u := middleware.CurrentUser(c); u != nil {
		h.publish(ctx, "session.logout", u.Username, u.ID)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user with its current role set.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	roles, err := h.Roles.TypesOf(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load roles failed"})
	}
	return c.JSON(http.StatusOK, newUserResponse(*u, roles))
}

func (h *AuthHandler) publish(ctx context.Context, typ, username string, id uint64) {
	if h.Events == nil {
		return
	}
	_ = h.Events(ctx, queue.AuthEvent{
		Type:     typ,
		Username: username,
		UserID:   id,
		At:       time.Now().UTC().Format(time.RFC3339),
	})
}
