package middleware // middleware provides shared request processing for handlers

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/user-access-service/internal/auth"
    "github.com/iliyamo/user-access-service/internal/model"
)

// userKey is where the resolved identity lives in the echo context. A
// missing or nil value means the request is anonymous.
const userKey = "user"

// CurrentUser returns the identity resolved by Authenticate, or nil for
// anonymous requests.
func CurrentUser(c echo.Context) *model.User {
    if u, ok := c.Get(userKey).(*model.User); ok {
        return u
    }
    return nil
}

// Authenticate resolves the Authorization header on every request and
// stores the identity in the context. Anonymous requests pass through
// with no identity set; whether that is acceptable is decided further
// down the chain. A bad token is rejected here with a uniform 401; the
// response never says why the token was rejected, only the server log
// does.
func Authenticate(a *auth.Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, err := a.Authenticate(c.Request().Context(), c.Request().Header.Get("Authorization"))
            if err != nil {
                if errors.Is(err, auth.ErrInvalidToken) {
                    // Internal reason goes to the log, not the client.
                    c.Logger().Warnf("authentication rejected: %v", err)
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
                }
                c.Logger().Errorf("authentication error: %v", err)
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
            }
            if u != nil {
                c.Set(userKey, u)
            }
            return next(c)
        }
    }
}

// RequireAuth rejects anonymous requests. It assumes Authenticate ran
// earlier in the chain.
func RequireAuth() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if CurrentUser(c) == nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            return next(c)
        }
    }
}

// RequireRole enforces that the authenticated user currently holds the
// given role. The check goes through the authorizer to the database on
// every request, so a revoked role locks out immediately even while the
// token that was issued with it is still unexpired.
func RequireRole(az *auth.Authorizer, role model.RoleType) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := az.RequireRole(c.Request().Context(), CurrentUser(c), role); err != nil {
                return RejectAuthz(c, err)
            }
            return next(c)
        }
    }
}

// RequireSuperuser enforces the superuser flag.
func RequireSuperuser(az *auth.Authorizer) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := az.RequireSuperuser(CurrentUser(c)); err != nil {
                return RejectAuthz(c, err)
            }
            return next(c)
        }
    }
}

// RejectAuthz converts an authorization failure into its response:
// 401 for unauthenticated, 403 for authenticated-but-denied, 500 for
// anything else. Handlers use it too for per-object ownership checks.
func RejectAuthz(c echo.Context, err error) error {
    switch {
    case errors.Is(err, auth.ErrInvalidToken):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    case errors.Is(err, auth.ErrPermissionDenied):
        c.Logger().Warnf("permission denied: %v", err)
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    default:
        c.Logger().Errorf("authorization error: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
    }
}
