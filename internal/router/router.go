package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-access-service/internal/auth"
	"github.com/iliyamo/user-access-service/internal/handler"
	"github.com/iliyamo/user-access-service/internal/middleware"
	"github.com/iliyamo/user-access-service/internal/model"
)

// RegisterRoutes registers routes that never touch authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the session endpoints. Login is public; logout and
// me require an authenticated bearer. The Authenticate middleware runs on
// the whole group so a bad token is rejected uniformly before any handler
// sees the request.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, an *auth.Authenticator) {
	g := e.Group("/v1/auth", middleware.Authenticate(an))
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout, middleware.RequireAuth())
	g.GET("/me", a.Me, middleware.RequireAuth())
}

// RegisterUsers wires the user resource per its policy matrix:
// create is public registration, list and typeahead are administrator
// only, and the detail routes check self-or-administrator per object
// inside the handler (the route cannot know the owner up front).
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, an *auth.Authenticator, az *auth.Authorizer) {
	g := e.Group("/v1/users", middleware.Authenticate(an))
	g.POST("", u.Register)
	g.GET("", u.List, middleware.RequireAuth(), middleware.RequireRole(az, model.RoleAdministrator))
	g.GET("/typeahead", u.Typeahead, middleware.RequireAuth(), middleware.RequireRole(az, model.RoleAdministrator))
	g.GET("/:id", u.Get, middleware.RequireAuth())
	g.PUT("/:id", u.Update, middleware.RequireAuth())
	g.DELETE("/:id", u.Delete, middleware.RequireAuth())
	g.PUT("/:id/password", u.UpdatePassword, middleware.RequireAuth())
}

// RegisterUserRoles wires role assignment management. Everything here is
// superuser-only.
func RegisterUserRoles(e *echo.Echo, ur *handler.UserRoleHandler, an *auth.Authenticator, az *auth.Authorizer) {
	g := e.Group("/v1/user-roles",
		middleware.Authenticate(an),
		middleware.RequireAuth(),
		middleware.RequireSuperuser(az))
	g.GET("", ur.List)
	g.POST("", ur.Create)
	g.GET("/:id", ur.Get)
	g.PUT("/:id", ur.Update)
	g.DELETE("/:id", ur.Delete)
}
