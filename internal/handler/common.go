package handler // handler defines http handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-access-service/internal/model"
)

// UserStore is the slice of the user repository the handlers consume.
// *repository.UserRepo satisfies it; tests substitute in-memory fakes.
type UserStore interface {
	Create(ctx context.Context, u model.User, password string, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SearchByUsername(ctx context.Context, query string) ([]model.User, error)
	Update(ctx context.Context, u model.User) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	Delete(ctx context.Context, id uint64) error
}

// RoleStore is the slice of the role repository the handlers consume.
type RoleStore interface {
	TypesOf(ctx context.Context, userID uint64) ([]model.RoleType, error)
	Assign(ctx context.Context, userID uint64, role model.RoleType) (uint64, error)
	UpdateAssignment(ctx context.Context, id, userID uint64, role model.RoleType) error
	GetAssignment(ctx context.Context, id uint64) (model.UserRole, error)
	ListAssignments(ctx context.Context, userID uint64, role model.RoleType) ([]model.UserRole, error)
	Revoke(ctx context.Context, id uint64) error
}

// ----- shared DTOs -----

type rolePart struct {
	RoleType int `json:"role_type"`
}

type userResponse struct {
	ID        uint64     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Roles     []rolePart `json:"roles"`
}

type simpleUserResponse struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func newUserResponse(u model.User, roles []model.RoleType) userResponse {
	parts := make([]rolePart, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, rolePart{RoleType: int(r)})
	}
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Username:  u.Username,
		Roles:     parts,
	}
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// reqContext bounds every database round trip the same way.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
