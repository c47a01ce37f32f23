package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/user-access-service/internal/model"
	"github.com/iliyamo/user-access-service/internal/utils"
)

// RoleSource provides the live role set loaded at token issuance.
type RoleSource interface {
	TypesOf(ctx context.Context, userID uint64) ([]model.RoleType, error)
}

// TokenRegistry is the slice of the token repository the session manager
// writes through.
type TokenRegistry interface {
	Register(ctx context.Context, token string, exp time.Time) error
	Revoke(ctx context.Context, token string) error
}

// SessionManager issues tokens on login and revokes them on logout. A
// user may hold any number of simultaneously valid tokens; nothing
// enforces single-session.
type SessionManager struct {
	codec  *TokenCodec
	users  UserStore
	roles  RoleSource
	tokens TokenRegistry

	// dummyHash is compared against on unknown usernames so the
	// unknown-name path costs the same bcrypt work as the wrong-password
	// path. Generated once at the configured cost.
	dummyHash string
}

func NewSessionManager(codec *TokenCodec, users UserStore, roles RoleSource, tokens TokenRegistry, bcryptCost int) (*SessionManager, error) {
	dummy, err := utils.HashPassword("throwaway-comparison-target", bcryptCost)
	if err != nil {
		return nil, err
	}
	return &SessionManager{codec: codec, users: users, roles: roles, tokens: tokens, dummyHash: dummy}, nil
}

// Login verifies the credential pair and, on success, encodes a fresh
// token with the user's current role set and registers it. Unknown
// username and wrong password both come back as ErrLoginFailed; the
// distinction lives only in the internal reason.
func (s *SessionManager) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.VerifyPassword(s.dummyHash, password)
			return "", nil, loginFailed("unknown username")
		}
		return "", nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return "", nil, loginFailed("password mismatch")
	}
	roles, err := s.roles.TypesOf(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	token, exp, err := s.codec.Encode(u.Username, roles)
	if err != nil {
		return "", nil, err
	}
	if err := s.tokens.Register(ctx, token, exp); err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

// Logout removes the token from the registry unconditionally. Callers are
// expected to have authenticated the bearer first; revoking an absent
// token is a no-op.
func (s *SessionManager) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}
