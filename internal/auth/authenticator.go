package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/user-access-service/internal/model"
)

// bearerPrefix is the exact scheme the Authorization header must carry:
// single space, case-sensitive.
const bearerPrefix = "Bearer "

// UserStore is the slice of the credential store the authenticator needs.
// *repository.UserRepo satisfies it; tests plug in fakes.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// TokenStore is the registry membership check.
type TokenStore interface {
	Exists(ctx context.Context, token string) (bool, error)
}

// Authenticator resolves an inbound Authorization header to a user
// identity. A token is accepted only when its signature verifies, its
// expiry is in the future, its exact string is registered, and its
// subject still resolves to a user. Every failure surfaces as
// ErrInvalidToken.
type Authenticator struct {
	codec  *TokenCodec
	tokens TokenStore
	users  UserStore
	now    func() time.Time
}

func NewAuthenticator(codec *TokenCodec, tokens TokenStore, users UserStore) *Authenticator {
	return &Authenticator{codec: codec, tokens: tokens, users: users, now: time.Now}
}

// Authenticate resolves the Authorization header value to a user. A
// missing header, or one that does not use the Bearer scheme, is
// anonymous: (nil, nil), not an error. Whether anonymous access is
// allowed is the authorizer's call. No side effects.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*model.User, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, nil
	}
	raw := strings.TrimPrefix(header, bearerPrefix)

	claims, err := a.codec.Decode(raw)
	if err != nil {
		return nil, invalidToken("decode: " + err.Error())
	}
	if !claims.ExpiresAt.After(a.now().UTC()) {
		return nil, invalidToken("token expired")
	}
	// Registry membership is what makes logout real: the signature on a
	// revoked token still verifies, the row is simply gone.
	ok, err := a.tokens.Exists(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidToken("token not in registry")
	}
	u, err := a.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalidToken("subject does not resolve to a user")
		}
		return nil, err
	}
	return &u, nil
}
