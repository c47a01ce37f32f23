package auth // package auth implements the authentication and authorization core

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

    "github.com/iliyamo/user-access-service/internal/model"
)

// Decode failure modes. The authenticator collapses all of them into
// ErrInvalidToken before anything leaves this package; they stay distinct
// here so logs can say what actually went wrong.
var (
    ErrBadSignature     = errors.New("token signature does not verify")
    ErrMalformed        = errors.New("token claims malformed")
    ErrExpiryUnparsable = errors.New("token expiry claim unparsable")
)

// Claims is the structured data signed inside a token.
type Claims struct {
    Issuer    string           // iss
    Subject   string           // username the token was issued to
    Roles     []model.RoleType // role codes at issuance time (informational only)
    ExpiresAt time.Time        // absolute expiry, UTC
}

// TokenCodec encodes and decodes the signed claim set.  Signing uses a
// symmetric HS256 secret known only to the service; secret, issuer and
// TTL are fixed at construction so nothing reads ambient configuration.
type TokenCodec struct {
    secret []byte
    issuer string
    ttl    time.Duration
}

// NewTokenCodec builds a codec.  ttl is the lifetime stamped into every
// issued token (the service default is 1440 minutes).
func NewTokenCodec(secret, issuer string, ttl time.Duration) *TokenCodec {
    return &TokenCodec{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Encode produces a signed token embedding the subject, its role codes
// and an absolute expiry (now + ttl).  The expiry is returned alongside
// the token so the registry can record it without decoding.
func (c *TokenCodec) Encode(subject string, roles []model.RoleType) (string, time.Time, error) {
    exp := time.Now().UTC().Add(c.ttl)
    codes := make([]int, len(roles))
    for i, r := range roles {
        codes[i] = int(r)
    }
    claims := jwt.MapClaims{
        "iss":      c.issuer,
        "exp":      exp.Unix(),
        "username": subject,
        "roles":    codes,
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString(c.secret)
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// Decode verifies the signature and structural validity of a token and
// returns its claims.  It deliberately does NOT check that the expiry is
// in the future (that is the authenticator's job), so an expired but
// well-signed token can still be decoded for diagnostics.  Side-effect
// free.
func (c *TokenCodec) Decode(raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with anything but HMAC; "alg":"none" and
        // asymmetric confusion attacks both die here.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrBadSignature
        }
        return c.secret, nil
    }, jwt.WithoutClaimsValidation())
    if err != nil {
        if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, ErrBadSignature) {
            return Claims{}, ErrBadSignature
        }
        return Claims{}, ErrMalformed
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrMalformed
    }

    out := Claims{}
    if iss, ok := mc["iss"].(string); ok {
        out.Issuer = iss
    }
    sub, ok := mc["username"].(string)
    if !ok || sub == "" {
        return Claims{}, ErrMalformed
    }
    out.Subject = sub

    expVal, ok := mc["exp"]
    if !ok {
        return Claims{}, ErrMalformed
    }
    // JSON numbers decode as float64; anything else is not a timestamp.
    expNum, ok := expVal.(float64)
    if !ok {
        return Claims{}, ErrExpiryUnparsable
    }
    out.ExpiresAt = time.Unix(int64(expNum), 0).UTC()

    if rawRoles, ok := mc["roles"].([]interface{}); ok {
        for _, rr := range rawRoles {
            if n, ok := rr.(float64); ok {
                out.Roles = append(out.Roles, model.RoleType(int(n)))
            }
        }
    }
    return out, nil
}
