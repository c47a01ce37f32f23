package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-access-service/internal/model"
)

// TokenRepo is the allow-list of currently usable tokens, keyed by the
// literal token string. Membership here is the single source of truth for
// "is this token usable": a signature that verifies is not enough, which
// is what makes server-side logout possible before the embedded expiry.
//
// Cache is an optional Redis lookaside in front of the membership check;
// a nil client means every check goes to MySQL. Revocation always deletes
// from both so a cached entry can never outlive the row.
type TokenRepo struct {
	DB    *sql.DB
	Cache *redis.Client
}

func NewTokenRepo(db *sql.DB, cache *redis.Client) *TokenRepo {
	return &TokenRepo{DB: db, Cache: cache}
}

// cacheKey hashes the token so Redis keys stay short and the raw token
// never appears in the cache keyspace.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "authtoken:" + hex.EncodeToString(sum[:])
}

// Register persists the token string as valid until exp. Idempotent: a
// second insert of the identical string is absorbed by the unique key.
func (r *TokenRepo) Register(ctx context.Context, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (token, expires_at) VALUES (?,?) ON DUPLICATE KEY UPDATE token=token",
		token, exp)
	if err != nil {
		return err
	}
	if r.Cache != nil {
		if ttl := time.Until(exp); ttl > 0 {
			// Best effort; a cache miss just falls through to MySQL.
			_ = r.Cache.Set(ctx, cacheKey(token), "1", ttl).Err()
		}
	}
	return nil
}

// get loads the registry row for the exact token string.
func (r *TokenRepo) get(ctx context.Context, token string) (model.AuthToken, error) {
	var at model.AuthToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token, expires_at, created_at FROM auth_tokens WHERE token=? LIMIT 1",
		token).Scan(&at.ID, &at.Token, &at.ExpiresAt, &at.CreatedAt)
	return at, err
}

// Exists reports whether the exact token string is currently registered.
func (r *TokenRepo) Exists(ctx context.Context, token string) (bool, error) {
	if r.Cache != nil {
		if err := r.Cache.Get(ctx, cacheKey(token)).Err(); err == nil {
			return true, nil
		}
	}
	at, err := r.get(ctx, token)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.Cache != nil {
		if ttl := time.Until(at.ExpiresAt); ttl > 0 {
			_ = r.Cache.Set(ctx, cacheKey(token), "1", ttl).Err()
		}
	}
	return true, nil
}

// Revoke removes the token from the registry. Removing an absent token is
// a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, token string) error {
	if r.Cache != nil {
		_ = r.Cache.Del(ctx, cacheKey(token)).Err()
	}
	_, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE token=?", token)
	return err
}

// PurgeExpired deletes registry rows whose embedded expiry is before now
// and returns how many were removed. Nothing calls this on a timer in
// process; it is the contract offered to an external maintenance job.
// Expired tokens are already rejected on read, so purging only reclaims
// storage.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
