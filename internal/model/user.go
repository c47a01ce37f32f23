package model

import "time"

// RoleType is the numeric code stored in the `roles.type` column. The
// roles table is a small reference table seeded once; the codes below are
// the only valid values and are also what token claims carry.
type RoleType int

const (
	RoleEndUser       RoleType = 1 // default role assigned on registration
	RoleAdministrator RoleType = 2 // elevated role, bypasses ownership checks
)

// Valid reports whether t is one of the seeded role codes.
func (t RoleType) Valid() bool {
	return t == RoleEndUser || t == RoleAdministrator
}

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. The json
// tags are omitted here because these structs are used internally by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name, also used as the token subject.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – optional profile field.
//  LastName     – optional profile field.
//  Email        – contact address.
//  IsSuperuser  – highest privilege flag, independent of the role table.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Email        string    // users.email
	IsSuperuser  bool      // users.is_superuser
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role represents a row in the `roles` table. It maps a small integer
// code to a role. Effectively immutable after seeding.
type Role struct {
	ID   uint64   // roles.id
	Type RoleType // roles.type
}

// UserRole models the `user_roles` join table. A (user, role) pair
// appears at most once; the unique constraint enforces this under
// concurrent assignment.
type UserRole struct {
	ID     uint64   // user_roles.id
	UserID uint64   // user_roles.user_id
	RoleID uint64   // user_roles.role_id
	Type   RoleType // roles.type, joined in for convenience
}

// AuthToken models an entry in the `auth_tokens` table: the allow-list
// of currently usable tokens, keyed by the literal token string. There is
// deliberately no foreign key to users: deleting a user leaves their
// outstanding tokens in place (known follow-up: cascading revocation).
//
// Fields:
//  ID        – primary key identifier.
//  Token     – the signed token string, unique.
//  ExpiresAt – the expiry embedded in the claims, duplicated here so a
//              maintenance job can purge stale rows without decoding.
//  CreatedAt – timestamp of issuance.
type AuthToken struct {
	ID        uint64    // auth_tokens.id
	Token     string    // auth_tokens.token
	ExpiresAt time.Time // auth_tokens.expires_at
	CreatedAt time.Time // auth_tokens.created_at
}
