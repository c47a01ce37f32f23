package repository

import "errors"

var (
	// ErrUsernameExists is returned when a registration collides with an
	// existing username (MySQL duplicate-key error 1062).
	ErrUsernameExists = errors.New("username already exists")

	// ErrRoleAssigned is returned when a (user, role) pair is assigned a
	// second time; the unique constraint picks exactly one winner under
	// concurrent requests.
	ErrRoleAssigned = errors.New("role already assigned to user")

	// ErrNotFound is the generic missing-row error for lookups by ID.
	ErrNotFound = errors.New("record not found")
)
