package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/user-access-service/internal/model"
)

// RoleRepo reads and mutates role assignments. Role checks during
// authorization go through this repository on every request so that a
// revoked role stops working immediately, regardless of what an already
// issued token claims.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// TypesOf returns the role codes currently assigned to a user.
func (r *RoleRepo) TypesOf(ctx context.Context, userID uint64) ([]model.RoleType, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.type FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = ? ORDER BY r.type`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleType
	for rows.Next() {
		var t model.RoleType
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UserHasRole reports whether the user currently holds the given role.
func (r *RoleRepo) UserHasRole(ctx context.Context, userID uint64, role model.RoleType) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = ? AND r.type = ? LIMIT 1`, userID, role).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// roleByType resolves a role code to its seeded row.
func (r *RoleRepo) roleByType(ctx context.Context, t model.RoleType) (model.Role, error) {
	var ro model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, type FROM roles WHERE type=? LIMIT 1", t).Scan(&ro.ID, &ro.Type)
	if err == sql.ErrNoRows {
		return ro, ErrNotFound
	}
	return ro, err
}

// Assign creates a (user, role) assignment and returns its ID. The unique
// constraint turns a duplicate assignment into ErrRoleAssigned.
func (r *RoleRepo) Assign(ctx context.Context, userID uint64, role model.RoleType) (uint64, error) {
	ro, err := r.roleByType(ctx, role)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id) VALUES (?,?)", userID, ro.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrRoleAssigned
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateAssignment rewrites an existing assignment to a new (user, role)
// pair. The unique constraint applies the same way it does on Assign.
func (r *RoleRepo) UpdateAssignment(ctx context.Context, id, userID uint64, role model.RoleType) error {
	ro, err := r.roleByType(ctx, role)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_roles SET user_id=?, role_id=? WHERE id=?", userID, ro.ID, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrRoleAssigned
		}
		return err
	}
	return requireAffected(res)
}

// GetAssignment fetches a single user-role row by its ID.
func (r *RoleRepo) GetAssignment(ctx context.Context, id uint64) (model.UserRole, error) {
	var ur model.UserRole
	err := r.DB.QueryRowContext(ctx,
		`SELECT ur.id, ur.user_id, ur.role_id, r.type FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.id = ? LIMIT 1`, id).Scan(&ur.ID, &ur.UserID, &ur.RoleID, &ur.Type)
	if err == sql.ErrNoRows {
		return ur, ErrNotFound
	}
	return ur, err
}

// ListAssignments returns user-role rows, optionally filtered by user ID
// and/or role code. A zero filter value means "no filter".
func (r *RoleRepo) ListAssignments(ctx context.Context, userID uint64, role model.RoleType) ([]model.UserRole, error) {
	q := `SELECT ur.id, ur.user_id, ur.role_id, r.type FROM user_roles ur
	      JOIN roles r ON r.id = ur.role_id WHERE 1=1`
	args := []any{}
	if userID != 0 {
		q += " AND ur.user_id = ?"
		args = append(args, userID)
	}
	if role != 0 {
		q += " AND r.type = ?"
		args = append(args, role)
	}
	q += " ORDER BY ur.id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserRole
	for rows.Next() {
		var ur model.UserRole
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.RoleID, &ur.Type); err != nil {
			return nil, err
		}
		out = append(out, ur)
	}
	return out, rows.Err()
}

// Revoke deletes an assignment by its row ID.
func (r *RoleRepo) Revoke(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
