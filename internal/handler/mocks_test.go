package handler_test

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/user-access-service/internal/model"
	"github.com/iliyamo/user-access-service/internal/repository"
	"github.com/iliyamo/user-access-service/internal/utils"
)

// memStore is a single in-memory backing store implementing the user,
// role and token interfaces the handlers and the auth core consume. It
// mirrors the repository contracts: missing users are sql.ErrNoRows,
// duplicates map to the repository sentinel errors, registration is
// idempotent, and deleting a user cascades to assignments but leaves
// tokens alone.
type memStore struct {
	mu           sync.Mutex
	nextUserID   uint64
	nextAssignID uint64
	users        map[uint64]model.User
	assignments  map[uint64]model.UserRole
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uint64]model.User{},
		assignments: map[uint64]model.UserRole{},
	}
}

// memTokenStore is the in-memory token allow-list. It lives apart from
// memStore because the registry's Revoke takes a token string while the
// role store's Revoke takes an assignment ID.
type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]time.Time{}}
}

func (m *memTokenStore) Register(_ context.Context, token string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; ok {
		return nil
	}
	m.tokens[token] = exp
	return nil
}

func (m *memTokenStore) Exists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[token]
	return ok, nil
}

func (m *memTokenStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

// ----- UserStore -----

func (m *memStore) Create(_ context.Context, u model.User, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return 0, repository.ErrUsernameExists
		}
	}
	m.nextUserID++
	u.ID = m.nextUserID
	u.PasswordHash = hash
	m.users[u.ID] = u
	m.assignLocked(u.ID, model.RoleEndUser)
	return u.ID, nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memStore) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for id := uint64(1); id <= m.nextUserID; id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) SearchByUsername(_ context.Context, query string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for id := uint64(1); id <= m.nextUserID; id++ {
		if u, ok := m.users[id]; ok && strings.Contains(u.Username, query) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && other.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	existing.Username = u.Username
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Email = u.Email
	m.users[u.ID] = existing
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	for aid, ur := range m.assignments {
		if ur.UserID == id {
			delete(m.assignments, aid)
		}
	}
	// Tokens stay: user deletion does not revoke outstanding tokens.
	return nil
}

// ----- RoleStore / RoleChecker / RoleSource -----

func (m *memStore) assignLocked(userID uint64, role model.RoleType) uint64 {
	m.nextAssignID++
	m.assignments[m.nextAssignID] = model.UserRole{
		ID: m.nextAssignID, UserID: userID, RoleID: uint64(role), Type: role,
	}
	return m.nextAssignID
}

func (m *memStore) TypesOf(_ context.Context, userID uint64) ([]model.RoleType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RoleType
	for id := uint64(1); id <= m.nextAssignID; id++ {
		if ur, ok := m.assignments[id]; ok && ur.UserID == userID {
			out = append(out, ur.Type)
		}
	}
	return out, nil
}

func (m *memStore) UserHasRole(_ context.Context, userID uint64, role model.RoleType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ur := range m.assignments {
		if ur.UserID == userID && ur.Type == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Assign(_ context.Context, userID uint64, role model.RoleType) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ur := range m.assignments {
		if ur.UserID == userID && ur.Type == role {
			return 0, repository.ErrRoleAssigned
		}
	}
	return m.assignLocked(userID, role), nil
}

func (m *memStore) UpdateAssignment(_ context.Context, id, userID uint64, role model.RoleType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ur, ok := m.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	for aid, other := range m.assignments {
		if aid != id && other.UserID == userID && other.Type == role {
			return repository.ErrRoleAssigned
		}
	}
	ur.UserID = userID
	ur.RoleID = uint64(role)
	ur.Type = role
	m.assignments[id] = ur
	return nil
}

func (m *memStore) GetAssignment(_ context.Context, id uint64) (model.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ur, ok := m.assignments[id]
	if !ok {
		return model.UserRole{}, repository.ErrNotFound
	}
	return ur, nil
}

func (m *memStore) ListAssignments(_ context.Context, userID uint64, role model.RoleType) ([]model.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserRole
	for id := uint64(1); id <= m.nextAssignID; id++ {
		ur, ok := m.assignments[id]
		if !ok {
			continue
		}
		if userID != 0 && ur.UserID != userID {
			continue
		}
		if role != 0 && ur.Type != role {
			continue
		}
		out = append(out, ur)
	}
	return out, nil
}

func (m *memStore) Revoke(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.assignments, id)
	return nil
}
