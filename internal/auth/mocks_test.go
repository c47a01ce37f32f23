package auth

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/iliyamo/user-access-service/internal/model"
)

// In-memory stand-ins for the repositories. They mimic the store
// contracts closely enough for the core to be exercised without MySQL:
// missing users surface as sql.ErrNoRows, token registration is
// idempotent, and role lookups always reflect the current maps.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]model.User // by username
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]model.User{}}
}

func (f *fakeUserStore) add(u model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Username] = u
}

func (f *fakeUserStore) remove(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, username)
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]time.Time{}}
}

func (f *fakeTokenStore) Register(_ context.Context, token string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[token]; ok {
		return nil // unique key absorbs the duplicate
	}
	f.tokens[token] = exp
	return nil
}

func (f *fakeTokenStore) Exists(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	return ok, nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeTokenStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type fakeRoleStore struct {
	mu    sync.Mutex
	roles map[uint64][]model.RoleType
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{roles: map[uint64][]model.RoleType{}}
}

func (f *fakeRoleStore) set(userID uint64, roles ...model.RoleType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[userID] = roles
}

func (f *fakeRoleStore) TypesOf(_ context.Context, userID uint64) ([]model.RoleType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RoleType(nil), f.roles[userID]...), nil
}

func (f *fakeRoleStore) UserHasRole(_ context.Context, userID uint64, role model.RoleType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}
