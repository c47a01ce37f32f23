package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/user-access-service/internal/auth"
	"github.com/iliyamo/user-access-service/internal/config"
	"github.com/iliyamo/user-access-service/internal/handler"
	"github.com/iliyamo/user-access-service/internal/model"
	"github.com/iliyamo/user-access-service/internal/router"
)

// env wires the real router, middleware and auth core over in-memory
// stores, so handler tests exercise the same chain a live request walks,
// minus MySQL and the broker.
type env struct {
	store  *memStore
	tokens *memTokenStore
	e      *echo.Echo
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := newMemStore()
	tokens := newMemTokenStore()
	codec := auth.NewTokenCodec("test-secret", "user-access-service", time.Hour)
	authn := auth.NewAuthenticator(codec, tokens, store)
	sessions, err := auth.NewSessionManager(codec, store, store, tokens, bcrypt.MinCost)
	require.NoError(t, err)
	az := auth.NewAuthorizer(store)
	cfg := config.Config{BcryptCost: bcrypt.MinCost}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, store), authn)
	router.RegisterUsers(e, handler.NewUserHandler(cfg, store, store, az), authn, az)
	router.RegisterUserRoles(e, handler.NewUserRoleHandler(store, store), authn, az)

	return &env{store: store, tokens: tokens, e: e}
}

// seedUser creates a user directly in the store. Extra roles come on top
// of the END_USER role every creation assigns.
func (v *env) seedUser(t *testing.T, username, password string, superuser bool, extra ...model.RoleType) uint64 {
	t.Helper()
	id, err := v.store.Create(context.Background(), model.User{Username: username}, password, bcrypt.MinCost)
	require.NoError(t, err)
	if superuser {
		v.store.mu.Lock()
		u := v.store.users[id]
		u.IsSuperuser = true
		v.store.users[id] = u
		v.store.mu.Unlock()
	}
	for _, r := range extra {
		_, err := v.store.Assign(context.Background(), id, r)
		require.NoError(t, err)
	}
	return id
}

// do performs a request against the wired echo instance.
func (v *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

// login runs the real login endpoint and returns the issued token from
// the x-authtoken header.
func (v *env) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := v.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, "login body: %s", rec.Body.String())
	token := rec.Header().Get("x-authtoken")
	require.NotEmpty(t, token)
	return token
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
