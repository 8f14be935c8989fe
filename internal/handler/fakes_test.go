package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamverse/catalog-api/internal/config"
	"github.com/streamverse/catalog-api/internal/model"
	"github.com/streamverse/catalog-api/internal/repository"
)

// In-memory fakes standing in for the Mongo repositories.

type fakeUserStore struct {
	users map[string]model.User
}

func newFakeUserStore(seed ...model.User) *fakeUserStore {
	f := &fakeUserStore{users: map[string]model.User{}}
	for _, u := range seed {
		f.users[u.Username] = u
	}
	return f
}

func (f *fakeUserStore) Create(_ context.Context, u model.User) error {
	if _, ok := f.users[u.Username]; ok {
		return repository.ErrUsernameExists
	}
	for _, ex := range f.users {
		if ex.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.users[u.Username] = u
	return nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) Exists(_ context.Context, username string) (bool, error) {
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserStore) List(_ context.Context, pageNum, pageSize int, status, _ string, _ bool) ([]model.User, int64, int64, error) {
	var matched []model.User
	for _, u := range f.users {
		switch status {
		case "active":
			if !u.Active {
				continue
			}
		case "inactive":
			if u.Active {
				continue
			}
		}
		matched = append(matched, u)
	}
	start := (pageNum - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), int64(len(f.users)), nil
}

func (f *fakeUserStore) UpdateDetails(_ context.Context, username string, fields map[string]any) error {
	u, ok := f.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	changed := false
	if v, ok := fields["username"].(string); ok && v != u.Username {
		delete(f.users, u.Username)
		u.Username = v
		changed = true
	}
	if v, ok := fields["email"].(string); ok && v != u.Email {
		u.Email = v
		changed = true
	}
	if v, ok := fields["fullname"].(string); ok && v != u.Fullname {
		u.Fullname = v
		changed = true
	}
	if v, ok := fields["admin"].(bool); ok && v != u.Admin {
		u.Admin = v
		changed = true
	}
	if !changed {
		return repository.ErrNotModified
	}
	if v, ok := fields["last_updated_at"].(time.Time); ok {
		u.LastUpdatedAt = &v
	}
	f.users[u.Username] = u
	return nil
}

func (f *fakeUserStore) SetActiveStatus(_ context.Context, username string, active bool, reason string) error {
	u, ok := f.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	if active {
		u.DeactivatedAt = nil
		u.DeactivationReason = ""
	} else {
		now := time.Now().UTC()
		u.DeactivatedAt = &now
		u.DeactivationReason = reason
	}
	f.users[username] = u
	return nil
}

func (f *fakeUserStore) ResetPassword(_ context.Context, username, digest string) error {
	u, ok := f.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.Password = digest
	u.PasswordChangedAt = &now
	f.users[username] = u
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, username string) error {
	if _, ok := f.users[username]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, username)
	return nil
}

type fakeBlacklistStore struct {
	entries map[string]model.RevocationEntry
}

func newFakeBlacklistStore() *fakeBlacklistStore {
	return &fakeBlacklistStore{entries: map[string]model.RevocationEntry{}}
}

func (f *fakeBlacklistStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := f.entries[jti]
	return ok, nil
}

func (f *fakeBlacklistStore) Insert(_ context.Context, e model.RevocationEntry) error {
	if _, ok := f.entries[e.JTI]; ok {
		return nil
	}
	f.entries[e.JTI] = e
	return nil
}

func (f *fakeBlacklistStore) PruneExpired(_ context.Context) (int64, error) {
	var removed int64
	now := time.Now().UTC()
	for jti, e := range f.entries {
		if e.ExpiresAt.Before(now) {
			delete(f.entries, jti)
			removed++
		}
	}
	return removed, nil
}

type recordedAction struct {
	Admin   string
	Action  string
	Target  string
	Details map[string]string
}

type fakeAudit struct {
	actions []recordedAction
}

func (f *fakeAudit) Record(_ context.Context, admin, action, target string, details map[string]string) {
	f.actions = append(f.actions, recordedAction{Admin: admin, Action: action, Target: target, Details: details})
}

func (f *fakeAudit) last(t *testing.T) recordedAction {
	t.Helper()
	require.NotEmpty(t, f.actions)
	return f.actions[len(f.actions)-1]
}

// ----- request plumbing -----

func testCfg() config.Config {
	return config.Config{
		Env:           "test",
		JWTSecret:     "handler-test-secret",
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
		RequireAPIKey: true,
	}
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(digest)
}

// asUser attaches an already-authenticated identity the way the auth gate
// does, so admin handlers can be exercised without the full middleware chain.
func asUser(u model.User) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user", u)
			return next(c)
		}
	}
}

func jsonRequest(method, path string, body any, fns ...func(*http.Request)) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, fn := range fns {
		fn(req)
	}
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the "data" object of the response envelope.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}
