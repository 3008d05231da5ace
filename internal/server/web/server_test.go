package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "access_token"

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubAvatars map[string]string

func (s stubAvatars) Resolve(ctx context.Context, ref string) (string, error) {
	if url, ok := s[ref]; ok {
		return url, nil
	}
	return ref, nil
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) FindSessionByToken(ctx context.Context, scope store.Scope, accessToken string) (*models.Session, error) {
	return nil, errors.New("connection refused")
}

type testEnv struct {
	clock   *manualClock
	store   *store.MemoryStore
	handler http.Handler
}

func newEnv(t *testing.T, wrap func(*store.MemoryStore) store.Store) *testEnv {
	t.Helper()

	clock := &manualClock{t: time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore(store.WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, mem.InsertUser(ctx, &models.User{Login: "alex", Name: "Alexandre", Avatar: "s3://avatars/alex.png", CanLogin: true, IsAdmin: true}))
	require.NoError(t, mem.InsertUser(ctx, &models.User{Login: "bob", Name: "Bob", CanLogin: true}))

	var s store.Store = mem
	if wrap != nil {
		s = wrap(mem)
	}

	reg := prometheus.NewRegistry()
	a, err := auth.NewAuthenticator(access.NewGuard(s, logging.Nop()), auth.DefaultPolicy(), auth.WithMetrics(auth.NewMetrics(reg)))
	require.NoError(t, err)
	require.NoError(t, a.ChangePassword(ctx, access.Admin(), "alex", "togodo"))
	require.NoError(t, a.ChangePassword(ctx, access.Admin(), "bob", "bobpass"))

	avatars := stubAvatars{"s3://avatars/alex.png": "https://minio.local/avatars/alex.png?X-Amz-Signature=abc"}
	srv := NewHTTPServer(":0", logging.Nop(), a, avatars, cookieName, reg)

	return &testEnv{clock: clock, store: mem, handler: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path, body string, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, fn := range prepare {
		fn(req)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, login, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", `{"login":"`+login+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := rec.Header().Get(common.AccessTokenHeaderName)
	require.NotEmpty(t, token)
	return token
}

func withHeader(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(common.AccessTokenHeaderName, token) }
}

func withCookie(token string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieName, Value: token}) }
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMe_WithoutToken(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["authenticated"])
	user := body["user"].(map[string]any)
	assert.Equal(t, common.NobodyLogin, user["login"])
	assert.NotContains(t, body, "authError")
}

func TestLogin(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/login", `{"login":"alex","password":"togodo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	c := cookieFrom(rec)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)
	assert.Len(t, c.Value, 512)
	assert.Equal(t, c.Value, rec.Header().Get(common.AccessTokenHeaderName))

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["isAdmin"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alex", user["login"])
	assert.Equal(t, "https://minio.local/avatars/alex.png?X-Amz-Signature=abc", user["avatar"])
	assert.NotContains(t, rec.Body.String(), "hashed")
	assert.NotContains(t, rec.Body.String(), c.Value)
}

func TestLogin_Failures(t *testing.T) {
	e := newEnv(t, nil)

	cases := []struct {
		name   string
		body   string
		status int
		code   float64
	}{
		{"wrong password", `{"login":"alex","password":"tugudu"}`, http.StatusUnauthorized, 12},
		{"empty password", `{"login":"alex","password":""}`, http.StatusUnauthorized, 12},
		{"unknown user", `{"login":"bibb","password":"togodo"}`, http.StatusUnauthorized, 11},
		{"nobody", `{"login":"nobody","password":""}`, http.StatusUnauthorized, 10},
		{"malformed", `{"login":`, http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/login", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.NotEmpty(t, body["message"])
			if tc.code != 0 {
				assert.Equal(t, tc.code, body["code"])
			} else {
				assert.NotContains(t, body, "code")
			}
			assert.Nil(t, cookieFrom(rec))
		})
	}
	assert.Zero(t, e.store.SessionCount())
}

func TestMe_ResolvesToken(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login(t, "bob", "bobpass")

	for name, prep := range map[string]func(*http.Request){"header": withHeader(token), "cookie": withCookie(token)} {
		t.Run(name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, "/api/me", "", prep)
			require.Equal(t, http.StatusOK, rec.Code)
			user := decodeBody(t, rec)["user"].(map[string]any)
			assert.Equal(t, "bob", user["login"])

			c := cookieFrom(rec)
			require.NotNil(t, c)
			assert.Equal(t, token, c.Value)
			assert.Empty(t, rec.Header().Get(common.AccessTokenHeaderName))
		})
	}
}

func TestMe_UnknownTokenFallsBackToNobody(t *testing.T) {
	e := newEnv(t, nil)
	rec := e.do(t, http.MethodGet, "/api/me", "", withHeader("aec78d0007e956f4"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, common.NobodyLogin, body["user"].(map[string]any)["login"])
	authErr := body["authError"].(map[string]any)
	assert.Equal(t, float64(auth.AccessTokenNotFound), authErr["code"])
}

func TestMe_ExpiredToken(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login(t, "bob", "bobpass")

	e.clock.Advance(time.Hour)
	rec := e.do(t, http.MethodGet, "/api/me", "", withHeader(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(auth.AccessTokenExpired), body["code"])
	assert.Equal(t, map[string]any{"login": "bob"}, body["info"])

	c := cookieFrom(rec)
	require.NotNil(t, c, "expired token cookie must be dropped")
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestMe_CookieExpiresWithToken(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login(t, "bob", "bobpass")

	e.clock.Advance(10 * time.Minute)
	rec := e.do(t, http.MethodGet, "/api/me", "", withCookie(token))
	require.Equal(t, http.StatusOK, rec.Code)

	c := cookieFrom(rec)
	require.NotNil(t, c)
	assert.Equal(t, token, c.Value)
	assert.Equal(t, 50*60, c.MaxAge)
}

func TestLogin_WithExpiredCookie(t *testing.T) {
	e := newEnv(t, nil)
	stale := e.login(t, "bob", "bobpass")
	e.clock.Advance(time.Hour)

	rec := e.do(t, http.MethodPost, "/api/login", `{"login":"bob","password":"bobpass"}`, withCookie(stale))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := cookieFrom(rec)
	require.NotNil(t, c)
	assert.NotEqual(t, stale, c.Value)
	assert.Equal(t, 3600, c.MaxAge)

	rec = e.do(t, http.MethodGet, "/api/me", "", withCookie(c.Value))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decodeBody(t, rec)["user"].(map[string]any)["login"])
}

func TestLogout_WithExpiredCookie(t *testing.T) {
	e := newEnv(t, nil)
	stale := e.login(t, "bob", "bobpass")
	e.clock.Advance(2 * time.Hour)

	rec := e.do(t, http.MethodPost, "/api/logout", "", withCookie(stale))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := cookieFrom(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestMe_RefreshesToken(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login(t, "bob", "bobpass")

	e.clock.Advance(55 * time.Minute)
	rec := e.do(t, http.MethodGet, "/api/me", "", withCookie(token))
	require.Equal(t, http.StatusOK, rec.Code)

	fresh := rec.Header().Get(common.AccessTokenHeaderName)
	require.NotEmpty(t, fresh)
	assert.NotEqual(t, token, fresh)
	assert.Equal(t, fresh, cookieFrom(rec).Value)
}

func TestMe_StoreFailure(t *testing.T) {
	e := newEnv(t, func(m *store.MemoryStore) store.Store { return failingStore{m} })
	rec := e.do(t, http.MethodGet, "/api/me", "", withHeader("whatever"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestLogout(t *testing.T) {
	e := newEnv(t, nil)
	token := e.login(t, "bob", "bobpass")

	// inside the refresh window: logout must not mint a new session
	e.clock.Advance(55 * time.Minute)
	sessions := e.store.SessionCount()

	rec := e.do(t, http.MethodPost, "/api/logout", "", withCookie(token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	c := cookieFrom(rec)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
	assert.Empty(t, rec.Header().Get(common.AccessTokenHeaderName))
	assert.Equal(t, sessions, e.store.SessionCount())
	assert.Equal(t, common.NobodyLogin, decodeBody(t, rec)["user"].(map[string]any)["login"])
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t, nil)

	t.Run("own password", func(t *testing.T) {
		token := e.login(t, "bob", "bobpass")
		rec := e.do(t, http.MethodPost, "/api/password", `{"password":"newpass"}`, withHeader(token))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = e.do(t, http.MethodPost, "/api/login", `{"login":"bob","password":"bobpass"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		e.login(t, "bob", "newpass")
	})

	t.Run("someone else's password", func(t *testing.T) {
		token := e.login(t, "bob", "newpass")
		rec := e.do(t, http.MethodPost, "/api/password", `{"login":"alex","password":"hijack"}`, withHeader(token))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		e.login(t, "alex", "togodo")
	})

	t.Run("admin changes another user", func(t *testing.T) {
		token := e.login(t, "alex", "togodo")
		rec := e.do(t, http.MethodPost, "/api/password", `{"login":"bob","password":"reset"}`, withHeader(token))
		require.Equal(t, http.StatusNoContent, rec.Code)
		e.login(t, "bob", "reset")
	})

	t.Run("empty password", func(t *testing.T) {
		token := e.login(t, "bob", "reset")
		rec := e.do(t, http.MethodPost, "/api/password", `{"password":""}`, withHeader(token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, float64(auth.InvalidPassword), decodeBody(t, rec)["code"])
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/api/password", `{"login":"bob","password":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeBody(t, rec)
		assert.NotContains(t, body, "code")
		assert.Contains(t, body["message"], "changePassword")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	e.login(t, "bob", "bobpass")

	rec := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gophauth_authentications_total{method="password",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `gophauth_password_changes_total{outcome="ok"} 2`)
}
