package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

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

type fixture struct {
	clock   *manualClock
	store   *store.MemoryStore
	guard   *access.Guard
	auth    *Authenticator
	metrics *Metrics
	alex    *models.User
}

// newFixture builds an authenticator over a memory store holding "alex"
// (admin, may log in) with no password set yet.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	clock := &manualClock{t: time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	g := access.NewGuard(s, logging.Nop())
	m := NewMetrics(prometheus.NewRegistry())

	a, err := NewAuthenticator(g, DefaultPolicy(), append([]Option{WithMetrics(m)}, opts...)...)
	require.NoError(t, err)

	alex := &models.User{Login: "alex", Name: "Alexandre", CanLogin: true, IsAdmin: true}
	require.NoError(t, s.InsertUser(context.Background(), alex))

	return &fixture{clock: clock, store: s, guard: g, auth: a, metrics: m, alex: alex}
}

func (f *fixture) setPassword(t *testing.T, login, password string) {
	t.Helper()
	require.NoError(t, f.auth.ChangePassword(context.Background(), access.Admin(), login, password))
}

func (f *fixture) login(t *testing.T, login, password string) *Result {
	t.Helper()
	res, err := f.auth.Authenticate(context.Background(), access.AuthReader(), Credentials{Login: login, Password: password})
	require.NoError(t, err)
	return res
}

func requireCode(t *testing.T, err error, want Code) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsAuthError(err), "want auth error, got %v", err)
	code, _ := CodeOf(err)
	require.Equal(t, want, code, "unexpected code for %v", err)
}

// stubGuard lets tests inject store failures.
type stubGuard struct {
	user       *models.User
	session    *models.Session
	err        error
	insertErr  error
	updateErr  error
	inserts    int
	updates    int
	lastSalt   string
	lastHashed string
}

func (g *stubGuard) LoadUserByLogin(ctx context.Context, caller *access.UserContext, login string) (*models.User, error) {
	return g.user, g.err
}

func (g *stubGuard) LoadSessionByAccessToken(ctx context.Context, caller *access.UserContext, accessToken string) (*models.Session, error) {
	return g.session, g.err
}

func (g *stubGuard) InsertSession(ctx context.Context, caller *access.UserContext, login, accessToken string, lifetime time.Duration) (*models.Session, error) {
	g.inserts++
	if g.insertErr != nil {
		return nil, g.insertErr
	}
	return &models.Session{Login: login, AccessToken: accessToken}, nil
}

func (g *stubGuard) UpdateUserPassword(ctx context.Context, caller *access.UserContext, login, salt, hashedPassword string) error {
	g.updates++
	g.lastSalt, g.lastHashed = salt, hashedPassword
	return g.updateErr
}
