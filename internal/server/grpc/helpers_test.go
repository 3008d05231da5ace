package grpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/store"
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

// newTestServer returns a server over a memory store holding alex (admin)
// and bob, with passwords togodo and bobpass.
func newTestServer(t *testing.T) (*GRPCServer, *manualClock) {
	t.Helper()

	clock := &manualClock{t: time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore(store.WithClock(clock.Now))
	ctx := context.Background()

	for _, u := range []*models.User{
		{Login: "alex", Name: "Alexandre", CanLogin: true, IsAdmin: true},
		{Login: "bob", Name: "Bob", CanLogin: true},
	} {
		if err := mem.InsertUser(ctx, u); err != nil {
			t.Fatalf("InsertUser: %v", err)
		}
	}

	a, err := auth.NewAuthenticator(access.NewGuard(mem, logging.Nop()), auth.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	for login, password := range map[string]string{"alex": "togodo", "bob": "bobpass"} {
		if err := a.ChangePassword(ctx, access.Admin(), login, password); err != nil {
			t.Fatalf("ChangePassword(%s): %v", login, err)
		}
	}

	return NewGRPCServer("127.0.0.1:0", logging.Nop(), a), clock
}

func loginToken(t *testing.T, s *GRPCServer, login, password string) string {
	t.Helper()
	res, err := s.auth.Authenticate(context.Background(), access.AuthReader(), auth.Credentials{Login: login, Password: password})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return res.Session.AccessToken
}
