package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/access"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver, dsn string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = driver
	cfg.DatabaseDSN = dsn
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	cfg.EndpointAddrHTTP = "127.0.0.1:0"
	cfg.LogLevel = "error"
	return cfg
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, _, err := OpenStore(context.Background(), testConfig("oracle", ""))
	assert.ErrorIs(t, err, common.ErrUnknownDriver)
}

func TestOpenStore_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig("sqlite", filepath.Join(t.TempDir(), "auth.db"))
	cfg.PasswordHasher = "argon2id"

	s, closeDB, err := OpenStore(ctx, cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, closeDB()) }()

	g := access.NewGuard(s, logging.Nop())
	require.NoError(t, g.AddUser(ctx, access.Admin(), &models.User{Login: "alex", CanLogin: true, IsAdmin: true}))

	a, err := NewAuthenticator(cfg, g)
	require.NoError(t, err)
	require.NoError(t, a.ChangePassword(ctx, access.Admin(), "alex", "togodo"))

	res, err := a.Authenticate(ctx, access.AuthReader(), auth.Credentials{Login: "alex", Password: "togodo"})
	require.NoError(t, err)
	assert.True(t, res.Issued)

	again, err := a.Authenticate(ctx, access.AuthReader(), auth.Credentials{AccessToken: res.Session.AccessToken})
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, again.Session.ID)
}

func TestNewAuthenticator_Config(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.PasswordHasher = "md5"
	_, err := NewAuthenticator(cfg, nil)
	assert.ErrorIs(t, err, common.ErrUnknownHasher)

	cfg = testConfig("memory", "")
	cfg.RefreshWindow = 2 * time.Hour
	_, err = NewAuthenticator(cfg, nil)
	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig("memory", ""))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
}
