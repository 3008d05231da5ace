package access

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/store"
)

// Guard wraps a store.Store and evaluates the caller's rights before each
// operation:
//   - a nil caller is always refused;
//   - DatabaseID and AddUser need an admin;
//   - reads are unrestricted for admins and the auth right, owner-only otherwise;
//   - password updates are unrestricted for admins, owner-only otherwise.
type Guard struct {
	store  store.Store
	logger logging.Logger
}

func NewGuard(s store.Store, l logging.Logger) *Guard {
	return &Guard{store: s, logger: l.With("module", "access")}
}

func (g *Guard) deny(ctx context.Context, op, message string) error {
	g.logger.Warn(ctx, "access denied", "op", op)
	return requiresRights(op, message)
}

func readScope(caller *UserContext) store.Scope {
	if caller.admin() || caller.Rights.Auth {
		return store.AllRows()
	}
	return store.OwnedBy(caller.User.ID)
}

func writeScope(caller *UserContext) store.Scope {
	if caller.admin() {
		return store.AllRows()
	}
	return store.OwnedBy(caller.User.ID)
}

func (g *Guard) DatabaseID(ctx context.Context, caller *UserContext) (string, error) {
	if caller == nil || !caller.admin() {
		return "", g.deny(ctx, "getDatabaseId", "requires admin rights")
	}
	return g.store.DatabaseID(ctx)
}

func (g *Guard) LoadUsersByLogins(ctx context.Context, caller *UserContext, logins []string) ([]*models.User, error) {
	if caller == nil {
		return nil, g.deny(ctx, "loadUsersByLogins", "requires a user context")
	}
	if len(logins) == 0 {
		return []*models.User{}, nil
	}
	return g.store.FindUsersByLogins(ctx, readScope(caller), logins)
}

// LoadUserByLogin returns common.ErrorNotFound when the user does not
// exist or is not visible to caller.
func (g *Guard) LoadUserByLogin(ctx context.Context, caller *UserContext, login string) (*models.User, error) {
	if caller == nil {
		return nil, g.deny(ctx, "loadUserByLogin", "requires a user context")
	}
	users, err := g.LoadUsersByLogins(ctx, caller, []string{login})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, common.ErrorNotFound
	}
	return users[0], nil
}

// UpdateUserPassword returns common.ErrNoRowsUpdated when nothing matched.
func (g *Guard) UpdateUserPassword(ctx context.Context, caller *UserContext, login, salt, hashedPassword string) error {
	if caller == nil {
		return g.deny(ctx, "updateUserPassword", "requires a user context")
	}
	n, err := g.store.UpdateUserPassword(ctx, writeScope(caller), login, salt, hashedPassword)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNoRowsUpdated
	}
	return nil
}

// LoadSessionByAccessToken returns common.ErrorNotFound for unknown or
// invisible tokens.
func (g *Guard) LoadSessionByAccessToken(ctx context.Context, caller *UserContext, accessToken string) (*models.Session, error) {
	if caller == nil {
		return nil, g.deny(ctx, "loadSessionByAccessToken", "requires a user context")
	}
	return g.store.FindSessionByToken(ctx, readScope(caller), accessToken)
}

func (g *Guard) InsertSession(ctx context.Context, caller *UserContext, login, accessToken string, lifetime time.Duration) (*models.Session, error) {
	if caller == nil {
		return nil, g.deny(ctx, "insertSession", "requires a user context")
	}
	return g.store.InsertSession(ctx, login, accessToken, lifetime)
}

func (g *Guard) AddUser(ctx context.Context, caller *UserContext, user *models.User) error {
	if caller == nil || !caller.admin() {
		return g.deny(ctx, "addUser", "requires admin rights")
	}
	return g.store.InsertUser(ctx, user)
}
