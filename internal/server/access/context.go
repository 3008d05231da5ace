// Package access holds the per-request UserContext and the Guard that
// checks it before every credential store operation.
package access

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// User is the public identity carried by a UserContext.
type User = models.SessionUser

// Rights are the capabilities granted to a context beyond its identity.
// Auth lets the holder read any user or session, which is what credential
// resolution needs before the caller is known.
type Rights struct {
	Admin bool `json:"admin"`
	Auth  bool `json:"auth"`
}

// UserContext is the resolved caller of one request. It is never persisted.
type UserContext struct {
	Authenticated bool   `json:"authenticated"`
	IsAdmin       bool   `json:"isAdmin"`
	User          User   `json:"user"`
	Rights        Rights `json:"rights"`
	AccessToken   string `json:"-"`
	// AuthError is the authentication failure that made this request fall
	// back to the nobody identity, if any.
	AuthError error `json:"-"`
}

func nobodyUser() User {
	return User{
		ID:      common.NobodyUserID,
		Login:   common.NobodyLogin,
		Name:    common.NobodyName,
		Avatar:  common.NobodyAvatar,
		Builtin: true,
	}
}

// Nobody is the context of a request that presented no token.
func Nobody() *UserContext {
	return &UserContext{Authenticated: true, User: nobodyUser()}
}

// Anonymous is the nobody context of a request whose token could not be
// resolved; err is kept so handlers can report it.
func Anonymous(accessToken string, err error) *UserContext {
	return &UserContext{User: nobodyUser(), AccessToken: accessToken, AuthError: err}
}

// AuthReader is the nobody identity holding the auth right. The boundary
// uses it to resolve credentials before the real caller is known.
func AuthReader() *UserContext {
	return &UserContext{
		Authenticated: true,
		User:          User{ID: common.NobodyUserID, Login: common.NobodyLogin},
		Rights:        Rights{Auth: true},
	}
}

// Admin is the context used by bootstrap code and the admin CLI.
func Admin() *UserContext {
	return &UserContext{
		Authenticated: true,
		IsAdmin:       true,
		Rights:        Rights{Admin: true},
	}
}

// FromSession builds the context of the owner of s.
func FromSession(s *models.Session) *UserContext {
	uc := &UserContext{
		Authenticated: true,
		User:          s.User,
		AccessToken:   s.AccessToken,
	}
	if s.User.IsAdmin {
		uc.IsAdmin = true
		uc.Rights.Admin = true
	}
	return uc
}

func (uc *UserContext) admin() bool {
	return uc.IsAdmin || uc.Rights.Admin
}

type ctxKey struct{}

// WithUserContext returns a copy of ctx carrying uc.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, uc)
}

// FromContext returns the UserContext stored in ctx, if any.
func FromContext(ctx context.Context) (*UserContext, bool) {
	uc, ok := ctx.Value(ctxKey{}).(*UserContext)
	return uc, ok && uc != nil
}
