// Package store defines the credential store contract used by the access
// guard together with its PostgreSQL, SQLite and in-memory adapters.
//
// Adapters never make access decisions themselves: the guard computes a
// Scope for every call and the adapter turns it into a row filter.
package store

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Store interface {
	DatabaseID(ctx context.Context) (string, error)
	// FindUsersByLogins returns the visible users among logins, in no
	// particular order. Missing logins are silently skipped.
	FindUsersByLogins(ctx context.Context, scope Scope, logins []string) ([]*models.User, error)
	// UpdateUserPassword returns the number of rows changed.
	UpdateUserPassword(ctx context.Context, scope Scope, login, salt, hashedPassword string) (int64, error)
	// FindSessionByToken returns common.ErrorNotFound when no visible
	// session carries the token.
	FindSessionByToken(ctx context.Context, scope Scope, accessToken string) (*models.Session, error)
	// InsertSession creates a session valid for lifetime from the store's
	// clock and returns it joined with its owner.
	InsertSession(ctx context.Context, login, accessToken string, lifetime time.Duration) (*models.Session, error)
	// InsertUser stores user and fills in its ID. A duplicate login yields
	// common.ErrorAlreadyExists.
	InsertUser(ctx context.Context, user *models.User) error
}

// Scope restricts which rows a store operation may see or change.
type Scope struct {
	restricted bool
	ownerID    string
}

// AllRows is the scope of admins and of the auth reader.
func AllRows() Scope { return Scope{} }

// OwnedBy limits an operation to the rows owned by the user with id.
func OwnedBy(id string) Scope { return Scope{restricted: true, ownerID: id} }

// Unrestricted reports whether s sees every row.
func (s Scope) Unrestricted() bool { return !s.restricted }

// OwnerID is the owner a restricted scope is limited to.
func (s Scope) OwnerID() string { return s.ownerID }

// Allows reports whether a row owned by ownerID is visible in s.
func (s Scope) Allows(ownerID string) bool {
	return !s.restricted || (s.ownerID != "" && s.ownerID == ownerID)
}

// ownerFilter maps s onto the repositories' ownerID convention, where ""
// disables the filter. ok is false when s can match no row at all.
func (s Scope) ownerFilter() (ownerID string, ok bool) {
	if !s.restricted {
		return "", true
	}
	return s.ownerID, s.ownerID != ""
}

// Option configures the adapters that keep their own clock.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the reference clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
