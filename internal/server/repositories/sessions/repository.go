// Package sessions persists core_sessions rows. Rows are immutable: a
// refreshed session is a new row and superseded rows are left in place.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, login, accessToken string, lifetime time.Duration) error
	// FindByToken returns common.ErrorNotFound when no visible session
	// carries the token. An empty ownerID disables the owner filter.
	FindByToken(ctx context.Context, accessToken, ownerID string) (*models.Session, error)
}
