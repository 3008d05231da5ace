// Package users persists core_users rows.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the users aggregate. An empty ownerID means the caller may
// see every row; otherwise only the row with that id is visible.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByLogins(ctx context.Context, logins []string, ownerID string) ([]*models.User, error)
	UpdatePassword(ctx context.Context, login, salt, hashedPassword, ownerID string) (int64, error)
}
