package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a session valid for lifetime from the database clock.
func (r *PostgresRepository) Insert(ctx context.Context, login, accessToken string, lifetime time.Duration) error {
	query :=
		`INSERT INTO core_sessions (login, access_token, issued_at, valid_until)
		 VALUES ($1, $2, current_timestamp, current_timestamp + make_interval(secs => $3))`

	if _, err := r.db.ExecContext(ctx, query, login, accessToken, lifetime.Seconds()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, accessToken, ownerID string) (*models.Session, error) {
	query :=
		`SELECT s.id, s.login, s.access_token, s.issued_at, s.valid_until,
		        u.id, u.name, u.can_login, u.is_admin, u.avatar, u.email, u.builtin,
		        current_timestamp AS now
		 FROM core_sessions s
		 JOIN core_users u ON u.login = s.login
		 WHERE s.access_token = $1`
	args := []any{accessToken}
	if ownerID != "" {
		query += ` AND u.id = $2`
		args = append(args, ownerID)
	}

	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &s.Login, &s.AccessToken, &s.IssuedAt, &s.ValidUntil,
		&s.User.ID, &s.User.Name, &s.User.CanLogin, &s.User.IsAdmin, &s.User.Avatar, &s.User.Email, &s.User.Builtin,
		&s.Now,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.User.Login = s.Login

	return s, nil
}
