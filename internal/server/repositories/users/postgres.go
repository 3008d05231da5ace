package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO core_users (login, salt, hashed_password, name, email, avatar, can_login, is_admin, builtin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		user.Login, user.Salt, user.HashedPassword, user.Name, user.Email, user.Avatar,
		user.CanLogin, user.IsAdmin, user.Builtin).Scan(&user.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByLogins(ctx context.Context, logins []string, ownerID string) ([]*models.User, error) {
	if len(logins) == 0 {
		return []*models.User{}, nil
	}

	args := make([]any, 0, len(logins)+1)
	placeholders := make([]string, 0, len(logins))
	for _, login := range logins {
		args = append(args, login)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}

	query := `SELECT id, login, salt, hashed_password, name, email, avatar, can_login, is_admin, builtin
		 FROM core_users
		 WHERE login IN (` + strings.Join(placeholders, ", ") + `)`
	if ownerID != "" {
		args = append(args, ownerID)
		query += ` AND id = $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0, len(logins))
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Login, &u.Salt, &u.HashedPassword, &u.Name, &u.Email, &u.Avatar,
			&u.CanLogin, &u.IsAdmin, &u.Builtin); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, login, salt, hashedPassword, ownerID string) (int64, error) {
	query := `UPDATE core_users SET salt = $2, hashed_password = $3 WHERE login = $1`
	args := []any{login, salt, hashedPassword}
	if ownerID != "" {
		args = append(args, ownerID)
		query += ` AND id = $4`
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
