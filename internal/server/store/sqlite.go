package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore is the embedded adapter. Timestamps are stored as unix
// nanoseconds and the reference time comes from the configured clock.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

type sqliteUser struct {
	ID             string `db:"id"`
	Login          string `db:"login"`
	Salt           string `db:"salt"`
	HashedPassword string `db:"hashed_password"`
	Name           string `db:"name"`
	Email          string `db:"email"`
	Avatar         string `db:"avatar"`
	CanLogin       bool   `db:"can_login"`
	IsAdmin        bool   `db:"is_admin"`
	Builtin        bool   `db:"builtin"`
}

type sqliteSession struct {
	ID          string `db:"id"`
	Login       string `db:"login"`
	AccessToken string `db:"access_token"`
	IssuedAt    int64  `db:"issued_at"`
	ValidUntil  int64  `db:"valid_until"`
	UserID      string `db:"uid"`
	UserName    string `db:"uname"`
	CanLogin    bool   `db:"can_login"`
	IsAdmin     bool   `db:"is_admin"`
	Avatar      string `db:"avatar"`
	Email       string `db:"email"`
	Builtin     bool   `db:"builtin"`
}

const sqliteSessionQuery = `SELECT s.id, s.login, s.access_token, s.issued_at, s.valid_until,
	u.id AS uid, u.name AS uname, u.can_login, u.is_admin, u.avatar, u.email, u.builtin
	FROM core_sessions s JOIN core_users u ON u.login = s.login
	WHERE s.access_token = ?`

// OpenSQLite opens the database at dsn with the modernc driver and applies
// migrations. The pool is limited to one connection, which also keeps
// ":memory:" databases alive across calls.
func OpenSQLite(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if err := repomanager.MigrateSQLite(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewSQLiteStore(db *sqlx.DB, opts ...Option) *SQLiteStore {
	o := buildOptions(opts)
	return &SQLiteStore{db: db, now: o.now}
}

func (s *SQLiteStore) DatabaseID(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, `SELECT value FROM core_options WHERE name = ?`, common.DatabaseIDOption)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) FindUsersByLogins(ctx context.Context, scope Scope, logins []string) ([]*models.User, error) {
	owner, ok := scope.ownerFilter()
	if !ok || len(logins) == 0 {
		return []*models.User{}, nil
	}

	query, args, err := sqlx.In(`SELECT id, login, salt, hashed_password, name, email, avatar, can_login, is_admin, builtin
		FROM core_users WHERE login IN (?)`, logins)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if owner != "" {
		query += ` AND id = ?`
		args = append(args, owner)
	}

	var rows []sqliteUser
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result := make([]*models.User, 0, len(rows))
	for _, r := range rows {
		result = append(result, &models.User{
			ID:             r.ID,
			Login:          r.Login,
			Salt:           r.Salt,
			HashedPassword: r.HashedPassword,
			Name:           r.Name,
			Email:          r.Email,
			Avatar:         r.Avatar,
			CanLogin:       r.CanLogin,
			IsAdmin:        r.IsAdmin,
			Builtin:        r.Builtin,
		})
	}
	return result, nil
}

func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, scope Scope, login, salt, hashedPassword string) (int64, error) {
	owner, ok := scope.ownerFilter()
	if !ok {
		return 0, nil
	}

	query := `UPDATE core_users SET salt = ?, hashed_password = ? WHERE login = ?`
	args := []any{salt, hashedPassword, login}
	if owner != "" {
		query += ` AND id = ?`
		args = append(args, owner)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) FindSessionByToken(ctx context.Context, scope Scope, accessToken string) (*models.Session, error) {
	owner, ok := scope.ownerFilter()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.loadSession(ctx, s.db, accessToken, owner)
}

func (s *SQLiteStore) InsertSession(ctx context.Context, login, accessToken string, lifetime time.Duration) (*models.Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	issued := s.now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO core_sessions (id, login, access_token, issued_at, valid_until) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), login, accessToken, issued.UnixNano(), issued.Add(lifetime).UnixNano())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	session, err := s.loadSession(ctx, tx, accessToken, "")
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO core_users (id, login, salt, hashed_password, name, email, avatar, can_login, is_admin, builtin)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Login, user.Salt, user.HashedPassword, user.Name, user.Email, user.Avatar,
		user.CanLogin, user.IsAdmin, user.Builtin)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadSession(ctx context.Context, q sqlx.QueryerContext, accessToken, owner string) (*models.Session, error) {
	query := sqliteSessionQuery
	args := []any{accessToken}
	if owner != "" {
		query += ` AND u.id = ?`
		args = append(args, owner)
	}

	var row sqliteSession
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &models.Session{
		ID:          row.ID,
		Login:       row.Login,
		AccessToken: row.AccessToken,
		IssuedAt:    time.Unix(0, row.IssuedAt).UTC(),
		ValidUntil:  time.Unix(0, row.ValidUntil).UTC(),
		Now:         s.now().UTC(),
		User: models.SessionUser{
			ID:       row.UserID,
			Name:     row.UserName,
			Login:    row.Login,
			CanLogin: row.CanLogin,
			IsAdmin:  row.IsAdmin,
			Avatar:   row.Avatar,
			Email:    row.Email,
			Builtin:  row.Builtin,
		},
	}, nil
}
