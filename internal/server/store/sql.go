package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// SQLStore is the PostgreSQL adapter. Time comes from the database clock.
type SQLStore struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, rm: rm}
}

// OpenPostgres opens a pgx connection pool and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewSQLStore(db, rm), db, nil
}

func (s *SQLStore) DatabaseID(ctx context.Context) (string, error) {
	return s.rm.Options(s.db).Get(ctx, common.DatabaseIDOption)
}

func (s *SQLStore) FindUsersByLogins(ctx context.Context, scope Scope, logins []string) ([]*models.User, error) {
	owner, ok := scope.ownerFilter()
	if !ok || len(logins) == 0 {
		return []*models.User{}, nil
	}
	return s.rm.Users(s.db).FindByLogins(ctx, logins, owner)
}

func (s *SQLStore) UpdateUserPassword(ctx context.Context, scope Scope, login, salt, hashedPassword string) (int64, error) {
	owner, ok := scope.ownerFilter()
	if !ok {
		return 0, nil
	}
	return s.rm.Users(s.db).UpdatePassword(ctx, login, salt, hashedPassword, owner)
}

func (s *SQLStore) FindSessionByToken(ctx context.Context, scope Scope, accessToken string) (*models.Session, error) {
	owner, ok := scope.ownerFilter()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.rm.Sessions(s.db).FindByToken(ctx, accessToken, owner)
}

func (s *SQLStore) InsertSession(ctx context.Context, login, accessToken string, lifetime time.Duration) (*models.Session, error) {
	var session *models.Session
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Sessions(tx)
		if err := repo.Insert(ctx, login, accessToken, lifetime); err != nil {
			return err
		}
		var err error
		session, err = repo.FindByToken(ctx, accessToken, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLStore) InsertUser(ctx context.Context, user *models.User) error {
	_, err := s.rm.Users(s.db).Create(ctx, user)
	return err
}
