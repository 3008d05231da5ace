package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type memorySession struct {
	id          string
	login       string
	accessToken string
	issuedAt    time.Time
	validUntil  time.Time
}

// MemoryStore keeps users and sessions in process memory. It is used by the
// "memory" driver and by tests that need a controllable clock.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	sessions   map[string]*memorySession
	databaseID string
	now        func() time.Time
}

// NewMemoryStore returns a store seeded with the builtin nobody user.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	m := &MemoryStore{
		users:      make(map[string]*models.User),
		sessions:   make(map[string]*memorySession),
		databaseID: uuid.NewString(),
		now:        o.now,
	}
	m.users[common.NobodyLogin] = &models.User{
		ID:      common.NobodyUserID,
		Login:   common.NobodyLogin,
		Name:    common.NobodyName,
		Avatar:  common.NobodyAvatar,
		Builtin: true,
	}
	return m
}

func (m *MemoryStore) DatabaseID(ctx context.Context) (string, error) {
	return m.databaseID, nil
}

func (m *MemoryStore) FindUsersByLogins(ctx context.Context, scope Scope, logins []string) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.User, 0, len(logins))
	seen := make(map[string]struct{}, len(logins))
	for _, login := range logins {
		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}

		u, ok := m.users[login]
		if !ok || !scope.Allows(u.ID) {
			continue
		}
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MemoryStore) UpdateUserPassword(ctx context.Context, scope Scope, login, salt, hashedPassword string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[login]
	if !ok || !scope.Allows(u.ID) {
		return 0, nil
	}
	u.Salt = salt
	u.HashedPassword = hashedPassword
	return 1, nil
}

func (m *MemoryStore) FindSessionByToken(ctx context.Context, scope Scope, accessToken string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[accessToken]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u, ok := m.users[s.login]
	if !ok || !scope.Allows(u.ID) {
		return nil, common.ErrorNotFound
	}
	return m.join(s, u), nil
}

func (m *MemoryStore) InsertSession(ctx context.Context, login, accessToken string, lifetime time.Duration) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[login]
	if !ok {
		return nil, fmt.Errorf("insert session for %q: %w", login, common.ErrorNotFound)
	}
	if _, dup := m.sessions[accessToken]; dup {
		return nil, fmt.Errorf("insert session: %w", common.ErrorAlreadyExists)
	}

	issued := m.now()
	s := &memorySession{
		id:          uuid.NewString(),
		login:       login,
		accessToken: accessToken,
		issuedAt:    issued,
		validUntil:  issued.Add(lifetime),
	}
	m.sessions[accessToken] = s
	return m.join(s, u), nil
}

func (m *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.users[user.Login]; dup {
		return common.ErrorAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.users[user.Login] = &cp
	return nil
}

// SessionCount returns the number of stored sessions, superseded ones included.
func (m *MemoryStore) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) join(s *memorySession, u *models.User) *models.Session {
	return &models.Session{
		ID:          s.id,
		Login:       s.login,
		AccessToken: s.accessToken,
		IssuedAt:    s.issuedAt,
		ValidUntil:  s.validUntil,
		Now:         m.now(),
		User:        u.SessionUser(),
	}
}
