package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionFor(userID, login string) *models.Session {
	return &models.Session{Login: login, User: models.SessionUser{ID: userID, Login: login, CanLogin: true}}
}

func TestCodes_AreStable(t *testing.T) {
	assert.Equal(t, 10, int(CannotLogin))
	assert.Equal(t, 11, int(UserNotFound))
	assert.Equal(t, 12, int(InvalidPassword))
	assert.Equal(t, 13, int(AccessTokenExpired))
	assert.Equal(t, 14, int(AccessTokenNotFound))
	assert.Equal(t, "ACCESS_TOKEN_EXPIRED", AccessTokenExpired.String())
	assert.Equal(t, "AUTH_99", Code(99).String())
}

func TestIsAuthError(t *testing.T) {
	err := newError(UserNotFound, "User not found", map[string]any{"login": "bibb"})
	wrapped := fmt.Errorf("web: %w", err)

	assert.True(t, IsAuthError(err))
	assert.True(t, IsAuthError(wrapped))
	assert.False(t, IsAuthError(errors.New("User not found")))
	assert.False(t, IsAuthError(nil))

	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, UserNotFound, code)

	_, ok = CodeOf(errors.New("x"))
	assert.False(t, ok)
}

func TestError_JSON(t *testing.T) {
	b, err := json.Marshal(newError(InvalidPassword, "Invalid password", map[string]any{"login": "alex"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":12,"message":"Invalid password","info":{"login":"alex"}}`, string(b))

	b, err = json.Marshal(newError(AccessTokenNotFound, "Access token not found", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":14,"message":"Access token not found"}`, string(b))
}
