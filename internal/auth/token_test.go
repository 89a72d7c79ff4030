package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ochat-go/internal/model"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func TestToken_RoundTrip(t *testing.T) {
	token, err := GenerateToken(model.NewSession("bob", model.RoleAdmin), testSecret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	s, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "bob", s.Username)
	assert.Equal(t, model.RoleAdmin, s.Role)
	assert.True(t, s.Authenticated)
}

func TestToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(model.NewSession("bob", model.RoleUser), testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("another-secret-key-32-bytes-long"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_Expired(t *testing.T) {
	token, err := GenerateToken(model.NewSession("bob", model.RoleUser), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
