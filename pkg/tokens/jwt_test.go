package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	tg := NewTokenGenerator("test-secret", time.Hour)

	token, err := tg.Generate("ops@example.com", []string{"admin"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tg.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.Equal(t, "stayops-sentinel", claims.Issuer)
}

func TestValidate_WrongSecret(t *testing.T) {
	tg := NewTokenGenerator("secret-a", time.Hour)
	token, err := tg.Generate("ops", nil)
	require.NoError(t, err)

	other := NewTokenGenerator("secret-b", time.Hour)
	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	tg := NewTokenGenerator("test-secret", -time.Minute)
	tg.ttl = -time.Minute
	token, err := tg.Generate("ops", nil)
	require.NoError(t, err)

	_, err = tg.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_Garbage(t *testing.T) {
	tg := NewTokenGenerator("test-secret", time.Hour)
	_, err := tg.Validate("not-a-token")
	assert.Error(t, err)
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	require.NoError(t, err)
	b, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40)
}
