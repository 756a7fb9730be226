package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmint/regsync/pkg/config"
)

func testJWTService() *JWTService {
	return NewJWTService(config.AuthConfig{
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
		JWTIssuer:      "regsync-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testJWTService()

	token, err := svc.GenerateToken("ops@skillmint.io", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@skillmint.io", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "regsync-test", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := testJWTService().GenerateToken("ops@skillmint.io", "admin")
	require.NoError(t, err)

	other := NewJWTService(config.AuthConfig{JWTSecret: "different-secret", JWTExpiryHours: 1})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := testJWTService().ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := testJWTService()
	svc.expiry = -time.Minute

	token, err := svc.GenerateToken("ops@skillmint.io", "admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
