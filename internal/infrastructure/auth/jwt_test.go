package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken("user-1", "acme", "ops@acme.test")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	sess, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "acme", sess.TenantID)
	require.Equal(t, "user-1", sess.UserID)
	require.Equal(t, "ops@acme.test", sess.Email)
	require.Equal(t, token, sess.Token, "raw token must survive for forwarding")
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateAccessToken("user-1", "acme", "")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestJWTRejectsTenantlessToken(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, _, err := svc.GenerateAccessToken("user-1", "", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}
