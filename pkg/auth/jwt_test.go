package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/naturelovers/storefront/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := GenerateAccessToken("65f0c0ffee0000000000abcd", "admin")
	require.NoError(t, err)

	claims, err := ValidateAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, claims.UserID, claims.Subject)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	config.Set("ACCESS_TOKEN_SECRET", "access-secret")
	config.Set("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Cleanup(config.Reset)

	tok, err := GenerateRefreshToken("65f0c0ffee0000000000abcd")
	require.NoError(t, err)

	_, err = ValidateAccessToken(tok)
	assert.Error(t, err)
	assert.True(t, IsTokenError(err))

	claims, err := ValidateRefreshToken(tok)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
}

func TestExpiredToken(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	s, err := expired.SignedString(accessSecret())
	require.NoError(t, err)

	_, err = ValidateAccessToken(s)
	assert.True(t, IsExpired(err))
}

func TestRejectsNoneAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAccessToken(s)
	assert.Error(t, err)
}

func TestPasswordAndTokenHelpers(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))

	tok, err := RandomToken(20)
	require.NoError(t, err)
	assert.Len(t, tok, 40)
	assert.Len(t, HashToken(tok), 64)
	assert.Equal(t, HashToken(tok), HashToken(tok))
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromCtx(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: "admin"})
	id, ok := FromCtx(ctx)
	require.True(t, ok)
	assert.True(t, id.IsAdmin())
}
