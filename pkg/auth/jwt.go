package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/naturelovers/storefront/config"
)

// Claims holds the typed JWT payload. Access tokens carry the role so the
// admin gate can short-circuit; refresh tokens carry only the user id.
type Claims struct {
	UserID string `json:"_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type keyFunc func() []byte

func accessSecret() []byte  { return []byte(config.AccessTokenSecret()) }
func refreshSecret() []byte { return []byte(config.RefreshTokenSecret()) }

// GenerateAccessToken signs a short-lived token for API calls.
func GenerateAccessToken(userID, role string) (string, error) {
	return sign(Claims{UserID: userID, Role: role}, config.AccessTokenExpiry(), accessSecret)
}

// GenerateRefreshToken signs the long-lived token stored in the refreshToken cookie.
func GenerateRefreshToken(userID string) (string, error) {
	return sign(Claims{UserID: userID}, config.RefreshTokenExpiry(), refreshSecret)
}

func sign(claims Claims, ttl time.Duration, key keyFunc) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key())
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return s, nil
}

// ValidateAccessToken parses and validates an access token.
func ValidateAccessToken(t string) (*Claims, error) { return parse(t, accessSecret) }

// ValidateRefreshToken parses and validates a refresh token.
func ValidateRefreshToken(t string) (*Claims, error) { return parse(t, refreshSecret) }

func parse(t string, key keyFunc) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return key(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool { return errors.Is(err, jwt.ErrTokenExpired) }

// IsTokenError reports whether err came from parsing or validating a JWT.
func IsTokenError(err error) bool {
	return errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims) ||
		errors.Is(err, jwt.ErrTokenUnverifiable)
}
