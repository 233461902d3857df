package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduler-api/pkg/errors"
)

const testSecret = "access-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func adminClaims(expiresIn time.Duration) models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID:   "user-1",
		Role:     models.RoleAdmin,
		Email:    "admin@example.com",
		FullName: "Admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "campus-idp",
			Audience:  jwt.ClaimStrings{"class-scheduler"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: testSecret, Issuer: "campus-idp", Audience: "class-scheduler"})

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: testSecret, Issuer: "campus-idp"})

	noRole := adminClaims(time.Hour)
	noRole.Role = ""
	noExpiry := adminClaims(time.Hour)
	noExpiry.ExpiresAt = nil
	wrongIssuer := adminClaims(time.Hour)
	wrongIssuer.Issuer = "elsewhere"

	cases := map[string]string{
		"expired":       signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims(-time.Minute)),
		"wrong secret":  signToken(t, jwt.SigningMethodHS256, []byte("other"), adminClaims(time.Hour)),
		"wrong method":  signToken(t, jwt.SigningMethodHS512, []byte(testSecret), adminClaims(time.Hour)),
		"no role":       signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noRole),
		"no expiry":     signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"wrong issuer":  signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"garbage input": "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestAuthServiceWithoutSecret(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{})

	_, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims(time.Hour)))
	assertStatus(t, err, appErrors.ErrUnauthorized.Status)
}
