package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:     "segredo-de-teste",
		JWTExpMinutes: 60,
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Username: "alice"}
	user.ID = 7

	signed, exp, err := GenerateToken(user, cfg)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ParseToken(signed, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseToken_ExpiredIsRejected(t *testing.T) {
	cfg := testConfig()

	// token bem assinado porém vencido há uma hora
	claims := &Claims{
		UserID:   1,
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = ParseToken(signed, cfg)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Username: "alice"}
	signed, _, err := GenerateToken(user, cfg)
	require.NoError(t, err)

	other := &config.Config{JWTSecret: "outro-segredo", JWTExpMinutes: 60}
	_, err = ParseToken(signed, other)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_MissingExpiry(t *testing.T) {
	cfg := testConfig()
	claims := &Claims{UserID: 1, Username: "alice"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = ParseToken(signed, cfg)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3nha-forte")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3nha-forte"))
	assert.False(t, CheckPassword(hash, "s3nha-errada"))
}

func TestAuthenticateBreakGlass(t *testing.T) {
	hash, err := HashPassword("chave-mestra")
	require.NoError(t, err)
	cfg := &config.Config{
		LocalAdminUser:         "manutencao",
		LocalAdminPasswordHash: hash,
	}

	assert.True(t, AuthenticateBreakGlass("manutencao", "chave-mestra", cfg))
	assert.False(t, AuthenticateBreakGlass("manutencao", "errada", cfg))
	assert.False(t, AuthenticateBreakGlass("outro", "chave-mestra", cfg))
	// sem usuário/hash configurados, nunca autentica
	assert.False(t, AuthenticateBreakGlass("manutencao", "chave-mestra", &config.Config{}))
}
