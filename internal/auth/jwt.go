package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/models"
)

var (
	// ErrInvalidToken cobre assinatura ruim, claims malformados e
	// tokens de formato inesperado.
	ErrInvalidToken = errors.New("token inválido")
	// ErrExpiredToken indica token bem assinado porém vencido.
	ErrExpiredToken = errors.New("token expirado")
)

// Claims personalizados de JWT. Papéis não são embutidos no token:
// são resolvidos contra o banco a cada requisição.
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken gera um JWT para o usuário autenticado.
func GenerateToken(user *models.User, cfg *config.Config) (string, time.Time, error) {
	exp := time.Now().Add(cfg.JWTTTL())
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken valida assinatura e expiração e retorna os claims.
// A expiração é conferida explicitamente antes de confiar em qualquer
// outro claim: um token bem assinado porém vencido nunca passa.
func ParseToken(tokenStr string, cfg *config.Config) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(cfg.JWTSecret), nil
		},
		// a validação própria de expiração acontece abaixo
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
