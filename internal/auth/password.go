package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/example/helmdesk/backend/internal/config"
)

const bcryptCost = 12

// HashPassword gera o hash bcrypt de uma senha.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compara a senha com o hash armazenado.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthenticateBreakGlass valida o login local de manutenção
// configurado em LocalAdminUser/LocalAdminPasswordHash.
func AuthenticateBreakGlass(username, password string, cfg *config.Config) bool {
	if cfg.LocalAdminUser == "" || cfg.LocalAdminPasswordHash == "" {
		return false
	}
	if username != cfg.LocalAdminUser {
		return false
	}
	return CheckPassword(cfg.LocalAdminPasswordHash, password)
}
