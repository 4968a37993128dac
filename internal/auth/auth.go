package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/models"
)

// ErrInvalidCredentials é retornado de forma uniforme para usuário
// inexistente, desabilitado ou senha incorreta, sem distinção que
// permita enumerar contas.
var ErrInvalidCredentials = errors.New("credenciais inválidas")

// ErrUserExists indica conflito de username ou email no cadastro.
var ErrUserExists = errors.New("usuário já existe")

// Authenticate valida usuário e senha contra o banco.
func Authenticate(store *db.Store, username, password string) (*models.User, error) {
	var user models.User
	err := store.Do(func(gdb *gorm.DB) error {
		return gdb.Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled || !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Register cria uma conta local com o papel "user". O primeiro
// usuário do sistema recebe "admin".
func Register(store *db.Store, username, email, displayName, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	var count int64
	err = store.Do(func(gdb *gorm.DB) error {
		return gdb.Model(&models.User{}).
			Where("username = ? OR email = ?", username, email).
			Count(&count).Error
	})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}
	user := models.User{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Enabled:      true,
	}
	if err := createWithDefaultRole(store, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureLDAPUser carrega (ou provisiona) a conta local espelhando um
// login LDAP bem-sucedido.
func EnsureLDAPUser(store *db.Store, username, displayName string) (*models.User, error) {
	var user models.User
	err := store.Do(func(gdb *gorm.DB) error {
		return gdb.Preload("Roles").Where("username = ?", username).First(&user).Error
	})
	if err == nil {
		if !user.Enabled {
			return nil, ErrInvalidCredentials
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:    username,
		DisplayName: displayName,
		Enabled:     true,
	}
	if err := createWithDefaultRole(store, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func createWithDefaultRole(store *db.Store, user *models.User) error {
	return store.Do(func(gdb *gorm.DB) error {
		roleName := models.RoleUser
		var count int64
		if err := gdb.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			roleName = models.RoleAdmin
		}

		var role models.Role
		if err := gdb.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("papel %s não semeado: %w", roleName, err)
		}
		user.Roles = []models.Role{role}
		return gdb.Create(user).Error
	})
}
