package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/models"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	require.NoError(t, db.SeedRoles(gdb))
	return db.NewStore(gdb)
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	store := newTestStore(t)

	first, err := Register(store, "alice", "alice@example.com", "Alice", "senha123")
	require.NoError(t, err)
	require.Len(t, first.Roles, 1)
	assert.Equal(t, models.RoleAdmin, first.Roles[0].Name)

	second, err := Register(store, "bob", "bob@example.com", "Bob", "senha123")
	require.NoError(t, err)
	require.Len(t, second.Roles, 1)
	assert.Equal(t, models.RoleUser, second.Roles[0].Name)
}

func TestRegister_DuplicateUsernameOrEmail(t *testing.T) {
	store := newTestStore(t)

	_, err := Register(store, "alice", "alice@example.com", "Alice", "senha123")
	require.NoError(t, err)

	_, err = Register(store, "alice", "outra@example.com", "Alice 2", "senha123")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = Register(store, "alice2", "alice@example.com", "Alice 2", "senha123")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	_, err := Register(store, "alice", "alice@example.com", "Alice", "senha123")
	require.NoError(t, err)

	user, err := Authenticate(store, "alice", "senha123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = Authenticate(store, "alice", "senha-errada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(store, "ninguem", "senha123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_DisabledUser(t *testing.T) {
	store := newTestStore(t)
	user, err := Register(store, "alice", "alice@example.com", "Alice", "senha123")
	require.NoError(t, err)

	require.NoError(t, store.DB.Model(&models.User{}).
		Where("id = ?", user.ID).Update("enabled", false).Error)

	_, err = Authenticate(store, "alice", "senha123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureLDAPUser_Provisions(t *testing.T) {
	store := newTestStore(t)

	user, err := EnsureLDAPUser(store, "carol", "Carol LDAP")
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
	// primeiro usuário do sistema, mesmo via LDAP
	assert.Equal(t, models.RoleAdmin, user.Roles[0].Name)

	again, err := EnsureLDAPUser(store, "carol", "Carol LDAP")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}
