package authz

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/helmdesk/backend/internal/auth"
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

func createUser(t *testing.T, store *db.Store, username string, roles ...string) *auth.Identity {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Enabled: true}
	require.NoError(t, store.DB.Create(&user).Error)
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	return &auth.Identity{User: &user, Roles: roles}
}

func TestResolve_ProjectOwnership(t *testing.T) {
	store := newTestStore(t)
	r := NewResolver(store)

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	require.NoError(t, store.DB.Create(&models.Project{Name: "loja", OwnerID: alice.User.ID}).Error)

	project, _, err := r.Resolve(alice, "loja", "")
	require.NoError(t, err)
	assert.Equal(t, "loja", project.Name)

	// projeto alheio se comporta como inexistente
	_, _, err = r.Resolve(bob, "loja", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = r.Resolve(alice, "nao-existe", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_NamespaceSingleOwner(t *testing.T) {
	store := newTestStore(t)
	r := NewResolver(store)

	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	require.NoError(t, store.DB.Create(&models.Namespace{Name: "prod", OwnerID: alice.User.ID}).Error)

	// dono opera normalmente
	_, ns, err := r.Resolve(alice, "", "prod")
	require.NoError(t, err)
	require.NotNil(t, ns)
	assert.Equal(t, alice.User.ID, ns.OwnerID)

	// qualquer outro usuário é barrado, independente de projeto
	_, _, err = r.Resolve(bob, "", "prod")
	assert.ErrorIs(t, err, ErrForbidden)

	// namespace ainda não reivindicado volta nil para ser criado
	_, ns, err = r.Resolve(bob, "", "novo")
	require.NoError(t, err)
	assert.Nil(t, ns)
}

func TestResolve_AdminBypass(t *testing.T) {
	store := newTestStore(t)
	r := NewResolver(store)

	alice := createUser(t, store, "alice")
	admin := createUser(t, store, "root", models.RoleAdmin)
	require.NoError(t, store.DB.Create(&models.Project{Name: "loja", OwnerID: alice.User.ID}).Error)
	require.NoError(t, store.DB.Create(&models.Namespace{Name: "prod", OwnerID: alice.User.ID}).Error)

	project, ns, err := r.Resolve(admin, "loja", "prod")
	require.NoError(t, err)
	assert.Equal(t, "loja", project.Name)
	require.NotNil(t, ns)
	assert.Equal(t, "prod", ns.Name)
}

func TestResolveExisting_RequiresNamespace(t *testing.T) {
	store := newTestStore(t)
	r := NewResolver(store)
	alice := createUser(t, store, "alice")

	_, _, err := r.ResolveExisting(alice, "", "fantasma")
	assert.ErrorIs(t, err, ErrNotFound)
}
