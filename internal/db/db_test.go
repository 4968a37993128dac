package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/helmdesk/backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb))
	return NewStore(gdb)
}

func TestStoreDo_NotFoundDoesNotTripBreaker(t *testing.T) {
	store := newTestStore(t)

	// cinco consultas por usuário inexistente num banco saudável
	for i := 0; i < 5; i++ {
		var user models.User
		err := store.Do(func(gdb *gorm.DB) error {
			return gdb.Where("username = ?", "fantasma").First(&user).Error
		})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}

	// o circuito segue fechado: a próxima consulta funciona
	var count int64
	err := store.Do(func(gdb *gorm.DB) error {
		return gdb.Model(&models.User{}).Count(&count).Error
	})
	assert.NoError(t, err)
}

func TestStoreDo_DuplicatedKeyDoesNotTripBreaker(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		err := store.Do(func(*gorm.DB) error {
			return gorm.ErrDuplicatedKey
		})
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	}

	var count int64
	err := store.Do(func(gdb *gorm.DB) error {
		return gdb.Model(&models.User{}).Count(&count).Error
	})
	assert.NoError(t, err)
}

func TestStoreDo_InfrastructureErrorsStillTrip(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		err := store.Do(func(*gorm.DB) error {
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
	}

	err := store.Do(func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
}
