package db

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/models"
)

// Open abre a conexão com PostgreSQL. O handle retornado é injetado
// nos componentes; não existe singleton de pacote.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// AutoMigrate executa as migrações automáticas dos modelos.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Project{},
		&models.Namespace{},
		&models.HelmRepository{},
		&models.Deployment{},
		&models.AuditLog{},
	)
}

// SeedRoles garante que os papéis "admin" e "user" existem.
func SeedRoles(gdb *gorm.DB) error {
	for _, name := range []string{models.RoleAdmin, models.RoleUser} {
		role := models.Role{Name: name}
		if err := gdb.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("erro ao semear papel %s: %w", name, err)
		}
	}
	return nil
}

// Close fecha a conexão com o banco (usado em testes / shutdown).
func Close(gdb *gorm.DB) {
	if gdb == nil {
		return
	}
	sqlDB, err := gdb.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

// Store reúne o handle do gorm e o circuit breaker. Toda operação
// relacional da aplicação passa por Do.
type Store struct {
	DB    *gorm.DB
	Guard *Guard
}

// NewStore cria um Store com o breaker padrão.
func NewStore(gdb *gorm.DB) *Store {
	return &Store{DB: gdb, Guard: NewGuard()}
}

// Do executa fn contra o banco protegido pelo breaker. Só falhas de
// infraestrutura contam para abrir o circuito: registro ausente ou
// chave duplicada são respostas do banco, não indisponibilidade.
func (s *Store) Do(fn func(*gorm.DB) error) error {
	var outcome error
	err := s.Guard.Call(func() error {
		err := fn(s.DB)
		if isOutcome(err) {
			outcome = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return outcome
}

// isOutcome separa resultados de negócio de erros de acesso.
func isOutcome(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, gorm.ErrDuplicatedKey)
}
