// Package audit mantém a trilha imutável de ações mutantes.
package audit

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/models"
)

// Recorder grava entradas de auditoria. A gravação é fire-and-forget:
// falha no append é logada e engolida, nunca desfaz a ação primária.
type Recorder struct {
	store *db.Store
	log   *zap.Logger
}

// NewRecorder cria o Recorder.
func NewRecorder(store *db.Store, log *zap.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Entry descreve quem fez o quê.
type Entry struct {
	ActorID      uint
	Action       string
	ResourceKind string
	ResourceID   uint
	ResourceName string
	ProjectName  string
	Details      string
}

// Record anexa a entrada fora da transação primária.
func (r *Recorder) Record(e Entry) {
	row := models.AuditLog{
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceKind: e.ResourceKind,
		ResourceID:   e.ResourceID,
		ResourceName: e.ResourceName,
		ProjectName:  e.ProjectName,
		Details:      e.Details,
	}
	err := r.store.Do(func(gdb *gorm.DB) error {
		return gdb.Create(&row).Error
	})
	if err != nil {
		r.log.Warn("falha ao gravar auditoria",
			zap.String("action", e.Action),
			zap.String("resource", e.ResourceName),
			zap.Error(err))
	}
}

// ByActor lista as entradas de um usuário, mais recentes primeiro.
func (r *Recorder) ByActor(actorID uint, limit int) ([]models.AuditLog, error) {
	return r.query(func(gdb *gorm.DB) *gorm.DB {
		return gdb.Where("actor_id = ?", actorID)
	}, limit)
}

// ByResource lista as entradas de um recurso específico.
func (r *Recorder) ByResource(kind string, id uint, limit int) ([]models.AuditLog, error) {
	return r.query(func(gdb *gorm.DB) *gorm.DB {
		return gdb.Where("resource_kind = ? AND resource_id = ?", kind, id)
	}, limit)
}

// All lista todas as entradas (rota restrita a admin).
func (r *Recorder) All(limit int) ([]models.AuditLog, error) {
	return r.query(func(gdb *gorm.DB) *gorm.DB { return gdb }, limit)
}

func (r *Recorder) query(scope func(*gorm.DB) *gorm.DB, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.AuditLog
	err := r.store.Do(func(gdb *gorm.DB) error {
		return scope(gdb.Model(&models.AuditLog{})).
			Order("created_at DESC").Limit(limit).Find(&entries).Error
	})
	return entries, err
}
