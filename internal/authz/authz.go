// Package authz resolve a posse de projetos e namespaces.
//
// A invariante central: um nome de namespace pertence a no máximo um
// usuário. Reivindicado uma vez, nenhum outro usuário opera sobre ele,
// mesmo através de projetos diferentes. Administradores ignoram as
// checagens de dono.
package authz

import (
	"errors"

	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/models"
)

var (
	// ErrNotFound cobre projeto inexistente ou que não pertence ao
	// chamador (sem revelar qual dos dois).
	ErrNotFound = errors.New("projeto ou namespace não encontrado")
	// ErrForbidden indica namespace reivindicado por outro usuário.
	ErrForbidden = errors.New("namespace pertence a outro usuário")
)

// Resolver consulta posse no banco. Não faz nenhuma mutação.
type Resolver struct {
	store *db.Store
}

// NewResolver cria um Resolver sobre o Store dado.
func NewResolver(store *db.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve autoriza o chamador a operar sobre (projeto?, namespace).
//
// Se projectName é informado, o projeto precisa existir e pertencer ao
// chamador. O namespace é buscado pelo nome globalmente: se existe com
// outro dono, ErrForbidden; se não existe, retorna nil para que o
// chamador possa criá-lo.
func (r *Resolver) Resolve(ident *auth.Identity, projectName, namespaceName string) (*models.Project, *models.Namespace, error) {
	var project *models.Project

	if projectName != "" {
		var p models.Project
		err := r.store.Do(func(gdb *gorm.DB) error {
			q := gdb.Where("name = ?", projectName)
			if !ident.IsAdmin() {
				q = q.Where("owner_id = ?", ident.User.ID)
			}
			return q.First(&p).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrNotFound
			}
			return nil, nil, err
		}
		project = &p
	}

	if namespaceName == "" {
		return project, nil, nil
	}

	var ns models.Namespace
	err := r.store.Do(func(gdb *gorm.DB) error {
		return gdb.Where("name = ?", namespaceName).First(&ns).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return project, nil, nil
		}
		return nil, nil, err
	}
	if !ident.IsAdmin() && ns.OwnerID != ident.User.ID {
		return nil, nil, ErrForbidden
	}
	return project, &ns, nil
}

// ResolveExisting é como Resolve, mas exige que o namespace já tenha
// sido registrado; usado por operações que não criam nada.
func (r *Resolver) ResolveExisting(ident *auth.Identity, projectName, namespaceName string) (*models.Project, *models.Namespace, error) {
	project, ns, err := r.Resolve(ident, projectName, namespaceName)
	if err != nil {
		return nil, nil, err
	}
	if namespaceName != "" && ns == nil {
		return nil, nil, ErrNotFound
	}
	return project, ns, nil
}
