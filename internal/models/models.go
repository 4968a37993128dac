package models

import (
	"regexp"
	"time"
)

// Papéis garantidos no início do processo.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Status possíveis de um registro de release.
const (
	StatusDeployed = "deployed"
	StatusDeleted  = "deleted"
)

// namePattern segue a regra de nomes do cluster (DNS-1123 label).
var namePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidName diz se o nome pode ser usado como nome de projeto,
// namespace ou release no cluster.
func ValidName(name string) bool {
	return len(name) > 0 && len(name) <= 63 && namePattern.MatchString(name)
}

// User representa uma conta local. Contas nunca são removidas,
// apenas desabilitadas por um admin.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:128" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:256" json:"email"`
	DisplayName  string    `gorm:"size:256" json:"displayName"`
	PasswordHash string    `gorm:"size:256" json:"-"`
	Enabled      bool      `gorm:"default:true" json:"enabled"`
	Roles        []Role    `gorm:"many2many:user_roles" json:"roles,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Role é uma etiqueta de capacidade ("admin", "user").
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:32" json:"name"`
}

// Project agrupa namespaces e releases de um único dono.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:63" json:"name"`
	Description string    `gorm:"size:512" json:"description"`
	OwnerID     uint      `gorm:"index;not null" json:"ownerId"`
	Owner       User      `gorm:"foreignKey:OwnerID" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Namespace registra a posse de um namespace do cluster.
// Invariante: o nome é global e pertence a no máximo um usuário.
type Namespace struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:63" json:"name"`
	OwnerID   uint      `gorm:"index;not null" json:"ownerId"`
	Owner     User      `gorm:"foreignKey:OwnerID" json:"-"`
	ProjectID *uint     `gorm:"index" json:"projectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HelmRepository espelha um repositório adicionado à configuração
// local do Helm. Credenciais ficam cifradas com AES-GCM.
type HelmRepository struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"uniqueIndex;size:128" json:"name"`
	URL               string    `gorm:"size:512;index" json:"url"`
	EncryptedUsername []byte    `gorm:"type:bytea" json:"-"`
	EncryptedPassword []byte    `gorm:"type:bytea" json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Deployment é o registro local de uma release do Helm.
// No máximo um registro ativo por (release, namespace); delete marca
// inativo em vez de remover a linha.
type Deployment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectName   string    `gorm:"size:63" json:"projectName"`
	ReleaseName   string    `gorm:"size:63;index" json:"releaseName"`
	ChartName     string    `gorm:"size:128" json:"chartName"`
	ChartVersion  string    `gorm:"size:64" json:"chartVersion"`
	RepoURL       string    `gorm:"size:512" json:"repoUrl"`
	NamespaceID   uint      `gorm:"index" json:"namespaceId"`
	NamespaceName string    `gorm:"size:63;index" json:"namespaceName"`
	Values        string    `gorm:"type:text" json:"values,omitempty"`
	Revision      int       `json:"revision"`
	Active        bool      `gorm:"index" json:"active"`
	Status        string    `gorm:"size:32" json:"status"`
	OwnerID       uint      `gorm:"index;not null" json:"ownerId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AuditLog é um registro imutável de quem fez o quê.
// Nunca é alterado ou removido pelo sistema.
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActorID      uint      `gorm:"index" json:"actorId"`
	Action       string    `gorm:"size:64" json:"action"`
	ResourceKind string    `gorm:"size:32;index" json:"resourceKind"`
	ResourceID   uint      `gorm:"index" json:"resourceId"`
	ResourceName string    `gorm:"size:128" json:"resourceName"`
	ProjectName  string    `gorm:"size:63" json:"projectName,omitempty"`
	Details      string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}
