package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/models"
)

const identityKey = "identity"

// Identity é o resultado da autenticação: o registro vivo do usuário
// e os nomes dos papéis atribuídos a ele.
type Identity struct {
	User  *models.User
	Roles []string
}

// HasRole diz se a identidade carrega o papel informado.
func (i *Identity) HasRole(name string) bool {
	for _, r := range i.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// IsAdmin é atalho para o papel global de administrador.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(models.RoleAdmin)
}

// Middleware valida o JWT do header Authorization e resolve a
// identidade contra o banco. Qualquer falha rejeita a requisição
// antes da lógica de negócio; nunca segue com identidade parcial.
func Middleware(store *db.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token ausente"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "formato de token inválido"})
			return
		}
		claims, err := ParseToken(parts[1], cfg)
		if err != nil {
			msg := "token inválido"
			if errors.Is(err, ErrExpiredToken) {
				msg = "token expirado"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		// O token é apenas a porta de entrada: o usuário precisa
		// continuar existindo e habilitado.
		var user models.User
		err = store.Do(func(gdb *gorm.DB) error {
			return gdb.Preload("Roles").First(&user, claims.UserID).Error
		})
		if err != nil || !user.Enabled {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "usuário desconhecido ou desabilitado"})
			return
		}

		roles := make([]string, 0, len(user.Roles))
		for _, r := range user.Roles {
			roles = append(roles, r.Name)
		}

		c.Set(identityKey, &Identity{User: &user, Roles: roles})
		c.Next()
	}
}

// RequireRole garante que o usuário possui um dos papéis esperados.
func RequireRole(allowed ...string) gin.HandlerFunc {
	allowedSet := map[string]struct{}{}
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		ident := CurrentIdentity(c)
		if ident == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "sem contexto de usuário"})
			return
		}
		for _, r := range ident.Roles {
			if _, ok := allowedSet[r]; ok {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "acesso negado"})
	}
}

// CurrentIdentity recupera a identidade resolvida pelo Middleware.
func CurrentIdentity(c *gin.Context) *Identity {
	val, exists := c.Get(identityKey)
	if !exists {
		return nil
	}
	ident, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return ident
}
