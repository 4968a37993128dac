package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/models"
)

type createNamespaceRequest struct {
	Name    string `json:"name" binding:"required"`
	Project string `json:"project"`
	// InCluster controla a criação do namespace no cluster junto com
	// o registro; o default é criar.
	InCluster *bool `json:"inCluster"`
}

func listNamespacesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		var namespaces []models.Namespace
		err := s.Store.Do(func(gdb *gorm.DB) error {
			q := gdb.Model(&models.Namespace{}).Order("name")
			if !ident.IsAdmin() {
				q = q.Where("owner_id = ?", ident.User.ID)
			}
			return q.Find(&namespaces).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, namespaces)
	}
}

func createNamespaceHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		var req createNamespaceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}
		if !models.ValidName(req.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nome de namespace fora do padrão (minúsculas, dígitos e hífens, até 63)"})
			return
		}

		project, existing, err := s.Resolver.Resolve(ident, req.Project, req.Name)
		if err != nil {
			s.writeError(c, err)
			return
		}
		if existing != nil {
			// já reivindicado pelo próprio chamador
			c.JSON(http.StatusOK, existing)
			return
		}

		inCluster := req.InCluster == nil || *req.InCluster
		if inCluster && s.Cfg.AutoCreateNamespace {
			if s.ClusterNS == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cluster indisponível"})
				return
			}
			if err := s.ClusterNS.Ensure(c.Request.Context(), req.Name); err != nil {
				s.writeError(c, err)
				return
			}
		}

		ns := models.Namespace{Name: req.Name, OwnerID: ident.User.ID}
		if project != nil {
			ns.ProjectID = &project.ID
		}
		err = s.Store.Do(func(gdb *gorm.DB) error {
			return gdb.Create(&ns).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}

		s.Audit.Record(auditEntry(ident.User.ID, "namespace.create", "namespace", ns.ID, ns.Name, req.Project, ""))
		c.JSON(http.StatusCreated, ns)
	}
}

func deleteNamespaceHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		_, ns, err := s.Resolver.ResolveExisting(ident, "", c.Param("name"))
		if err != nil {
			s.writeError(c, err)
			return
		}

		err = s.Store.Do(func(gdb *gorm.DB) error {
			return gdb.Delete(&models.Namespace{}, ns.ID).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}

		// Remoção do lado do cluster é best-effort: falha não desfaz
		// a remoção do registro.
		if s.ClusterNS != nil {
			if err := s.ClusterNS.Delete(c.Request.Context(), ns.Name); err != nil {
				s.Log.Warn("falha ao remover namespace do cluster",
					zap.String("namespace", ns.Name), zap.Error(err))
			}
		}

		s.Audit.Record(auditEntry(ident.User.ID, "namespace.delete", "namespace", ns.ID, ns.Name, "", ""))
		c.Status(http.StatusNoContent)
	}
}
