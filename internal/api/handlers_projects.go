package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/audit"
	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/models"
)

func auditEntry(actorID uint, action, kind string, resourceID uint, resourceName, projectName, details string) audit.Entry {
	return audit.Entry{
		ActorID:      actorID,
		Action:       action,
		ResourceKind: kind,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		ProjectName:  projectName,
		Details:      details,
	}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func listProjectsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		var projects []models.Project
		err := s.Store.Do(func(gdb *gorm.DB) error {
			q := gdb.Model(&models.Project{}).Order("name")
			if !ident.IsAdmin() {
				q = q.Where("owner_id = ?", ident.User.ID)
			}
			return q.Find(&projects).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, projects)
	}
}

func createProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		var req createProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}
		if !models.ValidName(req.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nome de projeto fora do padrão (minúsculas, dígitos e hífens, até 63)"})
			return
		}

		project := models.Project{
			Name:        req.Name,
			Description: req.Description,
			OwnerID:     ident.User.ID,
		}
		err := s.Store.Do(func(gdb *gorm.DB) error {
			var count int64
			if err := gdb.Model(&models.Project{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return gorm.ErrDuplicatedKey
			}
			return gdb.Create(&project).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "projeto já existe"})
				return
			}
			s.writeError(c, err)
			return
		}

		s.Audit.Record(auditEntry(ident.User.ID, "project.create", "project", project.ID, project.Name, project.Name, ""))
		c.JSON(http.StatusCreated, project)
	}
}

func getProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		project, _, err := s.Resolver.Resolve(ident, c.Param("name"), "")
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
	}
}

func deleteProjectHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		project, _, err := s.Resolver.Resolve(ident, c.Param("name"), "")
		if err != nil {
			s.writeError(c, err)
			return
		}

		// Remove a linha e desassocia os namespaces; namespaces do
		// cluster não são tocados neste caminho.
		err = s.Store.Do(func(gdb *gorm.DB) error {
			if err := gdb.Model(&models.Namespace{}).
				Where("project_id = ?", project.ID).
				Update("project_id", nil).Error; err != nil {
				return err
			}
			return gdb.Delete(&models.Project{}, project.ID).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}

		s.Audit.Record(auditEntry(ident.User.ID, "project.delete", "project", project.ID, project.Name, project.Name, ""))
		c.Status(http.StatusNoContent)
	}
}
