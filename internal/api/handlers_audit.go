package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/models"
)

func listAuditHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := s.Audit.All(queryLimit(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func myAuditHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		entries, err := s.Audit.ByActor(ident.User.ID, queryLimit(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func listUsersHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		err := s.Store.Do(func(gdb *gorm.DB) error {
			return gdb.Preload("Roles").Order("username").Find(&users).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// setUserEnabledHandler habilita ou desabilita uma conta. Contas
// nunca são removidas.
func setUserEnabledHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
			return
		}

		var req setEnabledRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		var user models.User
		err = s.Store.Do(func(gdb *gorm.DB) error {
			if err := gdb.First(&user, id).Error; err != nil {
				return err
			}
			return gdb.Model(&user).Update("enabled", *req.Enabled).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}

		action := "user.disable"
		if *req.Enabled {
			action = "user.enable"
		}
		s.Audit.Record(auditEntry(ident.User.ID, action, "user", user.ID, user.Username, "", ""))
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "enabled": *req.Enabled})
	}
}

func queryLimit(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		return v
	}
	return 0
}
