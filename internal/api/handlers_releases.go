package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/models"
	"github.com/example/helmdesk/backend/internal/release"
)

type createReleaseRequest struct {
	ReleaseName  string `json:"releaseName" binding:"required"`
	ChartName    string `json:"chartName" binding:"required"`
	ChartVersion string `json:"chartVersion"`
	RepoURL      string `json:"repoUrl"`
	RepoName     string `json:"repoName"`
	RepoUsername string `json:"repoUsername"`
	RepoPassword string `json:"repoPassword"`
	Project      string `json:"project"`
	Namespace    string `json:"namespace" binding:"required"`
	Values       string `json:"values"`
}

type rollbackRequest struct {
	Namespace    string `json:"namespace" binding:"required"`
	Revision     int    `json:"revision" binding:"required"`
	Force        bool   `json:"force"`
	RecreatePods bool   `json:"recreatePods"`
}

func createReleaseHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		var req createReleaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		dep, err := s.Reconciler.Create(c.Request.Context(), ident, release.CreateRequest{
			ReleaseName:  req.ReleaseName,
			ChartName:    req.ChartName,
			ChartVersion: req.ChartVersion,
			RepoURL:      req.RepoURL,
			RepoName:     req.RepoName,
			RepoUsername: req.RepoUsername,
			RepoPassword: req.RepoPassword,
			ProjectName:  req.Project,
			Namespace:    req.Namespace,
			ValuesYAML:   req.Values,
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dep)
	}
}

func deleteReleaseHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		ns := c.Query("namespace")
		if ns == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "namespace é obrigatório"})
			return
		}
		if err := s.Reconciler.Delete(c.Request.Context(), ident, c.Param("name"), ns); err != nil {
			s.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func rollbackReleaseHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		var req rollbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido"})
			return
		}

		err := s.Reconciler.Rollback(c.Request.Context(), ident, release.RollbackRequest{
			ReleaseName:  c.Param("name"),
			Namespace:    req.Namespace,
			Revision:     req.Revision,
			Force:        req.Force,
			RecreatePods: req.RecreatePods,
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "rollback concluído", "revision": req.Revision})
	}
}

func listReleasesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		entries, err := s.Reconciler.List(c.Request.Context(), ident, c.Query("namespace"))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func releaseRecordsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)

		deps, err := s.Reconciler.Records(ident)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, deps)
	}
}

func releaseStatusHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		ns := c.Query("namespace")
		if ns == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "namespace é obrigatório"})
			return
		}

		info, err := s.Reconciler.Status(c.Request.Context(), ident, c.Param("name"), ns)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func releaseHistoryHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		ns := c.Query("namespace")
		if ns == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "namespace é obrigatório"})
			return
		}

		entries, err := s.Reconciler.History(c.Request.Context(), ident, c.Param("name"), ns)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func releaseValuesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		ns := c.Query("namespace")
		if ns == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "namespace é obrigatório"})
			return
		}
		all := strings.EqualFold(c.Query("all"), "true")

		values, err := s.Reconciler.Values(c.Request.Context(), ident, c.Param("name"), ns, all)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, values)
	}
}

func releaseNotesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		ns := c.Query("namespace")
		if ns == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "namespace é obrigatório"})
			return
		}

		notes, err := s.Reconciler.Notes(c.Request.Context(), ident, c.Param("name"), ns)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": notes})
	}
}

func releaseManifestHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.CurrentIdentity(c)
		ns := c.Query("namespace")
		if ns == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "namespace é obrigatório"})
			return
		}

		manifest, err := s.Reconciler.Manifest(c.Request.Context(), ident, c.Param("name"), ns)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.String(http.StatusOK, manifest)
	}
}

func searchChartsHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := s.Reconciler.Search(c.Request.Context(), c.Query("q"))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func listRepositoriesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var repos []models.HelmRepository
		err := s.Store.Do(func(gdb *gorm.DB) error {
			return gdb.Order("name").Find(&repos).Error
		})
		if err != nil {
			s.writeError(c, err)
			return
		}
		// credenciais nunca são serializadas (json:"-")
		c.JSON(http.StatusOK, repos)
	}
}
