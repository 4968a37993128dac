package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/metrics"
	"github.com/example/helmdesk/backend/internal/models"
)

// RegisterRoutes registra todas as rotas /api/v1.
func RegisterRoutes(r *gin.Engine, s *Server) {
	r.Use(RequestID(), Observe(s.Metrics))

	api := r.Group("/api/v1")

	// Auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", signupHandler(s))
		authGroup.POST("/login", loginHandler(s))
		authGroup.GET("/me", auth.Middleware(s.Store, s.Cfg), meHandler())
	}

	protected := api.Group("")
	protected.Use(auth.Middleware(s.Store, s.Cfg))

	// Projetos
	projectGroup := protected.Group("/projects")
	{
		projectGroup.GET("", listProjectsHandler(s))
		projectGroup.POST("", createProjectHandler(s))
		projectGroup.GET("/:name", getProjectHandler(s))
		projectGroup.DELETE("/:name", deleteProjectHandler(s))
	}

	// Namespaces e recursos do cluster
	nsGroup := protected.Group("/namespaces")
	{
		nsGroup.GET("", listNamespacesHandler(s))
		nsGroup.POST("", createNamespaceHandler(s))
		nsGroup.DELETE("/:name", deleteNamespaceHandler(s))
		nsGroup.GET("/:name/resources/:kind", listResourcesHandler(s))
		nsGroup.GET("/:name/resources/:kind/:resname/yaml", resourceYAMLHandler(s))
		nsGroup.DELETE("/:name/resources/:kind/:resname", deleteResourceHandler(s))
		nsGroup.GET("/:name/pods/:pod/logs", podLogsHandler(s))
	}

	// Releases do Helm
	releaseGroup := protected.Group("/releases")
	{
		releaseGroup.POST("", createReleaseHandler(s))
		releaseGroup.GET("", listReleasesHandler(s))
		releaseGroup.GET("/records", releaseRecordsHandler(s))
		releaseGroup.DELETE("/:name", deleteReleaseHandler(s))
		releaseGroup.POST("/:name/rollback", rollbackReleaseHandler(s))
		releaseGroup.GET("/:name/status", releaseStatusHandler(s))
		releaseGroup.GET("/:name/history", releaseHistoryHandler(s))
		releaseGroup.GET("/:name/values", releaseValuesHandler(s))
		releaseGroup.GET("/:name/notes", releaseNotesHandler(s))
		releaseGroup.GET("/:name/manifest", releaseManifestHandler(s))
	}
	protected.GET("/charts/search", searchChartsHandler(s))

	// Repositórios de chart (só leitura; criados pelo fluxo de release)
	protected.GET("/repositories", auth.RequireRole(models.RoleAdmin), listRepositoriesHandler(s))

	// Administração de usuários
	userGroup := protected.Group("/users", auth.RequireRole(models.RoleAdmin))
	{
		userGroup.GET("", listUsersHandler(s))
		userGroup.PATCH("/:id/enabled", setUserEnabledHandler(s))
	}

	// Auditoria
	auditGroup := protected.Group("/audit")
	{
		auditGroup.GET("", auth.RequireRole(models.RoleAdmin), listAuditHandler(s))
		auditGroup.GET("/mine", myAuditHandler(s))
	}

	// Healthcheck e métricas ficam fora da autenticação
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if p, ok := s.Metrics.(*metrics.Prometheus); ok {
		r.GET("/metrics", gin.WrapH(p.Handler()))
	}
}
