package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"

	"github.com/example/helmdesk/backend/internal/audit"
	"github.com/example/helmdesk/backend/internal/authz"
	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/helm"
	"github.com/example/helmdesk/backend/internal/k8s"
	"github.com/example/helmdesk/backend/internal/metrics"
	"github.com/example/helmdesk/backend/internal/release"
)

// Server agrega as dependências dos handlers.
type Server struct {
	Cfg        *config.Config
	Store      *db.Store
	Resolver   *authz.Resolver
	Reconciler *release.Reconciler
	Cluster    kubernetes.Interface
	ClusterNS  *k8s.NamespaceClient
	Audit      *audit.Recorder
	Metrics    metrics.Recorder
	Log        *zap.Logger
}

// writeError traduz a taxonomia de erros para HTTP. Validação e
// autorização nunca chegam aqui depois de efeito colateral; falha de
// ferramenta externa é propagada com a mensagem original.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, authz.ErrNotFound),
		errors.Is(err, helm.ErrReleaseNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, release.ErrValidation),
		errors.Is(err, k8s.ErrUnsupportedKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, db.ErrBreakerOpen):
		s.Log.Error("breaker aberto", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		s.Log.Error("erro interno", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requireCluster devolve o clientset ou responde 503 quando o
// processo subiu sem acesso ao cluster.
func (s *Server) requireCluster(c *gin.Context) (kubernetes.Interface, bool) {
	if s.Cluster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cluster indisponível"})
		return nil, false
	}
	return s.Cluster, true
}
