package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/helmdesk/backend/internal/api"
	"github.com/example/helmdesk/backend/internal/audit"
	"github.com/example/helmdesk/backend/internal/authz"
	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/helm"
	"github.com/example/helmdesk/backend/internal/k8s"
	"github.com/example/helmdesk/backend/internal/logger"
	"github.com/example/helmdesk/backend/internal/metrics"
	"github.com/example/helmdesk/backend/internal/release"
)

func main() {
	// Carrega variáveis de ambiente (.env em dev, env vars em prod)
	if err := config.LoadEnv(); err != nil {
		log.Printf("warn: erro ao carregar .env: %v", err)
	}
	cfg := config.New()

	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	// Conecta no banco e migra os modelos
	gdb, err := db.Open(cfg)
	if err != nil {
		zlog.Fatal("erro ao conectar no banco", zap.Error(err))
	}
	defer db.Close(gdb)

	if err := db.AutoMigrate(gdb); err != nil {
		zlog.Fatal("erro ao migrar modelos", zap.Error(err))
	}
	if err := db.SeedRoles(gdb); err != nil {
		zlog.Fatal("erro ao semear papéis", zap.Error(err))
	}

	store := db.NewStore(gdb)
	rec := metrics.NewPrometheus()
	store.Guard.OnOpen(rec.BreakerOpened)

	auditRec := audit.NewRecorder(store, zlog)
	resolver := authz.NewResolver(store)
	runner := helm.NewCLI(cfg.HelmBin, zlog)

	srv := &api.Server{
		Cfg:      cfg,
		Store:    store,
		Resolver: resolver,
		Audit:    auditRec,
		Metrics:  rec,
		Log:      zlog,
	}

	// Sem acesso ao cluster o servidor ainda sobe: as rotas que
	// precisam dele respondem 503.
	cs, err := k8s.NewClient()
	if err != nil {
		zlog.Warn("cluster indisponível, seguindo sem client Kubernetes", zap.Error(err))
	} else {
		srv.Cluster = cs
		srv.ClusterNS = k8s.NewNamespaceClient(cs)
	}

	var cluster release.ClusterNamespaces = noCluster{}
	if srv.ClusterNS != nil {
		cluster = srv.ClusterNS
	}
	srv.Reconciler = release.New(store, resolver, runner, cluster, auditRec, rec, zlog, cfg)

	r := gin.Default()
	api.RegisterRoutes(r, srv)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	zlog.Info("servidor iniciado", zap.String("port", port), zap.String("authMode", cfg.AuthMode))
	if err := r.Run(":" + port); err != nil {
		zlog.Error("erro ao subir servidor", zap.Error(err))
		os.Exit(1)
	}
}

// noCluster falha as operações de namespace quando o processo subiu
// sem acesso ao cluster.
type noCluster struct{}

func (noCluster) Ensure(_ context.Context, name string) error {
	return fmt.Errorf("cluster indisponível: não foi possível garantir o namespace %s", name)
}
