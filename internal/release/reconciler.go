// Package release orquestra o ciclo de vida de releases do Helm e
// mantém o registro local (tabela deployments) em sincronia com o
// cluster, tolerando falha parcial entre os dois.
package release

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/example/helmdesk/backend/internal/audit"
	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/authz"
	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/crypto"
	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/helm"
	"github.com/example/helmdesk/backend/internal/metrics"
	"github.com/example/helmdesk/backend/internal/models"
)

// ErrValidation cobre entrada malformada rejeitada antes de qualquer
// chamada externa.
var ErrValidation = errors.New("entrada inválida")

// ClusterNamespaces é a fatia do cluster que o reconciliador precisa.
type ClusterNamespaces interface {
	Ensure(ctx context.Context, name string) error
}

// Reconciler dirige create/upgrade/rollback/delete contra o Helm e o
// banco. Ordem garantida no create: repositório registrado antes do
// install, namespace garantido antes dos dois.
type Reconciler struct {
	store    *db.Store
	resolver *authz.Resolver
	helm     helm.Runner
	cluster  ClusterNamespaces
	audit    *audit.Recorder
	metrics  metrics.Recorder
	log      *zap.Logger

	aesKey     []byte
	autoCreate bool
}

// New monta o Reconciler com as dependências injetadas.
func New(store *db.Store, resolver *authz.Resolver, runner helm.Runner,
	cluster ClusterNamespaces, auditRec *audit.Recorder, rec metrics.Recorder,
	log *zap.Logger, cfg *config.Config) *Reconciler {
	return &Reconciler{
		store:      store,
		resolver:   resolver,
		helm:       runner,
		cluster:    cluster,
		audit:      auditRec,
		metrics:    rec,
		log:        log,
		aesKey:     cfg.AESKey,
		autoCreate: cfg.AutoCreateNamespace,
	}
}

// CreateRequest parametriza a criação (ou upgrade) de uma release.
type CreateRequest struct {
	ReleaseName  string
	ChartName    string
	ChartVersion string
	RepoURL      string
	RepoName     string
	RepoUsername string
	RepoPassword string
	ProjectName  string
	Namespace    string
	ValuesYAML   string
}

// Create instala a release (ou atualiza, se já existe) e persiste o
// registro local. Falhas antes do install não escrevem registro;
// falha no install também não, e os registros de repositório e
// namespace criados antes permanecem (inconsistência aceita).
func (r *Reconciler) Create(ctx context.Context, ident *auth.Identity, req CreateRequest) (*models.Deployment, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	project, nsRec, err := r.resolver.Resolve(ident, req.ProjectName, req.Namespace)
	if err != nil {
		return nil, err
	}

	// Namespace primeiro: falha aqui não deixa linha de repositório
	// para trás.
	if r.autoCreate {
		if err := r.cluster.Ensure(ctx, req.Namespace); err != nil {
			return nil, err
		}
	}
	if nsRec == nil {
		nsRec = &models.Namespace{Name: req.Namespace, OwnerID: ident.User.ID}
		if project != nil {
			nsRec.ProjectID = &project.ID
		}
		err := r.store.Do(func(gdb *gorm.DB) error {
			return gdb.Create(nsRec).Error
		})
		if err != nil {
			return nil, err
		}
	}

	chartRef := req.ChartName
	if req.RepoURL != "" {
		repoName, err := r.ensureRepo(ctx, req)
		if err != nil {
			return nil, err
		}
		chartRef = repoName + "/" + req.ChartName
	}

	info, err := r.helm.UpgradeInstall(ctx, req.ReleaseName, chartRef, helm.InstallOptions{
		Namespace:    req.Namespace,
		ChartVersion: req.ChartVersion,
		ValuesYAML:   req.ValuesYAML,
	})
	if err != nil {
		r.metrics.ReleaseOperation("create", false)
		return nil, err
	}

	dep, err := r.upsertRecord(ident, project, nsRec, req, info)
	if err != nil {
		r.metrics.ReleaseOperation("create", false)
		return nil, err
	}

	r.metrics.ReleaseOperation("create", true)
	r.audit.Record(audit.Entry{
		ActorID:      ident.User.ID,
		Action:       "release.create",
		ResourceKind: "deployment",
		ResourceID:   dep.ID,
		ResourceName: req.ReleaseName,
		ProjectName:  req.ProjectName,
		Details:      fmt.Sprintf("chart=%s revisão=%d namespace=%s", chartRef, dep.Revision, req.Namespace),
	})
	return dep, nil
}

// Delete desinstala a release e marca o registro como inativo.
// Release já ausente no cluster conta como sucesso idempotente.
func (r *Reconciler) Delete(ctx context.Context, ident *auth.Identity, releaseName, namespace string) error {
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return err
	}

	if err := r.helm.Uninstall(ctx, releaseName, namespace); err != nil {
		if !errors.Is(err, helm.ErrReleaseNotFound) {
			r.metrics.ReleaseOperation("delete", false)
			return err
		}
		r.log.Info("release já ausente no cluster, seguindo",
			zap.String("release", releaseName), zap.String("namespace", namespace))
	}

	// O registro vira inativo; a linha nunca é removida. O namespace
	// do cluster não é tocado por este caminho.
	err := r.store.Do(func(gdb *gorm.DB) error {
		return gdb.Model(&models.Deployment{}).
			Where("release_name = ? AND namespace_name = ? AND active", releaseName, namespace).
			Updates(map[string]interface{}{
				"active": false,
				"status": models.StatusDeleted,
			}).Error
	})
	if err != nil {
		r.metrics.ReleaseOperation("delete", false)
		return err
	}

	r.metrics.ReleaseOperation("delete", true)
	r.audit.Record(audit.Entry{
		ActorID:      ident.User.ID,
		Action:       "release.delete",
		ResourceKind: "deployment",
		ResourceName: releaseName,
		Details:      "namespace=" + namespace,
	})
	return nil
}

// RollbackRequest parametriza o rollback de uma release.
type RollbackRequest struct {
	ReleaseName  string
	Namespace    string
	Revision     int
	Force        bool
	RecreatePods bool
}

// Rollback volta a release para a revisão pedida. Apenas o updated_at
// do registro é tocado; revisão e status ficam como estavam.
func (r *Reconciler) Rollback(ctx context.Context, ident *auth.Identity, req RollbackRequest) error {
	if req.Revision <= 0 {
		return fmt.Errorf("%w: revisão de destino obrigatória", ErrValidation)
	}
	if _, _, err := r.resolver.ResolveExisting(ident, "", req.Namespace); err != nil {
		return err
	}

	err := r.helm.Rollback(ctx, req.ReleaseName, helm.RollbackOptions{
		Namespace:    req.Namespace,
		Revision:     req.Revision,
		Force:        req.Force,
		RecreatePods: req.RecreatePods,
	})
	if err != nil {
		r.metrics.ReleaseOperation("rollback", false)
		return err
	}

	err = r.store.Do(func(gdb *gorm.DB) error {
		return gdb.Model(&models.Deployment{}).
			Where("release_name = ? AND namespace_name = ? AND active", req.ReleaseName, req.Namespace).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		r.metrics.ReleaseOperation("rollback", false)
		return err
	}

	r.metrics.ReleaseOperation("rollback", true)
	r.audit.Record(audit.Entry{
		ActorID:      ident.User.ID,
		Action:       "release.rollback",
		ResourceKind: "deployment",
		ResourceName: req.ReleaseName,
		Details:      fmt.Sprintf("namespace=%s revisão=%d", req.Namespace, req.Revision),
	})
	return nil
}

// Status retorna o estado vivo da release.
func (r *Reconciler) Status(ctx context.Context, ident *auth.Identity, releaseName, namespace string) (*helm.ReleaseInfo, error) {
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return nil, err
	}
	return r.helm.Status(ctx, releaseName, namespace)
}

// History lista as revisões da release.
func (r *Reconciler) History(ctx context.Context, ident *auth.Identity, releaseName, namespace string) ([]helm.HistoryEntry, error) {
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return nil, err
	}
	return r.helm.History(ctx, releaseName, namespace)
}

// Values retorna os values aplicados na release.
func (r *Reconciler) Values(ctx context.Context, ident *auth.Identity, releaseName, namespace string, all bool) (map[string]interface{}, error) {
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return nil, err
	}
	return r.helm.Values(ctx, releaseName, namespace, all)
}

// Notes retorna as notas do chart instalado.
func (r *Reconciler) Notes(ctx context.Context, ident *auth.Identity, releaseName, namespace string) (string, error) {
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return "", err
	}
	return r.helm.Notes(ctx, releaseName, namespace)
}

// Manifest exporta os manifests renderizados da release.
func (r *Reconciler) Manifest(ctx context.Context, ident *auth.Identity, releaseName, namespace string) (string, error) {
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return "", err
	}
	return r.helm.Manifest(ctx, releaseName, namespace)
}

// List proxia `helm list` para um namespace do chamador; admins podem
// listar todos os namespaces passando vazio.
func (r *Reconciler) List(ctx context.Context, ident *auth.Identity, namespace string) ([]helm.ListEntry, error) {
	if namespace == "" {
		if !ident.IsAdmin() {
			return nil, authz.ErrForbidden
		}
		return r.helm.List(ctx, "")
	}
	if _, _, err := r.resolver.ResolveExisting(ident, "", namespace); err != nil {
		return nil, err
	}
	return r.helm.List(ctx, namespace)
}

// Search busca charts nos repositórios configurados.
func (r *Reconciler) Search(ctx context.Context, keyword string) ([]helm.ChartEntry, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: termo de busca obrigatório", ErrValidation)
	}
	return r.helm.SearchRepo(ctx, keyword)
}

// Records lista os registros locais de release do chamador (admins
// veem todos).
func (r *Reconciler) Records(ident *auth.Identity) ([]models.Deployment, error) {
	var deps []models.Deployment
	err := r.store.Do(func(gdb *gorm.DB) error {
		q := gdb.Model(&models.Deployment{}).Order("updated_at DESC")
		if !ident.IsAdmin() {
			q = q.Where("owner_id = ?", ident.User.ID)
		}
		return q.Find(&deps).Error
	})
	return deps, err
}

// ensureRepo resolve ou registra o repositório do chart. A linha de
// HelmRepository só é escrita depois que o repo add teve sucesso.
func (r *Reconciler) ensureRepo(ctx context.Context, req CreateRequest) (string, error) {
	var repo models.HelmRepository
	err := r.store.Do(func(gdb *gorm.DB) error {
		return gdb.Where("url = ?", req.RepoURL).First(&repo).Error
	})
	if err == nil {
		return repo.Name, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	name := req.RepoName
	if name == "" {
		name = repoNameFromURL(req.RepoURL)
	}

	var creds *helm.RepoCredentials
	if req.RepoUsername != "" {
		creds = &helm.RepoCredentials{Username: req.RepoUsername, Password: req.RepoPassword}
	}
	if err := r.helm.RepoAdd(ctx, name, req.RepoURL, creds); err != nil {
		return "", err
	}
	if err := r.helm.RepoUpdate(ctx); err != nil {
		return "", err
	}

	repo = models.HelmRepository{Name: name, URL: req.RepoURL}
	if req.RepoUsername != "" {
		encUser, err := crypto.Encrypt(r.aesKey, []byte(req.RepoUsername))
		if err != nil {
			return "", err
		}
		encPass, err := crypto.Encrypt(r.aesKey, []byte(req.RepoPassword))
		if err != nil {
			return "", err
		}
		repo.EncryptedUsername = encUser
		repo.EncryptedPassword = encPass
	}
	err = r.store.Do(func(gdb *gorm.DB) error {
		return gdb.Create(&repo).Error
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// upsertRecord converge o registro local: um único registro ativo por
// (release, namespace); criar de novo atualiza a revisão em vez de
// duplicar.
func (r *Reconciler) upsertRecord(ident *auth.Identity, project *models.Project,
	nsRec *models.Namespace, req CreateRequest, info *helm.ReleaseInfo) (*models.Deployment, error) {

	var dep models.Deployment
	err := r.store.Do(func(gdb *gorm.DB) error {
		err := gdb.Where("release_name = ? AND namespace_name = ? AND active",
			req.ReleaseName, req.Namespace).First(&dep).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			dep = models.Deployment{
				ReleaseName:   req.ReleaseName,
				NamespaceID:   nsRec.ID,
				NamespaceName: req.Namespace,
				OwnerID:       ident.User.ID,
				Active:        true,
			}
		}
		dep.ChartName = req.ChartName
		dep.ChartVersion = req.ChartVersion
		dep.RepoURL = req.RepoURL
		dep.Values = req.ValuesYAML
		dep.Revision = info.Revision
		dep.Status = models.StatusDeployed
		if project != nil {
			dep.ProjectName = project.Name
		}
		return gdb.Save(&dep).Error
	})
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

func validateCreate(req CreateRequest) error {
	if !models.ValidName(req.ReleaseName) {
		return fmt.Errorf("%w: nome de release fora do padrão", ErrValidation)
	}
	if !models.ValidName(req.Namespace) {
		return fmt.Errorf("%w: nome de namespace fora do padrão", ErrValidation)
	}
	if strings.TrimSpace(req.ChartName) == "" {
		return fmt.Errorf("%w: chart obrigatório", ErrValidation)
	}
	if req.ValuesYAML != "" {
		var v map[string]interface{}
		if err := sigsyaml.Unmarshal([]byte(req.ValuesYAML), &v); err != nil {
			return fmt.Errorf("%w: values YAML malformado", ErrValidation)
		}
	}
	return nil
}

// repoNameFromURL deriva um nome de repositório estável a partir da
// URL quando o chamador não informa um.
func repoNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "charts"
	}
	name := strings.ReplaceAll(u.Host, ".", "-")
	name = strings.ReplaceAll(name, ":", "-")
	return strings.ToLower(name)
}
