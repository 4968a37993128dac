package release

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/helmdesk/backend/internal/audit"
	"github.com/example/helmdesk/backend/internal/auth"
	"github.com/example/helmdesk/backend/internal/authz"
	"github.com/example/helmdesk/backend/internal/config"
	"github.com/example/helmdesk/backend/internal/db"
	"github.com/example/helmdesk/backend/internal/helm"
	"github.com/example/helmdesk/backend/internal/metrics"
	"github.com/example/helmdesk/backend/internal/models"
)

// fakeRunner simula o CLI do helm: cada install incrementa a revisão
// da release e registra a chamada. O log de eventos é compartilhado
// com o fakeCluster para conferir a ordem dos efeitos.
type fakeRunner struct {
	installs   int
	uninstalls int
	rollbacks  []helm.RollbackOptions
	repoAdds   []string
	revisions  map[string]int
	events     *[]string

	uninstallErr error
	installErr   error
}

func newFakeRunner(events *[]string) *fakeRunner {
	return &fakeRunner{revisions: map[string]int{}, events: events}
}

func (f *fakeRunner) RepoAdd(_ context.Context, name, url string, _ *helm.RepoCredentials) error {
	f.repoAdds = append(f.repoAdds, name+" "+url)
	*f.events = append(*f.events, "repo-add")
	return nil
}

func (f *fakeRunner) RepoUpdate(context.Context) error { return nil }

func (f *fakeRunner) UpgradeInstall(_ context.Context, release, _ string, opts helm.InstallOptions) (*helm.ReleaseInfo, error) {
	if f.installErr != nil {
		return nil, f.installErr
	}
	f.installs++
	*f.events = append(*f.events, "install")
	key := release + "/" + opts.Namespace
	f.revisions[key]++
	return &helm.ReleaseInfo{
		Name:      release,
		Namespace: opts.Namespace,
		Revision:  f.revisions[key],
		Status:    "deployed",
	}, nil
}

func (f *fakeRunner) Uninstall(_ context.Context, release, namespace string) error {
	f.uninstalls++
	if f.uninstallErr != nil {
		return f.uninstallErr
	}
	delete(f.revisions, release+"/"+namespace)
	return nil
}

func (f *fakeRunner) Rollback(_ context.Context, _ string, opts helm.RollbackOptions) error {
	f.rollbacks = append(f.rollbacks, opts)
	return nil
}

func (f *fakeRunner) Status(_ context.Context, release, namespace string) (*helm.ReleaseInfo, error) {
	return &helm.ReleaseInfo{Name: release, Namespace: namespace,
		Revision: f.revisions[release+"/"+namespace], Status: "deployed"}, nil
}

func (f *fakeRunner) History(context.Context, string, string) ([]helm.HistoryEntry, error) {
	return nil, nil
}

func (f *fakeRunner) Values(context.Context, string, string, bool) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (f *fakeRunner) Notes(context.Context, string, string) (string, error)    { return "", nil }
func (f *fakeRunner) Manifest(context.Context, string, string) (string, error) { return "", nil }

func (f *fakeRunner) List(context.Context, string) ([]helm.ListEntry, error) { return nil, nil }

func (f *fakeRunner) SearchRepo(context.Context, string) ([]helm.ChartEntry, error) {
	return nil, nil
}

// fakeCluster registra os namespaces garantidos no cluster.
type fakeCluster struct {
	ensured   []string
	events    *[]string
	ensureErr error
}

func (f *fakeCluster) Ensure(_ context.Context, name string) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.ensured = append(f.ensured, name)
	*f.events = append(*f.events, "ensure-namespace")
	return nil
}

type fixture struct {
	store   *db.Store
	runner  *fakeRunner
	cluster *fakeCluster
	events  *[]string
	rec     *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	require.NoError(t, db.SeedRoles(gdb))

	store := db.NewStore(gdb)
	events := &[]string{}
	runner := newFakeRunner(events)
	cluster := &fakeCluster{events: events}
	log := zap.NewNop()
	cfg := &config.Config{
		AESKey:              []byte("0123456789abcdef0123456789abcdef"),
		AutoCreateNamespace: true,
	}
	rec := New(store, authz.NewResolver(store), runner, cluster,
		audit.NewRecorder(store, log), metrics.Nop{}, log, cfg)
	return &fixture{store: store, runner: runner, cluster: cluster, events: events, rec: rec}
}

func (fx *fixture) user(t *testing.T, username string, roles ...string) *auth.Identity {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Enabled: true}
	require.NoError(t, fx.store.DB.Create(&u).Error)
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	return &auth.Identity{User: &u, Roles: roles}
}

func baseRequest() CreateRequest {
	return CreateRequest{
		ReleaseName: "minha-api",
		ChartName:   "api",
		RepoURL:     "https://charts.example.com",
		Namespace:   "prod",
	}
}

func TestCreate_FirstInstall(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	dep, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, dep.Revision)
	assert.True(t, dep.Active)
	assert.Equal(t, models.StatusDeployed, dep.Status)
	assert.Equal(t, alice.User.ID, dep.OwnerID)

	// namespace garantido no cluster e reivindicado no banco
	assert.Equal(t, []string{"prod"}, fx.cluster.ensured)
	var ns models.Namespace
	require.NoError(t, fx.store.DB.Where("name = ?", "prod").First(&ns).Error)
	assert.Equal(t, alice.User.ID, ns.OwnerID)

	// repositório registrado uma única vez, antes do install
	var repoCount int64
	require.NoError(t, fx.store.DB.Model(&models.HelmRepository{}).Count(&repoCount).Error)
	assert.EqualValues(t, 1, repoCount)
	require.Len(t, fx.runner.repoAdds, 1)
	assert.Contains(t, fx.runner.repoAdds[0], "https://charts.example.com")

	// ordem dos efeitos: namespace antes do repositório, install por último
	assert.Equal(t, []string{"ensure-namespace", "repo-add", "install"}, *fx.events)
}

func TestCreate_NamespaceEnsureFailureLeavesNoResidue(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	fx.cluster.ensureErr = errors.New("sem permissão no cluster")
	_, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.Error(t, err)

	// nada foi persistido nem chegou ao helm
	var repoCount, nsCount, depCount int64
	require.NoError(t, fx.store.DB.Model(&models.HelmRepository{}).Count(&repoCount).Error)
	require.NoError(t, fx.store.DB.Model(&models.Namespace{}).Count(&nsCount).Error)
	require.NoError(t, fx.store.DB.Model(&models.Deployment{}).Count(&depCount).Error)
	assert.EqualValues(t, 0, repoCount)
	assert.EqualValues(t, 0, nsCount)
	assert.EqualValues(t, 0, depCount)
	assert.Empty(t, fx.runner.repoAdds)
	assert.Equal(t, 0, fx.runner.installs)
}

func TestCreate_IdempotentConvergesSingleRecord(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	first, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)
	second, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	// mesmo registro, revisão estritamente crescente
	assert.Equal(t, first.ID, second.ID)
	assert.Greater(t, second.Revision, first.Revision)

	var active int64
	require.NoError(t, fx.store.DB.Model(&models.Deployment{}).
		Where("release_name = ? AND namespace_name = ? AND active", "minha-api", "prod").
		Count(&active).Error)
	assert.EqualValues(t, 1, active)

	// o repositório não é readicionado
	assert.Len(t, fx.runner.repoAdds, 1)
}

func TestCreate_NamespaceOwnedByOther(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")

	_, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	req := baseRequest()
	req.ReleaseName = "api-do-bob"
	_, err = fx.rec.Create(context.Background(), bob, req)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	// nada chegou ao helm na tentativa barrada
	assert.Equal(t, 1, fx.runner.installs)
}

func TestCreate_Validation(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	req := baseRequest()
	req.ReleaseName = "Nome_Inválido"
	_, err := fx.rec.Create(context.Background(), alice, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = baseRequest()
	req.ChartName = " "
	_, err = fx.rec.Create(context.Background(), alice, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = baseRequest()
	req.ValuesYAML = "não: [é: yaml"
	_, err = fx.rec.Create(context.Background(), alice, req)
	assert.ErrorIs(t, err, ErrValidation)

	// entrada inválida nunca toca o cluster
	assert.Empty(t, fx.cluster.ensured)
	assert.Equal(t, 0, fx.runner.installs)
}

func TestCreate_RepoWithCredentialsEncrypted(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	req := baseRequest()
	req.RepoUsername = "svc"
	req.RepoPassword = "segredo"
	_, err := fx.rec.Create(context.Background(), alice, req)
	require.NoError(t, err)

	var repo models.HelmRepository
	require.NoError(t, fx.store.DB.First(&repo).Error)
	assert.NotEmpty(t, repo.EncryptedUsername)
	assert.NotEmpty(t, repo.EncryptedPassword)
	assert.NotContains(t, string(repo.EncryptedPassword), "segredo")
}

func TestDelete_MarksRecordInactive(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	dep, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	require.NoError(t, fx.rec.Delete(context.Background(), alice, "minha-api", "prod"))

	var got models.Deployment
	require.NoError(t, fx.store.DB.First(&got, dep.ID).Error)
	assert.False(t, got.Active)
	assert.Equal(t, models.StatusDeleted, got.Status)
}

func TestDelete_MissingReleaseIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	_, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	fx.runner.uninstallErr = helm.ErrReleaseNotFound
	require.NoError(t, fx.rec.Delete(context.Background(), alice, "minha-api", "prod"))

	// o registro vira inativo mesmo com a release já ausente
	var active int64
	require.NoError(t, fx.store.DB.Model(&models.Deployment{}).
		Where("active").Count(&active).Error)
	assert.EqualValues(t, 0, active)
}

func TestDelete_UnknownNamespace(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	err := fx.rec.Delete(context.Background(), alice, "minha-api", "fantasma")
	assert.ErrorIs(t, err, authz.ErrNotFound)
	assert.Equal(t, 0, fx.runner.uninstalls)
}

func TestRollback(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	dep, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)
	_, err = fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, fx.rec.Rollback(context.Background(), alice, RollbackRequest{
		ReleaseName: "minha-api",
		Namespace:   "prod",
		Revision:    1,
	}))

	require.Len(t, fx.runner.rollbacks, 1)
	assert.Equal(t, 1, fx.runner.rollbacks[0].Revision)

	// só updated_at muda; revisão e status ficam como estavam
	var got models.Deployment
	require.NoError(t, fx.store.DB.First(&got, dep.ID).Error)
	assert.Equal(t, 2, got.Revision)
	assert.Equal(t, models.StatusDeployed, got.Status)
	assert.False(t, got.UpdatedAt.Before(before.Truncate(time.Second)))
}

func TestRollback_RequiresRevision(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")

	err := fx.rec.Rollback(context.Background(), alice, RollbackRequest{
		ReleaseName: "minha-api", Namespace: "prod",
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, fx.runner.rollbacks)
}

func TestList_EmptyNamespaceNeedsAdmin(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")
	admin := fx.user(t, "root", models.RoleAdmin)

	_, err := fx.rec.List(context.Background(), alice, "")
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = fx.rec.List(context.Background(), admin, "")
	assert.NoError(t, err)
}

func TestRecords_ScopedToOwner(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice")
	bob := fx.user(t, "bob")
	admin := fx.user(t, "root", models.RoleAdmin)

	_, err := fx.rec.Create(context.Background(), alice, baseRequest())
	require.NoError(t, err)

	req := baseRequest()
	req.Namespace = "dev"
	req.ReleaseName = "api-do-bob"
	_, err = fx.rec.Create(context.Background(), bob, req)
	require.NoError(t, err)

	mine, err := fx.rec.Records(alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "minha-api", mine[0].ReleaseName)

	all, err := fx.rec.Records(admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearch_RequiresKeyword(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.rec.Search(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrValidation)
}
