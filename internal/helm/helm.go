// Package helm dirige o binário `helm` como subprocesso síncrono,
// pedindo saída JSON onde o CLI oferece.
package helm

import (
	"context"
	"errors"
	"strings"
)

// ErrReleaseNotFound indica que a release não existe no cluster.
// No delete esse caso é tratado como sucesso idempotente pelo chamador.
var ErrReleaseNotFound = errors.New("release não encontrada")

// RepoCredentials são as credenciais opcionais de um repositório
// privado de charts.
type RepoCredentials struct {
	Username string
	Password string
}

// InstallOptions parametriza o upgrade --install.
type InstallOptions struct {
	Namespace    string
	ChartVersion string
	ValuesYAML   string
}

// RollbackOptions parametriza o rollback.
type RollbackOptions struct {
	Namespace    string
	Revision     int
	Force        bool
	RecreatePods bool
}

// ReleaseInfo descreve uma release instalada.
type ReleaseInfo struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Revision   int    `json:"revision"`
	Status     string `json:"status"`
	Updated    string `json:"updated,omitempty"`
	Chart      string `json:"chart,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

// HistoryEntry é uma linha do histórico de revisões.
type HistoryEntry struct {
	Revision    int    `json:"revision"`
	Updated     string `json:"updated"`
	Status      string `json:"status"`
	Chart       string `json:"chart"`
	AppVersion  string `json:"app_version"`
	Description string `json:"description"`
}

// ListEntry é uma linha de `helm list`. O CLI serializa a revisão
// como string nesse comando.
type ListEntry struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Revision   string `json:"revision"`
	Updated    string `json:"updated"`
	Status     string `json:"status"`
	Chart      string `json:"chart"`
	AppVersion string `json:"app_version"`
}

// ChartEntry é um resultado de `helm search repo`.
type ChartEntry struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	AppVersion  string `json:"app_version"`
	Description string `json:"description"`
}

// Runner é a superfície do Helm que o reconciliador consome. A
// implementação real é CLI; testes usam um fake.
type Runner interface {
	RepoAdd(ctx context.Context, name, url string, creds *RepoCredentials) error
	RepoUpdate(ctx context.Context) error
	UpgradeInstall(ctx context.Context, release, chartRef string, opts InstallOptions) (*ReleaseInfo, error)
	Uninstall(ctx context.Context, release, namespace string) error
	Rollback(ctx context.Context, release string, opts RollbackOptions) error
	Status(ctx context.Context, release, namespace string) (*ReleaseInfo, error)
	History(ctx context.Context, release, namespace string) ([]HistoryEntry, error)
	Values(ctx context.Context, release, namespace string, all bool) (map[string]interface{}, error)
	Notes(ctx context.Context, release, namespace string) (string, error)
	Manifest(ctx context.Context, release, namespace string) (string, error)
	List(ctx context.Context, namespace string) ([]ListEntry, error)
	SearchRepo(ctx context.Context, keyword string) ([]ChartEntry, error)
}

// releaseNotFound reconhece a mensagem do CLI para release ausente
// (uninstall e status grafam de formas diferentes).
func releaseNotFound(stderr string) bool {
	msg := strings.ToLower(stderr)
	return strings.Contains(msg, "release: not found") ||
		strings.Contains(msg, "release not found") ||
		strings.Contains(msg, "release not loaded")
}
