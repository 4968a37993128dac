package helm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// CLI implementa Runner invocando o binário helm.
type CLI struct {
	bin string
	log *zap.Logger
}

// NewCLI cria um CLI apontando para o binário dado ("helm" no PATH
// por padrão).
func NewCLI(bin string, log *zap.Logger) *CLI {
	if bin == "" {
		bin = "helm"
	}
	return &CLI{bin: bin, log: log}
}

// run executa o helm e retorna o stdout. Erros carregam o stderr da
// ferramenta; release ausente vira ErrReleaseNotFound.
func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.Debug("executando helm", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if releaseNotFound(msg) {
			return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, msg)
		}
		return nil, fmt.Errorf("helm %s: %s: %w", args[0], msg, err)
	}
	return stdout.Bytes(), nil
}

// RepoAdd adiciona um repositório à configuração local do Helm.
func (c *CLI) RepoAdd(ctx context.Context, name, url string, creds *RepoCredentials) error {
	args := []string{"repo", "add", name, url, "--force-update"}
	if creds != nil && creds.Username != "" {
		args = append(args, "--username", creds.Username, "--password", creds.Password)
	}
	_, err := c.run(ctx, args...)
	return err
}

// RepoUpdate atualiza os índices dos repositórios configurados.
func (c *CLI) RepoUpdate(ctx context.Context) error {
	_, err := c.run(ctx, "repo", "update")
	return err
}

// UpgradeInstall instala a release ou atualiza uma existente
// (`upgrade --install`), convergindo para uma única release viva.
func (c *CLI) UpgradeInstall(ctx context.Context, release, chartRef string, opts InstallOptions) (*ReleaseInfo, error) {
	args := []string{"upgrade", "--install", release, chartRef,
		"--namespace", opts.Namespace, "-o", "json"}
	if opts.ChartVersion != "" {
		args = append(args, "--version", opts.ChartVersion)
	}

	if opts.ValuesYAML != "" {
		tmp, err := os.CreateTemp("", "helmdesk-values-*.yaml")
		if err != nil {
			return nil, fmt.Errorf("erro ao criar arquivo de values: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.WriteString(opts.ValuesYAML); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("erro ao escrever values: %w", err)
		}
		tmp.Close()
		args = append(args, "-f", tmp.Name())
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	info, perr := parseStatus(out)
	if perr != nil {
		// saída inesperada do upgrade: lê a revisão via status
		c.log.Warn("saída do upgrade não parseável, consultando status", zap.Error(perr))
		return c.Status(ctx, release, opts.Namespace)
	}
	return info, nil
}

// Uninstall remove a release do cluster.
func (c *CLI) Uninstall(ctx context.Context, release, namespace string) error {
	_, err := c.run(ctx, "uninstall", release, "--namespace", namespace)
	return err
}

// Rollback volta a release para a revisão indicada.
func (c *CLI) Rollback(ctx context.Context, release string, opts RollbackOptions) error {
	args := []string{"rollback", release, strconv.Itoa(opts.Revision),
		"--namespace", opts.Namespace}
	if opts.Force {
		args = append(args, "--force")
	}
	if opts.RecreatePods {
		args = append(args, "--recreate-pods")
	}
	_, err := c.run(ctx, args...)
	return err
}

// Status retorna o estado vivo da release.
func (c *CLI) Status(ctx context.Context, release, namespace string) (*ReleaseInfo, error) {
	out, err := c.run(ctx, "status", release, "--namespace", namespace, "-o", "json")
	if err != nil {
		return nil, err
	}
	return parseStatus(out)
}

// History lista as revisões da release.
func (c *CLI) History(ctx context.Context, release, namespace string) ([]HistoryEntry, error) {
	out, err := c.run(ctx, "history", release, "--namespace", namespace, "-o", "json")
	if err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, fmt.Errorf("erro ao decodificar histórico: %w", err)
	}
	return entries, nil
}

// Values retorna os values da release (--all inclui os defaults do chart).
func (c *CLI) Values(ctx context.Context, release, namespace string, all bool) (map[string]interface{}, error) {
	args := []string{"get", "values", release, "--namespace", namespace, "-o", "json"}
	if all {
		args = append(args, "--all")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	// `helm get values` imprime "null" quando não há overrides
	values := map[string]interface{}{}
	if strings.TrimSpace(string(out)) == "null" {
		return values, nil
	}
	if err := json.Unmarshal(out, &values); err != nil {
		return nil, fmt.Errorf("erro ao decodificar values: %w", err)
	}
	return values, nil
}

// Notes retorna as notas geradas pelo chart.
func (c *CLI) Notes(ctx context.Context, release, namespace string) (string, error) {
	out, err := c.run(ctx, "get", "notes", release, "--namespace", namespace)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Manifest exporta os manifests renderizados da release.
func (c *CLI) Manifest(ctx context.Context, release, namespace string) (string, error) {
	out, err := c.run(ctx, "get", "manifest", release, "--namespace", namespace)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// List lista as releases de um namespace (todas quando vazio).
func (c *CLI) List(ctx context.Context, namespace string) ([]ListEntry, error) {
	args := []string{"list", "-o", "json"}
	if namespace != "" {
		args = append(args, "--namespace", namespace)
	} else {
		args = append(args, "--all-namespaces")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var entries []ListEntry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, fmt.Errorf("erro ao decodificar lista: %w", err)
	}
	return entries, nil
}

// SearchRepo busca charts nos repositórios configurados.
func (c *CLI) SearchRepo(ctx context.Context, keyword string) ([]ChartEntry, error) {
	out, err := c.run(ctx, "search", "repo", keyword, "-o", "json")
	if err != nil {
		return nil, err
	}
	var entries []ChartEntry
	if err := json.Unmarshal(out, &entries); err != nil {
		return nil, fmt.Errorf("erro ao decodificar busca: %w", err)
	}
	return entries, nil
}

// statusOutput é o shape do JSON de `helm status` / `helm upgrade -o json`.
type statusOutput struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Version   int    `json:"version"`
	Info      struct {
		Status       string `json:"status"`
		LastDeployed string `json:"last_deployed"`
	} `json:"info"`
	Chart struct {
		Metadata struct {
			Name       string `json:"name"`
			Version    string `json:"version"`
			AppVersion string `json:"appVersion"`
		} `json:"metadata"`
	} `json:"chart"`
}

func parseStatus(out []byte) (*ReleaseInfo, error) {
	var s statusOutput
	if err := json.Unmarshal(out, &s); err != nil {
		return nil, fmt.Errorf("erro ao decodificar status: %w", err)
	}
	if s.Name == "" && s.Version == 0 {
		return nil, fmt.Errorf("status sem release")
	}
	info := &ReleaseInfo{
		Name:       s.Name,
		Namespace:  s.Namespace,
		Revision:   s.Version,
		Status:     s.Info.Status,
		Updated:    s.Info.LastDeployed,
		AppVersion: s.Chart.Metadata.AppVersion,
	}
	if s.Chart.Metadata.Name != "" {
		info.Chart = s.Chart.Metadata.Name + "-" + s.Chart.Metadata.Version
	}
	return info, nil
}
