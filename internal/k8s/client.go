package k8s

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClient cria um clientset usando a config in-cluster quando o
// processo roda dentro do cluster; fora dele cai para o kubeconfig
// (KUBECONFIG ou ~/.kube/config).
func NewClient() (*kubernetes.Clientset, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		path := os.Getenv("KUBECONFIG")
		if path == "" {
			home, errHome := os.UserHomeDir()
			if errHome != nil {
				return nil, fmt.Errorf("erro ao localizar kubeconfig: %w", errHome)
			}
			path = filepath.Join(home, ".kube", "config")
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, fmt.Errorf("erro ao criar REST config: %w", err)
		}
	}
	return kubernetes.NewForConfig(cfg)
}
