package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// NamespaceClient faz as operações de namespace que o ciclo de vida
// de release precisa: garantir existência e remoção best-effort.
type NamespaceClient struct {
	cs kubernetes.Interface
}

// NewNamespaceClient cria um NamespaceClient sobre o clientset dado.
func NewNamespaceClient(cs kubernetes.Interface) *NamespaceClient {
	return &NamespaceClient{cs: cs}
}

// Ensure cria o namespace no cluster se ainda não existe.
func (n *NamespaceClient) Ensure(ctx context.Context, name string) error {
	_, err := n.cs.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("erro ao consultar namespace %s: %w", name, err)
	}

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err = n.cs.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		// outra requisição criou no meio do caminho
		return nil
	}
	if err != nil {
		return fmt.Errorf("erro ao criar namespace %s: %w", name, err)
	}
	return nil
}

// Delete remove o namespace do cluster. Namespace inexistente não é
// erro: a remoção é best-effort.
func (n *NamespaceClient) Delete(ctx context.Context, name string) error {
	err := n.cs.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("erro ao remover namespace %s: %w", name, err)
	}
	return nil
}
