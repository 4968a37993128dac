package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"pod", "pods", "Pods", "deployment", "deployments", "services", "configmaps", "secrets", "ingress"} {
		_, err := ParseKind(s)
		assert.NoError(t, err, s)
	}

	for _, s := range []string{"node", "crd", "", "namespaces"} {
		_, err := ParseKind(s)
		assert.ErrorIs(t, err, ErrUnsupportedKind, s)
	}
}

func TestListAndDeletePods(t *testing.T) {
	cs := fake.NewSimpleClientset(
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "api-0", Namespace: "prod"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning},
		},
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "outro", Namespace: "dev"},
		},
	)

	ctx := context.Background()
	pods, err := List(ctx, cs, "prod", KindPod)
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.Equal(t, "api-0", pods[0].Name)
	assert.Equal(t, "Running", pods[0].Status)

	require.NoError(t, Delete(ctx, cs, "prod", KindPod, "api-0"))
	pods, err = List(ctx, cs, "prod", KindPod)
	require.NoError(t, err)
	assert.Empty(t, pods)
}

func TestGetYAMLStripsManagedFields(t *testing.T) {
	cs := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "app-config",
			Namespace: "prod",
			ManagedFields: []metav1.ManagedFieldsEntry{
				{Manager: "kubectl"},
			},
		},
		Data: map[string]string{"chave": "valor"},
	})

	y, err := GetYAML(context.Background(), cs, "prod", KindConfigMap, "app-config")
	require.NoError(t, err)
	assert.Contains(t, y, "app-config")
	assert.Contains(t, y, "chave: valor")
	assert.NotContains(t, y, "managedFields")
}

func TestNamespaceEnsureAndDelete(t *testing.T) {
	cs := fake.NewSimpleClientset()
	nc := NewNamespaceClient(cs)
	ctx := context.Background()

	require.NoError(t, nc.Ensure(ctx, "prod"))
	// idempotente: garantir de novo não falha
	require.NoError(t, nc.Ensure(ctx, "prod"))

	_, err := cs.CoreV1().Namespaces().Get(ctx, "prod", metav1.GetOptions{})
	require.NoError(t, err)

	require.NoError(t, nc.Delete(ctx, "prod"))
	// remoção de namespace ausente é best-effort
	require.NoError(t, nc.Delete(ctx, "prod"))
}
