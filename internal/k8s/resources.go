package k8s

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/yaml"
)

// ErrUnsupportedKind indica um tipo de recurso fora da tabela fechada.
var ErrUnsupportedKind = errors.New("tipo de recurso não suportado")

// Kind é um dos tipos de recurso suportados pela tabela fechada.
type Kind string

const (
	KindPod        Kind = "pod"
	KindDeployment Kind = "deployment"
	KindService    Kind = "service"
	KindConfigMap  Kind = "configmap"
	KindSecret     Kind = "secret"
	KindIngress    Kind = "ingress"
)

// Resource é a projeção comum retornada pelas listagens.
type Resource struct {
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// kindOps carrega as capacidades de um tipo suportado. Adicionar um
// tipo novo exige preencher todas as operações aqui; não existe
// dispatch por string espalhado pelos handlers.
type kindOps struct {
	list func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error)
	get  func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error)
	del  func(ctx context.Context, cs kubernetes.Interface, ns, name string) error
}

var kindTable = map[Kind]kindOps{
	KindPod: {
		list: func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error) {
			pods, err := cs.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{})
			if err != nil {
				return nil, err
			}
			out := make([]Resource, 0, len(pods.Items))
			for _, p := range pods.Items {
				out = append(out, Resource{
					Kind: string(KindPod), Name: p.Name, Namespace: p.Namespace,
					Status: string(p.Status.Phase), CreatedAt: p.CreationTimestamp.Time,
				})
			}
			return out, nil
		},
		get: func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error) {
			return cs.CoreV1().Pods(ns).Get(ctx, name, metav1.GetOptions{})
		},
		del: func(ctx context.Context, cs kubernetes.Interface, ns, name string) error {
			return cs.CoreV1().Pods(ns).Delete(ctx, name, metav1.DeleteOptions{})
		},
	},
	KindDeployment: {
		list: func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error) {
			deps, err := cs.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{})
			if err != nil {
				return nil, err
			}
			out := make([]Resource, 0, len(deps.Items))
			for _, d := range deps.Items {
				out = append(out, Resource{
					Kind: string(KindDeployment), Name: d.Name, Namespace: d.Namespace,
					Status:    fmt.Sprintf("%d/%d", d.Status.ReadyReplicas, d.Status.Replicas),
					CreatedAt: d.CreationTimestamp.Time,
				})
			}
			return out, nil
		},
		get: func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error) {
			return cs.AppsV1().Deployments(ns).Get(ctx, name, metav1.GetOptions{})
		},
		del: func(ctx context.Context, cs kubernetes.Interface, ns, name string) error {
			return cs.AppsV1().Deployments(ns).Delete(ctx, name, metav1.DeleteOptions{})
		},
	},
	KindService: {
		list: func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error) {
			svcs, err := cs.CoreV1().Services(ns).List(ctx, metav1.ListOptions{})
			if err != nil {
				return nil, err
			}
			out := make([]Resource, 0, len(svcs.Items))
			for _, s := range svcs.Items {
				out = append(out, Resource{
					Kind: string(KindService), Name: s.Name, Namespace: s.Namespace,
					Status: string(s.Spec.Type), CreatedAt: s.CreationTimestamp.Time,
				})
			}
			return out, nil
		},
		get: func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error) {
			return cs.CoreV1().Services(ns).Get(ctx, name, metav1.GetOptions{})
		},
		del: func(ctx context.Context, cs kubernetes.Interface, ns, name string) error {
			return cs.CoreV1().Services(ns).Delete(ctx, name, metav1.DeleteOptions{})
		},
	},
	KindConfigMap: {
		list: func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error) {
			cms, err := cs.CoreV1().ConfigMaps(ns).List(ctx, metav1.ListOptions{})
			if err != nil {
				return nil, err
			}
			out := make([]Resource, 0, len(cms.Items))
			for _, cm := range cms.Items {
				out = append(out, Resource{
					Kind: string(KindConfigMap), Name: cm.Name, Namespace: cm.Namespace,
					CreatedAt: cm.CreationTimestamp.Time,
				})
			}
			return out, nil
		},
		get: func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error) {
			return cs.CoreV1().ConfigMaps(ns).Get(ctx, name, metav1.GetOptions{})
		},
		del: func(ctx context.Context, cs kubernetes.Interface, ns, name string) error {
			return cs.CoreV1().ConfigMaps(ns).Delete(ctx, name, metav1.DeleteOptions{})
		},
	},
	KindSecret: {
		list: func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error) {
			secrets, err := cs.CoreV1().Secrets(ns).List(ctx, metav1.ListOptions{})
			if err != nil {
				return nil, err
			}
			out := make([]Resource, 0, len(secrets.Items))
			for _, s := range secrets.Items {
				out = append(out, Resource{
					Kind: string(KindSecret), Name: s.Name, Namespace: s.Namespace,
					Status: string(s.Type), CreatedAt: s.CreationTimestamp.Time,
				})
			}
			return out, nil
		},
		get: func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error) {
			return cs.CoreV1().Secrets(ns).Get(ctx, name, metav1.GetOptions{})
		},
		del: func(ctx context.Context, cs kubernetes.Interface, ns, name string) error {
			return cs.CoreV1().Secrets(ns).Delete(ctx, name, metav1.DeleteOptions{})
		},
	},
	KindIngress: {
		list: func(ctx context.Context, cs kubernetes.Interface, ns string) ([]Resource, error) {
			ings, err := cs.NetworkingV1().Ingresses(ns).List(ctx, metav1.ListOptions{})
			if err != nil {
				return nil, err
			}
			out := make([]Resource, 0, len(ings.Items))
			for _, ing := range ings.Items {
				out = append(out, Resource{
					Kind: string(KindIngress), Name: ing.Name, Namespace: ing.Namespace,
					CreatedAt: ing.CreationTimestamp.Time,
				})
			}
			return out, nil
		},
		get: func(ctx context.Context, cs kubernetes.Interface, ns, name string) (interface{}, error) {
			return cs.NetworkingV1().Ingresses(ns).Get(ctx, name, metav1.GetOptions{})
		},
		del: func(ctx context.Context, cs kubernetes.Interface, ns, name string) error {
			return cs.NetworkingV1().Ingresses(ns).Delete(ctx, name, metav1.DeleteOptions{})
		},
	},
}

// ParseKind converte a string da URL no Kind fechado. Aceita o plural
// simples ("pods", "deployments").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	if _, ok := kindTable[k]; ok {
		return k, nil
	}
	singular := Kind(strings.TrimSuffix(string(k), "s"))
	if _, ok := kindTable[singular]; ok {
		return singular, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, s)
}

// SupportedKinds lista os tipos aceitos (para mensagens de erro).
func SupportedKinds() []string {
	out := make([]string, 0, len(kindTable))
	for k := range kindTable {
		out = append(out, string(k))
	}
	return out
}

// List retorna os recursos do tipo dado em um namespace.
func List(ctx context.Context, cs kubernetes.Interface, ns string, kind Kind) ([]Resource, error) {
	ops, ok := kindTable[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return ops.list(ctx, cs, ns)
}

// GetYAML busca o recurso e o serializa em YAML, sem os
// managedFields que poluem a leitura.
func GetYAML(ctx context.Context, cs kubernetes.Interface, ns string, kind Kind, name string) (string, error) {
	ops, ok := kindTable[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	obj, err := ops.get(ctx, cs, ns, name)
	if err != nil {
		return "", err
	}
	stripManagedFields(obj)
	y, err := yaml.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("erro ao converter para yaml: %w", err)
	}
	return string(y), nil
}

// Delete remove o recurso do tipo dado.
func Delete(ctx context.Context, cs kubernetes.Interface, ns string, kind Kind, name string) error {
	ops, ok := kindTable[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	return ops.del(ctx, cs, ns, name)
}

func stripManagedFields(obj interface{}) {
	switch o := obj.(type) {
	case *corev1.Pod:
		o.ManagedFields = nil
	case *corev1.Service:
		o.ManagedFields = nil
	case *corev1.ConfigMap:
		o.ManagedFields = nil
	case *corev1.Secret:
		o.ManagedFields = nil
	case *appsv1.Deployment:
		o.ManagedFields = nil
	case *networkingv1.Ingress:
		o.ManagedFields = nil
	}
}
