package cluster

import (
	"context"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/controlplane"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"github.com/dhis2-sre/im-dbaas/pkg/status"
	"k8s.io/client-go/tools/clientcmd"
)

type kubernetesControlPlane interface {
	ListKubernetesClusters(ctx context.Context) ([]model.KubernetesCluster, error)
	RegisterKubernetesCluster(ctx context.Context, name string, kubeconfig []byte) error
	UnregisterKubernetesCluster(ctx context.Context, name string, force bool) error
	GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error)
}

// NewService creates the Kubernetes cluster service. source may be nil, in which case usage isn't
// available.
func NewService(controlPlane kubernetesControlPlane, source *ResourceSource) Service {
	return Service{controlPlane, source}
}

type Service struct {
	controlPlane kubernetesControlPlane
	source       *ResourceSource
}

type Row struct {
	model.KubernetesCluster
	Display status.KubernetesDisplay `json:"display"`
}

func (s Service) FindAll(ctx context.Context) ([]Row, error) {
	clusters, err := s.controlPlane.ListKubernetesClusters(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(clusters))
	for _, cluster := range clusters {
		rows = append(rows, Row{KubernetesCluster: cluster, Display: status.DescribeKubernetes(cluster)})
	}
	return rows, nil
}

// Register registers a Kubernetes cluster using a kubeconfig which must parse and have a current
// context.
func (s Service) Register(ctx context.Context, name string, kubeconfig []byte) error {
	if len(kubeconfig) == 0 {
		return errdef.NewBadRequest("kubeconfig is required")
	}

	config, err := clientcmd.Load(kubeconfig)
	if err != nil {
		return errdef.NewBadRequest("invalid kubeconfig: %v", err)
	}
	if _, ok := config.Contexts[config.CurrentContext]; !ok {
		return errdef.NewBadRequest("kubeconfig has no current context")
	}

	return s.controlPlane.RegisterKubernetesCluster(ctx, name, kubeconfig)
}

func (s Service) Unregister(ctx context.Context, name string, force bool) error {
	return s.controlPlane.UnregisterKubernetesCluster(ctx, name, force)
}

func (s Service) Resources(ctx context.Context, name string) (resource.Allocated, error) {
	return s.controlPlane.GetAllocatedResources(ctx, name)
}

func (s Service) Usage(ctx context.Context, name string) (resource.Resources, error) {
	if s.source == nil {
		return resource.Resources{}, errdef.NewNotFound("usage of %q isn't available without a kubeconfig", name)
	}
	return s.source.Usage(ctx, name)
}

// WithResourceSource returns a control plane that reads allocated resources and logs of the
// Kubernetes clusters known to source straight from Kubernetes. Everything else goes to the
// control plane.
func WithResourceSource(controlPlane controlplane.ControlPlane, source *ResourceSource) controlplane.ControlPlane {
	return sourcedControlPlane{ControlPlane: controlPlane, source: source}
}

type sourcedControlPlane struct {
	controlplane.ControlPlane
	source *ResourceSource
}

func (s sourcedControlPlane) GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error) {
	if !s.source.Has(kubernetesCluster) {
		return s.ControlPlane.GetAllocatedResources(ctx, kubernetesCluster)
	}
	return s.source.GetAllocatedResources(ctx, kubernetesCluster)
}

func (s sourcedControlPlane) GetClusterLogs(ctx context.Context, cluster model.DBCluster) (model.ClusterLogs, error) {
	if !s.source.Has(cluster.KubernetesClusterName) {
		return s.ControlPlane.GetClusterLogs(ctx, cluster)
	}
	return s.source.GetClusterLogs(ctx, cluster)
}
