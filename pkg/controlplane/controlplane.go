// Package controlplane talks to the DBaaS control plane, the service provisioning and reconciling
// database clusters on registered Kubernetes clusters.
package controlplane

import (
	"context"

	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
)

// ControlPlane is every operation the service needs from the control plane. All of them are
// network calls that may fail. Errors are classified using the errdef kinds.
type ControlPlane interface {
	ListKubernetesClusters(ctx context.Context) ([]model.KubernetesCluster, error)
	RegisterKubernetesCluster(ctx context.Context, name string, kubeconfig []byte) error
	UnregisterKubernetesCluster(ctx context.Context, name string, force bool) error

	ListClusters(ctx context.Context, kubernetesCluster string) ([]model.DBCluster, error)
	GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error)
	GetExpectedResources(ctx context.Context, config model.ClusterConfig) (resource.Expected, error)

	CreateCluster(ctx context.Context, config model.ClusterConfig) error
	UpdateCluster(ctx context.Context, config model.ClusterConfig) error
	DeleteCluster(ctx context.Context, cluster model.DBCluster) error
	RestartCluster(ctx context.Context, cluster model.DBCluster) error
	SuspendCluster(ctx context.Context, cluster model.DBCluster) error
	ResumeCluster(ctx context.Context, cluster model.DBCluster) error
	UpgradeCluster(ctx context.Context, cluster model.DBCluster) error

	GetClusterCredentials(ctx context.Context, cluster model.DBCluster) (model.Credentials, error)
	GetClusterLogs(ctx context.Context, cluster model.DBCluster) (model.ClusterLogs, error)
}
