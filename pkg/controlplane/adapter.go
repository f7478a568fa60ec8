package controlplane

import (
	"fmt"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
)

// engineAPI holds the engine specific parts of the management API.
type engineAPI struct {
	cluster     string
	clusters    string
	clusterType string
}

var engineAPIs = map[model.Engine]engineAPI{
	model.MySQL:   {cluster: "PXCCluster", clusters: "PXCClusters", clusterType: clusterTypePXC},
	model.MongoDB: {cluster: "PSMDBCluster", clusters: "PSMDBClusters", clusterType: clusterTypePSMDB},
}

func apiOf(engine model.Engine) (engineAPI, error) {
	api, ok := engineAPIs[engine]
	if !ok {
		return engineAPI{}, errdef.NewBadRequest("unsupported database engine: %q", engine)
	}
	return api, nil
}

var clusterStates = map[string]model.DBClusterStatus{
	"DB_CLUSTER_STATE_INVALID":   model.DBClusterStatusInvalid,
	"DB_CLUSTER_STATE_CHANGING":  model.DBClusterStatusChanging,
	"DB_CLUSTER_STATE_READY":     model.DBClusterStatusReady,
	"DB_CLUSTER_STATE_FAILED":    model.DBClusterStatusFailed,
	"DB_CLUSTER_STATE_DELETING":  model.DBClusterStatusDeleting,
	"DB_CLUSTER_STATE_PAUSED":    model.DBClusterStatusSuspended,
	"DB_CLUSTER_STATE_UPGRADING": model.DBClusterStatusUpgrading,
	"DB_CLUSTER_STATE_UNKNOWN":   model.DBClusterStatusUnknown,
}

func toStatus(state string) model.DBClusterStatus {
	status, ok := clusterStates[state]
	if !ok {
		return model.DBClusterStatusUnknown
	}
	return status
}

var kubernetesStates = map[string]model.KubernetesClusterStatus{
	"KUBERNETES_CLUSTER_STATUS_INVALID":      model.KubernetesClusterStatusInvalid,
	"KUBERNETES_CLUSTER_STATUS_OK":           model.KubernetesClusterStatusOK,
	"KUBERNETES_CLUSTER_STATUS_UNAVAILABLE":  model.KubernetesClusterStatusUnavailable,
	"KUBERNETES_CLUSTER_STATUS_PROVISIONING": model.KubernetesClusterStatusProvisioning,
}

var operatorStates = map[string]model.OperatorStatus{
	"OPERATORS_STATUS_OK":            model.OperatorStatusOK,
	"OPERATORS_STATUS_INVALID":       model.OperatorStatusInvalid,
	"OPERATORS_STATUS_UNSUPPORTED":   model.OperatorStatusUnsupported,
	"OPERATORS_STATUS_NOT_INSTALLED": model.OperatorStatusUnavailable,
}

func kubernetesClusterToModel(c kubernetesCluster) model.KubernetesCluster {
	status, ok := kubernetesStates[c.Status]
	if !ok {
		status = model.KubernetesClusterStatusUnavailable
	}

	operators := make(map[model.Engine]model.Operator, len(model.Engines))
	operators[model.MySQL] = operatorToModel(c.Operators.PXC)
	operators[model.MongoDB] = operatorToModel(c.Operators.PSMDB)

	return model.KubernetesCluster{
		KubernetesClusterName: c.KubernetesClusterName,
		Status:                status,
		Operators:             operators,
	}
}

func operatorToModel(o *operator) model.Operator {
	if o == nil {
		return model.Operator{Status: model.OperatorStatusUnavailable}
	}
	status, ok := operatorStates[o.Status]
	if !ok {
		status = model.OperatorStatusUnavailable
	}
	return model.Operator{Status: status, Version: o.Version, AvailableVersion: o.AvailableVersion}
}

func pxcToModel(kubernetesCluster string, c pxcCluster) model.DBCluster {
	params := model.PXCParams{ClusterSize: c.Params.ClusterSize}
	if c.Params.PXC != nil {
		params.PXC = model.PXCComponent{
			Image:            c.Params.PXC.Image,
			ComputeResources: computeToModel(c.Params.PXC.ComputeResources),
			DiskSize:         c.Params.PXC.DiskSize,
			StorageClass:     c.Params.PXC.StorageClass,
		}
		params.Configuration = c.Params.PXC.Configuration
	}
	params.Proxy = proxyToModel(c.Params.Proxysql)
	params.HAProxy = proxyToModel(c.Params.Haproxy)

	cluster := baseCluster(kubernetesCluster, c.Name, c.State, c.Operation, c.Exposed, c.InstalledImage, c.AvailableImage, c.Template, c.SourceRanges)
	cluster.DatabaseType = model.MySQL
	cluster.ClusterSize = params.ClusterSize
	cluster.CPU = cores(params.PXC.ComputeResources.CPUMilli)
	cluster.Memory = gigabytes(params.PXC.ComputeResources.MemoryBytes)
	cluster.Disk = gigabytes(params.PXC.DiskSize)
	cluster.Params = params
	return cluster
}

func psmdbToModel(kubernetesCluster string, c psmdbCluster) model.DBCluster {
	params := model.PSMDBParams{ClusterSize: c.Params.ClusterSize, Image: c.Params.Image}
	if c.Params.Replicaset != nil {
		params.Replicaset = model.ReplicasetComponent{
			ComputeResources: computeToModel(c.Params.Replicaset.ComputeResources),
			DiskSize:         c.Params.Replicaset.DiskSize,
			StorageClass:     c.Params.Replicaset.StorageClass,
		}
		params.Configuration = c.Params.Replicaset.Configuration
	}

	cluster := baseCluster(kubernetesCluster, c.Name, c.State, c.Operation, c.Exposed, c.InstalledImage, c.AvailableImage, c.Template, c.SourceRanges)
	cluster.DatabaseType = model.MongoDB
	cluster.ClusterSize = params.ClusterSize
	cluster.CPU = cores(params.Replicaset.ComputeResources.CPUMilli)
	cluster.Memory = gigabytes(params.Replicaset.ComputeResources.MemoryBytes)
	cluster.Disk = gigabytes(params.Replicaset.DiskSize)
	cluster.Params = params
	return cluster
}

func baseCluster(kubernetesCluster, name, state string, op *operation, exposed bool, installedImage, availableImage string, t *template, sourceRanges []string) model.DBCluster {
	cluster := model.DBCluster{
		ClusterName:           name,
		KubernetesClusterName: kubernetesCluster,
		Status:                toStatus(state),
		Expose:                exposed,
		InstalledImage:        installedImage,
		AvailableImage:        availableImage,
		SourceRanges:          sourceRanges,
	}
	if op != nil {
		cluster.Message = op.Message
		cluster.FinishedSteps = op.FinishedSteps
		cluster.TotalSteps = op.TotalSteps
	}
	if t != nil {
		cluster.Template = &model.Template{Name: t.Name, Kind: t.Kind}
	}
	return cluster
}

func proxyToModel(p *proxyComponent) *model.ProxyComponent {
	if p == nil {
		return nil
	}
	return &model.ProxyComponent{Image: p.Image, ComputeResources: computeToModel(p.ComputeResources)}
}

func computeToModel(c computeResources) model.ComputeResources {
	return model.ComputeResources{CPUMilli: c.CPUMilli, MemoryBytes: c.MemoryBytes}
}

func computeToWire(c model.ComputeResources) computeResources {
	return computeResources{CPUMilli: c.CPUMilli, MemoryBytes: c.MemoryBytes}
}

func cores(milli int64) float64 {
	return float64(milli) / 1000
}

func gigabytes(bytes int64) float64 {
	return float64(bytes) / model.GB
}

func pxcParamsToWire(p model.PXCParams) pxcParams {
	params := pxcParams{
		ClusterSize: p.ClusterSize,
		PXC: &pxcComponent{
			Image:            p.PXC.Image,
			ComputeResources: computeToWire(p.PXC.ComputeResources),
			DiskSize:         p.PXC.DiskSize,
			StorageClass:     p.PXC.StorageClass,
			Configuration:    p.Configuration,
		},
	}
	if p.Proxy != nil {
		params.Proxysql = &proxyComponent{Image: p.Proxy.Image, ComputeResources: computeToWire(p.Proxy.ComputeResources)}
	}
	if p.HAProxy != nil {
		params.Haproxy = &proxyComponent{Image: p.HAProxy.Image, ComputeResources: computeToWire(p.HAProxy.ComputeResources)}
	}
	return params
}

func psmdbParamsToWire(p model.PSMDBParams) psmdbParams {
	return psmdbParams{
		ClusterSize: p.ClusterSize,
		Image:       p.Image,
		Replicaset: &replicaset{
			ComputeResources: computeToWire(p.Replicaset.ComputeResources),
			DiskSize:         p.Replicaset.DiskSize,
			StorageClass:     p.Replicaset.StorageClass,
			Configuration:    p.Configuration,
		},
	}
}

func updateParamsToWire(params model.ClusterParams) (updateParams, error) {
	switch p := params.(type) {
	case model.PXCParams:
		update := updateParams{
			ClusterSize: p.ClusterSize,
			PXC: &computeComponent{
				ComputeResources: computePointer(p.PXC.ComputeResources),
				DiskSize:         p.PXC.DiskSize,
				Configuration:    p.Configuration,
			},
		}
		// a proxy without resources is left as it is
		if p.HAProxy != nil && p.HAProxy.ComputeResources != (model.ComputeResources{}) {
			update.Haproxy = &computeComponent{ComputeResources: computePointer(p.HAProxy.ComputeResources)}
		}
		return update, nil
	case model.PSMDBParams:
		return updateParams{
			ClusterSize: p.ClusterSize,
			Replicaset: &computeComponent{
				ComputeResources: computePointer(p.Replicaset.ComputeResources),
				DiskSize:         p.Replicaset.DiskSize,
				Configuration:    p.Configuration,
			},
		}, nil
	}
	return updateParams{}, fmt.Errorf("unsupported cluster params: %T", params)
}

func computePointer(c model.ComputeResources) *computeResources {
	resources := computeToWire(c)
	return &resources
}

// upgradeParamsToWire moves a cluster to the image the control plane offers.
func upgradeParamsToWire(cluster model.DBCluster) (updateParams, error) {
	switch cluster.DatabaseType {
	case model.MySQL:
		return updateParams{PXC: &computeComponent{Image: cluster.AvailableImage}}, nil
	case model.MongoDB:
		return updateParams{Image: cluster.AvailableImage}, nil
	}
	return updateParams{}, errdef.NewBadRequest("unsupported database engine: %q", cluster.DatabaseType)
}

func templateToWire(t *model.Template) *template {
	if t == nil {
		return nil
	}
	return &template{Name: t.Name, Kind: t.Kind}
}

func (r resources) raw() resource.Raw {
	return resource.Raw{CPUMilli: r.CPUMilli, MemoryBytes: r.MemoryBytes, DiskBytes: r.DiskSize}
}

// allocatedToModel derives consumption as everything minus what's still available.
func allocatedToModel(r allocatedResourcesResponse) resource.Allocated {
	allocated := resources{
		MemoryBytes: r.All.MemoryBytes - r.Available.MemoryBytes,
		CPUMilli:    r.All.CPUMilli - r.Available.CPUMilli,
		DiskSize:    r.All.DiskSize - r.Available.DiskSize,
	}
	return resource.NewAllocated(r.All.raw(), allocated.raw())
}

// logsToModel groups log entries by pod, keeping the order pods first appear in. Entries without a
// container are the pod's events.
func logsToModel(entries []logEntry) model.ClusterLogs {
	logs := model.ClusterLogs{Pods: []model.PodLogs{}}
	index := make(map[string]int)
	for _, entry := range entries {
		i, ok := index[entry.Pod]
		if !ok {
			i = len(logs.Pods)
			index[entry.Pod] = i
			logs.Pods = append(logs.Pods, model.PodLogs{Name: entry.Pod, Containers: []model.ContainerLogs{}})
		}

		pod := &logs.Pods[i]
		if entry.Container == "" {
			pod.Events = append(pod.Events, entry.Logs...)
			continue
		}
		pod.Containers = append(pod.Containers, model.ContainerLogs{Name: entry.Container, Lines: entry.Logs})
	}
	return logs
}
