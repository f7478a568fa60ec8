package model

// ClusterConfig is a prospective cluster configuration as submitted from the cluster form. It's
// used to create or update a cluster and to ask the control plane for expected resources.
type ClusterConfig struct {
	ClusterName             string    `json:"clusterName" binding:"required,dns1035"`
	TargetKubernetesCluster string    `json:"targetKubernetesCluster" binding:"required"`
	DatabaseEngine          Engine    `json:"databaseEngine" binding:"required,oneof=mysql mongodb"`
	NodeCount               int       `json:"nodeCount" binding:"required,gt=0,clustersize"`
	CPU                     float64   `json:"cpu" binding:"required,gt=0"`
	MemoryGB                float64   `json:"memoryGB" binding:"required,gt=0"`
	DiskGB                  float64   `json:"diskGB" binding:"required,gt=0"`
	ExposeExternally        bool      `json:"exposeExternally"`
	SourceIPRanges          []string  `json:"sourceIPRanges" binding:"omitempty,dive,cidr"`
	EngineConfigText        string    `json:"engineConfigText" binding:"engineconfig"`
	StorageClassName        string    `json:"storageClassName"`
	Template                *Template `json:"template,omitempty"`
}

// Resources returns per node resources in control plane units.
func (c ClusterConfig) Resources() (ComputeResources, int64) {
	return ComputeResources{
		CPUMilli:    int64(c.CPU * 1000),
		MemoryBytes: int64(c.MemoryGB * GB),
	}, int64(c.DiskGB * GB)
}

// GB is the number of bytes per gigabyte used by the control plane.
const GB = 1000 * 1000 * 1000

// Valid reports whether the configuration can be projected: memory, cpu, disk and node count
// must all be positive.
func (c ClusterConfig) Valid() bool {
	return c.MemoryGB > 0 && c.CPU > 0 && c.DiskGB > 0 && c.NodeCount > 0
}

// Params converts the configuration into the engine specific cluster parameters.
func (c ClusterConfig) Params() ClusterParams {
	compute, disk := c.Resources()
	switch c.DatabaseEngine {
	case MongoDB:
		return PSMDBParams{
			ClusterSize: c.NodeCount,
			Replicaset: ReplicasetComponent{
				ComputeResources: compute,
				DiskSize:         disk,
				StorageClass:     c.StorageClassName,
			},
			Configuration: c.EngineConfigText,
		}
	default:
		return PXCParams{
			ClusterSize: c.NodeCount,
			PXC: PXCComponent{
				ComputeResources: compute,
				DiskSize:         disk,
				StorageClass:     c.StorageClassName,
			},
			HAProxy:       &ProxyComponent{},
			Configuration: c.EngineConfigText,
		}
	}
}

type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ClusterLogs is the log tree of a cluster: its pods, their containers and the container logs.
type ClusterLogs struct {
	Pods []PodLogs `json:"pods"`
}

type PodLogs struct {
	Name       string          `json:"name"`
	Events     []string        `json:"events,omitempty"`
	Containers []ContainerLogs `json:"containers"`
}

type ContainerLogs struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}
