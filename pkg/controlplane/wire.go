package controlplane

// Request and response bodies of the DBaaS management API.

type kubernetesClusterRequest struct {
	KubernetesClusterName string `json:"kubernetes_cluster_name"`
}

type clusterRequest struct {
	KubernetesClusterName string `json:"kubernetes_cluster_name"`
	Name                  string `json:"name"`
}

type typedClusterRequest struct {
	KubernetesClusterName string `json:"kubernetes_cluster_name"`
	Name                  string `json:"name"`
	ClusterType           string `json:"cluster_type"`
}

const (
	clusterTypePXC   = "DB_CLUSTER_TYPE_PXC"
	clusterTypePSMDB = "DB_CLUSTER_TYPE_PSMDB"
)

type registerRequest struct {
	KubernetesClusterName string   `json:"kubernetes_cluster_name"`
	KubeAuth              kubeAuth `json:"kube_auth"`
}

type kubeAuth struct {
	Kubeconfig string `json:"kubeconfig"`
}

type unregisterRequest struct {
	KubernetesClusterName string `json:"kubernetes_cluster_name"`
	Force                 bool   `json:"force"`
}

type operator struct {
	Status           string `json:"status"`
	Version          string `json:"version,omitempty"`
	AvailableVersion string `json:"available_version,omitempty"`
}

type operators struct {
	PXC   *operator `json:"pxc,omitempty"`
	PSMDB *operator `json:"psmdb,omitempty"`
}

type kubernetesCluster struct {
	KubernetesClusterName string    `json:"kubernetes_cluster_name"`
	Operators             operators `json:"operators"`
	Status                string    `json:"status"`
}

type listKubernetesClustersResponse struct {
	KubernetesClusters []kubernetesCluster `json:"kubernetes_clusters"`
}

type resources struct {
	MemoryBytes float64 `json:"memory_bytes"`
	CPUMilli    float64 `json:"cpu_m"`
	DiskSize    float64 `json:"disk_size"`
}

type allocatedResourcesResponse struct {
	All       resources `json:"all"`
	Available resources `json:"available"`
}

type expectedResourcesResponse struct {
	Expected resources `json:"expected"`
}

type computeResources struct {
	CPUMilli    int64 `json:"cpu_m"`
	MemoryBytes int64 `json:"memory_bytes"`
}

type pxcComponent struct {
	Image            string           `json:"image,omitempty"`
	ComputeResources computeResources `json:"compute_resources"`
	DiskSize         int64            `json:"disk_size,omitempty"`
	StorageClass     string           `json:"storage_class,omitempty"`
	Configuration    string           `json:"configuration,omitempty"`
}

type proxyComponent struct {
	Image            string           `json:"image,omitempty"`
	ComputeResources computeResources `json:"compute_resources"`
}

type pxcParams struct {
	ClusterSize int             `json:"cluster_size"`
	PXC         *pxcComponent   `json:"pxc,omitempty"`
	Proxysql    *proxyComponent `json:"proxysql,omitempty"`
	Haproxy     *proxyComponent `json:"haproxy,omitempty"`
}

type replicaset struct {
	ComputeResources computeResources `json:"compute_resources"`
	DiskSize         int64            `json:"disk_size,omitempty"`
	StorageClass     string           `json:"storage_class,omitempty"`
	Configuration    string           `json:"configuration,omitempty"`
}

type psmdbParams struct {
	ClusterSize int         `json:"cluster_size"`
	Image       string      `json:"image,omitempty"`
	Replicaset  *replicaset `json:"replicaset,omitempty"`
}

type operation struct {
	FinishedSteps int    `json:"finished_steps"`
	TotalSteps    int    `json:"total_steps"`
	Message       string `json:"message,omitempty"`
}

type template struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type pxcCluster struct {
	Name           string     `json:"name"`
	State          string     `json:"state"`
	Operation      *operation `json:"operation,omitempty"`
	Params         pxcParams  `json:"params"`
	Exposed        bool       `json:"exposed"`
	InstalledImage string     `json:"installed_image,omitempty"`
	AvailableImage string     `json:"available_image,omitempty"`
	Template       *template  `json:"template,omitempty"`
	SourceRanges   []string   `json:"source_ranges,omitempty"`
}

type psmdbCluster struct {
	Name           string      `json:"name"`
	State          string      `json:"state"`
	Operation      *operation  `json:"operation,omitempty"`
	Params         psmdbParams `json:"params"`
	Exposed        bool        `json:"exposed"`
	InstalledImage string      `json:"installed_image,omitempty"`
	AvailableImage string      `json:"available_image,omitempty"`
	Template       *template   `json:"template,omitempty"`
	SourceRanges   []string    `json:"source_ranges,omitempty"`
}

type listClustersResponse struct {
	PXCClusters   []pxcCluster   `json:"pxc_clusters"`
	PSMDBClusters []psmdbCluster `json:"psmdb_clusters"`
}

type createPXCRequest struct {
	KubernetesClusterName string    `json:"kubernetes_cluster_name"`
	Name                  string    `json:"name"`
	Params                pxcParams `json:"params"`
	Expose                bool      `json:"expose"`
	StorageClass          string    `json:"storage_class,omitempty"`
	SourceRanges          []string  `json:"source_ranges,omitempty"`
	Template              *template `json:"template,omitempty"`
}

type createPSMDBRequest struct {
	KubernetesClusterName string      `json:"kubernetes_cluster_name"`
	Name                  string      `json:"name"`
	Params                psmdbParams `json:"params"`
	Expose                bool        `json:"expose"`
	StorageClass          string      `json:"storage_class,omitempty"`
	SourceRanges          []string    `json:"source_ranges,omitempty"`
	Template              *template   `json:"template,omitempty"`
}

// updateParams is shared by both engines. Suspend and Resume are mutually exclusive.
type updateParams struct {
	ClusterSize int               `json:"cluster_size,omitempty"`
	PXC         *computeComponent `json:"pxc,omitempty"`
	Haproxy     *computeComponent `json:"haproxy,omitempty"`
	Replicaset  *computeComponent `json:"replicaset,omitempty"`
	Suspend     bool              `json:"suspend,omitempty"`
	Resume      bool              `json:"resume,omitempty"`
	// Image is the psmdb image. The pxc image goes into PXC.
	Image string `json:"image,omitempty"`
}

type computeComponent struct {
	ComputeResources *computeResources `json:"compute_resources,omitempty"`
	DiskSize         int64             `json:"disk_size,omitempty"`
	Configuration    string            `json:"configuration,omitempty"`
	Image            string            `json:"image,omitempty"`
}

type updateRequest struct {
	KubernetesClusterName string       `json:"kubernetes_cluster_name"`
	Name                  string       `json:"name"`
	Params                updateParams `json:"params"`
}

type expectedPXCRequest struct {
	Params pxcParams `json:"params"`
}

type expectedPSMDBRequest struct {
	Params psmdbParams `json:"params"`
}

type credentialsResponse struct {
	ConnectionCredentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
	} `json:"connection_credentials"`
}

type logsRequest struct {
	KubernetesClusterName string `json:"kubernetes_cluster_name"`
	ClusterName           string `json:"cluster_name"`
}

type logEntry struct {
	Pod       string   `json:"pod"`
	Container string   `json:"container,omitempty"`
	Logs      []string `json:"logs"`
}

type logsResponse struct {
	Logs []logEntry `json:"logs"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
