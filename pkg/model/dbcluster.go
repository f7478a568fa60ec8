package model

import "fmt"

type Engine string

const (
	MySQL   Engine = "mysql"
	MongoDB Engine = "mongodb"
)

// Engines lists every supported database engine.
var Engines = []Engine{MySQL, MongoDB}

func ParseEngine(s string) (Engine, error) {
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unsupported database engine: %q", s)
}

// QuorumBased is true for engines whose topology requires a majority of members. Clusters of
// those engines can't have exactly 2 nodes.
func (e Engine) QuorumBased() bool {
	switch e {
	case MySQL, MongoDB:
		return true
	}
	return false
}

type DBClusterStatus string

const (
	DBClusterStatusInvalid   DBClusterStatus = "invalid"
	DBClusterStatusChanging  DBClusterStatus = "changing"
	DBClusterStatusReady     DBClusterStatus = "ready"
	DBClusterStatusFailed    DBClusterStatus = "failed"
	DBClusterStatusDeleting  DBClusterStatus = "deleting"
	DBClusterStatusSuspended DBClusterStatus = "suspended"
	DBClusterStatusUpgrading DBClusterStatus = "upgrading"
	DBClusterStatusUnknown   DBClusterStatus = "unknown"
)

// AllDBClusterStatuses lists every status. Tables keyed by status are checked against it.
var AllDBClusterStatuses = []DBClusterStatus{
	DBClusterStatusInvalid,
	DBClusterStatusChanging,
	DBClusterStatusReady,
	DBClusterStatusFailed,
	DBClusterStatusDeleting,
	DBClusterStatusSuspended,
	DBClusterStatusUpgrading,
	DBClusterStatusUnknown,
}

// ParseDBClusterStatus returns unknown for anything that isn't a known status, including "".
func ParseDBClusterStatus(s string) DBClusterStatus {
	for _, status := range AllDBClusterStatuses {
		if string(status) == s {
			return status
		}
	}
	return DBClusterStatusUnknown
}

type Template struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// DBCluster is a managed database cluster as reported by the control plane. It's only ever
// replaced by fetching it again.
type DBCluster struct {
	ClusterName           string          `json:"clusterName"`
	KubernetesClusterName string          `json:"kubernetesClusterName"`
	DatabaseType          Engine          `json:"databaseType"`
	ClusterSize           int             `json:"clusterSize"`
	CPU                   float64         `json:"cpu"`
	Memory                float64         `json:"memory"`
	Disk                  float64         `json:"disk"`
	Status                DBClusterStatus `json:"status"`
	Message               string          `json:"message,omitempty"`
	FinishedSteps         int             `json:"finishedSteps"`
	TotalSteps            int             `json:"totalSteps"`
	Expose                bool            `json:"expose"`
	InstalledImage        string          `json:"installedImage,omitempty"`
	AvailableImage        string          `json:"availableImage,omitempty"`
	Template              *Template       `json:"template,omitempty"`
	SourceRanges          []string        `json:"sourceRanges,omitempty"`
	Params                ClusterParams   `json:"-"`
}

// UpgradeAvailable is true when the control plane offers an image different from the installed one.
func (c DBCluster) UpgradeAvailable() bool {
	return c.AvailableImage != "" && c.AvailableImage != c.InstalledImage
}

// ComputeResources are per node resources in control plane units.
type ComputeResources struct {
	CPUMilli    int64
	MemoryBytes int64
}

// ClusterParams holds the engine specific parameters of a cluster. The set of implementations is
// closed: PXCParams for mysql and PSMDBParams for mongodb.
type ClusterParams interface {
	Engine() Engine
	params()
}

// PXCParams describes a mysql cluster backed by Percona XtraDB Cluster.
type PXCParams struct {
	ClusterSize   int
	PXC           PXCComponent
	Proxy         *ProxyComponent
	HAProxy       *ProxyComponent
	Configuration string
}

type PXCComponent struct {
	Image            string
	ComputeResources ComputeResources
	DiskSize         int64
	StorageClass     string
}

type ProxyComponent struct {
	Image            string
	ComputeResources ComputeResources
}

func (PXCParams) Engine() Engine { return MySQL }
func (PXCParams) params()        {}

// PSMDBParams describes a mongodb cluster backed by Percona Server for MongoDB.
type PSMDBParams struct {
	ClusterSize   int
	Image         string
	Replicaset    ReplicasetComponent
	Configuration string
}

type ReplicasetComponent struct {
	ComputeResources ComputeResources
	DiskSize         int64
	StorageClass     string
}

func (PSMDBParams) Engine() Engine { return MongoDB }
func (PSMDBParams) params()        {}
