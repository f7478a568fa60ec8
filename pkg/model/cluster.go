package model

type KubernetesClusterStatus string

const (
	KubernetesClusterStatusInvalid      KubernetesClusterStatus = "invalid"
	KubernetesClusterStatusOK           KubernetesClusterStatus = "ok"
	KubernetesClusterStatusUnavailable  KubernetesClusterStatus = "unavailable"
	KubernetesClusterStatusProvisioning KubernetesClusterStatus = "provisioning"
)

var AllKubernetesClusterStatuses = []KubernetesClusterStatus{
	KubernetesClusterStatusInvalid,
	KubernetesClusterStatusOK,
	KubernetesClusterStatusUnavailable,
	KubernetesClusterStatusProvisioning,
}

type OperatorStatus string

const (
	OperatorStatusOK          OperatorStatus = "ok"
	OperatorStatusInvalid     OperatorStatus = "invalid"
	OperatorStatusUnsupported OperatorStatus = "unsupported"
	OperatorStatusUnavailable OperatorStatus = "unavailable"
)

type Operator struct {
	Status           OperatorStatus `json:"status"`
	Version          string         `json:"version,omitempty"`
	AvailableVersion string         `json:"availableVersion,omitempty"`
}

// KubernetesCluster is a Kubernetes cluster registered with the control plane, hosting database
// clusters through one operator per engine.
type KubernetesCluster struct {
	KubernetesClusterName string                  `json:"kubernetesClusterName"`
	Status                KubernetesClusterStatus `json:"status"`
	Operators             map[Engine]Operator     `json:"operators"`
}
