package dbcluster

import "github.com/dhis2-sre/im-dbaas/pkg/model"

// swagger:response DBClusters
type _ struct {
	// The database clusters of a Kubernetes cluster
	// in: body
	Body []Row
}

// swagger:response OperationState
type _ struct {
	// in: body
	Body State
}

// swagger:response OperationStates
type _ struct {
	// in: body
	Body []State
}

// swagger:response Credentials
type _ struct {
	// in: body
	Body model.Credentials
}

// swagger:response ClusterLogs
type _ struct {
	// in: body
	Body model.ClusterLogs
}

// swagger:parameters findAllDBClusters createDBCluster updateDBCluster deleteDBCluster restartDBCluster suspendDBCluster resumeDBCluster upgradeDBCluster toggleDBClusterSuspension findDBClusterCredentials findDBClusterLogs
type _ struct {
	// in: path
	// required: true
	KubernetesCluster string `json:"kubernetesCluster"`
}

// swagger:parameters updateDBCluster deleteDBCluster restartDBCluster suspendDBCluster resumeDBCluster upgradeDBCluster toggleDBClusterSuspension findDBClusterCredentials findDBClusterLogs
type _ struct {
	// in: path
	// required: true
	Name string `json:"name"`
}

// swagger:parameters createDBCluster
type _ struct {
	// in: body
	// required: true
	Body model.ClusterConfig
}

// swagger:parameters updateDBCluster
type _ struct {
	// in: body
	// required: true
	Body UpdateClusterRequest
}
