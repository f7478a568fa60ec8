package status

import "github.com/dhis2-sre/im-dbaas/pkg/model"

type Action string

const (
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionEdit        Action = "edit"
	ActionRestart     Action = "restart"
	ActionSuspend     Action = "suspend"
	ActionResume      Action = "resume"
	ActionLogs        Action = "logs"
	ActionCredentials Action = "credentials"
)

var AllActions = []Action{
	ActionUpdate,
	ActionDelete,
	ActionEdit,
	ActionRestart,
	ActionSuspend,
	ActionResume,
	ActionLogs,
	ActionCredentials,
}

// Available reports whether action can be taken on a cluster given its current status.
func Available(cluster model.DBCluster, action Action) bool {
	status := cluster.Status
	switch action {
	case ActionUpdate:
		return cluster.UpgradeAvailable() && !in(status,
			model.DBClusterStatusUpgrading,
			model.DBClusterStatusDeleting,
			model.DBClusterStatusChanging,
			model.DBClusterStatusSuspended,
		)
	case ActionDelete:
		return status != model.DBClusterStatusDeleting
	case ActionEdit:
		return status == model.DBClusterStatusReady
	case ActionRestart:
		return !IsClusterChanging(cluster) && status != model.DBClusterStatusSuspended
	case ActionSuspend:
		return status == model.DBClusterStatusReady
	case ActionResume:
		return status == model.DBClusterStatusSuspended
	case ActionLogs:
		return true
	case ActionCredentials:
		return status == model.DBClusterStatusReady
	}
	return false
}

// Actions returns the availability of every action.
func Actions(cluster model.DBCluster) map[Action]bool {
	actions := make(map[Action]bool, len(AllActions))
	for _, action := range AllActions {
		actions[action] = Available(cluster, action)
	}
	return actions
}

func in(status model.DBClusterStatus, statuses ...model.DBClusterStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
