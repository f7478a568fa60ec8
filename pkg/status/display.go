// Package status decides how a database cluster's lifecycle status is presented and which actions
// are available for it. Decisions are level triggered: they're derived from the latest status
// reported by the control plane, not from a transition table.
package status

import (
	"github.com/dhis2-sre/im-dbaas/pkg/model"
)

type Visual string

const (
	VisualBadge    Visual = "badge"
	VisualProgress Visual = "progress"
)

type Color string

const (
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGray   Color = "gray"
)

type Display struct {
	Status        model.DBClusterStatus `json:"status"`
	Visual        Visual                `json:"visual"`
	Color         Color                 `json:"color"`
	Error         bool                  `json:"error"`
	ShowMessage   bool                  `json:"showMessage"`
	Message       string                `json:"message,omitempty"`
	FinishedSteps int                   `json:"finishedSteps"`
	TotalSteps    int                   `json:"totalSteps"`
	Settling      bool                  `json:"settling,omitempty"`
}

type rule struct {
	visual Visual
	color  Color
	error  bool
	// message is true when a present message gets an affordance linking to the logs
	message bool
}

// rules must have an entry for every status in model.AllDBClusterStatuses.
var rules = map[model.DBClusterStatus]rule{
	model.DBClusterStatusReady:     {visual: VisualBadge, color: ColorGreen},
	model.DBClusterStatusSuspended: {visual: VisualBadge, color: ColorOrange},
	model.DBClusterStatusChanging:  {visual: VisualProgress, color: ColorBlue, message: true},
	model.DBClusterStatusDeleting:  {visual: VisualProgress, color: ColorBlue, message: true},
	model.DBClusterStatusUpgrading: {visual: VisualProgress, color: ColorBlue, message: true},
	model.DBClusterStatusUnknown:   {visual: VisualProgress, color: ColorGray, message: true},
	model.DBClusterStatusFailed:    {visual: VisualProgress, color: ColorRed, error: true, message: true},
	model.DBClusterStatusInvalid:   {visual: VisualProgress, color: ColorRed, error: true, message: true},
}

// Describe returns the display of a cluster based on its status alone.
func Describe(cluster model.DBCluster) Display {
	status := cluster.Status
	r, ok := rules[status]
	if !ok {
		status = model.DBClusterStatusUnknown
		r = rules[status]
	}

	display := Display{
		Status:  status,
		Visual:  r.visual,
		Color:   r.color,
		Error:   r.error,
		Message: cluster.Message,
	}
	if r.visual == VisualProgress {
		display.FinishedSteps = cluster.FinishedSteps
		display.TotalSteps = cluster.TotalSteps
	}
	display.ShowMessage = r.message && cluster.Message != ""

	return display
}

// IsClusterChanging is true while the control plane is changing or deleting the cluster.
func IsClusterChanging(cluster model.DBCluster) bool {
	return cluster.Status == model.DBClusterStatusChanging || cluster.Status == model.DBClusterStatusDeleting
}

type KubernetesDisplay struct {
	Status          model.KubernetesClusterStatus `json:"status"`
	Visual          Visual                        `json:"visual"`
	Color           Color                         `json:"color"`
	OperatorUpdates map[model.Engine]bool         `json:"operatorUpdates"`
}

// kubernetesRules must have an entry for every status in model.AllKubernetesClusterStatuses.
var kubernetesRules = map[model.KubernetesClusterStatus]rule{
	model.KubernetesClusterStatusOK:           {visual: VisualBadge, color: ColorGreen},
	model.KubernetesClusterStatusProvisioning: {visual: VisualProgress, color: ColorBlue},
	model.KubernetesClusterStatusUnavailable:  {visual: VisualBadge, color: ColorRed, error: true},
	model.KubernetesClusterStatusInvalid:      {visual: VisualBadge, color: ColorRed, error: true},
}

func DescribeKubernetes(cluster model.KubernetesCluster) KubernetesDisplay {
	r, ok := kubernetesRules[cluster.Status]
	if !ok {
		r = kubernetesRules[model.KubernetesClusterStatusInvalid]
	}

	updates := make(map[model.Engine]bool, len(cluster.Operators))
	for engine, operator := range cluster.Operators {
		updates[engine] = OperatorUpdateAvailable(operator)
	}

	return KubernetesDisplay{
		Status:          cluster.Status,
		Visual:          r.visual,
		Color:           r.color,
		OperatorUpdates: updates,
	}
}

// OperatorUpdateAvailable is true when an installed operator can be upgraded.
func OperatorUpdateAvailable(operator model.Operator) bool {
	return operator.Status == model.OperatorStatusOK && operator.AvailableVersion != "" && operator.AvailableVersion != operator.Version
}
