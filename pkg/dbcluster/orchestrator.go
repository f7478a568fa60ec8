// Package dbcluster runs lifecycle operations on database clusters and presents the clusters of a
// Kubernetes cluster as a list.
package dbcluster

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/event"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"golang.org/x/exp/maps"
	"k8s.io/utils/clock"
)

type Operation string

const (
	OperationCreate  Operation = "create"
	OperationUpdate  Operation = "update"
	OperationDelete  Operation = "delete"
	OperationRestart Operation = "restart"
	OperationSuspend Operation = "suspend"
	OperationResume  Operation = "resume"
	OperationUpgrade Operation = "upgrade"
)

type Result string

const (
	ResultOK    Result = "ok"
	ResultError Result = "error"
)

// State is the progress of the latest run of an operation on a cluster.
type State struct {
	Operation         Operation `json:"operation"`
	KubernetesCluster string    `json:"kubernetesCluster"`
	ClusterName       string    `json:"clusterName"`
	Loading           bool      `json:"loading"`
	Result            Result    `json:"result,omitempty"`
	Error             string    `json:"error,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (s State) key() string {
	return key(s.Operation, s.KubernetesCluster, s.ClusterName)
}

func key(operation Operation, kubernetesCluster, clusterName string) string {
	return kubernetesCluster + "/" + clusterName + "/" + string(operation)
}

type mutator interface {
	CreateCluster(ctx context.Context, config model.ClusterConfig) error
	UpdateCluster(ctx context.Context, config model.ClusterConfig) error
	DeleteCluster(ctx context.Context, cluster model.DBCluster) error
	RestartCluster(ctx context.Context, cluster model.DBCluster) error
	SuspendCluster(ctx context.Context, cluster model.DBCluster) error
	ResumeCluster(ctx context.Context, cluster model.DBCluster) error
	UpgradeCluster(ctx context.Context, cluster model.DBCluster) error
}

func NewOrchestrator(logger *slog.Logger, controlPlane mutator, notifier event.Notifier, clock clock.PassiveClock) *Orchestrator {
	return &Orchestrator{
		logger:       logger,
		controlPlane: controlPlane,
		notifier:     notifier,
		clock:        clock,
		states:       make(map[string]State),
	}
}

// Orchestrator runs mutating operations against the control plane. Control plane failures never
// escape as errors. They're logged, recorded in the operation's state and sent as an error
// notification. Every success is followed by a refresh event for the owning Kubernetes cluster.
type Orchestrator struct {
	logger       *slog.Logger
	controlPlane mutator
	notifier     event.Notifier
	clock        clock.PassiveClock

	mu     sync.Mutex
	states map[string]State
}

func (o *Orchestrator) Create(ctx context.Context, config model.ClusterConfig) State {
	return o.run(ctx, OperationCreate, config.TargetKubernetesCluster, config.ClusterName, func(ctx context.Context) error {
		return o.controlPlane.CreateCluster(ctx, config)
	})
}

// Update applies config to cluster. The cluster's name, Kubernetes cluster and engine can't change
// and are taken from cluster. A nil cluster is a no-op.
func (o *Orchestrator) Update(ctx context.Context, cluster *model.DBCluster, config model.ClusterConfig) (State, bool) {
	if cluster == nil {
		return State{}, false
	}

	config.ClusterName = cluster.ClusterName
	config.TargetKubernetesCluster = cluster.KubernetesClusterName
	config.DatabaseEngine = cluster.DatabaseType
	return o.run(ctx, OperationUpdate, cluster.KubernetesClusterName, cluster.ClusterName, func(ctx context.Context) error {
		return o.controlPlane.UpdateCluster(ctx, config)
	}), true
}

func (o *Orchestrator) Delete(ctx context.Context, cluster *model.DBCluster) (State, bool) {
	return o.runOn(ctx, OperationDelete, cluster, o.controlPlane.DeleteCluster)
}

func (o *Orchestrator) Restart(ctx context.Context, cluster *model.DBCluster) (State, bool) {
	return o.runOn(ctx, OperationRestart, cluster, o.controlPlane.RestartCluster)
}

func (o *Orchestrator) Suspend(ctx context.Context, cluster *model.DBCluster) (State, bool) {
	return o.runOn(ctx, OperationSuspend, cluster, o.controlPlane.SuspendCluster)
}

func (o *Orchestrator) Resume(ctx context.Context, cluster *model.DBCluster) (State, bool) {
	return o.runOn(ctx, OperationResume, cluster, o.controlPlane.ResumeCluster)
}

// Upgrade moves cluster to the image the control plane offers.
func (o *Orchestrator) Upgrade(ctx context.Context, cluster *model.DBCluster) (State, bool) {
	return o.runOn(ctx, OperationUpgrade, cluster, o.controlPlane.UpgradeCluster)
}

// SuspendOrResume suspends a ready cluster and resumes a suspended one. Clusters in any other
// status are left alone.
func (o *Orchestrator) SuspendOrResume(ctx context.Context, cluster *model.DBCluster) (State, bool) {
	if cluster == nil {
		return State{}, false
	}

	switch cluster.Status {
	case model.DBClusterStatusReady:
		return o.Suspend(ctx, cluster)
	case model.DBClusterStatusSuspended:
		return o.Resume(ctx, cluster)
	}
	return State{}, false
}

// State returns the state of the latest run of operation on a cluster.
func (o *Orchestrator) State(operation Operation, kubernetesCluster, clusterName string) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.states[key(operation, kubernetesCluster, clusterName)]
	return state, ok
}

// States returns the state of every operation ordered by key. An empty kubernetesCluster returns
// the states of all Kubernetes clusters.
func (o *Orchestrator) States(kubernetesCluster string) []State {
	o.mu.Lock()
	states := maps.Values(o.states)
	o.mu.Unlock()

	states = slices.DeleteFunc(states, func(s State) bool {
		return kubernetesCluster != "" && s.KubernetesCluster != kubernetesCluster
	})
	slices.SortFunc(states, func(a, b State) int {
		return cmp.Compare(a.key(), b.key())
	})
	return states
}

func (o *Orchestrator) runOn(ctx context.Context, operation Operation, cluster *model.DBCluster, call func(context.Context, model.DBCluster) error) (State, bool) {
	if cluster == nil {
		return State{}, false
	}

	c := *cluster
	return o.run(ctx, operation, c.KubernetesClusterName, c.ClusterName, func(ctx context.Context) error {
		return call(ctx, c)
	}), true
}

func (o *Orchestrator) run(ctx context.Context, operation Operation, kubernetesCluster, clusterName string, call func(context.Context) error) State {
	o.set(State{
		Operation:         operation,
		KubernetesCluster: kubernetesCluster,
		ClusterName:       clusterName,
		Loading:           true,
	})

	logger := o.logger.With("operation", operation, "kubernetesCluster", kubernetesCluster, "clusterName", clusterName)
	err := call(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Cluster operation failed", "error", err)
		state := o.set(State{
			Operation:         operation,
			KubernetesCluster: kubernetesCluster,
			ClusterName:       clusterName,
			Result:            ResultError,
			Error:             err.Error(),
		})
		o.notifier.Notify(ctx, event.Failure(string(operation), fmt.Sprintf("Failed to %s cluster %s: %v", operation, clusterName, err)))
		return state
	}

	logger.InfoContext(ctx, "Cluster operation succeeded")
	state := o.set(State{
		Operation:         operation,
		KubernetesCluster: kubernetesCluster,
		ClusterName:       clusterName,
		Result:            ResultOK,
	})
	o.notifier.Notify(ctx, event.Success(string(operation), successMessages[operation](clusterName)))
	o.notifier.Notify(ctx, event.Refresh(kubernetesCluster))
	return state
}

func (o *Orchestrator) set(state State) State {
	state.UpdatedAt = o.clock.Now()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[state.key()] = state
	return state
}

var successMessages = map[Operation]func(string) string{
	OperationCreate:  func(name string) string { return fmt.Sprintf("Cluster %s is being created", name) },
	OperationUpdate:  func(name string) string { return fmt.Sprintf("Cluster %s is being updated", name) },
	OperationDelete:  func(name string) string { return fmt.Sprintf("Cluster %s is being deleted", name) },
	OperationRestart: func(name string) string { return fmt.Sprintf("Cluster %s is restarting", name) },
	OperationSuspend: func(name string) string { return fmt.Sprintf("Cluster %s is being suspended", name) },
	OperationResume:  func(name string) string { return fmt.Sprintf("Cluster %s is being resumed", name) },
	OperationUpgrade: func(name string) string { return fmt.Sprintf("Cluster %s is being upgraded", name) },
}
