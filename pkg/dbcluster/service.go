package dbcluster

import (
	"context"
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/status"
	"k8s.io/utils/clock"
)

type reader interface {
	ListClusters(ctx context.Context, kubernetesCluster string) ([]model.DBCluster, error)
	GetClusterCredentials(ctx context.Context, cluster model.DBCluster) (model.Credentials, error)
	GetClusterLogs(ctx context.Context, cluster model.DBCluster) (model.ClusterLogs, error)
}

func NewService(controlPlane reader, clock clock.PassiveClock, settleDelay time.Duration) *Service {
	return &Service{
		controlPlane: controlPlane,
		clock:        clock,
		settleDelay:  settleDelay,
		trackers:     make(map[string]map[string]*status.Tracker),
	}
}

// Service is the list view of the database clusters of a Kubernetes cluster. It keeps a status
// tracker per listed cluster so a cluster that just became ready keeps its progress bar for the
// settle delay.
type Service struct {
	controlPlane reader
	clock        clock.PassiveClock
	settleDelay  time.Duration

	mu sync.Mutex
	// trackers by Kubernetes cluster and cluster name
	trackers map[string]map[string]*status.Tracker
}

type Row struct {
	model.DBCluster
	Display          status.Display         `json:"display"`
	Actions          map[status.Action]bool `json:"actions"`
	UpgradeAvailable bool                   `json:"upgradeAvailable"`
}

func (s *Service) List(ctx context.Context, kubernetesCluster string) ([]Row, error) {
	clusters, err := s.controlPlane.ListClusters(ctx, kubernetesCluster)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.trackers[kubernetesCluster]
	current := make(map[string]*status.Tracker, len(clusters))
	rows := make([]Row, 0, len(clusters))
	for _, cluster := range clusters {
		tracker, ok := previous[cluster.ClusterName]
		if !ok {
			tracker = status.NewTracker(s.clock, s.settleDelay)
		}
		current[cluster.ClusterName] = tracker

		rows = append(rows, Row{
			DBCluster:        cluster,
			Display:          tracker.Observe(cluster),
			Actions:          status.Actions(cluster),
			UpgradeAvailable: cluster.UpgradeAvailable(),
		})
	}
	// clusters that are gone take their trackers with them
	s.trackers[kubernetesCluster] = current

	return rows, nil
}

// Find returns the named cluster as currently reported by the control plane.
func (s *Service) Find(ctx context.Context, kubernetesCluster, name string) (model.DBCluster, error) {
	clusters, err := s.controlPlane.ListClusters(ctx, kubernetesCluster)
	if err != nil {
		return model.DBCluster{}, err
	}

	for _, cluster := range clusters {
		if cluster.ClusterName == name {
			return cluster, nil
		}
	}
	return model.DBCluster{}, errdef.NewNotFound("cluster %q not found on Kubernetes cluster %q", name, kubernetesCluster)
}

// Credentials returns the connection credentials of a ready cluster.
func (s *Service) Credentials(ctx context.Context, kubernetesCluster, name string) (model.Credentials, error) {
	cluster, err := s.Find(ctx, kubernetesCluster, name)
	if err != nil {
		return model.Credentials{}, err
	}

	if err := Allowed(cluster, status.ActionCredentials); err != nil {
		return model.Credentials{}, err
	}

	return s.controlPlane.GetClusterCredentials(ctx, cluster)
}

func (s *Service) Logs(ctx context.Context, kubernetesCluster, name string) (model.ClusterLogs, error) {
	cluster, err := s.Find(ctx, kubernetesCluster, name)
	if err != nil {
		return model.ClusterLogs{}, err
	}

	return s.controlPlane.GetClusterLogs(ctx, cluster)
}

// Allowed returns a conflict error if action isn't available in the cluster's current status.
func Allowed(cluster model.DBCluster, action status.Action) error {
	if !status.Available(cluster, action) {
		return errdef.NewConflict("can't %s cluster %q while it's %s", action, cluster.ClusterName, cluster.Status)
	}
	return nil
}
