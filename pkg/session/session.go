// Package session holds the state behind an open cluster form: the allocated resources of the
// target Kubernetes cluster, kept fresh by polling, and the expected resources of the configuration
// being edited.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/internal/errdef"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/poll"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"github.com/dhis2-sre/im-dbaas/pkg/resourcebar"
	"k8s.io/utils/clock"
)

// Fetcher provides the resource figures a session renders.
type Fetcher interface {
	GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error)
	GetExpectedResources(ctx context.Context, config model.ClusterConfig) (resource.Expected, error)
}

// Clock is satisfied by clock.RealClock and the fake clock used in tests.
type Clock interface {
	clock.WithDelayedExecution
	NewTicker(d time.Duration) clock.Ticker
}

type Options struct {
	AllocatedInterval time.Duration
	DebounceDelay     time.Duration
}

// Session is a single open cluster form.
type Session struct {
	id    string
	mode  poll.Mode
	clock Clock

	allocated *poll.AllocatedPoller
	projector *poll.Projector

	// control serializes reconfiguration. It's always taken before the pollers' locks, which in
	// turn are held while mu is taken by their callbacks.
	control sync.Mutex
	started bool
	closed  bool

	mu              sync.Mutex
	config          model.ClusterConfig
	lastSeen        time.Time
	snapshot        *resource.Allocated
	snapshotCluster string
	projection      *poll.Projection
}

// View is what the form renders.
type View struct {
	ID                string              `json:"id"`
	Mode              poll.Mode           `json:"mode"`
	KubernetesCluster string              `json:"kubernetesCluster"`
	Configuration     model.ClusterConfig `json:"configuration"`
	Allocated         *resource.Allocated `json:"allocated,omitempty"`
	Projection        *poll.Projection    `json:"projection,omitempty"`
	Bars              resourcebar.Bars    `json:"bars"`
	Insufficient      bool                `json:"insufficient"`
}

func New(logger *slog.Logger, fetcher Fetcher, clock Clock, id string, mode poll.Mode, options Options) *Session {
	s := &Session{
		id:       id,
		mode:     mode,
		clock:    clock,
		lastSeen: clock.Now(),
	}

	logger = logger.With("session", id)
	s.allocated = poll.NewAllocatedPoller(logger, fetcher, clock, options.AllocatedInterval, s.setAllocated)
	s.projector = poll.NewProjector(logger, fetcher, clock, options.DebounceDelay, mode, s.setProjection)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Configure replaces the configuration. Polling restarts when the target Kubernetes cluster changes
// and expected resources are requested once the configuration has settled. Configurations that
// can't be projected are kept but don't trigger a projection. Edit sessions keep the first target
// they were configured with.
func (s *Session) Configure(config model.ClusterConfig) error {
	s.control.Lock()
	defer s.control.Unlock()

	if s.closed {
		return errdef.NewConflict("session %s is closed", s.id)
	}

	s.mu.Lock()
	previous := s.config.TargetKubernetesCluster
	if s.mode == poll.ModeEdit && previous != "" && previous != config.TargetKubernetesCluster {
		s.mu.Unlock()
		return errTargetFixed()
	}
	s.config = config
	s.mu.Unlock()

	if config.TargetKubernetesCluster == "" {
		s.allocated.Stop()
		s.started = false
	} else if !s.started || previous != config.TargetKubernetesCluster {
		s.allocated.Start(config.TargetKubernetesCluster)
		s.started = true
	}

	s.projector.Update(config)
	return nil
}

// SetTarget points the session at another Kubernetes cluster. Clusters being edited can't move.
func (s *Session) SetTarget(kubernetesCluster string) error {
	if s.mode == poll.ModeEdit {
		return errTargetFixed()
	}

	s.mu.Lock()
	config := s.config
	s.mu.Unlock()

	config.TargetKubernetesCluster = kubernetesCluster
	return s.Configure(config)
}

// Close stops polling. Closing more than once is a no-op.
func (s *Session) Close() {
	s.control.Lock()
	defer s.control.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.allocated.Stop()
	s.projector.Stop()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		ID:                s.id,
		Mode:              s.mode,
		KubernetesCluster: s.config.TargetKubernetesCluster,
		Configuration:     s.config,
		Projection:        s.projection,
	}

	// a snapshot of the previous target is never shown
	if s.snapshot != nil && s.snapshotCluster == s.config.TargetKubernetesCluster {
		view.Allocated = s.snapshot
	}

	var total, allocated, expected resource.Resources
	if view.Allocated != nil {
		total, allocated = view.Allocated.Total, view.Allocated.Allocated
	}
	if view.Projection != nil {
		expected = view.Projection.Expected
	}
	view.Bars = resourcebar.Triple(total, allocated, expected)
	view.Insufficient = view.Bars.CPU.IsInsufficient || view.Bars.Memory.IsInsufficient || view.Bars.Disk.IsInsufficient

	return view
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.clock.Now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) setAllocated(kubernetesCluster string, allocated resource.Allocated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &allocated
	s.snapshotCluster = kubernetesCluster
}

func (s *Session) setProjection(projection poll.Projection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projection = &projection
}

func errTargetFixed() error {
	return errdef.NewBadRequest("the Kubernetes cluster of an existing database cluster can't be changed")
}
