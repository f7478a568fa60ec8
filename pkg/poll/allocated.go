// Package poll keeps resource snapshots of an editing session fresh. AllocatedPoller re-fetches the
// allocated resources of a Kubernetes cluster on a fixed interval and Projector debounces requests
// for the expected resources of a prospective cluster configuration.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"k8s.io/utils/clock"
)

// DefaultAllocatedInterval is the delay between the end of one allocated resources fetch and the
// start of the next.
const DefaultAllocatedInterval = 10 * time.Second

type allocatedFetcher interface {
	GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error)
}

// AllocatedPoller fetches the allocated resources of one Kubernetes cluster at a time. A fetch is
// never started before the previous one of the same cycle has completed.
type AllocatedPoller struct {
	logger   *slog.Logger
	fetcher  allocatedFetcher
	clock    clock.Clock
	interval time.Duration
	onUpdate func(kubernetesCluster string, allocated resource.Allocated)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	target     string
}

// NewAllocatedPoller creates a stopped poller. onUpdate is called with every successful fetch of the
// current cycle and must not call back into the poller.
func NewAllocatedPoller(logger *slog.Logger, fetcher allocatedFetcher, clock clock.Clock, interval time.Duration, onUpdate func(kubernetesCluster string, allocated resource.Allocated)) *AllocatedPoller {
	return &AllocatedPoller{
		logger:   logger,
		fetcher:  fetcher,
		clock:    clock,
		interval: interval,
		onUpdate: onUpdate,
	}
}

// Start begins a new cycle for kubernetesCluster, cancelling the current one first. The first fetch
// happens immediately.
func (p *AllocatedPoller) Start(kubernetesCluster string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.target = kubernetesCluster

	go p.run(ctx, p.generation, kubernetesCluster)
}

// Stop cancels the current cycle. A fetch in flight is allowed to complete but its result is
// discarded.
func (p *AllocatedPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Target returns the Kubernetes cluster of the current cycle.
func (p *AllocatedPoller) Target() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

func (p *AllocatedPoller) stopLocked() {
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *AllocatedPoller) run(ctx context.Context, generation uint64, kubernetesCluster string) {
	for {
		// requests already sent aren't cancelled, their results are dropped by apply instead
		allocated, err := p.fetcher.GetAllocatedResources(context.WithoutCancel(ctx), kubernetesCluster)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to fetch allocated resources", "kubernetesCluster", kubernetesCluster, "error", err)
		} else {
			p.apply(generation, kubernetesCluster, allocated)
		}

		timer := p.clock.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
	}
}

func (p *AllocatedPoller) apply(generation uint64, kubernetesCluster string, allocated resource.Allocated) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		p.logger.Debug("Discarding allocated resources of a stopped cycle")
		return
	}
	p.onUpdate(kubernetesCluster, allocated)
}
