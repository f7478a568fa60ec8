package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"k8s.io/utils/clock"
)

// DefaultDebounceDelay is the quiet period after the last configuration change before expected
// resources are requested.
const DefaultDebounceDelay = 500 * time.Millisecond

type expectedFetcher interface {
	GetExpectedResources(ctx context.Context, config model.ClusterConfig) (resource.Expected, error)
}

type Mode string

const (
	// ModeCreate reports projections as is.
	ModeCreate Mode = "create"
	// ModeEdit reports projections as the difference from the first projection, which is the
	// projection of the cluster being edited.
	ModeEdit Mode = "edit"
)

type Projection struct {
	Expected   resource.Resources `json:"expected"`
	Baseline   resource.Resources `json:"baseline"`
	Difference bool               `json:"difference"`
}

// Projector requests the expected resources of the latest valid configuration once changes have
// stopped for the debounce delay.
type Projector struct {
	logger       *slog.Logger
	fetcher      expectedFetcher
	clock        clock.WithDelayedExecution
	delay        time.Duration
	mode         Mode
	onProjection func(Projection)

	mu         sync.Mutex
	timer      clock.Timer
	generation uint64
	applied    uint64
	baseline   *resource.Resources
	stopped    bool
}

// NewProjector creates a projector. onProjection must not call back into the projector.
func NewProjector(logger *slog.Logger, fetcher expectedFetcher, clock clock.WithDelayedExecution, delay time.Duration, mode Mode, onProjection func(Projection)) *Projector {
	return &Projector{
		logger:       logger,
		fetcher:      fetcher,
		clock:        clock,
		delay:        delay,
		mode:         mode,
		onProjection: onProjection,
	}
}

// Update restarts the debounce timer with config. Configurations without positive cpu, memory,
// disk and node count are ignored and false is returned.
func (p *Projector) Update(config model.ClusterConfig) bool {
	if !config.Valid() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}

	if p.timer != nil {
		p.timer.Stop()
	}
	p.generation++
	generation := p.generation
	p.timer = p.clock.AfterFunc(p.delay, func() {
		p.project(generation, config)
	})

	return true
}

// Stop cancels a pending projection. Projections in flight are discarded.
func (p *Projector) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Baseline returns the first successful projection, if any.
func (p *Projector) Baseline() (resource.Resources, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.baseline == nil {
		return resource.Resources{}, false
	}
	return *p.baseline, true
}

func (p *Projector) project(generation uint64, config model.ClusterConfig) {
	p.mu.Lock()
	superseded := p.stopped || generation != p.generation
	p.mu.Unlock()
	if superseded {
		return
	}

	expected, err := p.fetcher.GetExpectedResources(context.Background(), config)
	if err != nil {
		p.logger.Error("Failed to fetch expected resources", "clusterName", config.ClusterName, "kubernetesCluster", config.TargetKubernetesCluster, "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// overlapping requests may complete out of order
	if p.stopped || generation <= p.applied {
		return
	}
	p.applied = generation

	if p.baseline == nil {
		baseline := expected.Expected
		p.baseline = &baseline
	}

	projection := Projection{
		Expected: expected.Expected,
		Baseline: *p.baseline,
	}
	if p.mode == ModeEdit {
		projection.Expected = resource.Delta(expected.Expected, *p.baseline)
		projection.Difference = true
	}

	p.onProjection(projection)
}
