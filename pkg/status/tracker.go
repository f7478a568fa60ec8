package status

import (
	"sync"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"k8s.io/utils/clock"
)

// DefaultSettleDelay is how long the progress bar stays visible after a cluster went from changing
// to ready.
const DefaultSettleDelay = 4 * time.Second

// Tracker remembers the previously observed status of one cluster. Its only purpose is to keep the
// progress bar visible for the settle delay after a changing -> ready transition instead of jumping
// straight from a half full bar to a static badge.
type Tracker struct {
	clock       clock.PassiveClock
	settleDelay time.Duration

	mu          sync.Mutex
	observed    bool
	previous    model.DBClusterStatus
	current     model.DBCluster
	settleUntil time.Time
}

func NewTracker(clock clock.PassiveClock, settleDelay time.Duration) *Tracker {
	return &Tracker{
		clock:       clock,
		settleDelay: settleDelay,
	}
}

// Observe records the latest cluster reported by the control plane and returns its display.
func (t *Tracker) Observe(cluster model.DBCluster) Display {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cluster.Status == "" {
		cluster.Status = model.DBClusterStatusUnknown
	}

	if t.observed {
		t.previous = t.current.Status
	}
	t.current = cluster
	t.observed = true

	switch {
	case t.previous == model.DBClusterStatusChanging && cluster.Status == model.DBClusterStatusReady:
		t.settleUntil = t.clock.Now().Add(t.settleDelay)
	case cluster.Status != model.DBClusterStatusReady:
		t.settleUntil = time.Time{}
	}

	return t.display()
}

// Display returns the display of the last observed cluster at the current time.
func (t *Tracker) Display() Display {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.display()
}

func (t *Tracker) display() Display {
	display := Describe(t.current)
	if t.current.Status != model.DBClusterStatusReady || !t.clock.Now().Before(t.settleUntil) {
		return display
	}

	total := t.current.TotalSteps
	display.Visual = VisualProgress
	display.Color = rules[model.DBClusterStatusChanging].color
	display.FinishedSteps = total
	display.TotalSteps = total
	display.Settling = true
	return display
}

// Previous returns the status observed before the latest one, if any.
func (t *Tracker) Previous() (model.DBClusterStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.previous, t.previous != ""
}
