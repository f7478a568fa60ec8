package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/dhis2-sre/im-dbaas/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func snapshot(allocatedCPU float64) resource.Allocated {
	return resource.NewAllocated(
		resource.Raw{CPUMilli: 10000, MemoryBytes: 10e9, DiskBytes: 100e9},
		resource.Raw{CPUMilli: allocatedCPU, MemoryBytes: 3e9, DiskBytes: 10e9},
	)
}

func TestAllocatedPoller(t *testing.T) {
	t.Run("FetchesImmediatelyAndAfterEveryInterval", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		var calls atomic.Int32
		fetcher := &mockAllocatedFetcher{}
		fetcher.
			On("GetAllocatedResources", mock.Anything, "prod").
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(snapshot(1000), nil)
		updates := make(chan resource.Allocated, 10)
		poller := NewAllocatedPoller(slog.Default(), fetcher, clock, DefaultAllocatedInterval, func(_ string, a resource.Allocated) { updates <- a })
		defer poller.Stop()

		poller.Start("prod")

		select {
		case update := <-updates:
			require.NotNil(t, update.Allocated.CPU)
			assert.Equal(t, 1.0, update.Allocated.CPU.Value)
		case <-time.After(waitFor):
			require.Fail(t, "no update received")
		}
		require.Eventually(t, clock.HasWaiters, waitFor, tick)

		clock.Step(DefaultAllocatedInterval - time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())

		clock.Step(time.Millisecond)
		assert.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
		assert.Equal(t, "prod", poller.Target())
	})

	t.Run("KeepsPollingAfterFailure", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		fetcher := &mockAllocatedFetcher{}
		fetcher.
			On("GetAllocatedResources", mock.Anything, "prod").
			Return(resource.Allocated{}, errors.New("control plane unavailable")).
			Once()
		fetcher.
			On("GetAllocatedResources", mock.Anything, "prod").
			Return(snapshot(2000), nil)
		updates := make(chan resource.Allocated, 10)
		poller := NewAllocatedPoller(slog.Default(), fetcher, clock, DefaultAllocatedInterval, func(_ string, a resource.Allocated) { updates <- a })
		defer poller.Stop()

		poller.Start("prod")
		require.Eventually(t, clock.HasWaiters, waitFor, tick)
		assert.Empty(t, updates)

		clock.Step(DefaultAllocatedInterval)

		select {
		case update := <-updates:
			assert.Equal(t, 2.0, update.Allocated.CPU.Value)
		case <-time.After(waitFor):
			require.Fail(t, "no update received after failure")
		}
	})

	t.Run("StopCancelsTimer", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		var calls atomic.Int32
		fetcher := &mockAllocatedFetcher{}
		fetcher.
			On("GetAllocatedResources", mock.Anything, "prod").
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(snapshot(1000), nil)
		poller := NewAllocatedPoller(slog.Default(), fetcher, clock, DefaultAllocatedInterval, func(string, resource.Allocated) {})

		poller.Start("prod")
		require.Eventually(t, clock.HasWaiters, waitFor, tick)

		poller.Stop()
		require.Eventually(t, func() bool { return !clock.HasWaiters() }, waitFor, tick)
		clock.Step(2 * DefaultAllocatedInterval)

		assert.Never(t, func() bool { return calls.Load() > 1 }, 100*time.Millisecond, tick)
	})

	t.Run("DiscardsResponseArrivingAfterStop", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		started := make(chan struct{})
		release := make(chan struct{})
		fetcher := &mockAllocatedFetcher{}
		fetcher.
			On("GetAllocatedResources", mock.Anything, "prod").
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return(snapshot(1000), nil).
			Once()
		var updated atomic.Bool
		poller := NewAllocatedPoller(slog.Default(), fetcher, clock, DefaultAllocatedInterval, func(string, resource.Allocated) { updated.Store(true) })

		poller.Start("prod")
		<-started
		poller.Stop()
		close(release)

		assert.Never(t, updated.Load, 100*time.Millisecond, tick)
		fetcher.AssertNumberOfCalls(t, "GetAllocatedResources", 1)
	})

	t.Run("RestartsOnTargetChange", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		fetcher := &mockAllocatedFetcher{}
		fetcher.On("GetAllocatedResources", mock.Anything, "dev").Return(snapshot(1000), nil)
		fetcher.On("GetAllocatedResources", mock.Anything, "prod").Return(snapshot(3000), nil)
		updates := make(chan resource.Allocated, 10)
		poller := NewAllocatedPoller(slog.Default(), fetcher, clock, DefaultAllocatedInterval, func(_ string, a resource.Allocated) { updates <- a })
		defer poller.Stop()

		poller.Start("dev")
		<-updates
		poller.Start("prod")

		select {
		case update := <-updates:
			assert.Equal(t, 3.0, update.Allocated.CPU.Value)
		case <-time.After(waitFor):
			require.Fail(t, "no update received for new target")
		}
		assert.Equal(t, "prod", poller.Target())
	})
}

func validConfig(cpu float64) model.ClusterConfig {
	return model.ClusterConfig{
		ClusterName:             "mysql-7g2x1",
		TargetKubernetesCluster: "prod",
		DatabaseEngine:          model.MySQL,
		NodeCount:               3,
		CPU:                     cpu,
		MemoryGB:                2,
		DiskGB:                  25,
	}
}

func expected(cpuMilli, memory, disk float64) resource.Expected {
	return resource.Expected{Expected: resource.Raw{CPUMilli: cpuMilli, MemoryBytes: memory, DiskBytes: disk}.Resources()}
}

func TestProjector(t *testing.T) {
	t.Run("DebouncesToLastChange", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		var calls atomic.Int32
		fetcher := &mockExpectedFetcher{}
		fetcher.
			On("GetExpectedResources", mock.Anything, validConfig(5)).
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(expected(15000, 6e9, 75e9), nil)
		projections := make(chan Projection, 10)
		projector := NewProjector(slog.Default(), fetcher, clock, DefaultDebounceDelay, ModeCreate, func(p Projection) { projections <- p })
		defer projector.Stop()

		for cpu := 1.0; cpu <= 5; cpu++ {
			require.True(t, projector.Update(validConfig(cpu)))
			clock.Step(DefaultDebounceDelay / 2)
		}
		clock.Step(DefaultDebounceDelay)

		select {
		case projection := <-projections:
			assert.False(t, projection.Difference)
			assert.Equal(t, 15.0, projection.Expected.CPU.Value)
		case <-time.After(waitFor):
			require.Fail(t, "no projection received")
		}
		assert.Never(t, func() bool { return calls.Load() > 1 }, 100*time.Millisecond, tick)
		fetcher.AssertExpectations(t)
	})

	t.Run("IgnoresInvalidConfiguration", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		fetcher := &mockExpectedFetcher{}
		projector := NewProjector(slog.Default(), fetcher, clock, DefaultDebounceDelay, ModeCreate, func(Projection) {})
		defer projector.Stop()

		config := validConfig(1)
		config.DiskGB = 0

		assert.False(t, projector.Update(config))
		assert.False(t, clock.HasWaiters())
		fetcher.AssertNotCalled(t, "GetExpectedResources", mock.Anything, mock.Anything)
	})

	t.Run("ReportsDifferenceFromBaselineWhenEditing", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		fetcher := &mockExpectedFetcher{}
		fetcher.On("GetExpectedResources", mock.Anything, validConfig(1)).Return(expected(4000, 4e9, 20e9), nil)
		fetcher.On("GetExpectedResources", mock.Anything, validConfig(2)).Return(expected(6000, 3e9, 20e9), nil)
		projections := make(chan Projection, 10)
		projector := NewProjector(slog.Default(), fetcher, clock, DefaultDebounceDelay, ModeEdit, func(p Projection) { projections <- p })
		defer projector.Stop()

		projector.Update(validConfig(1))
		clock.Step(DefaultDebounceDelay)
		first := receive(t, projections)
		assert.True(t, first.Difference)
		assert.Zero(t, first.Expected.CPU.Value)

		projector.Update(validConfig(2))
		clock.Step(DefaultDebounceDelay)
		second := receive(t, projections)

		assert.Equal(t, 2.0, second.Expected.CPU.Value)
		assert.Equal(t, resource.Quantity{Value: -1, Units: resource.GB, Original: -1e9}, *second.Expected.Memory)
		assert.Zero(t, second.Expected.Disk.Original)
		assert.Equal(t, 4.0, second.Baseline.CPU.Value)
		baseline, ok := projector.Baseline()
		require.True(t, ok)
		assert.Equal(t, 4.0, baseline.CPU.Value)
	})

	t.Run("ReportsAbsoluteWhenCreating", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		fetcher := &mockExpectedFetcher{}
		fetcher.On("GetExpectedResources", mock.Anything, validConfig(1)).Return(expected(4000, 4e9, 20e9), nil)
		fetcher.On("GetExpectedResources", mock.Anything, validConfig(2)).Return(expected(6000, 3e9, 20e9), nil)
		projections := make(chan Projection, 10)
		projector := NewProjector(slog.Default(), fetcher, clock, DefaultDebounceDelay, ModeCreate, func(p Projection) { projections <- p })
		defer projector.Stop()

		projector.Update(validConfig(1))
		clock.Step(DefaultDebounceDelay)
		receive(t, projections)
		projector.Update(validConfig(2))
		clock.Step(DefaultDebounceDelay)
		second := receive(t, projections)

		assert.False(t, second.Difference)
		assert.Equal(t, 6.0, second.Expected.CPU.Value)
	})

	t.Run("StopCancelsPendingProjection", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		fetcher := &mockExpectedFetcher{}
		projector := NewProjector(slog.Default(), fetcher, clock, DefaultDebounceDelay, ModeCreate, func(Projection) {})

		projector.Update(validConfig(1))
		projector.Stop()
		clock.Step(DefaultDebounceDelay)

		assert.False(t, projector.Update(validConfig(2)))
		time.Sleep(50 * time.Millisecond)
		fetcher.AssertNotCalled(t, "GetExpectedResources", mock.Anything, mock.Anything)
	})

	t.Run("FailureProducesNoProjection", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		var calls atomic.Int32
		fetcher := &mockExpectedFetcher{}
		fetcher.
			On("GetExpectedResources", mock.Anything, validConfig(1)).
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(resource.Expected{}, errors.New("bad gateway"))
		var projected atomic.Bool
		projector := NewProjector(slog.Default(), fetcher, clock, DefaultDebounceDelay, ModeCreate, func(Projection) { projected.Store(true) })
		defer projector.Stop()

		projector.Update(validConfig(1))
		clock.Step(DefaultDebounceDelay)

		require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
		assert.Never(t, projected.Load, 100*time.Millisecond, tick)
		_, ok := projector.Baseline()
		assert.False(t, ok)
	})
}

func receive(t *testing.T, projections <-chan Projection) Projection {
	t.Helper()
	select {
	case projection := <-projections:
		return projection
	case <-time.After(waitFor):
		require.Fail(t, "no projection received")
	}
	return Projection{}
}

type mockAllocatedFetcher struct{ mock.Mock }

func (m *mockAllocatedFetcher) GetAllocatedResources(ctx context.Context, kubernetesCluster string) (resource.Allocated, error) {
	called := m.Called(ctx, kubernetesCluster)
	return called.Get(0).(resource.Allocated), called.Error(1)
}

type mockExpectedFetcher struct{ mock.Mock }

func (m *mockExpectedFetcher) GetExpectedResources(ctx context.Context, config model.ClusterConfig) (resource.Expected, error) {
	called := m.Called(ctx, config)
	return called.Get(0).(resource.Expected), called.Error(1)
}
