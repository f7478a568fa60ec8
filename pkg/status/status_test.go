package status

import (
	"testing"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestRulesCoverEveryStatus(t *testing.T) {
	for _, status := range model.AllDBClusterStatuses {
		_, ok := rules[status]
		assert.Truef(t, ok, "no display rule for status %q", status)
	}

	for _, status := range model.AllKubernetesClusterStatuses {
		_, ok := kubernetesRules[status]
		assert.Truef(t, ok, "no display rule for kubernetes status %q", status)
	}
}

func TestDescribe(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		display := Describe(model.DBCluster{Status: model.DBClusterStatusReady, Message: "all good", FinishedSteps: 3, TotalSteps: 3})

		assert.Equal(t, VisualBadge, display.Visual)
		assert.Equal(t, ColorGreen, display.Color)
		assert.False(t, display.ShowMessage)
		assert.False(t, display.Error)
	})

	t.Run("Suspended", func(t *testing.T) {
		display := Describe(model.DBCluster{Status: model.DBClusterStatusSuspended})

		assert.Equal(t, VisualBadge, display.Visual)
		assert.Equal(t, ColorOrange, display.Color)
	})

	t.Run("InProgress", func(t *testing.T) {
		for _, status := range []model.DBClusterStatus{
			model.DBClusterStatusChanging,
			model.DBClusterStatusDeleting,
			model.DBClusterStatusUpgrading,
			model.DBClusterStatusUnknown,
		} {
			display := Describe(model.DBCluster{Status: status, FinishedSteps: 2, TotalSteps: 5})

			assert.Equal(t, VisualProgress, display.Visual, status)
			assert.False(t, display.Error, status)
			assert.False(t, display.ShowMessage, status)
			assert.Equal(t, 2, display.FinishedSteps)
			assert.Equal(t, 5, display.TotalSteps)

			display = Describe(model.DBCluster{Status: status, Message: "pod pending"})

			assert.True(t, display.ShowMessage, status)
			assert.Zero(t, display.FinishedSteps)
			assert.Zero(t, display.TotalSteps)
		}
	})

	t.Run("Errored", func(t *testing.T) {
		for _, status := range []model.DBClusterStatus{model.DBClusterStatusFailed, model.DBClusterStatusInvalid} {
			display := Describe(model.DBCluster{Status: status, Message: "crash loop", FinishedSteps: 1, TotalSteps: 4})

			assert.Equal(t, VisualProgress, display.Visual)
			assert.True(t, display.Error)
			assert.True(t, display.ShowMessage)
			assert.Equal(t, ColorRed, display.Color)
		}
	})

	t.Run("AbsentStatusIsUnknown", func(t *testing.T) {
		display := Describe(model.DBCluster{})

		assert.Equal(t, model.DBClusterStatusUnknown, display.Status)
		assert.Equal(t, VisualProgress, display.Visual)
	})
}

func TestIsClusterChanging(t *testing.T) {
	for _, status := range model.AllDBClusterStatuses {
		want := status == model.DBClusterStatusChanging || status == model.DBClusterStatusDeleting
		assert.Equal(t, want, IsClusterChanging(model.DBCluster{Status: status}), status)
	}
	assert.False(t, IsClusterChanging(model.DBCluster{}))
}

func TestTracker(t *testing.T) {
	t.Run("SettlesAfterChangingToReady", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		tracker := NewTracker(clock, DefaultSettleDelay)

		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusChanging, FinishedSteps: 2, TotalSteps: 4})
		display := tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady, TotalSteps: 4})

		assert.Equal(t, VisualProgress, display.Visual)
		assert.True(t, display.Settling)
		assert.Equal(t, 4, display.FinishedSteps)
		assert.Equal(t, 4, display.TotalSteps)

		clock.Step(DefaultSettleDelay - time.Millisecond)
		assert.Equal(t, VisualProgress, tracker.Display().Visual)

		clock.Step(time.Millisecond)
		display = tracker.Display()
		assert.Equal(t, VisualBadge, display.Visual)
		assert.False(t, display.Settling)
	})

	t.Run("RepeatedReadyDuringSettleKeepsProgress", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		tracker := NewTracker(clock, DefaultSettleDelay)

		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusChanging})
		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady})
		clock.Step(time.Second)
		display := tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady})

		assert.Equal(t, VisualProgress, display.Visual)

		clock.Step(3 * time.Second)
		assert.Equal(t, VisualBadge, tracker.Display().Visual)
	})

	t.Run("ReadyToReadyNeverShowsProgress", func(t *testing.T) {
		clock := testingclock.NewFakeClock(time.Now())
		tracker := NewTracker(clock, DefaultSettleDelay)

		assert.Equal(t, VisualBadge, tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady}).Visual)
		assert.Equal(t, VisualBadge, tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady}).Visual)
		clock.Step(time.Second)
		assert.Equal(t, VisualBadge, tracker.Display().Visual)
	})

	t.Run("FirstObservationReadyShowsBadge", func(t *testing.T) {
		tracker := NewTracker(testingclock.NewFakeClock(time.Now()), DefaultSettleDelay)

		assert.Equal(t, VisualBadge, tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady}).Visual)
		_, ok := tracker.Previous()
		assert.False(t, ok)
	})

	t.Run("OtherTransitionsSwitchImmediately", func(t *testing.T) {
		tracker := NewTracker(testingclock.NewFakeClock(time.Now()), DefaultSettleDelay)

		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusUpgrading})
		assert.Equal(t, VisualBadge, tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady}).Visual)

		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusChanging})
		display := tracker.Observe(model.DBCluster{Status: model.DBClusterStatusFailed})
		assert.True(t, display.Error)
		assert.False(t, display.Settling)

		previous, ok := tracker.Previous()
		require.True(t, ok)
		assert.Equal(t, model.DBClusterStatusChanging, previous)
	})

	t.Run("SettleIsCancelledByLeavingReady", func(t *testing.T) {
		tracker := NewTracker(testingclock.NewFakeClock(time.Now()), DefaultSettleDelay)

		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusChanging})
		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady})
		tracker.Observe(model.DBCluster{Status: model.DBClusterStatusSuspended})

		display := tracker.Observe(model.DBCluster{Status: model.DBClusterStatusReady})

		assert.Equal(t, VisualBadge, display.Visual)
	})
}

func TestAvailable(t *testing.T) {
	upgradable := func(status model.DBClusterStatus) model.DBCluster {
		return model.DBCluster{Status: status, InstalledImage: "percona/psmdb:4.4.5", AvailableImage: "percona/psmdb:4.4.8"}
	}

	t.Run("Update", func(t *testing.T) {
		assert.True(t, Available(upgradable(model.DBClusterStatusReady), ActionUpdate))
		assert.True(t, Available(upgradable(model.DBClusterStatusFailed), ActionUpdate))
		for _, status := range []model.DBClusterStatus{
			model.DBClusterStatusUpgrading,
			model.DBClusterStatusDeleting,
			model.DBClusterStatusChanging,
			model.DBClusterStatusSuspended,
		} {
			assert.False(t, Available(upgradable(status), ActionUpdate), status)
		}
		assert.False(t, Available(model.DBCluster{Status: model.DBClusterStatusReady}, ActionUpdate))
	})

	t.Run("Restart", func(t *testing.T) {
		for _, status := range model.AllDBClusterStatuses {
			want := status != model.DBClusterStatusChanging && status != model.DBClusterStatusDeleting && status != model.DBClusterStatusSuspended
			assert.Equal(t, want, Available(model.DBCluster{Status: status}, ActionRestart), status)
		}
	})

	t.Run("SuspendAndResumeAreMutuallyExclusive", func(t *testing.T) {
		for _, status := range model.AllDBClusterStatuses {
			cluster := model.DBCluster{Status: status}
			suspend := Available(cluster, ActionSuspend)
			resume := Available(cluster, ActionResume)

			assert.False(t, suspend && resume, status)
			assert.Equal(t, status == model.DBClusterStatusReady, suspend, status)
			assert.Equal(t, status == model.DBClusterStatusSuspended, resume, status)
		}
	})

	t.Run("Actions", func(t *testing.T) {
		actions := Actions(model.DBCluster{Status: model.DBClusterStatusDeleting})

		assert.Len(t, actions, len(AllActions))
		assert.False(t, actions[ActionDelete])
		assert.False(t, actions[ActionEdit])
		assert.True(t, actions[ActionLogs])
	})
}

func TestDescribeKubernetes(t *testing.T) {
	display := DescribeKubernetes(model.KubernetesCluster{
		KubernetesClusterName: "prod",
		Status:                model.KubernetesClusterStatusOK,
		Operators: map[model.Engine]model.Operator{
			model.MySQL:   {Status: model.OperatorStatusOK, Version: "1.10.0", AvailableVersion: "1.11.0"},
			model.MongoDB: {Status: model.OperatorStatusOK, Version: "1.11.0", AvailableVersion: "1.11.0"},
		},
	})

	assert.Equal(t, ColorGreen, display.Color)
	assert.True(t, display.OperatorUpdates[model.MySQL])
	assert.False(t, display.OperatorUpdates[model.MongoDB])

	display = DescribeKubernetes(model.KubernetesCluster{Status: model.KubernetesClusterStatusProvisioning})
	assert.Equal(t, VisualProgress, display.Visual)
}
