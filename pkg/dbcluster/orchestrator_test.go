package dbcluster

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dhis2-sre/im-dbaas/pkg/event"
	"github.com/dhis2-sre/im-dbaas/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestOrchestrator_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		controlPlane := &mockControlPlane{}
		config := model.ClusterConfig{ClusterName: "mysql-1", TargetKubernetesCluster: "prod", DatabaseEngine: model.MySQL}
		controlPlane.On("CreateCluster", mock.Anything, config).Return(nil)
		notifier := &recordingNotifier{}
		orchestrator := NewOrchestrator(slog.Default(), controlPlane, notifier, testingclock.NewFakeClock(time.Now()))

		state := orchestrator.Create(context.Background(), config)

		assert.Equal(t, ResultOK, state.Result)
		assert.False(t, state.Loading)
		assert.Empty(t, state.Error)
		events := notifier.Events()
		require.Len(t, events, 2)
		assert.Equal(t, event.LevelSuccess, events[0].Level)
		assert.Equal(t, "create", events[0].Operation)
		assert.Equal(t, "Cluster mysql-1 is being created", events[0].Message)
		assert.Equal(t, event.TypeRefresh, events[1].Type)
		assert.Equal(t, "prod", events[1].KubernetesCluster)
		controlPlane.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		controlPlane := &mockControlPlane{}
		config := model.ClusterConfig{ClusterName: "mysql-1", TargetKubernetesCluster: "prod", DatabaseEngine: model.MySQL}
		controlPlane.On("CreateCluster", mock.Anything, config).Return(errors.New("quota exceeded"))
		notifier := &recordingNotifier{}
		orchestrator := NewOrchestrator(slog.Default(), controlPlane, notifier, testingclock.NewFakeClock(time.Now()))

		state := orchestrator.Create(context.Background(), config)

		assert.Equal(t, ResultError, state.Result)
		assert.False(t, state.Loading)
		assert.Equal(t, "quota exceeded", state.Error)
		events := notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, event.LevelError, events[0].Level)
		assert.Equal(t, "Failed to create cluster mysql-1: quota exceeded", events[0].Message)
		recorded, ok := orchestrator.State(OperationCreate, "prod", "mysql-1")
		require.True(t, ok)
		assert.Equal(t, state, recorded)
	})
}

func TestOrchestrator_LoadingWhileInFlight(t *testing.T) {
	controlPlane := &mockControlPlane{}
	cluster := readyCluster("mysql-1")
	release := make(chan time.Time)
	controlPlane.On("RestartCluster", mock.Anything, cluster).WaitUntil(release).Return(nil)
	orchestrator := NewOrchestrator(slog.Default(), controlPlane, &recordingNotifier{}, testingclock.NewFakeClock(time.Now()))

	done := make(chan State)
	go func() {
		state, _ := orchestrator.Restart(context.Background(), &cluster)
		done <- state
	}()

	require.Eventually(t, func() bool {
		state, ok := orchestrator.State(OperationRestart, "prod", "mysql-1")
		return ok && state.Loading
	}, time.Second, 5*time.Millisecond)
	close(release)

	state := <-done
	assert.Equal(t, ResultOK, state.Result)
	assert.False(t, state.Loading)
}

func TestOrchestrator_NilClusterIsNoOp(t *testing.T) {
	controlPlane := &mockControlPlane{}
	notifier := &recordingNotifier{}
	orchestrator := NewOrchestrator(slog.Default(), controlPlane, notifier, testingclock.NewFakeClock(time.Now()))
	ctx := context.Background()

	operations := map[string]func() (State, bool){
		"update":          func() (State, bool) { return orchestrator.Update(ctx, nil, model.ClusterConfig{}) },
		"delete":          func() (State, bool) { return orchestrator.Delete(ctx, nil) },
		"restart":         func() (State, bool) { return orchestrator.Restart(ctx, nil) },
		"suspend":         func() (State, bool) { return orchestrator.Suspend(ctx, nil) },
		"resume":          func() (State, bool) { return orchestrator.Resume(ctx, nil) },
		"upgrade":         func() (State, bool) { return orchestrator.Upgrade(ctx, nil) },
		"suspendOrResume": func() (State, bool) { return orchestrator.SuspendOrResume(ctx, nil) },
	}
	for name, operation := range operations {
		t.Run(name, func(t *testing.T) {
			state, ok := operation()

			assert.False(t, ok)
			assert.Equal(t, State{}, state)
		})
	}

	assert.Empty(t, notifier.Events())
	assert.Empty(t, orchestrator.States(""))
	controlPlane.AssertNotCalled(t, "UpdateCluster", mock.Anything, mock.Anything)
	controlPlane.AssertNotCalled(t, "DeleteCluster", mock.Anything, mock.Anything)
}

func TestOrchestrator_UpdateKeepsIdentity(t *testing.T) {
	controlPlane := &mockControlPlane{}
	cluster := readyCluster("mysql-1")
	expected := model.ClusterConfig{
		ClusterName:             "mysql-1",
		TargetKubernetesCluster: "prod",
		DatabaseEngine:          model.MySQL,
		NodeCount:               5,
		CPU:                     2,
		MemoryGB:                4,
		DiskGB:                  50,
	}
	controlPlane.On("UpdateCluster", mock.Anything, expected).Return(nil)
	orchestrator := NewOrchestrator(slog.Default(), controlPlane, &recordingNotifier{}, testingclock.NewFakeClock(time.Now()))

	state, ok := orchestrator.Update(context.Background(), &cluster, model.ClusterConfig{
		ClusterName:             "renamed",
		TargetKubernetesCluster: "staging",
		DatabaseEngine:          model.MongoDB,
		NodeCount:               5,
		CPU:                     2,
		MemoryGB:                4,
		DiskGB:                  50,
	})

	require.True(t, ok)
	assert.Equal(t, ResultOK, state.Result)
	assert.Equal(t, "mysql-1", state.ClusterName)
	controlPlane.AssertExpectations(t)
}

func TestOrchestrator_SuspendOrResume(t *testing.T) {
	t.Run("ReadySuspends", func(t *testing.T) {
		controlPlane := &mockControlPlane{}
		cluster := readyCluster("mysql-1")
		controlPlane.On("SuspendCluster", mock.Anything, cluster).Return(nil)
		orchestrator := NewOrchestrator(slog.Default(), controlPlane, &recordingNotifier{}, testingclock.NewFakeClock(time.Now()))

		state, ok := orchestrator.SuspendOrResume(context.Background(), &cluster)

		require.True(t, ok)
		assert.Equal(t, OperationSuspend, state.Operation)
		controlPlane.AssertExpectations(t)
	})

	t.Run("SuspendedResumes", func(t *testing.T) {
		controlPlane := &mockControlPlane{}
		cluster := readyCluster("mysql-1")
		cluster.Status = model.DBClusterStatusSuspended
		controlPlane.On("ResumeCluster", mock.Anything, cluster).Return(nil)
		orchestrator := NewOrchestrator(slog.Default(), controlPlane, &recordingNotifier{}, testingclock.NewFakeClock(time.Now()))

		state, ok := orchestrator.SuspendOrResume(context.Background(), &cluster)

		require.True(t, ok)
		assert.Equal(t, OperationResume, state.Operation)
		controlPlane.AssertExpectations(t)
	})

	t.Run("OtherStatusesAreIgnored", func(t *testing.T) {
		for _, status := range model.AllDBClusterStatuses {
			if status == model.DBClusterStatusReady || status == model.DBClusterStatusSuspended {
				continue
			}
			controlPlane := &mockControlPlane{}
			cluster := readyCluster("mysql-1")
			cluster.Status = status
			orchestrator := NewOrchestrator(slog.Default(), controlPlane, &recordingNotifier{}, testingclock.NewFakeClock(time.Now()))

			_, ok := orchestrator.SuspendOrResume(context.Background(), &cluster)

			assert.False(t, ok, status)
			controlPlane.AssertNotCalled(t, "SuspendCluster", mock.Anything, mock.Anything)
			controlPlane.AssertNotCalled(t, "ResumeCluster", mock.Anything, mock.Anything)
		}
	})
}

func TestOrchestrator_Upgrade(t *testing.T) {
	controlPlane := &mockControlPlane{}
	cluster := readyCluster("mysql-1")
	cluster.InstalledImage = "percona/pxc:8.0.25"
	cluster.AvailableImage = "percona/pxc:8.0.27"
	controlPlane.On("UpgradeCluster", mock.Anything, cluster).Return(nil)
	notifier := &recordingNotifier{}
	orchestrator := NewOrchestrator(slog.Default(), controlPlane, notifier, testingclock.NewFakeClock(time.Now()))

	state, ok := orchestrator.Upgrade(context.Background(), &cluster)

	require.True(t, ok)
	assert.Equal(t, OperationUpgrade, state.Operation)
	assert.Equal(t, ResultOK, state.Result)
	events := notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Cluster mysql-1 is being upgraded", events[0].Message)
	assert.Equal(t, event.TypeRefresh, events[1].Type)
	controlPlane.AssertExpectations(t)
}

func TestOrchestrator_States(t *testing.T) {
	controlPlane := &mockControlPlane{}
	controlPlane.On("DeleteCluster", mock.Anything, mock.Anything).Return(nil)
	orchestrator := NewOrchestrator(slog.Default(), controlPlane, &recordingNotifier{}, testingclock.NewFakeClock(time.Now()))
	b := readyCluster("b")
	a := readyCluster("a")
	other := readyCluster("c")
	other.KubernetesClusterName = "staging"

	for _, cluster := range []*model.DBCluster{&b, &a, &other} {
		_, ok := orchestrator.Delete(context.Background(), cluster)
		require.True(t, ok)
	}

	states := orchestrator.States("prod")
	require.Len(t, states, 2)
	assert.Equal(t, "a", states[0].ClusterName)
	assert.Equal(t, "b", states[1].ClusterName)
	assert.Len(t, orchestrator.States(""), 3)
}

func readyCluster(name string) model.DBCluster {
	return model.DBCluster{
		ClusterName:           name,
		KubernetesClusterName: "prod",
		DatabaseType:          model.MySQL,
		ClusterSize:           3,
		Status:                model.DBClusterStatusReady,
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Events() []event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]event.Event(nil), n.events...)
}

type mockControlPlane struct{ mock.Mock }

func (m *mockControlPlane) ListClusters(ctx context.Context, kubernetesCluster string) ([]model.DBCluster, error) {
	called := m.Called(ctx, kubernetesCluster)
	return called.Get(0).([]model.DBCluster), called.Error(1)
}

func (m *mockControlPlane) GetClusterCredentials(ctx context.Context, cluster model.DBCluster) (model.Credentials, error) {
	called := m.Called(ctx, cluster)
	return called.Get(0).(model.Credentials), called.Error(1)
}

func (m *mockControlPlane) GetClusterLogs(ctx context.Context, cluster model.DBCluster) (model.ClusterLogs, error) {
	called := m.Called(ctx, cluster)
	return called.Get(0).(model.ClusterLogs), called.Error(1)
}

func (m *mockControlPlane) CreateCluster(ctx context.Context, config model.ClusterConfig) error {
	return m.Called(ctx, config).Error(0)
}

func (m *mockControlPlane) UpdateCluster(ctx context.Context, config model.ClusterConfig) error {
	return m.Called(ctx, config).Error(0)
}

func (m *mockControlPlane) DeleteCluster(ctx context.Context, cluster model.DBCluster) error {
	return m.Called(ctx, cluster).Error(0)
}

func (m *mockControlPlane) RestartCluster(ctx context.Context, cluster model.DBCluster) error {
	return m.Called(ctx, cluster).Error(0)
}

func (m *mockControlPlane) SuspendCluster(ctx context.Context, cluster model.DBCluster) error {
	return m.Called(ctx, cluster).Error(0)
}

func (m *mockControlPlane) ResumeCluster(ctx context.Context, cluster model.DBCluster) error {
	return m.Called(ctx, cluster).Error(0)
}

func (m *mockControlPlane) UpgradeCluster(ctx context.Context, cluster model.DBCluster) error {
	return m.Called(ctx, cluster).Error(0)
}
