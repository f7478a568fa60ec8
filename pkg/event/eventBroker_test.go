package event

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_Subscribe(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())

	eventBroker.Subscribe("a")
	eventBroker.Subscribe("b")
	eventBroker.Subscribe("a")

	assert.ElementsMatch(t, []string{"a", "b"}, eventBroker.Subscribers())
}

func TestBroker_Unsubscribe(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())
	eventBroker.Subscribe("a")

	eventBroker.Unsubscribe("a")
	eventBroker.Unsubscribe("a")
	eventBroker.Unsubscribe("unknown")

	assert.Empty(t, eventBroker.Subscribers())
}

func TestBroker_Receive(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())
	eventBroker.Subscribe("a")
	eventBroker.Subscribe("b")

	eventBroker.Notify(context.Background(), Refresh("prod"))

	for _, id := range []string{"a", "b"} {
		event, ok := eventBroker.Receive(context.Background(), id)

		assert.True(t, ok)
		assert.Equal(t, TypeRefresh, event.Type)
		assert.Equal(t, "prod", event.KubernetesCluster)
	}
}

func TestBroker_Receive_NoSubscriber(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())

	_, ok := eventBroker.Receive(context.Background(), "a")

	assert.False(t, ok)
}

func TestBroker_Receive_ReturnsWhenUnsubscribed(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())
	eventBroker.Subscribe("a")

	done := make(chan bool)
	go func() {
		_, ok := eventBroker.Receive(context.Background(), "a")
		done <- ok
	}()
	eventBroker.Unsubscribe("a")

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		require.Fail(t, "Receive did not return")
	}
}

func TestBroker_Receive_ReturnsWhenContextIsDone(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())
	eventBroker.Subscribe("a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := eventBroker.Receive(ctx, "a")

	assert.False(t, ok)
}

func TestBroker_Send(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())
	eventBroker.Subscribe("a")

	assert.True(t, eventBroker.Send("a", Success("create", "created mysql-1")))
	assert.False(t, eventBroker.Send("b", Success("create", "created mysql-1")))
}

func TestBroker_Send_DropsWhenSubscriberLags(t *testing.T) {
	eventBroker := NewEventBroker(slog.Default())
	eventBroker.Subscribe("a")

	for range subscriberBuffer {
		require.True(t, eventBroker.Send("a", Refresh("prod")))
	}

	assert.False(t, eventBroker.Send("a", Refresh("prod")))
}

func TestNotifiers(t *testing.T) {
	first := NewEventBroker(slog.Default())
	second := NewEventBroker(slog.Default())
	first.Subscribe("a")
	second.Subscribe("a")

	Notifiers{first, second}.Notify(context.Background(), Failure("delete", "failed to delete mysql-1"))

	for _, b := range []*Broker{first, second} {
		event, ok := b.Receive(context.Background(), "a")
		require.True(t, ok)
		assert.Equal(t, LevelError, event.Level)
		assert.Equal(t, "delete", event.Operation)
	}
}
