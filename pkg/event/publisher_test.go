package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/dhis2-sre/im-dbaas/internal/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Notify(t *testing.T) {
	channel := &mockChannel{}
	channel.
		On("PublishWithContext", mock.Anything, "dbaas", "dbaas.refresh", false, false, mock.AnythingOfType("amqp091.Publishing")).
		Return(nil)
	publisher := NewPublisher(slog.Default(), channel, "dbaas")
	ctx := middleware.NewContextWithCorrelationID(context.Background(), "correlation")

	publisher.Notify(ctx, Refresh("prod"))

	channel.AssertExpectations(t)
	msg := channel.Calls[0].Arguments.Get(5).(amqp.Publishing)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "correlation", msg.CorrelationId)
	assert.Equal(t, "refresh", msg.Type)
	assert.NotEmpty(t, msg.MessageId)
	var event Event
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, "prod", event.KubernetesCluster)
}

func TestPublisher_Notify_FailureIsNotFatal(t *testing.T) {
	channel := &mockChannel{}
	channel.
		On("PublishWithContext", mock.Anything, "dbaas", "dbaas.notification", false, false, mock.Anything).
		Return(errors.New("channel closed"))
	publisher := NewPublisher(slog.Default(), channel, "dbaas")

	assert.NotPanics(t, func() {
		publisher.Notify(context.Background(), Failure("restart", "failed to restart mysql-1"))
	})
	channel.AssertExpectations(t)
	assert.Empty(t, channel.Calls[0].Arguments.Get(5).(amqp.Publishing).CorrelationId)
}

type mockChannel struct{ mock.Mock }

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	called := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return called.Error(0)
}
