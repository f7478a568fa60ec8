package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dhis2-sre/im-dbaas/internal/middleware"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publishes events to a RabbitMQ topic exchange using the routing key "dbaas.<type>".
type Publisher struct {
	logger   *slog.Logger
	channel  amqpChannel
	exchange string
}

func NewPublisher(logger *slog.Logger, channel amqpChannel, exchange string) *Publisher {
	return &Publisher{logger: logger, channel: channel, exchange: exchange}
}

// DialPublisher connects to RabbitMQ, declares the exchange and returns a publisher using it. The
// returned connection must be closed by the caller.
func DialPublisher(logger *slog.Logger, url, exchange string) (*Publisher, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %v", err)
	}

	err = channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %q: %v", exchange, err)
	}

	return NewPublisher(logger, channel, exchange), conn, nil
}

// Notify publishes event. Failures are logged as publishing is best effort.
func (p *Publisher) Notify(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to marshal event", "type", event.Type, "error", err)
		return
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   event.Time,
		Type:        string(event.Type),
		Body:        body,
	}
	if id, ok := middleware.GetCorrelationID(ctx); ok {
		msg.CorrelationId = id
	}

	key := "dbaas." + string(event.Type)
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish event", "exchange", p.exchange, "routingKey", key, "error", err)
	}
}
