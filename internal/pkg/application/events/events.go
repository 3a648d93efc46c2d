// Package events publishes fire-and-forget domain events to an AMQP
// topic exchange. Publishing failures are logged and dropped; nothing
// downstream of a primary write ever waits on the broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const exchangeName = "farm.events"

type DeviceAction struct {
	DeviceName string    `json:"device_name"`
	Action     string    `json:"action"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

type AlertCreated struct {
	PlotID    int       `json:"plot_id"`
	AlertType string    `json:"alert_type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishDeviceAction(ctx context.Context, action DeviceAction)
	PublishAlert(ctx context.Context, alert AlertCreated)
	Close()
}

type noop struct{}

// Noop returns a publisher that drops everything. Used when no broker
// URL is configured.
func Noop() Publisher {
	return &noop{}
}

func (n *noop) PublishDeviceAction(ctx context.Context, action DeviceAction) {}
func (n *noop) PublishAlert(ctx context.Context, alert AlertCreated)         {}
func (n *noop) Close()                                                       {}

type amqpPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     zerolog.Logger
}

func NewAMQPPublisher(url string, log zerolog.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(exchangeName, "topic", false, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", exchangeName).Msg("connected to message broker")

	return &amqpPublisher{conn: conn, channel: channel, log: log}, nil
}

func (p *amqpPublisher) publish(ctx context.Context, routingKey string, message any) {
	body, err := json.Marshal(message)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}

func (p *amqpPublisher) PublishDeviceAction(ctx context.Context, action DeviceAction) {
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now().UTC()
	}
	p.publish(ctx, "device.action", action)
}

func (p *amqpPublisher) PublishAlert(ctx context.Context, alert AlertCreated) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	p.publish(ctx, "alert.created", alert)
}

func (p *amqpPublisher) Close() {
	p.channel.Close()
	p.conn.Close()
}
