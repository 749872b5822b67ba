package bus

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
)

// ExchangeName is the fanout exchange events are published to.
const ExchangeName = "leadgen.events"

// originHeader tags messages with the publishing instance so the relay
// can skip the echo of its own publishes.
const originHeader = "x-origin-instance"

// AMQP publishes events to a RabbitMQ fanout exchange so other processes
// (dashboards, CRM sync jobs) can react to lead activity. Publish failures
// are logged and swallowed: the broker is an optional side channel.
type AMQP struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	instanceID string
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAMQP connects to the broker at url and declares the fanout exchange.
func NewAMQP(url string, logger *zap.Logger, metrics *observability.Metrics) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQP{
		conn:       conn,
		channel:    ch,
		instanceID: uuid.NewString(),
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Publish sends the event to the fanout exchange as a JSON message.
func (p *AMQP) Publish(ctx context.Context, event domain.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("event marshal failed", zap.Error(err))
		return
	}
	err = p.channel.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Headers:     amqp.Table{originHeader: p.instanceID},
		Body:        body,
	})
	if err != nil {
		p.logger.Warn("event publish failed",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return
	}
	if p.metrics != nil {
		p.metrics.IncrEventPublished("amqp")
	}
}

// Relay binds an exclusive queue to the exchange and re-injects events
// published by other instances into target, so dashboard streams on this
// instance see lead activity from the whole deployment. Runs until ctx is
// cancelled or the delivery channel closes.
func (p *AMQP) Relay(ctx context.Context, target Publisher) error {
	q, err := p.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := p.channel.QueueBind(q.Name, "", ExchangeName, false, nil); err != nil {
		return err
	}
	deliveries, err := p.channel.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, open := <-deliveries:
				if !open {
					return
				}
				if origin, _ := d.Headers[originHeader].(string); origin == p.instanceID {
					continue
				}
				var event domain.Event
				if err := json.Unmarshal(d.Body, &event); err != nil {
					p.logger.Warn("malformed relayed event", zap.Error(err))
					continue
				}
				target.Publish(ctx, event)
			}
		}
	}()
	return nil
}

// Close releases the channel and connection.
func (p *AMQP) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
