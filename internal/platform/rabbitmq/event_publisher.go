package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"career-counselor/internal/model"
)

// SessionEventPublisher fans session events out to every instance through a
// fanout exchange.
type SessionEventPublisher struct {
	conn     *amqp.Connection
	exchange string
}

func NewSessionEventPublisher(conn *amqp.Connection, exchange string) *SessionEventPublisher {
	return &SessionEventPublisher{
		conn:     conn,
		exchange: exchange,
	}
}

func (p *SessionEventPublisher) Publish(ctx context.Context, event model.SessionEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareSessionEventExchange(ch, p.exchange); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		p.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         payload,
			DeliveryMode: amqp.Transient,
		},
	); err != nil {
		return fmt.Errorf("publish session event failed: %w", err)
	}
	return nil
}

// DeclareSessionEventExchange is shared by the publisher and the consuming worker.
func DeclareSessionEventExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s failed: %w", exchange, err)
	}
	return nil
}
