package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"career-counselor/internal/model"
	rabbitmqClient "career-counselor/internal/platform/rabbitmq"
)

type EventSink interface {
	Publish(event model.SessionEvent) error
}

// SessionEventWorker relays session events from the broker to the local
// notification hub. Each instance binds its own exclusive queue so every
// instance sees every event.
type SessionEventWorker struct {
	conn     *amqp.Connection
	exchange string
	sink     EventSink
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionEventWorker(conn *amqp.Connection, exchange string, sink EventSink, logger *zap.Logger) *SessionEventWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionEventWorker{
		conn:     conn,
		exchange: exchange,
		sink:     sink,
		logger:   logger.Named("session-event-worker"),
	}
}

func (w *SessionEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmqClient.DeclareSessionEventExchange(ch, w.exchange); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	queue, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", w.exchange, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("bind worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		queue.Name,
		"",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				if err := w.handle(d.Body); err != nil {
					w.logger.Warn("drop session event", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *SessionEventWorker) handle(body []byte) error {
	var event model.SessionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode session event failed: %w", err)
	}
	if event.UserID == 0 || event.Type == "" {
		return fmt.Errorf("session event missing user or type")
	}
	return w.sink.Publish(event)
}

func (w *SessionEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
