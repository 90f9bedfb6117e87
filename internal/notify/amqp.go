package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/skillforge/platform/pkg/circuit"
	"github.com/skillforge/platform/pkg/logger"
	"go.uber.org/zap"
)

// AMQPDispatcher publishes notification messages to a durable RabbitMQ
// queue. Publishes run behind a circuit breaker so a broker outage fails
// fast instead of stalling callers; messages are persistent so they survive
// broker restarts.
type AMQPDispatcher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	breaker *circuit.Breaker
}

func NewAMQPDispatcher(url, queue string, zlog *zap.Logger) (*AMQPDispatcher, error) {
	d := &AMQPDispatcher{
		url:     url,
		queue:   queue,
		breaker: circuit.NewBreaker("notify-amqp", circuit.DefaultConfig(), zlog),
	}

	// Connect eagerly so misconfiguration surfaces at startup, but a down
	// broker only degrades: Dispatch redials on demand.
	if err := d.ensureChannel(); err != nil {
		if zlog != nil {
			zlog.Warn("AMQP broker unreachable at startup, will retry on publish",
				zap.String("queue", queue),
				zap.Error(err),
			)
		}
	}

	return d, nil
}

// ensureChannel dials and declares the queue if the cached channel is gone.
func (d *AMQPDispatcher) ensureChannel() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != nil && !d.conn.IsClosed() {
		return nil
	}

	// Drop the stale connection before redialing so a flapping broker
	// cannot leak one TCP connection per retry cycle.
	if d.conn != nil {
		_ = d.conn.Close()
		d.conn = nil
		d.ch = nil
	}

	conn, err := amqp.Dial(d.url)
	if err != nil {
		return fmt.Errorf("amqp dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel open failed: %w", err)
	}

	// Durable queue, survives broker restarts.
	if _, err := ch.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("amqp queue declare failed: %w", err)
	}

	d.conn = conn
	d.ch = ch
	return nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, msg Message) error {
	return d.breaker.Execute(func() error {
		return d.publish(ctx, msg)
	})
}

func (d *AMQPDispatcher) publish(ctx context.Context, msg Message) error {
	if err := d.ensureChannel(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}

	d.mu.Lock()
	ch := d.ch
	d.mu.Unlock()

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		d.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		// Drop the cached channel so the next publish redials.
		d.mu.Lock()
		d.ch = nil
		d.mu.Unlock()

		logger.ErrorWithContext(ctx, "Failed to publish notification").
			String("kind", string(msg.Kind)).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Notification published").
		String("kind", string(msg.Kind)).
		String("queue", d.queue).
		Log()

	return nil
}

// Close releases the broker connection.
func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch != nil {
		_ = d.ch.Close()
		d.ch = nil
	}
	if d.conn != nil {
		err := d.conn.Close()
		d.conn = nil
		return err
	}
	return nil
}
