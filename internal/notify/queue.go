package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/logging"
	"github.com/nekogravitycat/studio-booking-backend/internal/reservation"
)

// QueueMessage is the body of one queued notification.
type QueueMessage struct {
	Event       reservation.Event       `json:"event"`
	Reservation reservation.Reservation `json:"reservation"`
	EnqueuedAt  time.Time               `json:"enqueued_at"`
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func() (amqpChannel, io.Closer, error)

const dialTimeout = 5 * time.Second

// QueuePublisher is a Notifier that persists notifications to a durable RabbitMQ queue.
// A separate consumer process does the sending. The connection is redialed lazily after
// the broker drops it; while the broker stays unreachable, messages go to fallback.
type QueuePublisher struct {
	dial     dialFunc
	queue    string
	fallback reservation.Notifier
	logger   *zap.Logger

	mu   sync.Mutex
	ch   amqpChannel
	conn io.Closer
}

func declareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	return err
}

func dialQueue(url, queue string) dialFunc {
	return func() (amqpChannel, io.Closer, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
		if err != nil {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if err := declareQueue(ch, queue); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare queue: %w", err)
		}
		return ch, conn, nil
	}
}

// NewQueuePublisher connects once up front so a bad RABBITMQ_URL fails at startup.
// fallback may be nil.
func NewQueuePublisher(url, queue string, fallback reservation.Notifier, logger *zap.Logger) (*QueuePublisher, error) {
	p := newQueuePublisher(dialQueue(url, queue), queue, fallback, logger)
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

func newQueuePublisher(dial dialFunc, queue string, fallback reservation.Notifier, logger *zap.Logger) *QueuePublisher {
	return &QueuePublisher{
		dial:     dial,
		queue:    queue,
		fallback: fallback,
		logger:   logging.OrNop(logger),
	}
}

// channel returns the open channel, dialing a new one if the last was closed.
func (p *QueuePublisher) channel() (amqpChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	ch, conn, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.ch, p.conn = ch, conn
	return ch, nil
}

// discard drops ch if it is still current, so the next publish redials.
func (p *QueuePublisher) discard(ch amqpChannel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.resetLocked()
	}
}

func (p *QueuePublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *QueuePublisher) Notify(ctx context.Context, event reservation.Event, r *reservation.Reservation) error {
	body, err := json.Marshal(QueueMessage{Event: event, Reservation: *r, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    r.ID + ":" + string(event),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// One retry on a fresh connection covers a broker restart since the last publish.
	for attempt := 0; attempt < 2; attempt++ {
		ch, dialErr := p.channel()
		if dialErr != nil {
			err = dialErr
			break
		}
		if err = ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err == nil {
			p.logger.Debug("notification queued", zap.String("event", string(event)), zap.String("reservation_id", r.ID))
			return nil
		}
		p.discard(ch)
		if ctx.Err() != nil {
			break
		}
	}
	err = fmt.Errorf("publish notification: %w", err)

	if p.fallback == nil {
		return err
	}
	p.logger.Warn("notification queue unavailable, sending directly",
		zap.String("event", string(event)),
		zap.String("reservation_id", r.ID),
		zap.Error(err),
	)
	if fbErr := p.fallback.Notify(ctx, event, r); fbErr != nil {
		return errors.Join(err, fbErr)
	}
	return nil
}

func (p *QueuePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

var _ reservation.Notifier = (*QueuePublisher)(nil)

// QueueConsumer drains the notification queue into a Notifier, acknowledging only after
// a successful send.
type QueueConsumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	prefetch int
	handler  reservation.Notifier
	logger   *zap.Logger
}

func NewQueueConsumer(url, queue string, prefetch int, handler reservation.Notifier, logger *zap.Logger) (*QueueConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if prefetch <= 0 {
		prefetch = 10
	}
	return &QueueConsumer{
		conn:     conn,
		ch:       ch,
		queue:    queue,
		prefetch: prefetch,
		handler:  handler,
		logger:   logging.OrNop(logger),
	}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *QueueConsumer) Run(ctx context.Context) error {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("notification consumer started", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery acks on success. A failed send is requeued once; a message that already
// came back, or one that cannot be decoded, is dropped.
func (c *QueueConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var msg QueueMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("dropping undecodable notification", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler.Notify(ctx, msg.Event, &msg.Reservation); err != nil {
		c.logger.Warn("notification send failed",
			zap.String("event", string(msg.Event)),
			zap.String("reservation_id", msg.Reservation.ID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *QueueConsumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
