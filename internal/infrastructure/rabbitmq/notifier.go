package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"staybook/internal/config"
	"staybook/internal/domain"
)

const defaultDialTimeout = 2 * time.Second

// Notifier publishes booking events to a durable queue. The connection is
// opened on first use and reopened after a failed publish. Dialing is bounded
// by the dial timeout and the caller's deadline, whichever is sooner.
type Notifier struct {
	url         string
	queue       string
	dialTimeout time.Duration
	logger      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewNotifier(cfg config.NotifyConfig, logger *zap.Logger) *Notifier {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Notifier{
		url:         cfg.URL,
		queue:       cfg.Queue,
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

func (n *Notifier) Publish(ctx context.Context, event domain.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling booking event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel(ctx)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(event.Type),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		n.reset()
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}

	n.logger.Debug("booking event published",
		zap.String("eventType", string(event.Type)),
		zap.Uint64("bookingId", event.BookingID))

	return nil
}

func (n *Notifier) channel(ctx context.Context) (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	n.reset()

	timeout := n.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := ctx.Err(); err != nil || timeout <= 0 {
		return nil, fmt.Errorf("dialing rabbitmq: %w", context.DeadlineExceeded)
	}

	conn, err := amqp.DialConfig(n.url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", n.queue, err)
	}

	n.conn = conn
	n.ch = ch
	return ch, nil
}

func (n *Notifier) reset() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset()
	return nil
}

// NopNotifier drops every event. Used when notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, domain.BookingEvent) error { return nil }
