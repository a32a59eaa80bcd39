package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	headerRetryCount    = "x-retry-count"
	headerOriginalQueue = "x-original-queue"
	headerError         = "x-error"
)

// RabbitMQBroker publishes on one confirm-mode channel and gives every
// subscription its own channel so prefetch applies per consumer.
type RabbitMQBroker struct {
	conn          *amqp.Connection
	publisher     *amqp.Channel
	consumers     []*amqp.Channel
	maxRetries    int
	retryDelay    time.Duration
	prefetchCount int
	closed        bool
	mu            sync.Mutex
	logger        *zap.SugaredLogger
}

type Config struct {
	URL           string
	MaxRetries    int
	RetryDelay    time.Duration
	PrefetchCount int
	// DialTimeout bounds the total time spent retrying the initial dial.
	DialTimeout time.Duration
}

func NewRabbitMQBroker(cfg Config, logger *zap.SugaredLogger) (*RabbitMQBroker, error) {
	conn, err := dial(cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := publisher.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	b := &RabbitMQBroker{
		conn:          conn,
		publisher:     publisher,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		prefetchCount: cfg.PrefetchCount,
		logger:        logger,
	}
	if b.retryDelay <= 0 {
		b.retryDelay = time.Second
	}
	if b.prefetchCount <= 0 {
		b.prefetchCount = 1
	}

	for _, name := range Queues {
		if _, err := publisher.QueueDeclare(name, true, false, false, false, nil); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return b, nil
}

func dial(cfg Config, logger *zap.SugaredLogger) (*amqp.Connection, error) {
	var conn *amqp.Connection

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxElapsedTime = cfg.DialTimeout
	if expBackoff.MaxElapsedTime <= 0 {
		expBackoff.MaxElapsedTime = 30 * time.Second
	}

	err := backoff.RetryNotify(func() error {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			var amqpErr *amqp.Error
			if errors.As(err, &amqpErr) && amqpErr.Code == amqp.AccessRefused {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}, expBackoff, func(err error, d time.Duration) {
		logger.Warnw("RabbitMQ not reachable, retrying", "error", err, "retry_in", d)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	return conn, nil
}

// Publish waits for the broker to confirm the message before returning.
func (b *RabbitMQBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	return b.publish(ctx, queueName, amqp.Publishing{
		ContentType: "application/json",
		Body:        message,
	})
}

func (b *RabbitMQBroker) publish(ctx context.Context, queueName string, msg amqp.Publishing) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}

	msg.DeliveryMode = amqp.Persistent
	msg.Timestamp = time.Now()
	if msg.MessageId == "" {
		msg.MessageId = uuid.NewString()
	}

	confirm, err := b.publisher.PublishWithDeferredConfirmWithContext(ctx, "", queueName, false, false, msg)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm message: %w", err)
	}
	if !acked {
		return fmt.Errorf("message %s to %s was nacked", msg.MessageId, queueName)
	}

	return nil
}

func (b *RabbitMQBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	if err := ch.Qos(b.prefetchCount, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	b.consumers = append(b.consumers, ch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				b.handleDelivery(ctx, queueName, d, handler)
			}
		}
	}()

	return nil
}

// handleDelivery retries a failed message with exponential delay by
// republishing it with an incremented retry header, then parks it on the
// queue's DLQ.
func (b *RabbitMQBroker) handleDelivery(ctx context.Context, queueName string, d amqp.Delivery, handler MessageHandler) {
	err := handler(ctx, d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)

	if retries < b.maxRetries {
		b.logger.Warnw("message handling failed, retrying",
			"queue", queueName, "message_id", d.MessageId, "retry", retries+1, "error", err)

		select {
		case <-ctx.Done():
			d.Nack(false, true)
			return
		case <-time.After(b.retryDelay << retries):
		}

		if perr := b.publish(ctx, queueName, amqp.Publishing{
			ContentType: d.ContentType,
			MessageId:   d.MessageId,
			Body:        d.Body,
			Headers:     amqp.Table{headerRetryCount: int32(retries + 1)},
		}); perr != nil {
			b.logger.Errorw("failed to requeue message", "queue", queueName, "message_id", d.MessageId, "error", perr)
			d.Nack(false, true)
			return
		}
		d.Ack(false)
		return
	}

	b.logger.Errorw("message moved to dead letter queue",
		"queue", queueName, "message_id", d.MessageId, "retries", retries, "error", err)

	if perr := b.publish(ctx, dlqName(queueName), amqp.Publishing{
		ContentType: d.ContentType,
		MessageId:   d.MessageId,
		Body:        d.Body,
		Headers: amqp.Table{
			headerOriginalQueue: queueName,
			headerRetryCount:    int32(retries),
			headerError:         err.Error(),
		},
	}); perr != nil {
		b.logger.Errorw("failed to dead letter message", "queue", queueName, "message_id", d.MessageId, "error", perr)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func retryCount(headers amqp.Table) int {
	switch v := headers[headerRetryCount].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (b *RabbitMQBroker) Ping() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	if b.conn.IsClosed() || b.publisher.IsClosed() {
		return errors.New("rabbitmq connection lost")
	}
	return nil
}

func (b *RabbitMQBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, ch := range b.consumers {
		ch.Close()
	}
	if b.publisher != nil {
		b.publisher.Close()
	}
	return b.conn.Close()
}
