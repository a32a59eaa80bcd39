package queue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrBrokerClosed = errors.New("broker closed")

// MemoryBroker delivers messages in-process. Each queue is drained by a single
// goroutine so handlers observe messages in publish order. Failed messages are
// retried up to maxRetries times and then parked on the queue's DLQ.
type MemoryBroker struct {
	mu         sync.Mutex
	queues     map[string]chan []byte
	handlers   map[string]MessageHandler
	dead       map[string][][]byte
	maxRetries int
	closed     bool
	done       chan struct{}
	wg         sync.WaitGroup
	logger     *zap.SugaredLogger
}

func NewMemoryBroker(maxRetries int, logger *zap.SugaredLogger) *MemoryBroker {
	return &MemoryBroker{
		queues:     make(map[string]chan []byte),
		handlers:   make(map[string]MessageHandler),
		dead:       make(map[string][][]byte),
		maxRetries: maxRetries,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (b *MemoryBroker) queue(name string) chan []byte {
	q, ok := b.queues[name]
	if !ok {
		q = make(chan []byte, 1024)
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBrokerClosed
	}
	q := b.queue(queueName)
	b.mu.Unlock()

	select {
	case q <- append([]byte(nil), message...):
		return nil
	case <-b.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}
	if _, exists := b.handlers[queueName]; exists {
		return errors.New("queue " + queueName + " already has a consumer")
	}
	b.handlers[queueName] = handler
	q := b.queue(queueName)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case msg := <-q:
				b.deliver(ctx, queueName, msg, handler)
			}
		}
	}()

	return nil
}

func (b *MemoryBroker) deliver(ctx context.Context, queueName string, msg []byte, handler MessageHandler) {
	var err error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return
		}
	}

	b.logger.Warnw("message moved to dlq", "queue", queueName, "error", err)

	b.mu.Lock()
	b.dead[dlqName(queueName)] = append(b.dead[dlqName(queueName)], msg)
	b.mu.Unlock()
}

// DeadLetters returns the messages parked on a DLQ.
func (b *MemoryBroker) DeadLetters(queueName string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.dead[queueName]...)
}

func (b *MemoryBroker) Ping() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
