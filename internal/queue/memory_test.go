package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBroker_DeliversInOrder(t *testing.T) {
	broker := NewMemoryBroker(0, zap.NewNop().Sugar())
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []string
	)
	done := make(chan struct{})
	require.NoError(t, broker.Subscribe(ctx, QueueOrderStatus, func(_ context.Context, message []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(message))
		if len(received) == 3 {
			close(done)
		}
		return nil
	}))

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, broker.Publish(ctx, QueueOrderStatus, []byte(msg)))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, received)
}

func TestMemoryBroker_RetriesThenDeadLetters(t *testing.T) {
	broker := NewMemoryBroker(2, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		attempts int
	)
	require.NoError(t, broker.Subscribe(ctx, QueueCatalogImport, func(_ context.Context, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("boom")
	}))

	require.NoError(t, broker.Publish(ctx, QueueCatalogImport, []byte("task")))

	assert.Eventually(t, func() bool {
		return len(broker.DeadLetters(QueueCatalogImportDLQ)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, broker.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestMemoryBroker_PublishAfterClose(t *testing.T) {
	broker := NewMemoryBroker(0, zap.NewNop().Sugar())
	require.NoError(t, broker.Ping())
	require.NoError(t, broker.Close())
	assert.ErrorIs(t, broker.Ping(), ErrBrokerClosed)

	err := broker.Publish(context.Background(), QueueOrderStatus, []byte("x"))
	assert.ErrorIs(t, err, ErrBrokerClosed)
}
