package queue

import (
	"context"
)

type Broker interface {
	Publish(ctx context.Context, queueName string, message []byte) error
	Subscribe(ctx context.Context, queueName string, handler MessageHandler) error
	// Ping reports whether the broker can still accept messages.
	Ping() error
	Close() error
}

type MessageHandler func(ctx context.Context, message []byte) error

const (
	QueueOrderStatus      = "order-status"
	QueueCatalogImport    = "catalog-import"
	QueueOrderStatusDLQ   = "order-status-dlq"
	QueueCatalogImportDLQ = "catalog-import-dlq"
)

// Queues lists every queue declared on startup.
var Queues = []string{
	QueueOrderStatus,
	QueueCatalogImport,
	QueueOrderStatusDLQ,
	QueueCatalogImportDLQ,
}

func dlqName(queueName string) string {
	return queueName + "-dlq"
}
