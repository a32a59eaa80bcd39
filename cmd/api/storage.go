package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/queue"
	"github.com/zoransi/split-laundry-express/internal/repo"
	"github.com/zoransi/split-laundry-express/internal/store/memory"
	"github.com/zoransi/split-laundry-express/internal/store/mongo"
)

// storage bundles the repositories behind whichever backend STORE selects.
type storage struct {
	orders   repo.OrderRepository
	audits   repo.OrderStatusAuditRepository
	feedback repo.FeedbackRepository
	catalog  repo.CatalogRepository
	imports  repo.ImportTaskRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func newMemoryStorage() *storage {
	noop := func(context.Context) error { return nil }
	return &storage{
		orders:   memory.NewOrderRepository(),
		audits:   memory.NewOrderStatusAuditRepository(),
		feedback: memory.NewFeedbackRepository(),
		catalog:  memory.NewCatalogRepository(),
		imports:  memory.NewImportTaskRepository(),
		ping:     noop,
		close:    noop,
	}
}

func openStorage(ctx context.Context, cfg config, logger *zap.SugaredLogger) (*storage, error) {
	switch cfg.store {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		return newMemoryStorage(), nil
	case "mongo":
		db, err := mongo.New(mongo.Config{
			URI:      cfg.mongo.URI,
			Database: cfg.mongo.Database,
			Timeout:  cfg.mongo.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to MongoDB")

		if err := db.CreateIndexes(ctx); err != nil {
			logger.Warnw("failed to create indexes", "error", err)
		} else {
			logger.Info("MongoDB indexes created successfully")
		}

		return &storage{
			orders:   mongo.NewOrderRepository(db.Database()),
			audits:   mongo.NewOrderStatusAuditRepository(db.Database()),
			feedback: mongo.NewFeedbackRepository(db.Database()),
			catalog:  mongo.NewCatalogRepository(db.Database()),
			imports:  mongo.NewImportTaskRepository(db.Database()),
			ping:     db.Ping,
			close:    db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q, expected memory or mongo", cfg.store)
	}
}

func openBroker(cfg config, logger *zap.SugaredLogger) (queue.Broker, error) {
	switch cfg.broker {
	case "memory":
		return queue.NewMemoryBroker(cfg.rabbitMQ.MaxRetries, logger), nil
	case "rabbitmq":
		broker, err := queue.NewRabbitMQBroker(queue.Config{
			URL:           cfg.rabbitMQ.URL,
			MaxRetries:    cfg.rabbitMQ.MaxRetries,
			RetryDelay:    cfg.rabbitMQ.RetryDelay,
			PrefetchCount: cfg.rabbitMQ.PrefetchCount,
			DialTimeout:   cfg.rabbitMQ.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to RabbitMQ")
		return broker, nil
	default:
		return nil, fmt.Errorf("unknown broker %q, expected memory or rabbitmq", cfg.broker)
	}
}
