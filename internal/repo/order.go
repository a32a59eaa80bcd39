package repo

import (
	"context"
	"time"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	// SetStatus moves the order from status from to status to only if the stored
	// status still equals from. A lost race returns domain.ErrConflict.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to domain.OrderStatus, at time.Time) (*domain.Order, error)
	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status domain.PaymentStatus, transactionID string) error
}
