package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repo.OrderRepository = (*OrderRepository)(nil)

// OrderRepository is an in-memory implementation of repo.OrderRepository.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[primitive.ObjectID]domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[primitive.ObjectID]domain.Order),
	}
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	order.CreatedAt = now
	order.UpdatedAt = now

	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.NotFoundError("order %s not found", id.Hex())
	}
	out := cloneOrder(order)
	return &out, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []domain.Order{}
	for _, order := range r.orders {
		if order.UserID == userID {
			orders = append(orders, cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *OrderRepository) SetStatus(_ context.Context, id primitive.ObjectID, from, to domain.OrderStatus, at time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.NotFoundError("order %s not found", id.Hex())
	}
	if order.Status != from {
		return nil, domain.ConflictError("order %s is no longer %s", id.Hex(), from)
	}

	order.Status = to
	order.UpdatedAt = at
	r.orders[id] = order

	out := cloneOrder(order)
	return &out, nil
}

func (r *OrderRepository) SetPaymentStatus(_ context.Context, id primitive.ObjectID, status domain.PaymentStatus, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.NotFoundError("order %s not found", id.Hex())
	}
	order.PaymentStatus = status
	if transactionID != "" {
		order.TransactionID = transactionID
	}
	r.orders[id] = order
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order
}
