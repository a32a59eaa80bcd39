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

var _ repo.OrderStatusAuditRepository = (*OrderStatusAuditRepository)(nil)

type OrderStatusAuditRepository struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.OrderStatusAudit
}

func NewOrderStatusAuditRepository() *OrderStatusAuditRepository {
	return &OrderStatusAuditRepository{
		byOrder: make(map[string][]domain.OrderStatusAudit),
	}
}

func (r *OrderStatusAuditRepository) Create(_ context.Context, audit *domain.OrderStatusAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if audit.ID.IsZero() {
		audit.ID = primitive.NewObjectID()
	}
	if audit.Timestamp.IsZero() {
		audit.Timestamp = time.Now().UTC()
	}
	r.byOrder[audit.OrderID] = append(r.byOrder[audit.OrderID], *audit)
	return nil
}

func (r *OrderStatusAuditRepository) GetByOrderID(_ context.Context, orderID string, limit int) ([]domain.OrderStatusAudit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	audits := append([]domain.OrderStatusAudit{}, r.byOrder[orderID]...)
	sort.SliceStable(audits, func(i, j int) bool {
		return audits[i].Timestamp.Before(audits[j].Timestamp)
	})
	if limit > 0 && len(audits) > limit {
		audits = audits[:limit]
	}
	return audits, nil
}
