package repo

import (
	"context"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

type OrderStatusAuditRepository interface {
	Create(ctx context.Context, audit *domain.OrderStatusAudit) error
	GetByOrderID(ctx context.Context, orderID string, limit int) ([]domain.OrderStatusAudit, error)
}
