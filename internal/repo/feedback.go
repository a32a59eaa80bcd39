package repo

import (
	"context"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Feedback, error)
}
