package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repo.FeedbackRepository = (*FeedbackRepository)(nil)

type FeedbackRepository struct {
	mu       sync.RWMutex
	feedback map[string]domain.Feedback
}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{
		feedback: make(map[string]domain.Feedback),
	}
}

func (r *FeedbackRepository) Create(_ context.Context, feedback *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.feedback[feedback.OrderID]; exists {
		return domain.ValidationError("feedback already submitted for order %s", feedback.OrderID)
	}
	if feedback.ID.IsZero() {
		feedback.ID = primitive.NewObjectID()
	}
	feedback.CreatedAt = time.Now().UTC()
	r.feedback[feedback.OrderID] = *feedback
	return nil
}

func (r *FeedbackRepository) GetByOrderID(_ context.Context, orderID string) (*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	feedback, ok := r.feedback[orderID]
	if !ok {
		return nil, domain.NotFoundError("feedback for order %s not found", orderID)
	}
	return &feedback, nil
}
