package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type FeedbackRepository struct {
	collection *mongo.Collection
}

func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{
		collection: db.Collection(collectionFeedback),
	}
}

func (r *FeedbackRepository) Create(ctx context.Context, feedback *domain.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if feedback.ID.IsZero() {
		feedback.ID = primitive.NewObjectID()
	}
	feedback.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, feedback)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ValidationError("feedback already submitted for order %s", feedback.OrderID)
		}
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

func (r *FeedbackRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var feedback domain.Feedback
	err := r.collection.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&feedback)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFoundError("feedback for order %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return &feedback, nil
}
