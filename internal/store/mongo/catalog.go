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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CatalogRepository struct {
	collection *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{
		collection: db.Collection(collectionServices),
	}
}

func (r *CatalogRepository) Create(ctx context.Context, service *domain.Service) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if service.ID.IsZero() {
		service.ID = primitive.NewObjectID()
	}
	service.CreatedAt = time.Now().UTC()
	service.UpdatedAt = service.CreatedAt

	_, err := r.collection.InsertOne(ctx, service)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ValidationError("service code %q already exists", service.Code)
		}
		return fmt.Errorf("failed to create service: %w", err)
	}

	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var service domain.Service
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFoundError("service %s not found", id.Hex())
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	return &service, nil
}

func (r *CatalogRepository) List(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EcoFriendly {
		query["is_eco_friendly"] = true
	}
	if filter.MaxPrice > 0 {
		query["price"] = bson.M{"$lte": filter.MaxPrice}
	}
	if filter.OnlyAvailable {
		query["status"] = domain.ServiceStatusAvailable
	}

	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer cursor.Close(ctx)

	services := []domain.Service{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}

	return services, nil
}

func (r *CatalogRepository) Upsert(ctx context.Context, services []domain.Service) (int, error) {
	if len(services) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(services))
	for _, service := range services {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"code": service.Code}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"name":            service.Name,
					"category":        service.Category,
					"description":     service.Description,
					"price":           service.Price,
					"time_required":   service.TimeRequired,
					"is_eco_friendly": service.IsEcoFriendly,
					"image_url":       service.ImageURL,
					"status":          service.Status,
					"updated_at":      now,
				},
				"$setOnInsert": bson.M{
					"created_at": now,
				},
			}).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert services: %w", err)
	}

	return int(result.UpsertedCount + result.ModifiedCount), nil
}

func (r *CatalogRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.ServiceStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update service status: %w", err)
	}

	if result.MatchedCount == 0 {
		return domain.NotFoundError("service %s not found", id.Hex())
	}

	return nil
}
