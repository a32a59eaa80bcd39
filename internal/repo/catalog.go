package repo

import (
	"context"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CatalogRepository interface {
	Create(ctx context.Context, service *domain.Service) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Service, error)
	List(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error)
	// Upsert inserts or replaces services keyed by their code.
	Upsert(ctx context.Context, services []domain.Service) (int, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.ServiceStatus) error
}
