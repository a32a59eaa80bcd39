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

var _ repo.CatalogRepository = (*CatalogRepository)(nil)

type CatalogRepository struct {
	mu       sync.RWMutex
	services map[primitive.ObjectID]domain.Service
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		services: make(map[primitive.ObjectID]domain.Service),
	}
}

func (r *CatalogRepository) Create(_ context.Context, service *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.findByCode(service.Code); exists {
		return domain.ValidationError("service code %q already exists", service.Code)
	}
	if service.ID.IsZero() {
		service.ID = primitive.NewObjectID()
	}
	service.CreatedAt = time.Now().UTC()
	service.UpdatedAt = service.CreatedAt
	r.services[service.ID] = *service
	return nil
}

func (r *CatalogRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	service, ok := r.services[id]
	if !ok {
		return nil, domain.NotFoundError("service %s not found", id.Hex())
	}
	return &service, nil
}

func (r *CatalogRepository) List(_ context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := []domain.Service{}
	for _, service := range r.services {
		if filter.Category != "" && service.Category != filter.Category {
			continue
		}
		if filter.EcoFriendly && !service.IsEcoFriendly {
			continue
		}
		if filter.MaxPrice > 0 && service.Price > filter.MaxPrice {
			continue
		}
		if filter.OnlyAvailable && service.Status != domain.ServiceStatusAvailable {
			continue
		}
		services = append(services, service)
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Category != services[j].Category {
			return services[i].Category < services[j].Category
		}
		return services[i].Name < services[j].Name
	})
	return services, nil
}

func (r *CatalogRepository) Upsert(_ context.Context, services []domain.Service) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, service := range services {
		if existing, ok := r.findByCode(service.Code); ok {
			service.ID = existing.ID
			service.CreatedAt = existing.CreatedAt
		} else {
			service.ID = primitive.NewObjectID()
			service.CreatedAt = now
		}
		service.UpdatedAt = now
		r.services[service.ID] = service
	}
	return len(services), nil
}

func (r *CatalogRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.ServiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	service, ok := r.services[id]
	if !ok {
		return domain.NotFoundError("service %s not found", id.Hex())
	}
	service.Status = status
	service.UpdatedAt = time.Now().UTC()
	r.services[id] = service
	return nil
}

func (r *CatalogRepository) findByCode(code string) (domain.Service, bool) {
	for _, service := range r.services {
		if service.Code == code {
			return service, true
		}
	}
	return domain.Service{}, false
}
