package service

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/queue"
	"github.com/zoransi/split-laundry-express/internal/repo"
)

// CatalogParser loads services from an external spreadsheet.
type CatalogParser interface {
	ParseCatalog(ctx context.Context, spreadsheetID string) ([]domain.Service, error)
}

type CatalogService struct {
	catalogRepo    repo.CatalogRepository
	importTaskRepo repo.ImportTaskRepository
	parser         CatalogParser
	broker         queue.Broker
	logger         *zap.SugaredLogger
}

func NewCatalogService(
	catalogRepo repo.CatalogRepository,
	importTaskRepo repo.ImportTaskRepository,
	parser CatalogParser,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *CatalogService {
	return &CatalogService{
		catalogRepo:    catalogRepo,
		importTaskRepo: importTaskRepo,
		parser:         parser,
		broker:         broker,
		logger:         logger,
	}
}

func (s *CatalogService) ListServices(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	services, err := s.catalogRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (s *CatalogService) GetService(ctx context.Context, serviceID string) (*domain.Service, error) {
	id, err := primitive.ObjectIDFromHex(serviceID)
	if err != nil {
		return nil, domain.NotFoundError("service %s not found", serviceID)
	}
	return s.catalogRepo.GetByID(ctx, id)
}

func (s *CatalogService) CreateService(ctx context.Context, service *domain.Service) error {
	if service.Price < 0 {
		return domain.ValidationError("price must not be negative")
	}
	if service.Status == "" {
		service.Status = domain.ServiceStatusAvailable
	}
	if err := s.catalogRepo.Create(ctx, service); err != nil {
		return err
	}

	s.logger.Infow("service created", "service_id", service.ID.Hex(), "code", service.Code)
	return nil
}

func (s *CatalogService) UpdateServiceStatus(ctx context.Context, serviceID string, status domain.ServiceStatus) error {
	if status != domain.ServiceStatusAvailable && status != domain.ServiceStatusUnavailable {
		return domain.ValidationError("unknown service status %q", status)
	}
	id, err := primitive.ObjectIDFromHex(serviceID)
	if err != nil {
		return domain.NotFoundError("service %s not found", serviceID)
	}
	if err := s.catalogRepo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.logger.Infow("service status updated", "service_id", serviceID, "status", status)
	return nil
}

// CreateImportTask queues a spreadsheet import and returns the task id.
func (s *CatalogService) CreateImportTask(ctx context.Context, spreadsheetID, catalogName string) (primitive.ObjectID, error) {
	if s.parser == nil {
		return primitive.NilObjectID, domain.ValidationError("catalog import is not configured")
	}

	task := &domain.ImportTask{
		Status:        domain.ImportStatusQueued,
		SpreadsheetID: spreadsheetID,
		CatalogName:   catalogName,
	}

	if err := s.importTaskRepo.Create(ctx, task); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to create import task: %w", err)
	}

	message := domain.CatalogImportMessage{
		TaskID:        task.ID.Hex(),
		SpreadsheetID: spreadsheetID,
		CatalogName:   catalogName,
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.broker.Publish(ctx, queue.QueueCatalogImport, messageBytes); err != nil {
		_ = s.importTaskRepo.UpdateStatus(ctx, task.ID, domain.ImportStatusFailed, err.Error())
		return primitive.NilObjectID, fmt.Errorf("failed to publish message: %w", err)
	}

	s.logger.Infow("import task created", "task_id", task.ID.Hex(), "spreadsheet_id", spreadsheetID)

	return task.ID, nil
}

func (s *CatalogService) GetImportTask(ctx context.Context, taskID string) (*domain.ImportTask, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, domain.NotFoundError("import task %s not found", taskID)
	}
	return s.importTaskRepo.GetByID(ctx, id)
}

// ProcessImportTask parses the task's spreadsheet and upserts every service
// by code.
func (s *CatalogService) ProcessImportTask(ctx context.Context, taskID primitive.ObjectID) error {
	task, err := s.importTaskRepo.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}
	if task.Status == domain.ImportStatusCompleted {
		return nil
	}

	if err := s.importTaskRepo.UpdateStatus(ctx, taskID, domain.ImportStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	s.logger.Infow("processing import task", "task_id", taskID.Hex())

	services, err := s.parser.ParseCatalog(ctx, task.SpreadsheetID)
	if err != nil {
		s.logger.Errorw("failed to parse catalog", "task_id", taskID.Hex(), "error", err)
		_ = s.importTaskRepo.IncrementRetryCount(ctx, taskID)
		_ = s.importTaskRepo.UpdateStatus(ctx, taskID, domain.ImportStatusFailed, err.Error())
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	imported, err := s.catalogRepo.Upsert(ctx, services)
	if err != nil {
		s.logger.Errorw("failed to save services", "task_id", taskID.Hex(), "error", err)
		_ = s.importTaskRepo.IncrementRetryCount(ctx, taskID)
		_ = s.importTaskRepo.UpdateStatus(ctx, taskID, domain.ImportStatusFailed, err.Error())
		return fmt.Errorf("failed to save services: %w", err)
	}

	if err := s.importTaskRepo.Complete(ctx, taskID, imported); err != nil {
		s.logger.Errorw("failed to complete task", "task_id", taskID.Hex(), "error", err)
		return fmt.Errorf("failed to complete task: %w", err)
	}

	s.logger.Infow("import task completed", "task_id", taskID.Hex(), "imported", imported)

	return nil
}
