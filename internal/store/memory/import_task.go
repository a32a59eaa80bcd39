package memory

import (
	"context"
	"sync"
	"time"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repo.ImportTaskRepository = (*ImportTaskRepository)(nil)

type ImportTaskRepository struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]domain.ImportTask
}

func NewImportTaskRepository() *ImportTaskRepository {
	return &ImportTaskRepository{
		tasks: make(map[primitive.ObjectID]domain.ImportTask),
	}
}

func (r *ImportTaskRepository) Create(_ context.Context, task *domain.ImportTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = *task
	return nil
}

func (r *ImportTaskRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ImportTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.NotFoundError("import task %s not found", id.Hex())
	}
	return &task, nil
}

func (r *ImportTaskRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.ImportTaskStatus, errorMsg string) error {
	return r.update(id, func(task *domain.ImportTask) {
		task.Status = status
		if errorMsg != "" {
			task.ErrorMessage = errorMsg
		}
	})
}

func (r *ImportTaskRepository) Complete(_ context.Context, id primitive.ObjectID, imported int) error {
	return r.update(id, func(task *domain.ImportTask) {
		task.Status = domain.ImportStatusCompleted
		task.Imported = imported
	})
}

func (r *ImportTaskRepository) IncrementRetryCount(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(task *domain.ImportTask) {
		task.RetryCount++
	})
}

func (r *ImportTaskRepository) update(id primitive.ObjectID, fn func(task *domain.ImportTask)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.NotFoundError("import task %s not found", id.Hex())
	}
	fn(&task)
	task.UpdatedAt = time.Now().UTC()
	r.tasks[id] = task
	return nil
}
