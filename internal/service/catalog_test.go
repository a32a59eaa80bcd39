package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/queue"
	"github.com/zoransi/split-laundry-express/internal/store/memory"
)

type MockCatalogParser struct {
	mock.Mock
}

func (m *MockCatalogParser) ParseCatalog(ctx context.Context, spreadsheetID string) ([]domain.Service, error) {
	args := m.Called(ctx, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Service), args.Error(1)
}

func newCatalogFixture(t *testing.T) (*CatalogService, *MockCatalogParser, *memory.ImportTaskRepository) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	broker := queue.NewMemoryBroker(0, logger)
	t.Cleanup(func() { _ = broker.Close() })

	parser := new(MockCatalogParser)
	tasks := memory.NewImportTaskRepository()
	svc := NewCatalogService(memory.NewCatalogRepository(), tasks, parser, broker, logger)
	return svc, parser, tasks
}

func TestImportTaskLifecycle(t *testing.T) {
	svc, parser, _ := newCatalogFixture(t)
	ctx := context.Background()

	parser.On("ParseCatalog", mock.Anything, "sheet-1").Return([]domain.Service{
		{Code: "WF-1", Name: "Wash", Price: 10, Status: domain.ServiceStatusAvailable},
		{Code: "DC-1", Name: "Suit", Price: 30, Status: domain.ServiceStatusAvailable},
	}, nil).Once()

	taskID, err := svc.CreateImportTask(ctx, "sheet-1", "Main")
	require.NoError(t, err)

	task, err := svc.GetImportTask(ctx, taskID.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusQueued, task.Status)

	require.NoError(t, svc.ProcessImportTask(ctx, taskID))

	task, err = svc.GetImportTask(ctx, taskID.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusCompleted, task.Status)
	assert.Equal(t, 2, task.Imported)

	services, err := svc.ListServices(ctx, domain.ServiceFilter{})
	require.NoError(t, err)
	assert.Len(t, services, 2)

	// completed tasks are not parsed again
	require.NoError(t, svc.ProcessImportTask(ctx, taskID))
	parser.AssertExpectations(t)
}

func TestImportTaskParseFailure(t *testing.T) {
	svc, parser, _ := newCatalogFixture(t)
	ctx := context.Background()

	parser.On("ParseCatalog", mock.Anything, "broken").Return(nil, errors.New("no data found in spreadsheet"))

	taskID, err := svc.CreateImportTask(ctx, "broken", "Main")
	require.NoError(t, err)

	assert.Error(t, svc.ProcessImportTask(ctx, taskID))

	task, err := svc.GetImportTask(ctx, taskID.Hex())
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusFailed, task.Status)
	assert.Equal(t, 1, task.RetryCount)
	assert.Contains(t, task.ErrorMessage, "no data found")
}

func TestServiceStatusUpdate(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	service := &domain.Service{Code: "WF-1", Name: "Wash", Price: 10}
	require.NoError(t, svc.CreateService(ctx, service))
	assert.Equal(t, domain.ServiceStatusAvailable, service.Status)

	require.NoError(t, svc.UpdateServiceStatus(ctx, service.ID.Hex(), domain.ServiceStatusUnavailable))
	assert.True(t, domain.IsValidation(svc.UpdateServiceStatus(ctx, service.ID.Hex(), "gone")))

	available, err := svc.ListServices(ctx, domain.ServiceFilter{OnlyAvailable: true})
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = svc.GetService(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
}
