package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/queue"
	"github.com/zoransi/split-laundry-express/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (p *recordingPublisher) PublishEvent(event domain.StatusEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return 1
}

func (p *recordingPublisher) Events() []domain.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.StatusEvent(nil), p.events...)
}

type orderFixture struct {
	svc       *OrderService
	orders    *memory.OrderRepository
	audits    *memory.OrderStatusAuditRepository
	catalog   *memory.CatalogRepository
	publisher *recordingPublisher
	broker    *queue.MemoryBroker
	customer  *domain.User
	admin     *domain.User
	washID    string
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	logger := zap.NewNop().Sugar()

	f := &orderFixture{
		orders:    memory.NewOrderRepository(),
		audits:    memory.NewOrderStatusAuditRepository(),
		catalog:   memory.NewCatalogRepository(),
		publisher: &recordingPublisher{},
		broker:    queue.NewMemoryBroker(0, logger),
		customer:  &domain.User{ID: "user-1", Role: domain.RoleCustomer},
		admin:     &domain.User{ID: "admin-1", Role: domain.RoleAdmin},
	}
	t.Cleanup(func() { _ = f.broker.Close() })

	f.svc = NewOrderService(f.orders, f.audits, memory.NewFeedbackRepository(), f.catalog, f.publisher, f.broker, logger)

	wash := &domain.Service{Code: "WF-1", Name: "Wash & Fold", Price: 12.5, Status: domain.ServiceStatusAvailable}
	require.NoError(t, f.catalog.Create(context.Background(), wash))
	f.washID = wash.ID.Hex()

	return f
}

func (f *orderFixture) createOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), f.customer, CreateOrderInput{
		Items: []OrderItemInput{{ServiceID: f.washID, Quantity: 2}},
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	f := newOrderFixture(t)

	order := f.createOrder(t)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, 25.0, order.TotalAmount)
	assert.Equal(t, "Wash & Fold", order.Items[0].Name)
	assert.Empty(t, f.publisher.Events())
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, f.customer, CreateOrderInput{})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.CreateOrder(ctx, f.customer, CreateOrderInput{
		Items: []OrderItemInput{{ServiceID: f.washID, Quantity: 0}},
	})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.CreateOrder(ctx, f.customer, CreateOrderInput{
		Items: []OrderItemInput{{ServiceID: "not-an-id", Quantity: 1}},
	})
	assert.True(t, domain.IsValidation(err))

	missing := "5f1d7f3e9d3b2a0012345678"
	_, err = f.svc.CreateOrder(ctx, f.customer, CreateOrderInput{
		Items: []OrderItemInput{{ServiceID: missing, Quantity: 1}},
	})
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.CreateOrder(ctx, nil, CreateOrderInput{})
	assert.True(t, domain.IsUnauthorized(err))
}

func TestTransitionScenario(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.createOrder(t)
	id := order.ID.Hex()

	updated, err := f.svc.ApplyTransition(ctx, id, domain.OrderStatusProcessing, f.admin, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)
	assert.True(t, updated.UpdatedAt.After(order.UpdatedAt))

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].OrderID)
	assert.Equal(t, domain.OrderStatusPending, events[0].OldStatus)
	assert.Equal(t, domain.OrderStatusProcessing, events[0].NewStatus)
	assert.Equal(t, updated.UpdatedAt, events[0].Timestamp)

	_, err = f.svc.ApplyTransition(ctx, id, domain.OrderStatusPending, f.admin, "")
	assert.True(t, domain.IsInvalidTransition(err))
	assert.Len(t, f.publisher.Events(), 1)

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
}

func TestUpdatedAtStrictlyIncreases(t *testing.T) {
	f := newOrderFixture(t)
	frozen := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return frozen }

	order := f.createOrder(t)
	id := order.ID.Hex()

	var last time.Time
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusPickedUp,
		domain.OrderStatusCleaning,
	} {
		updated, err := f.svc.ApplyTransition(context.Background(), id, status, f.admin, "")
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(last))
		last = updated.UpdatedAt
	}
}

func TestTerminalOrdersRejectEverything(t *testing.T) {
	for _, terminal := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newOrderFixture(t)
			ctx := context.Background()
			id := f.createOrder(t).ID.Hex()

			_, err := f.svc.ApplyTransition(ctx, id, terminal, f.admin, "")
			require.NoError(t, err)

			for _, next := range append(domain.ForwardStatuses, domain.OrderStatusCancelled) {
				_, err := f.svc.ApplyTransition(ctx, id, next, f.admin, "")
				assert.True(t, domain.IsInvalidTransition(err), "moving %s to %s", terminal, next)
			}
			assert.Len(t, f.publisher.Events(), 1)
		})
	}
}

func TestCancelOrder(t *testing.T) {
	nonTerminal := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusProcessing,
		domain.OrderStatusPickedUp,
		domain.OrderStatusCleaning,
		domain.OrderStatusReady,
	}
	for _, from := range nonTerminal {
		t.Run(string(from), func(t *testing.T) {
			f := newOrderFixture(t)
			ctx := context.Background()
			id := f.createOrder(t).ID.Hex()
			if from != domain.OrderStatusPending {
				_, err := f.svc.ApplyTransition(ctx, id, from, f.admin, "")
				require.NoError(t, err)
			}

			cancelled, err := f.svc.CancelOrder(ctx, f.customer, id, "")
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

			events := f.publisher.Events()
			assert.Equal(t, domain.EventOrderCancelled, events[len(events)-1].EventType)
		})
	}

	t.Run("delivered", func(t *testing.T) {
		f := newOrderFixture(t)
		ctx := context.Background()
		id := f.createOrder(t).ID.Hex()
		_, err := f.svc.ApplyTransition(ctx, id, domain.OrderStatusDelivered, f.admin, "")
		require.NoError(t, err)

		_, err = f.svc.CancelOrder(ctx, f.customer, id, "")
		require.Error(t, err)
		assert.True(t, domain.IsInvalidTransition(err))
		assert.Contains(t, err.Error(), "cannot cancel a delivered order")
	})

	t.Run("other customer", func(t *testing.T) {
		f := newOrderFixture(t)
		id := f.createOrder(t).ID.Hex()

		_, err := f.svc.CancelOrder(context.Background(), &domain.User{ID: "user-2"}, id, "")
		assert.True(t, domain.IsForbidden(err))
	})
}

func TestConcurrentTransitionsSameOrder(t *testing.T) {
	f := newOrderFixture(t)
	id := f.createOrder(t).ID.Hex()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyTransition(context.Background(), id, domain.OrderStatusCancelled, f.admin, "")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.publisher.Events(), 1)
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestGetOrderNotFound(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.GetOrder(context.Background(), f.customer, "bogus")
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.ApplyTransition(context.Background(), "5f1d7f3e9d3b2a0012345678", domain.OrderStatusProcessing, f.admin, "")
	assert.True(t, domain.IsNotFound(err))
}

func TestHistoryIsWrittenByStatusEvents(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	id := f.createOrder(t).ID.Hex()

	_, err := f.svc.ApplyTransition(ctx, id, domain.OrderStatusProcessing, f.admin, "payment confirmed")
	require.NoError(t, err)

	for _, event := range f.publisher.Events() {
		require.NoError(t, f.svc.ProcessStatusEvent(ctx, event))
	}

	history, err := f.svc.History(ctx, f.customer, id, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.OrderStatusProcessing, history[0].NewStatus)
	assert.Equal(t, "payment confirmed", history[0].Reason)
	assert.Equal(t, "admin-1", history[0].UserID)
}

func TestSubmitFeedback(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	id := f.createOrder(t).ID.Hex()

	_, err := f.svc.SubmitFeedback(ctx, f.customer, id, 5, "great")
	assert.True(t, domain.IsValidation(err), "not delivered yet")

	_, err = f.svc.ApplyTransition(ctx, id, domain.OrderStatusDelivered, f.admin, "")
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedback(ctx, f.customer, id, 0, "")
	assert.True(t, domain.IsValidation(err))

	feedback, err := f.svc.SubmitFeedback(ctx, f.customer, id, 4, "quick turnaround")
	require.NoError(t, err)
	assert.Equal(t, 4, feedback.Rating)

	_, err = f.svc.SubmitFeedback(ctx, f.customer, id, 5, "again")
	assert.True(t, domain.IsValidation(err))
}
