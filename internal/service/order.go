package service

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/auth"
	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/metrics"
	"github.com/zoransi/split-laundry-express/internal/queue"
	"github.com/zoransi/split-laundry-express/internal/repo"
)

// casRetries bounds how often a transition is re-validated after losing a
// compare-and-set against another writer.
const casRetries = 3

// EventPublisher fans status events out to live subscribers.
type EventPublisher interface {
	PublishEvent(event domain.StatusEvent) int
}

type OrderService struct {
	orderRepo    repo.OrderRepository
	auditRepo    repo.OrderStatusAuditRepository
	feedbackRepo repo.FeedbackRepository
	catalogRepo  repo.CatalogRepository
	publisher    EventPublisher
	broker       queue.Broker
	locks        *keyLock
	now          func() time.Time
	logger       *zap.SugaredLogger
}

func NewOrderService(
	orderRepo repo.OrderRepository,
	auditRepo repo.OrderStatusAuditRepository,
	feedbackRepo repo.FeedbackRepository,
	catalogRepo repo.CatalogRepository,
	publisher EventPublisher,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		auditRepo:    auditRepo,
		feedbackRepo: feedbackRepo,
		catalogRepo:  catalogRepo,
		publisher:    publisher,
		broker:       broker,
		locks:        newKeyLock(),
		now:          time.Now,
		logger:       logger,
	}
}

type CreateOrderInput struct {
	Items         []OrderItemInput
	Customer      domain.CustomerInfo
	Pickup        domain.PickupDetails
	PaymentMethod string
	Notes         string
}

type OrderItemInput struct {
	ServiceID           string
	Quantity            int
	SpecialInstructions string
}

// CreateOrder prices the requested items from the catalog and stores a
// pending, unpaid order.
func (s *OrderService) CreateOrder(ctx context.Context, user *domain.User, input CreateOrderInput) (*domain.Order, error) {
	if user == nil {
		return nil, domain.UnauthorizedError("missing credentials")
	}
	if len(input.Items) == 0 {
		return nil, domain.ValidationError("order must contain at least one item")
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, domain.ValidationError("quantity for service %s must be positive", in.ServiceID)
		}
		serviceID, err := primitive.ObjectIDFromHex(in.ServiceID)
		if err != nil {
			return nil, domain.ValidationError("invalid service id %q", in.ServiceID)
		}
		svc, err := s.catalogRepo.GetByID(ctx, serviceID)
		if err != nil {
			return nil, err
		}
		if svc.Status != domain.ServiceStatusAvailable {
			return nil, domain.ValidationError("service %s is not available", svc.Name)
		}
		items = append(items, domain.OrderItem{
			ServiceID:           in.ServiceID,
			Name:                svc.Name,
			Quantity:            in.Quantity,
			Price:               svc.Price,
			SpecialInstructions: in.SpecialInstructions,
		})
	}

	order := &domain.Order{
		UserID:        user.ID,
		Status:        domain.OrderStatusPending,
		Items:         items,
		PaymentStatus: domain.PaymentStatusUnpaid,
		PaymentMethod: input.PaymentMethod,
		Customer:      input.Customer,
		Pickup:        input.Pickup,
		Notes:         input.Notes,
	}
	order.TotalAmount = order.Total()

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.enqueueAudit(ctx, domain.StatusEvent{
		EventType: domain.EventOrderCreated,
		OrderID:   order.ID.Hex(),
		NewStatus: order.Status,
		UserID:    user.ID,
		Timestamp: order.CreatedAt,
	})

	s.logger.Infow("order created", "order_id", order.ID.Hex(), "user_id", user.ID, "total", order.TotalAmount)

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, user *domain.User, orderID string) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanAccessOrder(user, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, user *domain.User, limit int) ([]domain.Order, error) {
	if user == nil {
		return nil, domain.UnauthorizedError("missing credentials")
	}
	orders, err := s.orderRepo.ListByUser(ctx, user.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// AuthorizeOrder lets the live endpoint check order access before a join.
func (s *OrderService) AuthorizeOrder(ctx context.Context, user *domain.User, orderID string) error {
	_, err := s.GetOrder(ctx, user, orderID)
	return err
}

// ApplyTransition moves the order to requested if the state machine allows
// it. Transitions on one order are serialized; an accepted transition stamps
// a strictly newer updatedAt and publishes exactly one status event.
func (s *OrderService) ApplyTransition(ctx context.Context, orderID string, requested domain.OrderStatus, actor *domain.User, reason string) (*domain.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	var (
		order   *domain.Order
		updated *domain.Order
	)
	for attempt := 0; ; attempt++ {
		order, err = s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := domain.ValidateTransition(order.Status, requested); err != nil {
			metrics.OrderTransitionsRejectedTotal.WithLabelValues(string(requested)).Inc()
			s.logger.Infow("order transition rejected",
				"order_id", orderID,
				"from_status", order.Status,
				"to_status", requested,
				"error", err,
			)
			return nil, err
		}

		at := s.now().UTC().Truncate(time.Millisecond)
		if !at.After(order.UpdatedAt) {
			at = order.UpdatedAt.Add(time.Millisecond)
		}

		updated, err = s.orderRepo.SetStatus(ctx, id, order.Status, requested, at)
		if err == nil {
			break
		}
		if !domain.IsConflict(err) || attempt+1 >= casRetries {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
		s.logger.Warnw("order changed concurrently, retrying transition", "order_id", orderID, "attempt", attempt+1)
	}

	event := domain.StatusEvent{
		EventType: domain.EventTypeFor(requested),
		OrderID:   orderID,
		OldStatus: order.Status,
		NewStatus: updated.Status,
		Reason:    reason,
		Timestamp: updated.UpdatedAt,
	}
	if actor != nil {
		event.UserID = actor.ID
	}

	// published under the order lock so subscribers see transitions in order
	subscribers := s.publisher.PublishEvent(event)
	s.enqueueAudit(ctx, event)

	metrics.OrderTransitionsTotal.WithLabelValues(string(order.Status), string(updated.Status)).Inc()
	s.logger.Infow("order status changed",
		"order_id", orderID,
		"old_status", order.Status,
		"new_status", updated.Status,
		"subscribers", subscribers,
	)

	return updated, nil
}

// CancelOrder cancels an order on behalf of its owner or an admin.
func (s *OrderService) CancelOrder(ctx context.Context, user *domain.User, orderID, reason string) (*domain.Order, error) {
	if _, err := s.GetOrder(ctx, user, orderID); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "cancelled by customer"
	}
	return s.ApplyTransition(ctx, orderID, domain.OrderStatusCancelled, user, reason)
}

// History returns the recorded status changes of an order, oldest first.
func (s *OrderService) History(ctx context.Context, user *domain.User, orderID string, limit int) ([]domain.OrderStatusAudit, error) {
	if _, err := s.GetOrder(ctx, user, orderID); err != nil {
		return nil, err
	}
	audits, err := s.auditRepo.GetByOrderID(ctx, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	return audits, nil
}

// ProcessStatusEvent stores a published status event as a history entry.
func (s *OrderService) ProcessStatusEvent(ctx context.Context, event domain.StatusEvent) error {
	audit := &domain.OrderStatusAudit{
		OrderID:   event.OrderID,
		EventType: event.EventType,
		OldStatus: event.OldStatus,
		NewStatus: event.NewStatus,
		Reason:    event.Reason,
		UserID:    event.UserID,
		Timestamp: event.Timestamp,
	}

	if err := s.auditRepo.Create(ctx, audit); err != nil {
		s.logger.Errorw("failed to create audit record", "order_id", event.OrderID, "error", err)
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	s.logger.Infow("order status audit created", "order_id", event.OrderID, "event_type", event.EventType)

	return nil
}

// SubmitFeedback records the single rating allowed for a delivered order.
func (s *OrderService) SubmitFeedback(ctx context.Context, user *domain.User, orderID string, rating int, comment string) (*domain.Feedback, error) {
	order, err := s.GetOrder(ctx, user, orderID)
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, domain.ValidationError("rating must be between 1 and 5")
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, domain.ValidationError("feedback can only be left for delivered orders")
	}

	feedback := &domain.Feedback{
		OrderID: orderID,
		UserID:  user.ID,
		Rating:  rating,
		Comment: comment,
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, err
	}

	s.logger.Infow("feedback submitted", "order_id", orderID, "rating", rating)

	return feedback, nil
}

func (s *OrderService) load(ctx context.Context, orderID string) (*domain.Order, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(ctx, id)
}

// enqueueAudit hands the event to the history worker. The transition is
// already committed, so a failed publish only loses the history entry.
func (s *OrderService) enqueueAudit(ctx context.Context, event domain.StatusEvent) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorw("failed to marshal status event", "order_id", event.OrderID, "error", err)
		return
	}

	if err := s.broker.Publish(ctx, queue.QueueOrderStatus, eventBytes); err != nil {
		s.logger.Errorw("failed to publish status event", "order_id", event.OrderID, "error", err)
	}
}

func parseOrderID(orderID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return primitive.NilObjectID, domain.NotFoundError("order %s not found", orderID)
	}
	return id, nil
}
