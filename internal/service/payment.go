package service

import (
	"context"
	"fmt"
	"math"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/metrics"
)

// ConfirmPayment applies a card processor callback. A successful payment
// marks the order paid and moves a pending order to processing. A declined
// payment is returned as *domain.PaymentError and leaves the order status
// untouched.
func (s *OrderService) ConfirmPayment(ctx context.Context, user *domain.User, orderID string, confirmation domain.PaymentConfirmation) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, user, orderID)
	if err != nil {
		return nil, err
	}

	if !confirmation.Succeeded {
		metrics.PaymentCallbacksTotal.WithLabelValues("failed").Inc()

		payErr := &domain.PaymentError{OrderID: orderID, Message: "payment was declined"}
		if confirmation.Error != nil {
			payErr.Code = confirmation.Error.Code
			if confirmation.Error.Message != "" {
				payErr.Message = confirmation.Error.Message
			}
		}
		if order.PaymentStatus != domain.PaymentStatusPaid {
			if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, domain.PaymentStatusFailed, ""); err != nil {
				return nil, fmt.Errorf("failed to record payment failure: %w", err)
			}
		}

		s.logger.Infow("payment failed", "order_id", orderID, "code", payErr.Code)
		return nil, payErr
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, nil
	}
	if confirmation.TransactionID == "" {
		return nil, domain.ValidationError("transaction id is required")
	}
	if confirmation.Amount > 0 && math.Abs(confirmation.Amount-order.TotalAmount) > 0.005 {
		return nil, domain.ValidationError("paid amount %.2f does not match order total %.2f", confirmation.Amount, order.TotalAmount)
	}
	if order.Status.Terminal() {
		return nil, domain.InvalidTransitionError("order is already %s", order.Status)
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, domain.PaymentStatusPaid, confirmation.TransactionID); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	metrics.PaymentCallbacksTotal.WithLabelValues("succeeded").Inc()
	s.logger.Infow("payment confirmed", "order_id", orderID, "transaction_id", confirmation.TransactionID)

	if order.Status == domain.OrderStatusPending {
		updated, err := s.ApplyTransition(ctx, orderID, domain.OrderStatusProcessing, user, "payment confirmed")
		// another writer may have advanced the order in the meantime
		if err != nil && !domain.IsInvalidTransition(err) {
			return nil, err
		}
		if err == nil {
			return updated, nil
		}
	}

	return s.orderRepo.GetByID(ctx, order.ID)
}
