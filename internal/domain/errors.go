package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed or missing input
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a missing order, service or user
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidTransition indicates an illegal order status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized indicates missing or expired credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks the required role
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a concurrent modification lost a compare-and-set
	ErrConflict = errors.New("concurrent modification")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func NotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func InvalidTransitionError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidTransition)
}

func UnauthorizedError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnauthorized)
}

func ForbiddenError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

func ConflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// PaymentError is returned when the card processor declines a payment.
// The order is left untouched.
type PaymentError struct {
	OrderID string
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment for order %s failed: %s", e.OrderID, e.Message)
	}
	return fmt.Sprintf("payment for order %s failed (%s): %s", e.OrderID, e.Code, e.Message)
}

func IsPaymentError(err error) bool {
	var target *PaymentError
	return errors.As(err, &target)
}
