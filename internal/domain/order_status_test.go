package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition_TerminalStatusesAreFinal(t *testing.T) {
	all := append(append([]OrderStatus{}, ForwardStatuses...), OrderStatusCancelled)

	for _, terminal := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		for _, next := range all {
			err := ValidateTransition(terminal, next)
			require.Error(t, err, "%s -> %s", terminal, next)
			assert.True(t, IsInvalidTransition(err), "%s -> %s", terminal, next)
		}
	}
}

func TestValidateTransition_CancelPolicy(t *testing.T) {
	err := ValidateTransition(OrderStatusDelivered, OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
	assert.Contains(t, err.Error(), "cannot cancel a delivered order")

	for _, from := range []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusPickedUp,
		OrderStatusCleaning,
		OrderStatusReady,
	} {
		assert.NoError(t, ValidateTransition(from, OrderStatusCancelled), from)
	}
}

func TestValidateTransition_ForwardOnly(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCleaning, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusReady, OrderStatusPickedUp, false},
		{OrderStatusCleaning, OrderStatusCleaning, false},
		{OrderStatusPending, OrderStatusPending, false},
	}

	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.True(t, IsInvalidTransition(err), "%s -> %s", tt.from, tt.to)
		}
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	err := ValidateTransition(OrderStatusPending, OrderStatus("lost"))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSupersedes(t *testing.T) {
	assert.True(t, Supersedes(OrderStatusProcessing, ""))
	assert.True(t, Supersedes(OrderStatusCancelled, OrderStatusProcessing))
	assert.False(t, Supersedes(OrderStatusProcessing, OrderStatusCancelled))
	assert.False(t, Supersedes(OrderStatusProcessing, OrderStatusProcessing))
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("picked_up")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPickedUp, status)

	_, err = ParseOrderStatus("PICKED_UP")
	assert.True(t, IsValidation(err))
}

func TestOrderTotal(t *testing.T) {
	order := Order{Items: []OrderItem{
		{Price: 12.5, Quantity: 2},
		{Price: 3, Quantity: 3},
	}}
	assert.InDelta(t, 34.0, order.Total(), 0.0001)
}
