package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/zoransi/split-laundry-express/internal/auth"
	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type CreateOrderRequest struct {
	Items         []OrderItemRequest   `json:"items" validate:"required,min=1,dive"`
	Customer      domain.CustomerInfo  `json:"customer_info"`
	Pickup        domain.PickupDetails `json:"pickup_details"`
	PaymentMethod string               `json:"payment_method" validate:"required,max=50"`
	Notes         string               `json:"notes" validate:"max=1000"`
}

type OrderItemRequest struct {
	ServiceID           string `json:"service_id" validate:"required"`
	Quantity            int    `json:"quantity" validate:"required,min=1,max=100"`
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// createOrderHandler godoc
//
//	@Summary		Create order
//	@Description	Prices the requested services from the catalog and stores a pending order
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateOrderRequest	true	"Order"
//	@Success		201		{object}	domain.Order
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders [post]
func (app *application) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	input := service.CreateOrderInput{
		Customer:      req.Customer,
		Pickup:        req.Pickup,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.OrderItemInput{
			ServiceID:           item.ServiceID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	order, err := app.orderService.CreateOrder(r.Context(), user, input)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusCreated, order); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listOrdersHandler godoc
//
//	@Summary		List orders
//	@Description	Lists the caller's orders, newest first
//	@Tags			orders
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of orders"
//	@Success		200		{array}		domain.Order
//	@Failure		401		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders [get]
func (app *application) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	orders, err := app.orderService.ListOrders(r.Context(), user, limit)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	if err := app.jsonRespone(w, http.StatusOK, orders); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getOrderHandler godoc
//
//	@Summary		Get order
//	@Tags			orders
//	@Produce		json
//	@Param			order_id	path		string	true	"Order ID"
//	@Success		200			{object}	domain.Order
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders/{order_id} [get]
func (app *application) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	order, err := app.orderService.GetOrder(r.Context(), user, chi.URLParam(r, "order_id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, order); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateOrderStatusHandler godoc
//
//	@Summary		Update order status
//	@Description	Moves an order along its lifecycle and notifies live subscribers
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			order_id	path		string						true	"Order ID"
//	@Param			request		body		UpdateOrderStatusRequest	true	"Status update"
//	@Success		200			{object}	domain.Order
//	@Failure		400			{object}	map[string]string
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders/{order_id}/status [put]
func (app *application) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	order, err := app.orderService.ApplyTransition(r.Context(), chi.URLParam(r, "order_id"), status, user, req.Reason)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, order); err != nil {
		app.internalServerError(w, r, err)
	}
}

// cancelOrderHandler godoc
//
//	@Summary		Cancel order
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			order_id	path		string				true	"Order ID"
//	@Param			request		body		CancelOrderRequest	false	"Cancellation reason"
//	@Success		200			{object}	domain.Order
//	@Failure		400			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders/{order_id}/cancel [post]
func (app *application) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if r.ContentLength != 0 {
		if err := readJson(w, r, &req); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(req); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	user, _ := auth.UserFromContext(r.Context())

	order, err := app.orderService.CancelOrder(r.Context(), user, chi.URLParam(r, "order_id"), req.Reason)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, order); err != nil {
		app.internalServerError(w, r, err)
	}
}

// orderHistoryHandler godoc
//
//	@Summary		Order status history
//	@Tags			orders
//	@Produce		json
//	@Param			order_id	path		string	true	"Order ID"
//	@Success		200			{array}		domain.OrderStatusAudit
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders/{order_id}/history [get]
func (app *application) orderHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	history, err := app.orderService.History(r.Context(), user, chi.URLParam(r, "order_id"), limit)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if history == nil {
		history = []domain.OrderStatusAudit{}
	}

	if err := app.jsonRespone(w, http.StatusOK, history); err != nil {
		app.internalServerError(w, r, err)
	}
}

// submitFeedbackHandler godoc
//
//	@Summary		Leave feedback
//	@Description	Rates a delivered order; one feedback per order
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			order_id	path		string			true	"Order ID"
//	@Param			request		body		FeedbackRequest	true	"Feedback"
//	@Success		201			{object}	domain.Feedback
//	@Failure		400			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders/{order_id}/feedback [post]
func (app *application) submitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	feedback, err := app.orderService.SubmitFeedback(r.Context(), user, chi.URLParam(r, "order_id"), req.Rating, req.Comment)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusCreated, feedback); err != nil {
		app.internalServerError(w, r, err)
	}
}

// confirmPaymentHandler godoc
//
//	@Summary		Payment callback
//	@Description	Applies the card processor result; success moves a pending order to processing
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			order_id	path		string						true	"Order ID"
//	@Param			request		body		domain.PaymentConfirmation	true	"Payment result"
//	@Success		200			{object}	domain.Order
//	@Failure		400			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/orders/{order_id}/payment [post]
func (app *application) confirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentConfirmation
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, _ := auth.UserFromContext(r.Context())

	order, err := app.orderService.ConfirmPayment(r.Context(), user, chi.URLParam(r, "order_id"), req)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, order); err != nil {
		app.internalServerError(w, r, err)
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, domain.ValidationError("limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
