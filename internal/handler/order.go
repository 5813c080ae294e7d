package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/careplus/clinic-api/internal/domain/order"
	"github.com/careplus/clinic-api/internal/payment"
)

type createOrderRequest struct {
	Items           []createOrderItem `json:"items" validate:"required,min=1,dive"`
	CustomerInfo    customerInfo      `json:"customerInfo"`
	ShippingAddress string            `json:"shippingAddress" validate:"required"`
}

type createOrderItem struct {
	MedicineID string `json:"medicineId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
}

type customerInfo struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	OrderNumber     string `json:"orderNumber" validate:"required"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	OrderNumber       string              `json:"orderNumber"`
	CustomerEmail     string              `json:"customerEmail"`
	CustomerName      string              `json:"customerName"`
	CustomerPhone     string              `json:"customerPhone,omitempty"`
	ShippingAddress   string              `json:"shippingAddress"`
	Total             decimal.Decimal     `json:"total"`
	Status            order.Status        `json:"status"`
	TrackingNumber    string              `json:"trackingNumber,omitempty"`
	EstimatedDelivery string              `json:"estimatedDelivery"`
	Items             []orderItemResponse `json:"items,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

type orderItemResponse struct {
	MedicineID   string          `json:"medicineId"`
	MedicineName string          `json:"medicineName"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

type trackingStepResponse struct {
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Timestamp   *time.Time `json:"timestamp"`
}

type trackingResponse struct {
	OrderNumber       string                 `json:"orderNumber"`
	Status            order.Status           `json:"status"`
	TrackingNumber    string                 `json:"trackingNumber"`
	Carrier           string                 `json:"carrier"`
	EstimatedDelivery string                 `json:"estimatedDelivery"`
	ProgressSteps     []trackingStepResponse `json:"progressSteps"`
	CustomerInfo      customerInfo           `json:"customerInfo"`
	ShippingAddress   string                 `json:"shippingAddress"`
	OrderTotal        decimal.Decimal        `json:"orderTotal"`
}

// CreateOrder validates the cart, creates a pending order with a fresh
// payment intent, and returns the client secret the caller needs to complete
// payment with the gateway.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{MedicineID: item.MedicineID, Quantity: item.Quantity}
	}

	result, err := h.deps.Orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		Items: items,
		Customer: order.Customer{
			Email: req.CustomerInfo.Email,
			Name:  req.CustomerInfo.Name,
			Phone: req.CustomerInfo.Phone,
		},
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order":        toOrderResponse(result.Order, result.Items),
		"clientSecret": result.ClientSecret,
	})
}

// ConfirmOrderPayment re-verifies the payment intent with the gateway and,
// on success, confirms the order and returns its tracking number.
func (h *Handler) ConfirmOrderPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.deps.Orders.ConfirmPayment(r.Context(), req.PaymentIntentID, req.OrderNumber)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"trackingNumber": result.TrackingNumber,
	})
}

// TrackOrder returns the simulated shipment-progress view for an order.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	view, err := h.deps.Orders.Track(r.Context(), orderNumber)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	steps := make([]trackingStepResponse, len(view.ProgressSteps))
	for i, s := range view.ProgressSteps {
		steps[i] = trackingStepResponse{
			Label:       s.Label,
			Description: s.Description,
			Completed:   s.Completed,
			Timestamp:   s.Timestamp,
		}
	}

	writeJSON(w, http.StatusOK, trackingResponse{
		OrderNumber:       view.OrderNumber,
		Status:            view.Status,
		TrackingNumber:    view.TrackingNumber,
		Carrier:           view.Carrier,
		EstimatedDelivery: view.EstimatedDelivery,
		ProgressSteps:     steps,
		CustomerInfo: customerInfo{
			Email: view.CustomerEmail,
			Name:  view.CustomerName,
		},
		ShippingAddress: view.ShippingAddress,
		OrderTotal:      view.OrderTotal,
	})
}

// ListOrders returns the orders of the customer given by the email query
// parameter, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	orders, err := h.deps.Orders.ListByEmail(r.Context(), email)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list orders"))
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i], nil)
	}
	writeJSON(w, http.StatusOK, out)
}

// CancelOrder cancels a pending or confirmed order, restocking confirmed
// ones. Admin-only.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	if err := h.deps.Orders.CancelOrder(r.Context(), orderNumber); err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeOrderError maps order domain errors to HTTP responses.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound     *order.MedicineNotFoundError
		insufficient *order.InsufficientStockError
		badQuantity  *order.InvalidQuantityError
		gateway      *payment.GatewayError
	)

	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.As(err, &notFound):
		writeError(w, http.StatusBadRequest, notFound.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusBadRequest, insufficient.Error())
	case errors.As(err, &badQuantity):
		writeError(w, http.StatusBadRequest, badQuantity.Error())
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "items required")
	case errors.Is(err, order.ErrPaymentNotSuccessful):
		writeError(w, http.StatusBadRequest, "Payment not successful")
	case errors.Is(err, order.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Order is not in a state that allows this operation")
	case errors.As(err, &gateway):
		zctx.From(r.Context()).Warn("payment gateway error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Payment service unavailable, please retry")
	default:
		writeInternalError(w, r, err)
	}
}

func toOrderResponse(o *order.Order, items []order.OrderItem) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		CustomerEmail:     o.CustomerEmail,
		CustomerName:      o.CustomerName,
		CustomerPhone:     o.CustomerPhone,
		ShippingAddress:   o.ShippingAddress,
		Total:             o.Total,
		Status:            o.Status,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			MedicineID:   item.MedicineID,
			MedicineName: item.MedicineName,
			Quantity:     item.Quantity,
			Price:        item.Price,
		})
	}
	return resp
}
