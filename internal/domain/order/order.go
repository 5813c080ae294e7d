package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states. Only pending, confirmed,
// failed and cancelled are ever persisted; the shipping progression
// (shipped through delivered) is re-derived on every read by the tracking
// projection from the order's creation time.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusShipped        Status = "shipped"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// Order is a customer pharmacy order. OrderNumber is the human-facing
// identifier (ORD-<year>-<6 digits>); ID is internal.
type Order struct {
	ID                string
	OrderNumber       string
	CustomerEmail     string
	CustomerName      string
	CustomerPhone     string
	ShippingAddress   string
	Total             decimal.Decimal
	Status            Status
	PaymentIntentID   string
	TrackingNumber    string
	EstimatedDelivery string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem is one line of an order. Price is a snapshot of the medicine's
// unit price at order time, so later catalog price changes never alter
// historical orders. Immutable after creation.
type OrderItem struct {
	ID           string
	OrderID      string
	MedicineID   string
	MedicineName string
	Quantity     int
	Price        decimal.Decimal
	CreatedAt    time.Time
}

// Sentinel errors for order operations.
var (
	ErrEmptyItems = errors.New("items required")
	// ErrNotFound is returned when no order matches the given order number.
	ErrNotFound = errors.New("order not found")
	// ErrPaymentNotSuccessful is returned when the payment gateway reports
	// any intent status other than succeeded. No state is mutated.
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	// ErrNumberTaken is returned by the repository when the generated order
	// number collides with an existing one; the service regenerates and retries.
	ErrNumberTaken = errors.New("order number already taken")
	// ErrInvalidTransition is returned when an operation is not valid for the
	// order's current status (e.g. cancelling a delivered order).
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrNotPending is returned by Repository.Confirm when the order left the
	// pending status between the caller's read and the confirm write. The
	// service re-reads the order to resolve the race.
	ErrNotPending = errors.New("order is not pending")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	MedicineID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for medicine %s", e.MedicineID)
}

// MedicineNotFoundError indicates a requested medicine does not exist.
type MedicineNotFoundError struct {
	MedicineID string
}

func (e *MedicineNotFoundError) Error() string {
	return fmt.Sprintf("medicine %s not found", e.MedicineID)
}

// InsufficientStockError indicates a requested quantity exceeds the current
// stock of a medicine. It is returned both from the creation-time validation
// pass and from the confirmation-time conditional decrement, since stock may
// have been consumed by other orders in between.
type InsufficientStockError struct {
	MedicineID   string
	MedicineName string
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	name := e.MedicineName
	if name == "" {
		name = e.MedicineID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

// Repository defines persistence operations for orders. Confirm and Cancel
// are transactional: the status change and the per-item stock mutations
// either all apply or none do.
type Repository interface {
	// Create persists the order and its items atomically.
	// Returns ErrNumberTaken on an order number collision.
	Create(ctx context.Context, o *Order, items []OrderItem) error
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	Items(ctx context.Context, orderID string) ([]OrderItem, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	// Confirm marks the order confirmed with the given tracking number and
	// conditionally decrements stock for every item. A decrement that would
	// go below zero aborts the whole transaction with InsufficientStockError.
	// Returns ErrNotPending without mutating anything when the order is no
	// longer pending, so a concurrent confirm can debit stock at most once.
	Confirm(ctx context.Context, orderID, trackingNumber string, items []OrderItem) error
	// MarkFailed records a terminally failed payment. No stock is touched.
	MarkFailed(ctx context.Context, orderID string) error
	// Cancel marks the order cancelled and restocks the given items
	// (empty for orders that never reached confirmation).
	Cancel(ctx context.Context, orderID string, restock []OrderItem) error
}
