package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/careplus/clinic-api/internal/domain/medicine"
	"github.com/careplus/clinic-api/internal/payment"
)

// createRetries bounds order number regeneration on unique collisions.
const createRetries = 3

// ItemRequest is one requested line of a new order.
type ItemRequest struct {
	MedicineID string
	Quantity   int
}

// Customer identifies the person placing an order.
type Customer struct {
	Email string
	Name  string
	Phone string
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	Items           []ItemRequest
	Customer        Customer
	ShippingAddress string
}

// CreateOrderResult is the output of a successfully created order. The
// client completes payment out-of-band with ClientSecret and then calls
// ConfirmPayment.
type CreateOrderResult struct {
	Order        *Order
	Items        []OrderItem
	ClientSecret string
}

// ConfirmResult is the output of a successful payment confirmation.
type ConfirmResult struct {
	TrackingNumber string
}

// Service owns the authoritative state transitions of an order and its
// relationship to catalog stock and the payment gateway.
type Service struct {
	medicines medicine.Repository
	orders    Repository
	payments  payment.Gateway
	numbers   *NumberGenerator
	currency  string

	// now is swapped in tests.
	now func() time.Time
}

// NewService creates an order Service with the required dependencies.
// Currency is the ISO code used for payment intents, e.g. "usd".
func NewService(
	medicines medicine.Repository,
	orders Repository,
	payments payment.Gateway,
	currency string,
) *Service {
	return &Service{
		medicines: medicines,
		orders:    orders,
		payments:  payments,
		numbers:   NewNumberGenerator(time.Now()),
		currency:  currency,
		now:       time.Now,
	}
}

// CreateOrder validates the requested items against committed stock, creates
// a payment intent for the exact total, and persists the order as pending
// with snapshotted unit prices. Stock is not decremented here: the debit
// happens atomically at confirmation time, where sufficiency is re-checked.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, &InvalidQuantityError{MedicineID: item.MedicineID}
		}
		ids[i] = item.MedicineID
	}

	fetched, err := s.medicines.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get medicines")
	}
	byID := make(map[string]medicine.Medicine, len(fetched))
	for _, m := range fetched {
		byID[m.ID] = m
	}

	// Pure validation pre-pass in request order: nothing has been written
	// yet, so a failure on item N rolls back nothing.
	meds := make([]medicine.Medicine, len(req.Items))
	for i, item := range req.Items {
		m, ok := byID[item.MedicineID]
		if !ok {
			return nil, &MedicineNotFoundError{MedicineID: item.MedicineID}
		}
		if !m.InStock || m.StockCount < item.Quantity {
			return nil, &InsufficientStockError{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Requested:    item.Quantity,
				Available:    m.StockCount,
			}
		}
		meds[i] = m
	}

	// Exact decimal sum of snapshotted unit prices; round only the final
	// total for currency display.
	total := decimal.Zero
	for i, item := range req.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		total = total.Add(meds[i].Price.Mul(qty))
	}
	total = total.Round(2)

	now := s.now()
	orderID := uuid.New().String()
	orderNumber := s.numbers.OrderNumber(now)

	intent, err := s.payments.CreateIntent(ctx, payment.CreateIntentRequest{
		Amount:      total.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    s.currency,
		Description: fmt.Sprintf("CarePlus Pharmacy order %s", orderNumber),
		Metadata: map[string]string{
			"order_number":   orderNumber,
			"customer_email": req.Customer.Email,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	o := &Order{
		ID:                orderID,
		OrderNumber:       orderNumber,
		CustomerEmail:     req.Customer.Email,
		CustomerName:      req.Customer.Name,
		CustomerPhone:     req.Customer.Phone,
		ShippingAddress:   req.ShippingAddress,
		Total:             total,
		Status:            StatusPending,
		PaymentIntentID:   intent.ID,
		EstimatedDelivery: now.Add(72 * time.Hour).Format("January 2, 2006"),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	items := make([]OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = OrderItem{
			ID:           uuid.New().String(),
			OrderID:      orderID,
			MedicineID:   item.MedicineID,
			MedicineName: meds[i].Name,
			Quantity:     item.Quantity,
			Price:        meds[i].Price,
			CreatedAt:    now,
		}
	}

	for attempt := 0; ; attempt++ {
		err = s.orders.Create(ctx, o, items)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNumberTaken) && attempt < createRetries {
			o.OrderNumber = s.numbers.OrderNumber(now)
			continue
		}
		return nil, errors.Wrap(err, "create order")
	}

	return &CreateOrderResult{
		Order:        o,
		Items:        items,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmPayment re-verifies the payment intent with the gateway and, only
// on a succeeded intent, marks the order confirmed, issues a tracking
// number, and decrements stock for every item in one transaction. Any other
// intent status performs no mutation except recording a terminal failure.
//
// Confirming an already-confirmed order is idempotent and returns the
// existing tracking number.
func (s *Service) ConfirmPayment(ctx context.Context, paymentIntentID, orderNumber string) (*ConfirmResult, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case StatusPending:
	case StatusConfirmed:
		return &ConfirmResult{TrackingNumber: o.TrackingNumber}, nil
	default:
		return nil, ErrInvalidTransition
	}

	if paymentIntentID != o.PaymentIntentID {
		return nil, ErrPaymentNotSuccessful
	}

	intent, err := s.payments.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		// Gateway unreachable: the order stays pending, safe to retry.
		return nil, err
	}

	switch intent.Status {
	case payment.StatusSucceeded:
	case payment.StatusCanceled:
		if err := s.orders.MarkFailed(ctx, o.ID); err != nil {
			return nil, errors.Wrap(err, "mark order failed")
		}
		return nil, ErrPaymentNotSuccessful
	default:
		// Still in flight provider-side; nothing to mutate.
		return nil, ErrPaymentNotSuccessful
	}

	items, err := s.orders.Items(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}

	trackingNumber := s.numbers.TrackingNumber(s.now())
	if err := s.orders.Confirm(ctx, o.ID, trackingNumber, items); err != nil {
		if errors.Is(err, ErrNotPending) {
			// Lost a race against another confirm (or a cancel). Re-read to
			// resolve: a concurrent confirm already debited stock exactly
			// once, so hand back its tracking number.
			latest, lerr := s.orders.GetByNumber(ctx, orderNumber)
			if lerr != nil {
				return nil, lerr
			}
			if latest.Status == StatusConfirmed {
				return &ConfirmResult{TrackingNumber: latest.TrackingNumber}, nil
			}
			return nil, ErrInvalidTransition
		}
		// A late InsufficientStockError means stock was consumed between
		// validation and confirmation; the transaction rolled back and the
		// order remains pending.
		return nil, err
	}

	return &ConfirmResult{TrackingNumber: trackingNumber}, nil
}

// CancelOrder cancels a pending or confirmed order. Confirmed orders have
// their stock returned to the catalog.
func (s *Service) CancelOrder(ctx context.Context, orderNumber string) error {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	switch o.Status {
	case StatusPending:
		return s.orders.Cancel(ctx, o.ID, nil)
	case StatusConfirmed:
		items, err := s.orders.Items(ctx, o.ID)
		if err != nil {
			return errors.Wrap(err, "load order items")
		}
		return s.orders.Cancel(ctx, o.ID, items)
	default:
		return ErrInvalidTransition
	}
}

// Track returns the simulated shipment-progress view for an order.
func (s *Service) Track(ctx context.Context, orderNumber string) (*TrackingView, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return ProjectTracking(o, s.now()), nil
}

// ListByEmail returns a customer's orders, newest first.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.orders.ListByEmail(ctx, email)
}
