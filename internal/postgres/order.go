package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careplus/clinic-api/internal/domain/order"
)

const orderColumns = `id, order_number, customer_email, customer_name, customer_phone,
	shipping_address, total, status, payment_intent_id, tracking_number,
	estimated_delivery, created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (id, order_number, customer_email, customer_name,
			customer_phone, shipping_address, total, status, payment_intent_id,
			estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, medicine_id, medicine_name, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	listOrdersByEmailSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_email = $1 ORDER BY created_at DESC`

	orderItemsSQL = `SELECT id, order_id, medicine_id, medicine_name, quantity, price, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at`

	setOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	// The status guard makes concurrent confirms race-safe: only the first
	// transaction moves the row out of pending, everyone else affects zero
	// rows and backs off without touching stock.
	confirmOrderSQL = `UPDATE orders SET status = 'confirmed', tracking_number = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	// Conditional decrement: refuses to go below zero, which turns the
	// check-then-act race between creation and confirmation into a clean
	// late failure instead of negative stock.
	decrementStockSQL = `UPDATE medicines
		SET stock_count = stock_count - $2, in_stock = (stock_count - $2) > 0
		WHERE id = $1 AND stock_count >= $2`

	stockCountSQL = `SELECT name, stock_count FROM medicines WHERE id = $1`

	restockSQL = `UPDATE medicines
		SET stock_count = stock_count + $2, in_stock = TRUE
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, items []order.OrderItem) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.OrderNumber, o.CustomerEmail, o.CustomerName, o.CustomerPhone,
			o.ShippingAddress, o.Total, string(o.Status), o.PaymentIntentID,
			o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return err
		}
		for _, item := range items {
			_, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID, item.OrderID, item.MedicineID, item.MedicineName,
				item.Quantity, item.Price, item.CreatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return order.ErrNumberTaken
		}
		return fmt.Errorf("creating order %q: %w", o.OrderNumber, err)
	}
	return nil
}

// GetByNumber returns the order with the given human-facing order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderNumber, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderNumber, err)
	}
	return &o, nil
}

// Items returns the line items of an order in creation order.
func (r *OrderRepository) Items(ctx context.Context, orderID string) ([]order.OrderItem, error) {
	rows, err := r.pool.Query(ctx, orderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// ListByEmail returns a customer's orders, newest first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", email, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Confirm marks the order confirmed and debits stock for every item inside a
// single transaction. A decrement that cannot be satisfied aborts the whole
// transaction with order.InsufficientStockError, leaving the order pending.
// When the order is no longer pending (a concurrent confirm won, or it was
// cancelled) nothing is written and order.ErrNotPending is returned.
func (r *OrderRepository) Confirm(ctx context.Context, orderID, trackingNumber string, items []order.OrderItem) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, confirmOrderSQL, orderID, trackingNumber)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotPending
		}
		for _, item := range items {
			tag, err := tx.Exec(ctx, decrementStockSQL, item.MedicineID, item.Quantity)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return r.insufficientStock(ctx, tx, item)
			}
		}
		return nil
	})
	if err != nil {
		var insufficient *order.InsufficientStockError
		if errors.As(err, &insufficient) {
			return insufficient
		}
		if errors.Is(err, order.ErrNotPending) {
			return order.ErrNotPending
		}
		return fmt.Errorf("confirming order %q: %w", orderID, err)
	}
	return nil
}

// insufficientStock builds the detailed late-stock error for a failed
// decrement, reading current stock inside the same transaction.
func (r *OrderRepository) insufficientStock(ctx context.Context, tx pgx.Tx, item order.OrderItem) error {
	var (
		name  string
		count int
	)
	if err := tx.QueryRow(ctx, stockCountSQL, item.MedicineID).Scan(&name, &count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &order.MedicineNotFoundError{MedicineID: item.MedicineID}
		}
		return err
	}
	return &order.InsufficientStockError{
		MedicineID:   item.MedicineID,
		MedicineName: name,
		Requested:    item.Quantity,
		Available:    count,
	}
}

// MarkFailed records a terminally failed payment.
func (r *OrderRepository) MarkFailed(ctx context.Context, orderID string) error {
	if _, err := r.pool.Exec(ctx, setOrderStatusSQL, orderID, string(order.StatusFailed)); err != nil {
		return fmt.Errorf("marking order %q failed: %w", orderID, err)
	}
	return nil
}

// Cancel marks the order cancelled and returns the given items to stock.
func (r *OrderRepository) Cancel(ctx context.Context, orderID string, restock []order.OrderItem) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, setOrderStatusSQL, orderID, string(order.StatusCancelled)); err != nil {
			return err
		}
		for _, item := range restock {
			if _, err := tx.Exec(ctx, restockSQL, item.MedicineID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancelling order %q: %w", orderID, err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerEmail, &o.CustomerName, &o.CustomerPhone,
		&o.ShippingAddress, &o.Total, &status, &o.PaymentIntentID, &o.TrackingNumber,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var item order.OrderItem
	err := row.Scan(
		&item.ID, &item.OrderID, &item.MedicineID, &item.MedicineName,
		&item.Quantity, &item.Price, &item.CreatedAt,
	)
	return item, err
}
