package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `
	id, user_id, checkout_id, items, shipping_address, customer_info,
	payment_method, total_price, order_notes, status, payment_status,
	payment_details, is_paid, paid_at, is_delivered, delivered_at,
	is_cancelled, cancelled_at, cancellation_reason, cancelled_by,
	refund_status, refund_details, created_at, updated_at
`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (checkout_id) DO NOTHING
	`

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	customer, err := json.Marshal(order.CustomerInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal customer info: %w", err)
	}
	details, err := json.Marshal(order.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal payment details: %w", err)
	}
	refund, err := json.Marshal(order.RefundDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal refund details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.CheckoutID,
		items,
		shipping,
		customer,
		order.PaymentMethod,
		order.TotalPrice,
		order.OrderNotes,
		order.Status,
		order.PaymentStatus,
		details,
		order.IsPaid,
		nullTime(order.PaidAt),
		order.IsDelivered,
		nullTime(order.DeliveredAt),
		order.IsCancelled,
		nullTime(order.CancelledAt),
		order.CancellationReason,
		order.CancelledBy,
		order.RefundStatus,
		refund,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetByCheckoutID(ctx context.Context, checkoutID uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE checkout_id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, checkoutID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: checkoutID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by checkout ID", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func (r *orderRepository) ApplyCancellation(ctx context.Context, order *domain.Order) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, is_cancelled = true, cancelled_at = $4,
		    cancellation_reason = $5, cancelled_by = $6, refund_status = $7, updated_at = $8
		WHERE id = $1 AND status <> $9 AND payment_status <> $10
	`

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.PaymentStatus,
		nullTime(order.CancelledAt),
		order.CancellationReason,
		order.CancelledBy,
		order.RefundStatus,
		time.Now(),
		domain.OrderStatusCancel,
		domain.PaymentStatusCancelled,
	)
	if err != nil {
		r.logger.Error("Failed to apply cancellation", zap.Error(err), zap.String("order_id", order.ID.String()))
		return false, err
	}

	return rowsAffected(result)
}

func (r *orderRepository) UpdateRefund(ctx context.Context, order *domain.Order, from []domain.RefundStatus) (bool, error) {
	query := `
		UPDATE orders
		SET refund_status = $2, refund_details = $3, payment_status = $4, updated_at = $5
		WHERE id = $1 AND refund_status = ANY($6)
	`

	refund, err := json.Marshal(order.RefundDetails)
	if err != nil {
		return false, fmt.Errorf("failed to marshal refund details: %w", err)
	}

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.RefundStatus,
		refund,
		order.PaymentStatus,
		time.Now(),
		pq.Array(fromStrs),
	)
	if err != nil {
		r.logger.Error("Failed to update refund", zap.Error(err), zap.String("order_id", order.ID.String()))
		return false, err
	}

	return rowsAffected(result)
}

func (r *orderRepository) scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var items, shipping, customer, details, refund []byte
	var paidAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.CheckoutID,
		&items,
		&shipping,
		&customer,
		&order.PaymentMethod,
		&order.TotalPrice,
		&order.OrderNotes,
		&order.Status,
		&order.PaymentStatus,
		&details,
		&order.IsPaid,
		&paidAt,
		&order.IsDelivered,
		&deliveredAt,
		&order.IsCancelled,
		&cancelledAt,
		&order.CancellationReason,
		&order.CancelledBy,
		&order.RefundStatus,
		&refund,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	if cancelledAt.Valid {
		order.CancelledAt = &cancelledAt.Time
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(customer, &order.CustomerInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer info: %w", err)
	}
	if err := json.Unmarshal(details, &order.PaymentDetails); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment details: %w", err)
	}
	if err := json.Unmarshal(refund, &order.RefundDetails); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refund details: %w", err)
	}

	return &order, nil
}
