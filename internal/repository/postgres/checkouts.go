package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/pkg/errors"
)

type checkoutRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCheckoutRepository creates a new checkout repository
func NewCheckoutRepository(db *sql.DB, logger *zap.Logger) *checkoutRepository {
	return &checkoutRepository{
		db:     db,
		logger: logger,
	}
}

const checkoutColumns = `
	id, user_id, order_id, items, shipping_address, customer_info,
	payment_method, total_price, order_notes, exchange_rate, amount_bdt,
	payment_status, payment_details, ssl_tran_id, is_paid, paid_at,
	is_finalized, finalized_at, callbacks, created_at, updated_at
`

func (r *checkoutRepository) Create(ctx context.Context, checkout *domain.Checkout) error {
	query := `
		INSERT INTO checkouts (` + checkoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	now := time.Now()
	if checkout.ID == uuid.Nil {
		checkout.ID = uuid.New()
	}
	if checkout.CreatedAt.IsZero() {
		checkout.CreatedAt = now
	}
	checkout.UpdatedAt = now

	items, err := json.Marshal(checkout.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	shipping, err := json.Marshal(checkout.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	customer, err := json.Marshal(checkout.CustomerInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal customer info: %w", err)
	}
	details, err := json.Marshal(checkout.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal payment details: %w", err)
	}
	callbacks, err := json.Marshal(checkout.Callbacks)
	if err != nil {
		return fmt.Errorf("failed to marshal callbacks: %w", err)
	}
	if checkout.Callbacks == nil {
		callbacks = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, query,
		checkout.ID,
		checkout.UserID,
		nilUUID(checkout.OrderID),
		items,
		shipping,
		customer,
		checkout.PaymentMethod,
		checkout.TotalPrice,
		checkout.OrderNotes,
		checkout.ExchangeRate,
		checkout.AmountInBDT,
		checkout.PaymentStatus,
		details,
		nullString(checkout.SSLTransactionID),
		checkout.IsPaid,
		nullTime(checkout.PaidAt),
		checkout.IsFinalized,
		nullTime(checkout.FinalizedAt),
		callbacks,
		checkout.CreatedAt,
		checkout.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create checkout", zap.Error(err))
		return err
	}

	return nil
}

func (r *checkoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = $1`

	checkout, err := r.scanCheckout(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "checkout", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get checkout by ID", zap.Error(err))
		return nil, err
	}

	return checkout, nil
}

func (r *checkoutRepository) GetByTransactionID(ctx context.Context, tranID string) (*domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE ssl_tran_id = $1`

	checkout, err := r.scanCheckout(r.db.QueryRowContext(ctx, query, tranID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "checkout", ID: tranID}
	}
	if err != nil {
		r.logger.Error("Failed to get checkout by transaction ID", zap.Error(err))
		return nil, err
	}

	return checkout, nil
}

func (r *checkoutRepository) MarkInitiated(ctx context.Context, id uuid.UUID, tranID string, details domain.PaymentDetails) (bool, error) {
	query := `
		UPDATE checkouts
		SET ssl_tran_id = $2, payment_status = $3, payment_details = $4, updated_at = $5
		WHERE id = $1 AND payment_status IN ($6, $7, $8) AND is_paid = false
	`

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payment details: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		id, tranID, domain.PaymentStatusInitiated, detailsJSON, time.Now(),
		domain.PaymentStatusPending, domain.PaymentStatusFailed, domain.PaymentStatusCancelled,
	)
	if err != nil {
		r.logger.Error("Failed to mark checkout initiated", zap.Error(err), zap.String("checkout_id", id.String()))
		return false, err
	}

	return rowsAffected(result)
}

func (r *checkoutRepository) MarkPaid(ctx context.Context, tranID string, paidAt time.Time, details domain.PaymentDetails) (bool, error) {
	query := `
		UPDATE checkouts
		SET is_paid = true, payment_status = $2, paid_at = $3, payment_details = $4, updated_at = $5
		WHERE ssl_tran_id = $1 AND is_paid = false
	`

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payment details: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		tranID, domain.PaymentStatusCompleted, paidAt, detailsJSON, time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to mark checkout paid", zap.Error(err), zap.String("tran_id", tranID))
		return false, err
	}

	return rowsAffected(result)
}

func (r *checkoutRepository) MarkFailed(ctx context.Context, tranID string, details domain.PaymentDetails) (bool, error) {
	return r.markUnpaidStatus(ctx, tranID, domain.PaymentStatusFailed, details)
}

func (r *checkoutRepository) MarkCancelled(ctx context.Context, tranID string, details domain.PaymentDetails) (bool, error) {
	return r.markUnpaidStatus(ctx, tranID, domain.PaymentStatusCancelled, details)
}

// markUnpaidStatus applies a fail/cancel transition only while the checkout
// has not been paid. A success that arrived first always wins.
func (r *checkoutRepository) markUnpaidStatus(ctx context.Context, tranID string, status domain.PaymentStatus, details domain.PaymentDetails) (bool, error) {
	query := `
		UPDATE checkouts
		SET payment_status = $2, payment_details = $3, updated_at = $4
		WHERE ssl_tran_id = $1 AND is_paid = false
	`

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payment details: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, tranID, status, detailsJSON, time.Now())
	if err != nil {
		r.logger.Error("Failed to update checkout payment status",
			zap.Error(err),
			zap.String("tran_id", tranID),
			zap.String("status", string(status)),
		)
		return false, err
	}

	return rowsAffected(result)
}

func (r *checkoutRepository) Finalize(ctx context.Context, id uuid.UUID, orderID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE checkouts
		SET is_finalized = true, order_id = $2, finalized_at = $3, updated_at = $4
		WHERE id = $1 AND is_finalized = false
	`

	result, err := r.db.ExecContext(ctx, query, id, orderID, at, time.Now())
	if err != nil {
		r.logger.Error("Failed to finalize checkout",
			zap.Error(err),
			zap.String("checkout_id", id.String()),
			zap.String("order_id", orderID.String()),
		)
		return false, err
	}

	return rowsAffected(result)
}

func (r *checkoutRepository) AppendCallback(ctx context.Context, id uuid.UUID, entry domain.CallbackEntry) error {
	query := `
		UPDATE checkouts
		SET callbacks = callbacks || $2::jsonb, updated_at = $3
		WHERE id = $1
	`

	entryJSON, err := json.Marshal([]domain.CallbackEntry{entry})
	if err != nil {
		return fmt.Errorf("failed to marshal callback entry: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, id, entryJSON, time.Now())
	if err != nil {
		r.logger.Error("Failed to append callback", zap.Error(err), zap.String("checkout_id", id.String()))
		return err
	}

	return nil
}

func (r *checkoutRepository) UpdatePayment(ctx context.Context, checkout *domain.Checkout) error {
	// is_paid stays monotonic even on the manual sync path
	query := `
		UPDATE checkouts
		SET is_paid = (is_paid OR $2), payment_status = $3, payment_details = $4,
		    ssl_tran_id = COALESCE($5, ssl_tran_id), paid_at = COALESCE($6, paid_at),
		    updated_at = $7
		WHERE id = $1
	`

	detailsJSON, err := json.Marshal(checkout.PaymentDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal payment details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		checkout.ID,
		checkout.IsPaid,
		checkout.PaymentStatus,
		detailsJSON,
		nullString(checkout.SSLTransactionID),
		nullTime(checkout.PaidAt),
		time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to update checkout payment", zap.Error(err), zap.String("checkout_id", checkout.ID.String()))
		return err
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *checkoutRepository) scanCheckout(row rowScanner) (*domain.Checkout, error) {
	var checkout domain.Checkout
	var orderID sql.NullString
	var items, shipping, customer, details, callbacks []byte
	var sslTranID sql.NullString
	var paidAt, finalizedAt sql.NullTime

	err := row.Scan(
		&checkout.ID,
		&checkout.UserID,
		&orderID,
		&items,
		&shipping,
		&customer,
		&checkout.PaymentMethod,
		&checkout.TotalPrice,
		&checkout.OrderNotes,
		&checkout.ExchangeRate,
		&checkout.AmountInBDT,
		&checkout.PaymentStatus,
		&details,
		&sslTranID,
		&checkout.IsPaid,
		&paidAt,
		&checkout.IsFinalized,
		&finalizedAt,
		&callbacks,
		&checkout.CreatedAt,
		&checkout.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		id, err := uuid.Parse(orderID.String)
		if err == nil {
			checkout.OrderID = &id
		}
	}
	if sslTranID.Valid {
		checkout.SSLTransactionID = sslTranID.String
	}
	if paidAt.Valid {
		checkout.PaidAt = &paidAt.Time
	}
	if finalizedAt.Valid {
		checkout.FinalizedAt = &finalizedAt.Time
	}

	if err := json.Unmarshal(items, &checkout.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if err := json.Unmarshal(shipping, &checkout.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(customer, &checkout.CustomerInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer info: %w", err)
	}
	if err := json.Unmarshal(details, &checkout.PaymentDetails); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment details: %w", err)
	}
	if err := json.Unmarshal(callbacks, &checkout.Callbacks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal callbacks: %w", err)
	}

	return &checkout, nil
}

func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nilUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
