package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	SetInvoicePath(ctx context.Context, orderID int64, filename string) error
	RecordPaymentIntent(ctx context.Context, orderID int64, gatewayOrderID string) error
	// MarkPaid transitions pending/failed -> paid. Returns false when the
	// order was already paid; paid is terminal.
	MarkPaid(ctx context.Context, orderID int64, gatewayPaymentID string) (bool, error)
	// MarkPaymentFailed records a failed verification. Never downgrades paid.
	MarkPaymentFailed(ctx context.Context, orderID int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, order_number, guest_access_token, user_id, cart_id,
	customer_name, customer_email, customer_phone, shipping_address,
	subtotal, shipping, tax, discount, grand_total,
	payment_method, payment_status, status,
	razorpay_order_id, razorpay_payment_id, paid_at, invoice_pdf_path,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var addressJSON []byte
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.GuestAccessToken,
		&o.UserID,
		&o.CartID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&addressJSON,
		&o.Subtotal,
		&o.Shipping,
		&o.Tax,
		&o.Discount,
		&o.GrandTotal,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Status,
		&o.RazorpayOrderID,
		&o.RazorpayPayment,
		&o.PaidAt,
		&o.InvoicePDFPath,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address for order %d: %w", o.ID, err)
		}
	}
	return &o, nil
}

func (r *postgresRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", orderNumber, err)
	}

	items, err := r.itemsForOrders(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = make([]OrderItem, 0)
	}

	return o, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user %d: %w", userID, err)
		}
		o.Items = make([]OrderItem, 0)
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for user %d: %w", userID, err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.itemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}

	return orders, nil
}

func (r *postgresRepository) itemsForOrders(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, variant_id, product_name, sku, quantity, price, total, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]OrderItem)
	for rows.Next() {
		var it OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.ProductName, &it.SKU, &it.Quantity, &it.Price, &it.Total, &it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		result[it.OrderID] = append(result[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return result, nil
}

func (r *postgresRepository) SetInvoicePath(ctx context.Context, orderID int64, filename string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET invoice_pdf_path = $1, updated_at = now() WHERE id = $2`,
		filename, orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to set invoice path for order %d: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) RecordPaymentIntent(ctx context.Context, orderID int64, gatewayOrderID string) error {
	query := `
		UPDATE orders
		SET razorpay_order_id = $1, payment_method = 'razorpay',
		    payment_status = $2, status = $3, updated_at = now()
		WHERE id = $4 AND payment_status <> $5
	`

	cmdTag, err := r.db.Exec(ctx, query,
		gatewayOrderID, PaymentPending, StatusAwaitingPayment, orderID, PaymentPaid)
	if err != nil {
		return fmt.Errorf("repository: failed to record payment intent for order %d: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) MarkPaid(ctx context.Context, orderID int64, gatewayPaymentID string) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = $1, status = $2, razorpay_payment_id = $3,
		    paid_at = now(), updated_at = now()
		WHERE id = $4 AND payment_status <> $1
	`

	cmdTag, err := r.db.Exec(ctx, query, PaymentPaid, StatusPlaced, gatewayPaymentID, orderID)
	if err != nil {
		return false, fmt.Errorf("repository: failed to mark order %d paid: %w", orderID, err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *postgresRepository) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	query := `
		UPDATE orders
		SET payment_status = $1, updated_at = now()
		WHERE id = $2 AND payment_status <> $3
	`

	_, err := r.db.Exec(ctx, query, PaymentFailed, orderID, PaymentPaid)
	if err != nil {
		return fmt.Errorf("repository: failed to mark order %d payment failed: %w", orderID, err)
	}

	return nil
}
