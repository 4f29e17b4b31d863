package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/cart"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopspring/decimal"
)

// Repository owns the checkout transaction: stock validation and decrement,
// order + item snapshot insertion, and cart clearing, all atomic.
type Repository interface {
	PlaceOrder(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// PlaceOrder runs the whole checkout inside one transaction. Variants are
// locked in ascending id order so concurrent multi-item checkouts cannot
// deadlock on each other. Stock is re-read under the row lock; a shortfall
// aborts the transaction with no partial decrements.
func (r *postgresRepository) PlaceOrder(ctx context.Context, draft *order.Order, lines []cart.CartItem) (placed *order.Order, err error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin checkout transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("repository: rollback after panic failed")
			}
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("repository: failed to rollback checkout transaction")
			}
		}
	}()

	sorted := make([]cart.CartItem, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VariantID < sorted[j].VariantID })

	type snapshot struct {
		line        cart.CartItem
		productName string
		sku         string
	}
	snapshots := make([]snapshot, 0, len(sorted))

	for _, line := range sorted {
		var name, sku string
		var stock *int
		err = tx.QueryRow(ctx,
			`SELECT name, sku, stock FROM variants WHERE id = $1 FOR UPDATE`,
			line.VariantID,
		).Scan(&name, &sku, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = fmt.Errorf("%w: variant %d", ErrVariantNotFound, line.VariantID)
				return nil, err
			}
			return nil, fmt.Errorf("repository: failed to lock variant %d: %w", line.VariantID, err)
		}

		// stock IS NULL means untracked inventory.
		if stock != nil {
			if line.Quantity > *stock {
				err = &InsufficientStockError{
					VariantID: line.VariantID,
					Requested: line.Quantity,
					Available: *stock,
				}
				return nil, err
			}
			if _, err = tx.Exec(ctx,
				`UPDATE variants SET stock = stock - $1, updated_at = now() WHERE id = $2`,
				line.Quantity, line.VariantID,
			); err != nil {
				return nil, fmt.Errorf("repository: failed to decrement stock for variant %d: %w", line.VariantID, err)
			}
		}

		snapshots = append(snapshots, snapshot{line: line, productName: name, sku: sku})
	}

	addressJSON, err := json.Marshal(draft.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to encode shipping address: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, guest_access_token, user_id, cart_id,
			customer_name, customer_email, customer_phone, shipping_address,
			subtotal, shipping, tax, discount, grand_total,
			payment_method, payment_status, status)
		VALUES ('', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`,
		draft.GuestAccessToken,
		draft.UserID,
		draft.CartID,
		draft.CustomerName,
		draft.CustomerEmail,
		draft.CustomerPhone,
		addressJSON,
		draft.Subtotal,
		draft.Shipping,
		draft.Tax,
		draft.Discount,
		draft.GrandTotal,
		draft.PaymentMethod,
		order.PaymentPending,
		order.StatusCreated,
	).Scan(&draft.ID, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	draft.OrderNumber = order.FormatOrderNumber(draft.ID, draft.CreatedAt)
	if _, err = tx.Exec(ctx,
		`UPDATE orders SET order_number = $1 WHERE id = $2`,
		draft.OrderNumber, draft.ID,
	); err != nil {
		return nil, fmt.Errorf("repository: failed to set order number: %w", err)
	}

	draft.Items = make([]order.OrderItem, 0, len(snapshots))
	for _, snap := range snapshots {
		item := order.OrderItem{
			OrderID:     draft.ID,
			VariantID:   &snap.line.VariantID,
			ProductName: snap.productName,
			SKU:         snap.sku,
			Quantity:    snap.line.Quantity,
			Price:       snap.line.Price,
			Total:       snap.line.Price.Mul(decimal.NewFromInt(int64(snap.line.Quantity))),
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, variant_id, product_name, sku, quantity, price, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`,
			item.OrderID,
			item.VariantID,
			item.ProductName,
			item.SKU,
			item.Quantity,
			item.Price,
			item.Total,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to insert order item for order %d: %w", draft.ID, err)
		}
		draft.Items = append(draft.Items, item)
	}

	// The cart row survives empty so re-checkout requires adding items again.
	// Zero rows deleted means a concurrent checkout already consumed the
	// cart; abort so the same items cannot be ordered twice.
	if draft.CartID != nil {
		cmdTag, execErr := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, *draft.CartID)
		if execErr != nil {
			err = fmt.Errorf("repository: failed to clear cart %d: %w", *draft.CartID, execErr)
			return nil, err
		}
		if cmdTag.RowsAffected() == 0 {
			err = ErrEmptyCart
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit checkout transaction: %w", err)
	}

	draft.PaymentStatus = order.PaymentPending
	draft.Status = order.StatusCreated

	return draft, nil
}
