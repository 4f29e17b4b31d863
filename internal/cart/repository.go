package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrVariantNotFound = errors.New("variant not found")

type Repository interface {
	GetOrCreate(ctx context.Context, owner Owner) (*Cart, error)
	GetByOwner(ctx context.Context, owner Owner) (*Cart, error)
	GetByID(ctx context.Context, id int64) (*Cart, error)
	AddItem(ctx context.Context, cartID, variantID int64, quantity int) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	Merge(ctx context.Context, sessionID uuid.UUID, userID int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.valid() {
		return nil, ErrNoOwner
	}

	cart, err := r.GetByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	var c Cart
	if owner.UserID != 0 {
		err = r.db.QueryRow(ctx,
			`INSERT INTO carts (user_id) VALUES ($1) RETURNING id, user_id, session_id, created_at, updated_at`,
			owner.UserID,
		).Scan(&c.ID, &c.UserID, &c.SessionID, &c.CreatedAt, &c.UpdatedAt)
	} else {
		err = r.db.QueryRow(ctx,
			`INSERT INTO carts (session_id) VALUES ($1) RETURNING id, user_id, session_id, created_at, updated_at`,
			owner.SessionID,
		).Scan(&c.ID, &c.UserID, &c.SessionID, &c.CreatedAt, &c.UpdatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create cart: %w", err)
	}
	c.Items = make([]CartItem, 0)

	return &c, nil
}

func (r *postgresRepository) GetByOwner(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.valid() {
		return nil, ErrNoOwner
	}

	var row pgx.Row
	if owner.UserID != 0 {
		row = r.db.QueryRow(ctx,
			`SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE user_id = $1`,
			owner.UserID)
	} else {
		row = r.db.QueryRow(ctx,
			`SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE session_id = $1`,
			owner.SessionID)
	}

	return r.scanCartWithItems(ctx, row)
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Cart, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, session_id, created_at, updated_at FROM carts WHERE id = $1`, id)

	return r.scanCartWithItems(ctx, row)
}

func (r *postgresRepository) scanCartWithItems(ctx context.Context, row pgx.Row) (*Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.SessionID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, variant_id, quantity, price, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %d: %w", c.ID, err)
	}
	defer rows.Close()

	c.Items = make([]CartItem, 0)
	for rows.Next() {
		var it CartItem
		err := rows.Scan(&it.ID, &it.CartID, &it.VariantID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for cart %d: %w", c.ID, err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %d: %w", c.ID, err)
	}

	return &c, nil
}

// AddItem inserts a line item with the variant's current price as the
// snapshot, accumulating quantity when the variant is already in the cart.
func (r *postgresRepository) AddItem(ctx context.Context, cartID, variantID int64, quantity int) error {
	query := `
		INSERT INTO cart_items (cart_id, variant_id, quantity, price)
		SELECT $1, v.id, $3, v.price FROM variants v WHERE v.id = $2
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
	`

	cmdTag, err := r.db.Exec(ctx, query, cartID, variantID, quantity)
	if err != nil {
		return fmt.Errorf("repository: failed to add item to cart %d: %w", cartID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrVariantNotFound
	}

	return nil
}

func (r *postgresRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, cartID, itemID)
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $1, updated_at = now() WHERE id = $2 AND cart_id = $3`,
		quantity, itemID, cartID)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item %d: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

func (r *postgresRepository) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("repository: failed to remove cart item %d: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Merge folds a guest cart into the user's cart and destroys the guest cart.
// Quantities for variants present in both accumulate; the user cart keeps its
// own price snapshots on conflict.
func (r *postgresRepository) Merge(ctx context.Context, sessionID uuid.UUID, userID int64) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin merge transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	var guestCartID int64
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE session_id = $1`, sessionID).Scan(&guestCartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Nothing to merge.
			return tx.Commit(ctx)
		}
		return fmt.Errorf("repository: failed to select guest cart: %w", err)
	}

	var userCartID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id
	`, userID).Scan(&userCartID)
	if err != nil {
		return fmt.Errorf("repository: failed to get user cart for merge: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, variant_id, quantity, price)
		SELECT $1, variant_id, quantity, price FROM cart_items WHERE cart_id = $2
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
	`, userCartID, guestCartID)
	if err != nil {
		return fmt.Errorf("repository: failed to merge cart items: %w", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, guestCartID); err != nil {
		return fmt.Errorf("repository: failed to clear guest cart items: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCartID); err != nil {
		return fmt.Errorf("repository: failed to delete guest cart: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit merge transaction: %w", err)
	}

	return nil
}
