package cart

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
	ErrNoOwner      = errors.New("cart owner is required")
)

// Owner identifies a cart by authenticated user or anonymous session.
// Exactly one side is meaningful outside a merge.
type Owner struct {
	UserID    int64
	SessionID uuid.UUID
}

func (o Owner) valid() bool {
	return o.UserID != 0 || o.SessionID != uuid.Nil
}

type CartItem struct {
	ID        int64 `json:"id" db:"id"`
	CartID    int64 `json:"cart_id" db:"cart_id"`
	VariantID int64 `json:"variant_id" db:"variant_id"`
	Quantity  int   `json:"quantity" db:"quantity"`
	// Price is the unit price snapshot captured when the item was added.
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type Cart struct {
	ID        int64      `json:"id" db:"id"`
	UserID    *int64     `json:"user_id,omitempty" db:"user_id"`
	SessionID *uuid.UUID `json:"session_id,omitempty" db:"session_id"`
	Items     []CartItem `json:"items" db:"-"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Subtotal sums unit price x quantity across line items.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
