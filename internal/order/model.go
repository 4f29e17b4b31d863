package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

type Status string

const (
	StatusCreated         Status = "created"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPlaced          Status = "placed"
)

func (s Status) String() string {
	return string(s)
}

// Address is the shipping address snapshot stored on the order.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderItem is a line-item snapshot captured at checkout time. Product name
// and sku are copied from the variant so later catalog edits cannot alter
// historical orders.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	VariantID   *int64          `json:"variant_id,omitempty" db:"variant_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	SKU         string          `json:"sku" db:"sku"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Total       decimal.Decimal `json:"total" db:"total"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type Order struct {
	ID               int64           `json:"id" db:"id"`
	OrderNumber      string          `json:"order_number" db:"order_number"`
	GuestAccessToken string          `json:"-" db:"guest_access_token"`
	UserID           *int64          `json:"user_id,omitempty" db:"user_id"`
	CartID           *int64          `json:"-" db:"cart_id"`
	CustomerName     string          `json:"customer_name" db:"customer_name"`
	CustomerEmail    string          `json:"customer_email" db:"customer_email"`
	CustomerPhone    string          `json:"customer_phone,omitempty" db:"customer_phone"`
	ShippingAddress  Address         `json:"shipping_address" db:"shipping_address"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	Shipping         decimal.Decimal `json:"shipping" db:"shipping"`
	Tax              decimal.Decimal `json:"tax" db:"tax"`
	Discount         decimal.Decimal `json:"discount" db:"discount"`
	GrandTotal       decimal.Decimal `json:"grand_total" db:"grand_total"`
	PaymentMethod    string          `json:"payment_method" db:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status" db:"payment_status"`
	Status           Status          `json:"status" db:"status"`
	RazorpayOrderID  string          `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPayment  string          `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	PaidAt           *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	InvoicePDFPath   string          `json:"invoice_pdf_path,omitempty" db:"invoice_pdf_path"`
	Items            []OrderItem     `json:"items" db:"-"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// IsGuest reports whether the order was placed without an authenticated user.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// FormatOrderNumber derives the human-facing order number from the persisted
// id and creation date. Uniqueness comes from the id, not the formatting.
func FormatOrderNumber(id int64, createdAt time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", createdAt.UTC().Format("20060102"), id)
}
