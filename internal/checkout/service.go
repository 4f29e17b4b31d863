package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/cart"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopkart-dev/checkout-service/internal/shipping"
	"github.com/shopspring/decimal"
)

// ShippingResolver is the slice of the shipping package the orchestrator
// needs.
type ShippingResolver interface {
	Resolve(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error)
}

// InvoiceGenerator renders the invoice artifact for a placed order.
type InvoiceGenerator interface {
	Generate(o *order.Order) (string, error)
}

// Notifier sends the order confirmation.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, to, name, orderNumber, link string) error
}

// Customer is the buyer snapshot supplied at checkout.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address order.Address
}

// Input references the cart by authenticated user, anonymous session, or
// explicit cart id, in that order of preference.
type Input struct {
	UserID        int64
	SessionID     uuid.UUID
	CartID        int64
	Customer      Customer
	PaymentMethod string
}

// Task is a deferred post-commit side effect. Checkout success never depends
// on tasks; callers run them best-effort after the order is committed.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is a committed order plus its applied shipping rule and the
// side-effect tasks still to run.
type Result struct {
	Order       *order.Order
	AppliedRule *shipping.AppliedRule
	Tasks       []Task
}

type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	carts    cart.Repository
	repo     Repository
	orders   order.Repository
	resolver ShippingResolver
	invoices InvoiceGenerator
	notifier Notifier
	baseURL  string
}

func NewService(
	carts cart.Repository,
	repo Repository,
	orders order.Repository,
	resolver ShippingResolver,
	invoices InvoiceGenerator,
	notifier Notifier,
	baseURL string,
) Service {
	return &service{
		carts:    carts,
		repo:     repo,
		orders:   orders,
		resolver: resolver,
		invoices: invoices,
		notifier: notifier,
		baseURL:  baseURL,
	}
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if input.Customer.Name == "" || input.Customer.Email == "" {
		return nil, ErrMissingCustomer
	}
	if input.Customer.Address.PostalCode == "" {
		return nil, ErrMissingShippingAddress
	}

	pincode, err := shipping.NormalizePincode(input.Customer.Address.PostalCode)
	if err != nil {
		return nil, err
	}

	c, err := s.resolveCart(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := c.Subtotal()

	shippingCharge, appliedRule, err := s.resolver.Resolve(ctx, pincode, subtotal)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve shipping: %w", err)
	}

	tax := decimal.Zero
	discount := decimal.Zero
	grandTotal := subtotal.Add(shippingCharge).Add(tax).Sub(discount)

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "razorpay"
	}

	draft := &order.Order{
		CartID:          &c.ID,
		CustomerName:    input.Customer.Name,
		CustomerEmail:   input.Customer.Email,
		CustomerPhone:   input.Customer.Phone,
		ShippingAddress: input.Customer.Address,
		Subtotal:        subtotal,
		Shipping:        shippingCharge,
		Tax:             tax,
		Discount:        discount,
		GrandTotal:      grandTotal,
		PaymentMethod:   paymentMethod,
	}

	if input.UserID != 0 {
		userID := input.UserID
		draft.UserID = &userID
	} else {
		token, err := order.NewGuestToken()
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
		draft.GuestAccessToken = token
	}

	placed, err := s.repo.PlaceOrder(ctx, draft, c.Items)
	if err != nil {
		var stockErr *InsufficientStockError
		switch {
		case errors.Is(err, ErrEmptyCart),
			errors.Is(err, ErrVariantNotFound),
			errors.As(err, &stockErr):
			return nil, err
		}
		log.Error().Err(err).Int64("cart_id", c.ID).Msg("service: checkout transaction failed")
		return nil, fmt.Errorf("service: checkout failed: %w", err)
	}

	log.Info().
		Str("order_number", placed.OrderNumber).
		Str("grand_total", placed.GrandTotal.StringFixed(2)).
		Bool("guest", placed.IsGuest()).
		Msg("service: order placed")

	return &Result{
		Order:       placed,
		AppliedRule: appliedRule,
		Tasks:       s.postCommitTasks(placed),
	}, nil
}

func (s *service) resolveCart(ctx context.Context, input Input) (*cart.Cart, error) {
	if input.CartID != 0 {
		return s.carts.GetByID(ctx, input.CartID)
	}
	if input.UserID != 0 {
		c, err := s.carts.GetByOwner(ctx, cart.Owner{UserID: input.UserID})
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, cart.ErrCartNotFound) {
			return nil, err
		}
	}
	if input.SessionID != uuid.Nil {
		return s.carts.GetByOwner(ctx, cart.Owner{SessionID: input.SessionID})
	}
	return nil, ErrEmptyCart
}

// postCommitTasks builds the explicit deferred side-effect list: invoice
// generation and confirmation email. Neither can fail the checkout.
func (s *service) postCommitTasks(placed *order.Order) []Task {
	link := fmt.Sprintf("%s/orders/%s", s.baseURL, placed.OrderNumber)
	if placed.IsGuest() {
		link += "?token=" + placed.GuestAccessToken
	}

	return []Task{
		{
			Name: "generate_invoice",
			Run: func(ctx context.Context) error {
				filename, err := s.invoices.Generate(placed)
				if err != nil {
					return err
				}
				if err := s.orders.SetInvoicePath(ctx, placed.ID, filename); err != nil {
					return err
				}
				placed.InvoicePDFPath = filename
				return nil
			},
		},
		{
			Name: "send_confirmation_email",
			Run: func(ctx context.Context) error {
				return s.notifier.SendOrderConfirmation(ctx,
					placed.CustomerEmail, placed.CustomerName, placed.OrderNumber, link)
			},
		},
	}
}

// RunTasks executes post-commit tasks best-effort: failures are logged and
// swallowed, later tasks still run.
func RunTasks(ctx context.Context, orderNumber string, tasks []Task) {
	for _, task := range tasks {
		if err := task.Run(ctx); err != nil {
			log.Error().Err(err).
				Str("order_number", orderNumber).
				Str("task", task.Name).
				Msg("post-commit task failed")
		}
	}
}
