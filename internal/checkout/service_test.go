package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopkart-dev/checkout-service/internal/cart"
	"github.com/shopkart-dev/checkout-service/internal/checkout"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopkart-dev/checkout-service/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartRepository struct {
	getByOwnerFunc func(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	getByIDFunc    func(ctx context.Context, id int64) (*cart.Cart, error)
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	panic("not implemented")
}

func (m *mockCartRepository) GetByOwner(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	return m.getByOwnerFunc(ctx, owner)
}

func (m *mockCartRepository) GetByID(ctx context.Context, id int64) (*cart.Cart, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockCartRepository) AddItem(ctx context.Context, cartID, variantID int64, quantity int) error {
	panic("not implemented")
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	panic("not implemented")
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, cartID, itemID int64) error {
	panic("not implemented")
}

func (m *mockCartRepository) Merge(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	panic("not implemented")
}

type mockCheckoutRepository struct {
	placeOrderFunc func(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error)
}

func (m *mockCheckoutRepository) PlaceOrder(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error) {
	return m.placeOrderFunc(ctx, draft, lines)
}

type mockOrderRepository struct {
	setInvoicePathFunc func(ctx context.Context, orderID int64, filename string) error
}

func (m *mockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	panic("not implemented")
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	panic("not implemented")
}

func (m *mockOrderRepository) SetInvoicePath(ctx context.Context, orderID int64, filename string) error {
	if m.setInvoicePathFunc != nil {
		return m.setInvoicePathFunc(ctx, orderID, filename)
	}
	return nil
}

func (m *mockOrderRepository) RecordPaymentIntent(ctx context.Context, orderID int64, gatewayOrderID string) error {
	panic("not implemented")
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, orderID int64, gatewayPaymentID string) (bool, error) {
	panic("not implemented")
}

func (m *mockOrderRepository) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	panic("not implemented")
}

type mockResolver struct {
	resolveFunc func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error)
}

func (m *mockResolver) Resolve(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
	return m.resolveFunc(ctx, pincode, subtotal)
}

type mockInvoices struct {
	generateFunc func(o *order.Order) (string, error)
}

func (m *mockInvoices) Generate(o *order.Order) (string, error) {
	if m.generateFunc != nil {
		return m.generateFunc(o)
	}
	return o.OrderNumber + ".pdf", nil
}

type mockNotifier struct {
	sendFunc func(ctx context.Context, to, name, orderNumber, link string) error
	sent     []string
}

func (m *mockNotifier) SendOrderConfirmation(ctx context.Context, to, name, orderNumber, link string) error {
	m.sent = append(m.sent, link)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, name, orderNumber, link)
	}
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testCart() *cart.Cart {
	return &cart.Cart{
		ID: 10,
		Items: []cart.CartItem{
			{ID: 1, CartID: 10, VariantID: 100, Quantity: 2, Price: dec("100.00")},
		},
	}
}

func testInput() checkout.Input {
	return checkout.Input{
		SessionID: uuid.Must(uuid.NewV4()),
		Customer: checkout.Customer{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Address: order.Address{
				Line1:      "12 MG Road",
				City:       "Bengaluru",
				State:      "KA",
				PostalCode: "560001",
				Country:    "IN",
			},
		},
	}
}

// placeOrderPassthrough mimics the repository: it assigns ids and returns
// the draft it was given.
func placeOrderPassthrough(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error) {
	draft.ID = 42
	draft.OrderNumber = "ORD-20260115-000042"
	return draft, nil
}

func newTestService(carts cart.Repository, repo checkout.Repository, orders order.Repository, resolver checkout.ShippingResolver, notifier checkout.Notifier) checkout.Service {
	return checkout.NewService(carts, repo, orders, resolver, &mockInvoices{}, notifier, "http://localhost:8080")
}

func TestService_Checkout_Totals(t *testing.T) {
	tests := []struct {
		name           string
		resolveCharge  decimal.Decimal
		appliedRule    *shipping.AppliedRule
		wantSubtotal   decimal.Decimal
		wantShipping   decimal.Decimal
		wantGrandTotal decimal.Decimal
	}{
		{
			name:           "flat_charge_rule",
			resolveCharge:  dec("40.00"),
			appliedRule:    &shipping.AppliedRule{ID: 1, Priority: 5, Charge: dec("40.00")},
			wantSubtotal:   dec("200.00"),
			wantShipping:   dec("40.00"),
			wantGrandTotal: dec("240.00"),
		},
		{
			name:          "free_shipping_threshold_met",
			resolveCharge: decimal.Zero,
			appliedRule: &shipping.AppliedRule{
				ID: 2, Priority: 5, Charge: dec("40.00"), MinOrderValue: decPtr("150.00"),
			},
			wantSubtotal:   dec("200.00"),
			wantShipping:   dec("0.00"),
			wantGrandTotal: dec("200.00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &mockCartRepository{
				getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
					return testCart(), nil
				},
			}
			repo := &mockCheckoutRepository{placeOrderFunc: placeOrderPassthrough}
			resolver := &mockResolver{
				resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
					assert.Equal(t, 560001, pincode)
					assert.True(t, tt.wantSubtotal.Equal(subtotal))
					return tt.resolveCharge, tt.appliedRule, nil
				},
			}

			svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
			result, err := svc.Checkout(context.Background(), testInput())
			require.NoError(t, err)

			assert.True(t, tt.wantSubtotal.Equal(result.Order.Subtotal), "subtotal = %s", result.Order.Subtotal)
			assert.True(t, tt.wantShipping.Equal(result.Order.Shipping), "shipping = %s", result.Order.Shipping)
			assert.True(t, tt.wantGrandTotal.Equal(result.Order.GrandTotal), "grand total = %s", result.Order.GrandTotal)
			require.NotNil(t, result.AppliedRule)
			assert.Equal(t, tt.appliedRule.ID, result.AppliedRule.ID)
		})
	}
}

func TestService_Checkout_GrandTotalFormula(t *testing.T) {
	carts := &mockCartRepository{
		getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
			return &cart.Cart{
				ID: 10,
				Items: []cart.CartItem{
					{VariantID: 100, Quantity: 3, Price: dec("19.99")},
					{VariantID: 101, Quantity: 1, Price: dec("0.01")},
				},
			}, nil
		},
	}
	repo := &mockCheckoutRepository{placeOrderFunc: placeOrderPassthrough}
	resolver := &mockResolver{
		resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
			return dec("12.50"), nil, nil
		},
	}

	svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
	result, err := svc.Checkout(context.Background(), testInput())
	require.NoError(t, err)

	o := result.Order
	// grandTotal == subtotal + shipping + tax - discount, exactly.
	assert.True(t, dec("59.98").Equal(o.Subtotal))
	want := o.Subtotal.Add(o.Shipping).Add(o.Tax).Sub(o.Discount)
	assert.True(t, want.Equal(o.GrandTotal))
	assert.True(t, dec("72.48").Equal(o.GrandTotal))
}

func TestService_Checkout_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *checkout.Input)
		wantErr error
	}{
		{
			name:    "missing_customer_name",
			mutate:  func(in *checkout.Input) { in.Customer.Name = "" },
			wantErr: checkout.ErrMissingCustomer,
		},
		{
			name:    "missing_customer_email",
			mutate:  func(in *checkout.Input) { in.Customer.Email = "" },
			wantErr: checkout.ErrMissingCustomer,
		},
		{
			name:    "missing_postal_code",
			mutate:  func(in *checkout.Input) { in.Customer.Address.PostalCode = "" },
			wantErr: checkout.ErrMissingShippingAddress,
		},
		{
			name:    "malformed_postal_code",
			mutate:  func(in *checkout.Input) { in.Customer.Address.PostalCode = "12" },
			wantErr: shipping.ErrInvalidPincode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCheckoutRepository{
				placeOrderFunc: func(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error) {
					t.Fatal("PlaceOrder must not be called on validation failure")
					return nil, nil
				},
			}
			carts := &mockCartRepository{
				getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
					return testCart(), nil
				},
			}
			resolver := &mockResolver{
				resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
					return decimal.Zero, nil, nil
				},
			}

			input := testInput()
			tt.mutate(&input)

			svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
			_, err := svc.Checkout(context.Background(), input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Checkout_EmptyCart(t *testing.T) {
	carts := &mockCartRepository{
		getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
			return &cart.Cart{ID: 10, Items: []cart.CartItem{}}, nil
		},
	}
	repo := &mockCheckoutRepository{
		placeOrderFunc: func(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error) {
			t.Fatal("PlaceOrder must not be called for an empty cart")
			return nil, nil
		},
	}
	resolver := &mockResolver{
		resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
			return decimal.Zero, nil, nil
		},
	}

	svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
	_, err := svc.Checkout(context.Background(), testInput())
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestService_Checkout_InsufficientStockPassthrough(t *testing.T) {
	carts := &mockCartRepository{
		getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
			return testCart(), nil
		},
	}
	repo := &mockCheckoutRepository{
		placeOrderFunc: func(ctx context.Context, draft *order.Order, lines []cart.CartItem) (*order.Order, error) {
			return nil, &checkout.InsufficientStockError{VariantID: 100, Requested: 2, Available: 1}
		},
	}
	resolver := &mockResolver{
		resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
			return decimal.Zero, nil, nil
		},
	}

	svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
	_, err := svc.Checkout(context.Background(), testInput())

	var stockErr *checkout.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(100), stockErr.VariantID)
	assert.Equal(t, 1, stockErr.Available)
}

func TestService_Checkout_GuestToken(t *testing.T) {
	carts := &mockCartRepository{
		getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
			return testCart(), nil
		},
	}
	repo := &mockCheckoutRepository{placeOrderFunc: placeOrderPassthrough}
	resolver := &mockResolver{
		resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
			return decimal.Zero, nil, nil
		},
	}

	t.Run("guest_checkout_issues_token", func(t *testing.T) {
		svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
		result, err := svc.Checkout(context.Background(), testInput())
		require.NoError(t, err)

		assert.True(t, result.Order.IsGuest())
		assert.Len(t, result.Order.GuestAccessToken, 64)
	})

	t.Run("authenticated_checkout_has_no_token", func(t *testing.T) {
		svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, &mockNotifier{})
		input := testInput()
		input.UserID = 7

		result, err := svc.Checkout(context.Background(), input)
		require.NoError(t, err)

		assert.False(t, result.Order.IsGuest())
		assert.Empty(t, result.Order.GuestAccessToken)
		require.NotNil(t, result.Order.UserID)
		assert.Equal(t, int64(7), *result.Order.UserID)
	})
}

func TestService_Checkout_GuestLinkCarriesToken(t *testing.T) {
	carts := &mockCartRepository{
		getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
			return testCart(), nil
		},
	}
	repo := &mockCheckoutRepository{placeOrderFunc: placeOrderPassthrough}
	resolver := &mockResolver{
		resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
			return decimal.Zero, nil, nil
		},
	}
	notifier := &mockNotifier{}

	svc := newTestService(carts, repo, &mockOrderRepository{}, resolver, notifier)
	result, err := svc.Checkout(context.Background(), testInput())
	require.NoError(t, err)

	checkout.RunTasks(context.Background(), result.Order.OrderNumber, result.Tasks)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], result.Order.OrderNumber)
	assert.Contains(t, notifier.sent[0], "token="+result.Order.GuestAccessToken)
}

func TestRunTasks_BestEffort(t *testing.T) {
	carts := &mockCartRepository{
		getByOwnerFunc: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
			return testCart(), nil
		},
	}
	repo := &mockCheckoutRepository{placeOrderFunc: placeOrderPassthrough}
	resolver := &mockResolver{
		resolveFunc: func(ctx context.Context, pincode int, subtotal decimal.Decimal) (decimal.Decimal, *shipping.AppliedRule, error) {
			return decimal.Zero, nil, nil
		},
	}
	notifier := &mockNotifier{}

	svc := checkout.NewService(carts, repo, &mockOrderRepository{}, resolver,
		&mockInvoices{
			generateFunc: func(o *order.Order) (string, error) {
				return "", errors.New("renderer exploded")
			},
		},
		notifier, "http://localhost:8080")

	result, err := svc.Checkout(context.Background(), testInput())
	require.NoError(t, err)
	require.Len(t, result.Tasks, 2)

	// The invoice task fails; the email task must still run.
	checkout.RunTasks(context.Background(), result.Order.OrderNumber, result.Tasks)
	assert.Len(t, notifier.sent, 1)
	assert.Empty(t, result.Order.InvoicePDFPath)
}
