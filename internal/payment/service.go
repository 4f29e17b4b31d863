package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopspring/decimal"
)

// minorUnitFactor converts the grand total to paise.
var minorUnitFactor = decimal.NewFromInt(100)

var (
	ErrAlreadyPaid   = errors.New("order is already paid")
	ErrOrderMismatch = errors.New("gateway order id does not match the order")
	ErrBadSignature  = errors.New("payment signature verification failed")
	ErrInvalidAmount = errors.New("payment amount must be positive")
)

// Intent is what the client needs to open the gateway's payment widget.
type Intent struct {
	KeyID          string `json:"key_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	OrderNumber    string `json:"order_number"`
}

// VerifyInput is the client-supplied proof of a completed payment.
type VerifyInput struct {
	OrderNumber      string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type Service interface {
	CreateIntent(ctx context.Context, orderNumber string) (*Intent, error)
	Verify(ctx context.Context, input VerifyInput) error
}

type Config struct {
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

type service struct {
	orders  order.Repository
	gateway Gateway
	cfg     Config
}

func NewService(orders order.Repository, gateway Gateway, cfg Config) Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &service{orders: orders, gateway: gateway, cfg: cfg}
}

// CreateIntent opens a gateway order for the grand total converted to the
// minor unit. Safe to retry: a timed-out attempt leaves the order pending
// and a later call simply records the newer gateway order id.
func (s *service) CreateIntent(ctx context.Context, orderNumber string) (*Intent, error) {
	o, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == order.PaymentPaid {
		return nil, ErrAlreadyPaid
	}

	// Grand total in the gateway's minor unit (paise), rounded.
	amountMinor := o.GrandTotal.Mul(minorUnitFactor).Round(0).IntPart()
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	gatewayOrderID, err := s.gateway.CreateOrder(gwCtx, amountMinor, s.cfg.Currency, o.OrderNumber, map[string]interface{}{
		"order_number": o.OrderNumber,
	})
	if err != nil {
		log.Error().Err(err).Str("order_number", o.OrderNumber).Msg("service: gateway order creation failed")
		return nil, fmt.Errorf("service: failed to create payment intent: %w", err)
	}

	if err := s.orders.RecordPaymentIntent(ctx, o.ID, gatewayOrderID); err != nil {
		return nil, fmt.Errorf("service: failed to record payment intent: %w", err)
	}

	log.Info().
		Str("order_number", o.OrderNumber).
		Str("razorpay_order_id", gatewayOrderID).
		Int64("amount_minor", amountMinor).
		Msg("service: payment intent created")

	return &Intent{
		KeyID:          s.cfg.KeyID,
		GatewayOrderID: gatewayOrderID,
		Amount:         amountMinor,
		Currency:       s.cfg.Currency,
		OrderNumber:    o.OrderNumber,
	}, nil
}

// Verify checks the gateway's HMAC proof and drives the payment state
// machine. It is idempotent: re-verifying a paid order with the same payment
// id is a no-op success. A bad signature is recorded as a failed payment,
// never surfaced as a raw crypto error.
func (s *service) Verify(ctx context.Context, input VerifyInput) error {
	o, err := s.orders.GetByOrderNumber(ctx, input.OrderNumber)
	if err != nil {
		return err
	}

	if o.RazorpayOrderID == "" || o.RazorpayOrderID != input.GatewayOrderID {
		return ErrOrderMismatch
	}

	if o.PaymentStatus == order.PaymentPaid {
		if o.RazorpayPayment == input.GatewayPaymentID {
			// Duplicate delivery of the same confirmation.
			return nil
		}
		return ErrAlreadyPaid
	}

	if !validSignature(s.cfg.KeySecret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		if err := s.orders.MarkPaymentFailed(ctx, o.ID); err != nil {
			log.Error().Err(err).Str("order_number", o.OrderNumber).Msg("service: failed to record failed payment")
		}
		log.Warn().Str("order_number", o.OrderNumber).Msg("service: payment signature mismatch")
		return ErrBadSignature
	}

	updated, err := s.orders.MarkPaid(ctx, o.ID, input.GatewayPaymentID)
	if err != nil {
		return fmt.Errorf("service: failed to mark order paid: %w", err)
	}
	if !updated {
		// A concurrent verification won the race; converged on paid.
		log.Info().Str("order_number", o.OrderNumber).Msg("service: order already marked paid")
		return nil
	}

	log.Info().
		Str("order_number", o.OrderNumber).
		Str("razorpay_payment_id", input.GatewayPaymentID).
		Msg("service: payment verified")

	return nil
}
