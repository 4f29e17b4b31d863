package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/cart"
	"github.com/shopkart-dev/checkout-service/internal/checkout"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopkart-dev/checkout-service/internal/shipping"
)

type AddressPayload struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

type CustomerPayload struct {
	Name    string         `json:"name" validate:"required"`
	Email   string         `json:"email" validate:"required,email"`
	Phone   string         `json:"phone"`
	Address AddressPayload `json:"address" validate:"required"`
}

type CheckoutRequest struct {
	CartID        int64           `json:"cartId"`
	SessionID     string          `json:"sessionId"`
	Customer      CustomerPayload `json:"customer" validate:"required"`
	PaymentMethod string          `json:"paymentMethod"`
}

type CheckoutResponse struct {
	OrderNumber         string                `json:"orderNumber"`
	Data                *order.Order          `json:"data"`
	AppliedShippingRule *shipping.AppliedRule `json:"appliedShippingRule"`
	GuestAccessToken    string                `json:"guestAccessToken,omitempty"`
}

type CheckoutHandler struct {
	service  checkout.Service
	validate *validator.Validate
}

func NewCheckoutHandler(service checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{service: service, validate: validator.New()}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/checkout", h.handleCheckout)
}

func (h *CheckoutHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	input := checkout.Input{
		CartID:        req.CartID,
		PaymentMethod: req.PaymentMethod,
		Customer: checkout.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
			Address: order.Address{
				Line1:      req.Customer.Address.Line1,
				Line2:      req.Customer.Address.Line2,
				City:       req.Customer.Address.City,
				State:      req.Customer.Address.State,
				PostalCode: req.Customer.Address.PostalCode,
				Country:    req.Customer.Address.Country,
			},
		},
	}
	if userID, ok := userIDFrom(r); ok {
		input.UserID = userID
	}
	if req.SessionID != "" {
		if sid, err := uuid.FromString(req.SessionID); err == nil {
			input.SessionID = sid
		}
	} else {
		input.SessionID = sessionIDFrom(r)
	}

	result, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	// Best-effort side effects run before the response so the invoice path,
	// when it succeeds, is already visible on the returned order. Failures
	// are logged and never fail the checkout.
	checkout.RunTasks(r.Context(), result.Order.OrderNumber, result.Tasks)

	resp := CheckoutResponse{
		OrderNumber:         result.Order.OrderNumber,
		Data:                result.Order,
		AppliedShippingRule: result.AppliedRule,
	}
	if result.Order.IsGuest() {
		resp.GuestAccessToken = result.Order.GuestAccessToken
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *checkout.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		respondWithJSON(w, http.StatusBadRequest, struct {
			Error     string `json:"error"`
			Code      string `json:"code"`
			VariantID int64  `json:"variantId"`
			Available int    `json:"available"`
		}{
			Error:     "Insufficient stock",
			Code:      "INSUFFICIENT_STOCK",
			VariantID: stockErr.VariantID,
			Available: stockErr.Available,
		})
	case errors.Is(err, checkout.ErrVariantNotFound):
		respondWithError(w, http.StatusBadRequest, "VARIANT_NOT_FOUND", "Variant not found")
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, cart.ErrCartNotFound):
		respondWithError(w, http.StatusBadRequest, "EMPTY_CART", "Cart is empty")
	case errors.Is(err, checkout.ErrMissingCustomer):
		respondWithError(w, http.StatusBadRequest, "MISSING_CUSTOMER", "customer.name and customer.email required")
	case errors.Is(err, checkout.ErrMissingShippingAddress):
		respondWithError(w, http.StatusBadRequest, "MISSING_SHIPPING_ADDRESS", "Shipping address with postalCode required")
	case errors.Is(err, shipping.ErrInvalidPincode):
		respondWithError(w, http.StatusBadRequest, "INVALID_POSTAL_CODE", "Invalid postalCode in shipping address")
	default:
		log.Error().Err(err).Msg("checkout failed")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}
