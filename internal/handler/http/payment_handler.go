package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopkart-dev/checkout-service/internal/payment"
)

type CreatePaymentOrderRequest struct {
	OrderNumber string `json:"orderNumber" validate:"required"`
}

type VerifyPaymentRequest struct {
	OrderNumber       string `json:"orderNumber" validate:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPayment   string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

type PaymentHandler struct {
	service  payment.Service
	validate *validator.Validate
}

func NewPaymentHandler(service payment.Service) *PaymentHandler {
	return &PaymentHandler{service: service, validate: validator.New()}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Post("/payments/razorpay/create-order", h.handleCreateOrder)
	router.Post("/payments/razorpay/verify", h.handleVerify)
}

func (h *PaymentHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentOrderRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	intent, err := h.service.CreateIntent(r.Context(), req.OrderNumber)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		case errors.Is(err, payment.ErrAlreadyPaid):
			respondWithError(w, http.StatusBadRequest, "ALREADY_PAID", "Order already paid")
		case errors.Is(err, payment.ErrInvalidAmount):
			respondWithError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Invalid amount")
		default:
			log.Error().Err(err).Str("order_number", req.OrderNumber).Msg("create payment intent failed")
			respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, intent)
}

func (h *PaymentHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	err := h.service.Verify(r.Context(), payment.VerifyInput{
		OrderNumber:      req.OrderNumber,
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPayment,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
		case errors.Is(err, payment.ErrOrderMismatch):
			respondWithError(w, http.StatusBadRequest, "ORDER_MISMATCH", "Order mismatch")
		case errors.Is(err, payment.ErrAlreadyPaid):
			respondWithError(w, http.StatusBadRequest, "ALREADY_PAID", "Order already paid with a different payment")
		case errors.Is(err, payment.ErrBadSignature):
			respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"code":    "BAD_SIGNATURE",
				"error":   "Bad signature",
			})
		default:
			log.Error().Err(err).Str("order_number", req.OrderNumber).Msg("payment verification failed")
			respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
