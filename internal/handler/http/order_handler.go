package http

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/invoice"
	"github.com/shopkart-dev/checkout-service/internal/order"
)

// InvoiceFiles resolves stored invoice filenames to safe on-disk paths.
type InvoiceFiles interface {
	FilePath(filename string) (string, error)
}

type OrderHandler struct {
	orders   order.Repository
	invoices InvoiceFiles
}

func NewOrderHandler(orders order.Repository, invoices InvoiceFiles) *OrderHandler {
	return &OrderHandler{orders: orders, invoices: invoices}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{orderNumber}", h.handleGetOrder)
	router.Get("/orders/{orderNumber}/invoice.pdf", h.handleGetInvoicePDF)
}

// authorizeOrder grants access to the order's owner, or to a guest
// presenting the order's access token.
func authorizeOrder(r *http.Request, o *order.Order) bool {
	if userID, ok := userIDFrom(r); ok {
		if o.UserID != nil && *o.UserID == userID {
			return true
		}
	}
	return order.CheckGuestToken(o.GuestAccessToken, r.URL.Query().Get("token"))
}

func (h *OrderHandler) loadAuthorizedOrder(w http.ResponseWriter, r *http.Request) *order.Order {
	orderNumber := chi.URLParam(r, "orderNumber")
	if orderNumber == "" {
		respondWithError(w, http.StatusBadRequest, "INVALID_ORDER_NUMBER", "orderNumber required")
		return nil
	}

	o, err := h.orders.GetByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Order not found")
			return nil
		}
		log.Error().Err(err).Str("order_number", orderNumber).Msg("failed to load order")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return nil
	}

	if !authorizeOrder(r, o) {
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden")
		return nil
	}

	return o
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Authentication required")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to list orders")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": orders})
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o := h.loadAuthorizedOrder(w, r)
	if o == nil {
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": o})
}

func (h *OrderHandler) handleGetInvoicePDF(w http.ResponseWriter, r *http.Request) {
	o := h.loadAuthorizedOrder(w, r)
	if o == nil {
		return
	}

	// Invoices are gated on payment, even if an artifact already exists.
	if o.PaymentStatus != order.PaymentPaid {
		respondWithError(w, http.StatusBadRequest, "PAYMENT_REQUIRED", "Invoice is available only after successful payment")
		return
	}

	if o.InvoicePDFPath == "" {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Invoice PDF not found")
		return
	}

	path, err := h.invoices.FilePath(o.InvoicePDFPath)
	if err != nil {
		if errors.Is(err, invoice.ErrPathOutsideDir) {
			log.Warn().Str("order_number", o.OrderNumber).Str("path", o.InvoicePDFPath).Msg("invoice path refused")
			respondWithError(w, http.StatusBadRequest, "INVALID_INVOICE_PATH", "Invalid invoice path")
			return
		}
		log.Error().Err(err).Str("order_number", o.OrderNumber).Msg("failed to resolve invoice path")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Invoice PDF not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+o.OrderNumber+`.pdf"`)
	http.ServeFile(w, r, path)
}
