package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/cart"
)

type AddCartItemRequest struct {
	VariantID int64 `json:"variantId" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type MergeCartRequest struct {
	SessionID string `json:"sessionId" validate:"required,uuid4"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Patch("/cart/items/{itemID}", h.handleUpdateItem)
	router.Delete("/cart/items/{itemID}", h.handleRemoveItem)
	router.Post("/cart/merge", h.handleMerge)
}

// cartOwner derives the cart owner from the verified user id or the
// anonymous session. A fresh session id is minted for first-time guests.
func (h *CartHandler) cartOwner(w http.ResponseWriter, r *http.Request) (cart.Owner, bool) {
	if userID, ok := userIDFrom(r); ok {
		return cart.Owner{UserID: userID}, true
	}
	if sid := sessionIDFrom(r); sid != uuid.Nil {
		return cart.Owner{SessionID: sid}, true
	}

	sid, err := uuid.NewV4()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session id")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return cart.Owner{}, false
	}
	w.Header().Set("X-Session-ID", sid.String())
	return cart.Owner{SessionID: sid}, true
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, c *cart.Cart) {
	respondWithJSON(w, status, map[string]interface{}{
		"data":     c,
		"subtotal": c.Subtotal(),
	})
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Cart item not found")
	case errors.Is(err, cart.ErrVariantNotFound):
		respondWithError(w, http.StatusBadRequest, "VARIANT_NOT_FOUND", "Variant not found")
	case errors.Is(err, cart.ErrNoOwner):
		respondWithError(w, http.StatusBadRequest, "MISSING_OWNER", "User or session required")
	default:
		log.Error().Err(err).Msg("cart operation failed")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.cartOwner(w, r)
	if !ok {
		return
	}

	c, err := h.service.GetCart(r.Context(), owner)
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.cartOwner(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.AddItem(r.Context(), owner, req.VariantID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "INVALID_ITEM_ID", "Invalid cart item id")
		return 0, false
	}
	return id, true
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.cartOwner(w, r)
	if !ok {
		return
	}
	itemID, ok := h.itemIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	c, err := h.service.UpdateItemQuantity(r.Context(), owner, itemID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.cartOwner(w, r)
	if !ok {
		return
	}
	itemID, ok := h.itemIDParam(w, r)
	if !ok {
		return
	}

	c, err := h.service.RemoveItem(r.Context(), owner, itemID)
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

// handleMerge folds the guest cart into the authenticated user's cart after
// login. The guest cart is destroyed.
func (h *CartHandler) handleMerge(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Authentication required")
		return
	}

	var req MergeCartRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	sid, err := uuid.FromString(req.SessionID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_SESSION_ID", "Invalid session id")
		return
	}

	c, err := h.service.MergeGuestCart(r.Context(), sid, userID)
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	h.respondCart(w, http.StatusOK, c)
}
