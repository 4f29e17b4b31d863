package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopkart-dev/checkout-service/internal/shipping"
	"github.com/shopspring/decimal"
)

type ShippingRuleRequest struct {
	Name          string  `json:"name" validate:"required"`
	PincodeFrom   int     `json:"pincodeFrom" validate:"required,min=10000,max=999999"`
	PincodeTo     int     `json:"pincodeTo" validate:"required,min=10000,max=999999,gtefield=PincodeFrom"`
	Charge        string  `json:"charge" validate:"required"`
	MinOrderValue *string `json:"minOrderValue"`
	Priority      int     `json:"priority"`
	IsActive      *bool   `json:"isActive"`
}

type ShippingHandler struct {
	resolver *shipping.Resolver
	repo     shipping.Repository
	validate *validator.Validate
}

func NewShippingHandler(resolver *shipping.Resolver, repo shipping.Repository) *ShippingHandler {
	return &ShippingHandler{resolver: resolver, repo: repo, validate: validator.New()}
}

func (h *ShippingHandler) RegisterRoutes(router chi.Router) {
	router.Get("/shipping/calculate", h.handleCalculate)
}

// RegisterAdminRoutes mounts the administrative rule CRUD. The router is
// expected to sit behind admin authorization.
func (h *ShippingHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/admin/shipping-rules", h.handleListRules)
	router.Post("/admin/shipping-rules", h.handleCreateRule)
	router.Put("/admin/shipping-rules/{id}", h.handleUpdateRule)
	router.Delete("/admin/shipping-rules/{id}", h.handleDeleteRule)
}

func (h *ShippingHandler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	pincode, err := shipping.NormalizePincode(r.URL.Query().Get("pincode"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_POSTAL_CODE", "Invalid pincode")
		return
	}

	subtotal := decimal.Zero
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		subtotal, err = decimal.NewFromString(raw)
		if err != nil || subtotal.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "INVALID_SUBTOTAL", "Invalid subtotal")
			return
		}
	}

	charge, rule, err := h.resolver.Resolve(r.Context(), pincode, subtotal)
	if err != nil {
		log.Error().Err(err).Int("pincode", pincode).Msg("shipping calculation failed")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"charge":      charge,
		"appliedRule": rule,
	})
}

func (h *ShippingHandler) ruleFromRequest(w http.ResponseWriter, req *ShippingRuleRequest) *shipping.Rule {
	charge, err := decimal.NewFromString(req.Charge)
	if err != nil || charge.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "INVALID_CHARGE", "Invalid charge")
		return nil
	}

	rule := &shipping.Rule{
		Name:        req.Name,
		PincodeFrom: req.PincodeFrom,
		PincodeTo:   req.PincodeTo,
		Charge:      charge,
		Priority:    req.Priority,
		IsActive:    true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.MinOrderValue != nil {
		mov, err := decimal.NewFromString(*req.MinOrderValue)
		if err != nil || mov.IsNegative() {
			respondWithError(w, http.StatusBadRequest, "INVALID_MIN_ORDER_VALUE", "Invalid minOrderValue")
			return nil
		}
		rule.MinOrderValue = &mov
	}

	return rule
}

func (h *ShippingHandler) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list shipping rules")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": rules})
}

func (h *ShippingHandler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ShippingRuleRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	rule := h.ruleFromRequest(w, &req)
	if rule == nil {
		return
	}

	if _, err := h.repo.Create(r.Context(), rule); err != nil {
		log.Error().Err(err).Msg("failed to create shipping rule")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"data": rule})
}

func (h *ShippingHandler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "INVALID_ID", "Invalid rule id")
		return
	}

	var req ShippingRuleRequest
	if !decodeStrict(w, r, h.validate, &req) {
		return
	}

	rule := h.ruleFromRequest(w, &req)
	if rule == nil {
		return
	}
	rule.ID = id

	if err := h.repo.Update(r.Context(), rule); err != nil {
		if errors.Is(err, shipping.ErrRuleNotFound) {
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Shipping rule not found")
			return
		}
		log.Error().Err(err).Int64("rule_id", id).Msg("failed to update shipping rule")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": rule})
}

func (h *ShippingHandler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "INVALID_ID", "Invalid rule id")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shipping.ErrRuleNotFound) {
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Shipping rule not found")
			return
		}
		log.Error().Err(err).Int64("rule_id", id).Msg("failed to delete shipping rule")
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
