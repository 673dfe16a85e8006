/**
 * @description
 * HTTP handlers for the settlement service: order processing, refunds, and
 * the commission ledger. Payout, agreement, attribution, and revenue handlers
 * live in their own files.
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

// Handler holds the application services the HTTP layer dispatches to.
type Handler struct {
	ledger       app.LedgerService
	payouts      app.PayoutService
	revenue      app.RevenueService
	agreements   app.AgreementService
	attributions app.AttributionService
}

// NewHandler creates a Handler over the settlement services.
func NewHandler(ledger app.LedgerService, payouts app.PayoutService, revenue app.RevenueService, agreements app.AgreementService, attributions app.AttributionService) *Handler {
	return &Handler{
		ledger:       ledger,
		payouts:      payouts,
		revenue:      revenue,
		agreements:   agreements,
		attributions: attributions,
	}
}

type orderRequest struct {
	domain.Order
}

func (req *orderRequest) validate() string {
	switch {
	case req.OrderID == "":
		return "order_id is required"
	case req.OrderDate.IsZero():
		return "order_date is required"
	case req.NetAmount.IsNegative() || req.NetAmount.IsZero():
		return "net_amount must be positive"
	case req.CustomerID == "":
		return "customer_id is required"
	case len(req.CustomerBillingCountry) != 2:
		return "customer_billing_country must be a 2-letter country code"
	}
	return ""
}

func (h *Handler) handleProcessOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.ledger.ProcessOrder(r.Context(), req.Order)
	if err != nil {
		respondWithServiceError(w, err, "process order "+req.OrderID)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleCalculateCommissions(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.ledger.Preview(r.Context(), req.Order)
	if err != nil {
		respondWithServiceError(w, err, "calculate commissions for "+req.OrderID)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		respondWithError(w, http.StatusBadRequest, "order ID is required")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		respondWithError(w, http.StatusBadRequest, "reason is required")
		return
	}

	count, err := h.ledger.RefundOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		respondWithServiceError(w, err, "refund order "+orderID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"order_id":       orderID,
		"refunded_count": count,
	})
}

func (h *Handler) handleApproveCommissions(w http.ResponseWriter, r *http.Request) {
	count, err := h.ledger.ApproveEligibleCommissions(r.Context(), time.Now().UTC())
	if err != nil {
		respondWithServiceError(w, err, "approve eligible commissions")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"approved_count": count})
}

func (h *Handler) handleListCommissions(w http.ResponseWriter, r *http.Request) {
	filter := store.CommissionFilter{
		RecipientID: r.URL.Query().Get("recipient_id"),
		OrderID:     r.URL.Query().Get("order_id"),
		Status:      domain.CommissionStatus(r.URL.Query().Get("status")),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	}

	commissions, err := h.ledger.ListCommissions(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "list commissions")
		return
	}

	respondWithJSON(w, http.StatusOK, commissions)
}

func (h *Handler) handleListMyCommissions(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	commissions, err := h.ledger.ListCommissions(r.Context(), store.CommissionFilter{
		RecipientID: partnerID,
		Status:      domain.CommissionStatus(r.URL.Query().Get("status")),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	})
	if err != nil {
		respondWithServiceError(w, err, "list commissions for "+partnerID)
		return
	}

	respondWithJSON(w, http.StatusOK, commissions)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// respondWithServiceError maps service failures onto HTTP statuses and logs
// the ones worth operator attention.
func respondWithServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, app.ErrDuplicateOrder),
		errors.Is(err, app.ErrRegionConflict),
		errors.Is(err, app.ErrAlreadyAttributed):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNoEligibleCommissions),
		errors.Is(err, app.ErrBelowMinimumPayout),
		errors.Is(err, app.ErrInvalidPayoutStatus),
		errors.Is(err, app.ErrContractAlreadySigned),
		errors.Is(err, app.ErrNoActiveAgreement):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, store.ErrAgreementNotFound),
		errors.Is(err, store.ErrAttributionNotFound),
		errors.Is(err, store.ErrPayoutNotFound),
		errors.Is(err, store.ErrRegionalPayoutNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("Error: failed to %s: %v", action, err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
