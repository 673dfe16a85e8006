/**
 * @description
 * HTTP handlers for the regional revenue share tracker.
 */
package api

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

var payoutPeriodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func (h *Handler) handleTrackMembershipRevenue(w http.ResponseWriter, r *http.Request) {
	var req app.MembershipRevenueInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentRef == "" {
		respondWithError(w, http.StatusBadRequest, "payment_ref is required")
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		respondWithError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.PaymentDate.IsZero() {
		respondWithError(w, http.StatusBadRequest, "payment_date is required")
		return
	}
	if len(req.BillingCountry) != 2 {
		respondWithError(w, http.StatusBadRequest, "billing_country must be a 2-letter country code")
		return
	}

	record, err := h.revenue.TrackMembershipRevenue(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, "track membership revenue "+req.PaymentRef)
		return
	}

	respondWithJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleTrackTransactionRevenue(w http.ResponseWriter, r *http.Request) {
	var req app.TransactionRevenueInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentRef == "" {
		respondWithError(w, http.StatusBadRequest, "payment_ref is required")
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		respondWithError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.PaymentDate.IsZero() {
		respondWithError(w, http.StatusBadRequest, "payment_date is required")
		return
	}
	if req.RegionalPartnerID == "" {
		respondWithError(w, http.StatusBadRequest, "regional_partner_id is required")
		return
	}

	record, err := h.revenue.TrackTransactionRevenue(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, "track transaction revenue "+req.PaymentRef)
		return
	}

	respondWithJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleCreateMonthlyPayouts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period string `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !payoutPeriodPattern.MatchString(req.Period) {
		respondWithError(w, http.StatusBadRequest, "period must be formatted YYYY-MM")
		return
	}

	payouts, err := h.revenue.CreateMonthlyPayouts(r.Context(), req.Period)
	if err != nil {
		respondWithServiceError(w, err, "create monthly payouts for "+req.Period)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"period":  req.Period,
		"payouts": payouts,
	})
}

func (h *Handler) handleMarkRegionalPayoutPaid(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "id")

	var req struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentRef == "" {
		respondWithError(w, http.StatusBadRequest, "payment_ref is required")
		return
	}

	payout, err := h.revenue.MarkPayoutAsPaid(r.Context(), payoutID, req.PaymentRef)
	if err != nil {
		respondWithServiceError(w, err, "mark regional payout paid "+payoutID)
		return
	}

	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) handleGetRegionalPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "id")
	payout, err := h.revenue.GetRegionalPayout(r.Context(), payoutID)
	if err != nil {
		respondWithServiceError(w, err, "get regional payout "+payoutID)
		return
	}

	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) handleListRegionalPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.revenue.ListRegionalPayouts(r.Context(), store.RegionalPayoutFilter{
		PartnerID: r.URL.Query().Get("partner_id"),
		Period:    r.URL.Query().Get("period"),
		Status:    domain.RegionalPayoutStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		respondWithServiceError(w, err, "list regional payouts")
		return
	}

	respondWithJSON(w, http.StatusOK, payouts)
}
