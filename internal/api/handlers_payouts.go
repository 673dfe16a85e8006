/**
 * @description
 * HTTP handlers for the payout lifecycle.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

func (h *Handler) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID        string `json:"recipient_id"`
		DestinationAccount string `json:"destination_account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipientID == "" {
		respondWithError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	if req.DestinationAccount == "" {
		respondWithError(w, http.StatusBadRequest, "destination_account is required")
		return
	}

	payout, err := h.payouts.CreatePayout(r.Context(), req.RecipientID, req.DestinationAccount)
	if err != nil {
		respondWithServiceError(w, err, "create payout for "+req.RecipientID)
		return
	}

	respondWithJSON(w, http.StatusCreated, payout)
}

func (h *Handler) handleProcessPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "id")
	payout, err := h.payouts.ProcessPayout(r.Context(), payoutID)
	if err != nil {
		respondWithServiceError(w, err, "process payout "+payoutID)
		return
	}

	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) handleCompletePayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "id")

	var req struct {
		TransferRef *string `json:"transfer_ref,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	payout, err := h.payouts.CompletePayout(r.Context(), payoutID, req.TransferRef)
	if err != nil {
		respondWithServiceError(w, err, "complete payout "+payoutID)
		return
	}

	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) handleFailPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "id")

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

	payout, err := h.payouts.FailPayout(r.Context(), payoutID, req.Reason)
	if err != nil {
		respondWithServiceError(w, err, "fail payout "+payoutID)
		return
	}

	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	payoutID := chi.URLParam(r, "id")
	payout, err := h.payouts.GetPayout(r.Context(), payoutID)
	if err != nil {
		respondWithServiceError(w, err, "get payout "+payoutID)
		return
	}

	respondWithJSON(w, http.StatusOK, payout)
}

func (h *Handler) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.payouts.ListPayouts(r.Context(), store.PayoutFilter{
		RecipientID: r.URL.Query().Get("recipient_id"),
		Status:      domain.PayoutStatus(r.URL.Query().Get("status")),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	})
	if err != nil {
		respondWithServiceError(w, err, "list payouts")
		return
	}

	respondWithJSON(w, http.StatusOK, payouts)
}

func (h *Handler) handleListEligibleRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.payouts.ListEligibleRecipients(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "list eligible recipients")
		return
	}

	respondWithJSON(w, http.StatusOK, recipients)
}

func (h *Handler) handleGetPayoutStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.payouts.GetStats(r.Context(), r.URL.Query().Get("recipient_id"))
	if err != nil {
		respondWithServiceError(w, err, "get payout stats")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleListMyPayouts(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	payouts, err := h.payouts.ListPayouts(r.Context(), store.PayoutFilter{
		RecipientID: partnerID,
		Status:      domain.PayoutStatus(r.URL.Query().Get("status")),
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	})
	if err != nil {
		respondWithServiceError(w, err, "list payouts for "+partnerID)
		return
	}

	respondWithJSON(w, http.StatusOK, payouts)
}
