/**
 * @description
 * HTTP handlers for customer attributions.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/store"
)

func (h *Handler) handleCreateAttribution(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAttributionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" || req.PartnerID == "" {
		respondWithError(w, http.StatusBadRequest, "customer_id and partner_id are required")
		return
	}

	attribution, err := h.attributions.CreateAttribution(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, "create attribution for "+req.CustomerID)
		return
	}

	respondWithJSON(w, http.StatusCreated, attribution)
}

func (h *Handler) handleGetAttribution(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	lookup, err := h.attributions.GetAttribution(r.Context(), customerID)
	if err != nil {
		respondWithServiceError(w, err, "get attribution for "+customerID)
		return
	}

	respondWithJSON(w, http.StatusOK, lookup)
}

func (h *Handler) handleRecordPurchase(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	var req struct {
		OrderID     string          `json:"order_id"`
		OrderAmount decimal.Decimal `json:"order_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		respondWithError(w, http.StatusBadRequest, "order_id is required")
		return
	}
	if req.OrderAmount.IsNegative() || req.OrderAmount.IsZero() {
		respondWithError(w, http.StatusBadRequest, "order_amount must be positive")
		return
	}

	attribution, firstPurchase, err := h.attributions.RecordPurchase(r.Context(), customerID, req.OrderID, req.OrderAmount)
	if err != nil {
		respondWithServiceError(w, err, "record purchase for "+customerID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"attribution":       attribution,
		"is_first_purchase": firstPurchase,
	})
}

func (h *Handler) handleDeleteAttribution(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	reason := r.URL.Query().Get("reason")

	if err := h.attributions.DeleteAttribution(r.Context(), customerID, reason, actorFromRequest(r)); err != nil {
		respondWithServiceError(w, err, "delete attribution for "+customerID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "attribution removed"})
}

func (h *Handler) handleListAttributions(w http.ResponseWriter, r *http.Request) {
	attributions, err := h.attributions.ListAttributions(r.Context(), store.AttributionFilter{
		PartnerID:   r.URL.Query().Get("partner_id"),
		ActiveOnly:  r.URL.Query().Get("active_only") == "true",
		ExpiredOnly: r.URL.Query().Get("expired_only") == "true",
		Limit:       queryInt(r, "limit", 50),
		Offset:      queryInt(r, "offset", 0),
	})
	if err != nil {
		respondWithServiceError(w, err, "list attributions")
		return
	}

	respondWithJSON(w, http.StatusOK, attributions)
}

func (h *Handler) handleAttributionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.attributions.GetStats(r.Context(), r.URL.Query().Get("partner_id"))
	if err != nil {
		respondWithServiceError(w, err, "get attribution stats")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleMyAttributionStats(w http.ResponseWriter, r *http.Request) {
	partnerID, ok := UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.attributions.GetStats(r.Context(), partnerID)
	if err != nil {
		respondWithServiceError(w, err, "get attribution stats for "+partnerID)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
