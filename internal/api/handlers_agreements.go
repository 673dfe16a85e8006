/**
 * @description
 * HTTP handlers for regional agreement administration.
 */
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

func (h *Handler) handleCreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAgreementInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PartnerID == "" || req.PartnerName == "" {
		respondWithError(w, http.StatusBadRequest, "partner_id and partner_name are required")
		return
	}
	if len(req.RegionCodes) == 0 {
		respondWithError(w, http.StatusBadRequest, "region_codes must not be empty")
		return
	}
	for _, code := range req.RegionCodes {
		if len(code) != 2 {
			respondWithError(w, http.StatusBadRequest, "region codes must be 2-letter country codes")
			return
		}
	}
	if req.CommissionPercent.IsNegative() || req.CommissionPercent.GreaterThan(decimal.NewFromInt(100)) {
		respondWithError(w, http.StatusBadRequest, "commission_percent must be between 0 and 100")
		return
	}

	agreement, err := h.agreements.CreateAgreement(r.Context(), req, actorFromRequest(r))
	if err != nil {
		respondWithServiceError(w, err, "create agreement")
		return
	}

	respondWithJSON(w, http.StatusCreated, agreement)
}

func (h *Handler) handleGetAgreement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agreement, err := h.agreements.GetAgreement(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "get agreement "+id)
		return
	}

	respondWithJSON(w, http.StatusOK, agreement)
}

func (h *Handler) handleListAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := h.agreements.ListAgreements(r.Context(), store.AgreementFilter{
		Status:     domain.AgreementStatus(r.URL.Query().Get("status")),
		RegionCode: r.URL.Query().Get("region"),
	})
	if err != nil {
		respondWithServiceError(w, err, "list agreements")
		return
	}

	respondWithJSON(w, http.StatusOK, agreements)
}

func (h *Handler) handleGetAgreementByRegion(w http.ResponseWriter, r *http.Request) {
	regionCode := chi.URLParam(r, "regionCode")
	if len(regionCode) != 2 {
		respondWithError(w, http.StatusBadRequest, "region code must be a 2-letter country code")
		return
	}

	agreement, err := h.agreements.GetAgreementByRegion(r.Context(), regionCode)
	if err != nil {
		respondWithServiceError(w, err, "get agreement for region "+regionCode)
		return
	}

	respondWithJSON(w, http.StatusOK, agreement)
}

type updateAgreementRequest struct {
	CommissionPercent *decimal.Decimal        `json:"commission_percent,omitempty"`
	ValidUntil        *time.Time              `json:"valid_until,omitempty"`
	ClearValidUntil   bool                    `json:"clear_valid_until,omitempty"`
	Status            *domain.AgreementStatus `json:"status,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
}

func (h *Handler) handleUpdateAgreement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateAgreementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CommissionPercent != nil &&
		(req.CommissionPercent.IsNegative() || req.CommissionPercent.GreaterThan(decimal.NewFromInt(100))) {
		respondWithError(w, http.StatusBadRequest, "commission_percent must be between 0 and 100")
		return
	}

	agreement, err := h.agreements.UpdateAgreement(r.Context(), id, store.UpdateAgreementParams{
		CommissionPercent: req.CommissionPercent,
		ValidUntil:        req.ValidUntil,
		ClearValidUntil:   req.ClearValidUntil,
		Status:            req.Status,
		Notes:             req.Notes,
	}, actorFromRequest(r))
	if err != nil {
		respondWithServiceError(w, err, "update agreement "+id)
		return
	}

	respondWithJSON(w, http.StatusOK, agreement)
}

func (h *Handler) handleSignAgreement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		SignedBy        string `json:"signed_by"`
		ContractVersion string `json:"contract_version,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.SignedBy) < 3 {
		respondWithError(w, http.StatusBadRequest, "signed_by must be at least 3 characters")
		return
	}

	agreement, err := h.agreements.SignContract(r.Context(), id, req.SignedBy, req.ContractVersion)
	if err != nil {
		respondWithServiceError(w, err, "sign agreement "+id)
		return
	}

	respondWithJSON(w, http.StatusOK, agreement)
}

func (h *Handler) handleTerminateAgreement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agreement, err := h.agreements.TerminateAgreement(r.Context(), id, actorFromRequest(r))
	if err != nil {
		respondWithServiceError(w, err, "terminate agreement "+id)
		return
	}

	respondWithJSON(w, http.StatusOK, agreement)
}

// actorFromRequest identifies the caller for the audit trail: the
// authenticated subject when present, otherwise the internal caller header.
func actorFromRequest(r *http.Request) string {
	if userID, ok := UserFromContext(r.Context()); ok {
		return userID
	}
	return r.Header.Get("X-Actor-ID")
}
