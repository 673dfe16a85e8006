/**
 * @description
 * Regional agreement administration: creation with region-exclusivity checks,
 * contract signing, updates, and termination.
 */
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

// CreateAgreementInput is one agreement to register.
type CreateAgreementInput struct {
	PartnerID         string                `json:"partner_id"`
	PartnerName       string                `json:"partner_name"`
	PartnerSlug       string                `json:"partner_slug,omitempty"`
	RegionCodes       []string              `json:"region_codes"`
	RegionName        string                `json:"region_name"`
	CommissionPercent decimal.Decimal       `json:"commission_percent"`
	AppliesTo         domain.AgreementScope `json:"applies_to,omitempty"`
	ValidFrom         *time.Time            `json:"valid_from,omitempty"`
	ValidUntil        *time.Time            `json:"valid_until,omitempty"`
	Notes             string                `json:"notes,omitempty"`
}

// AgreementService administers regional exclusivity agreements.
type AgreementService struct {
	repo      store.Repository
	publisher EventPublisher
	auditor   *Auditor
}

// NewAgreementService creates the agreement service.
func NewAgreementService(repo store.Repository, publisher EventPublisher, auditor *Auditor) AgreementService {
	return AgreementService{repo: repo, publisher: publisher, auditor: auditor}
}

// CreateAgreement registers a new PENDING agreement. At most one PENDING or
// ACTIVE agreement may cover a region code, so any overlap fails with
// ErrRegionConflict.
func (s AgreementService) CreateAgreement(ctx context.Context, input CreateAgreementInput, actorID string) (*domain.RegionalAgreement, error) {
	codes := make([]string, len(input.RegionCodes))
	for i, code := range input.RegionCodes {
		codes[i] = strings.ToUpper(code)
	}

	existing, err := s.repo.FindAgreementOverlap(ctx, codes)
	if err != nil && !errors.Is(err, store.ErrAgreementNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRegionConflict
	}

	validFrom := time.Now().UTC()
	if input.ValidFrom != nil {
		validFrom = *input.ValidFrom
	}
	appliesTo := input.AppliesTo
	if appliesTo == "" {
		appliesTo = domain.ScopePlatformProducts
	}

	agreement := &domain.RegionalAgreement{
		ID:                uuid.NewString(),
		PartnerID:         input.PartnerID,
		PartnerName:       input.PartnerName,
		RegionCodes:       codes,
		RegionName:        input.RegionName,
		CommissionPercent: input.CommissionPercent,
		AppliesTo:         appliesTo,
		ValidFrom:         validFrom,
		ValidUntil:        input.ValidUntil,
		Status:            domain.AgreementPending,
	}
	if input.PartnerSlug != "" {
		agreement.PartnerSlug = &input.PartnerSlug
	}
	if input.Notes != "" {
		agreement.Notes = &input.Notes
	}

	if err := s.repo.CreateAgreement(ctx, agreement); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "agreement.create", "regional_agreement", agreement.ID, actorID, nil, agreement, nil)
	publishEvent(ctx, s.publisher, "agreement.created", "regional_agreement", agreement.ID, agreement)

	return agreement, nil
}

// GetAgreement returns a single agreement.
func (s AgreementService) GetAgreement(ctx context.Context, id string) (*domain.RegionalAgreement, error) {
	return s.repo.GetAgreementByID(ctx, id)
}

// ListAgreements returns agreements matching the filter, newest first.
func (s AgreementService) ListAgreements(ctx context.Context, filter store.AgreementFilter) ([]domain.RegionalAgreement, error) {
	return s.repo.ListAgreements(ctx, filter)
}

// GetAgreementByRegion resolves the ACTIVE agreement covering a region code as
// of now. Returns store.ErrAgreementNotFound when none covers it.
func (s AgreementService) GetAgreementByRegion(ctx context.Context, regionCode string) (*domain.RegionalAgreement, error) {
	return s.repo.FindActiveAgreementForRegion(ctx, regionCode, time.Now().UTC())
}

// UpdateAgreement applies partial administrative changes.
func (s AgreementService) UpdateAgreement(ctx context.Context, id string, params store.UpdateAgreementParams, actorID string) (*domain.RegionalAgreement, error) {
	existing, err := s.repo.GetAgreementByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAgreement(ctx, id, params)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "agreement.update", "regional_agreement", id, actorID, existing, updated, nil)
	publishEvent(ctx, s.publisher, "agreement.updated", "regional_agreement", id, updated)

	return updated, nil
}

// SignContract stamps the contract signature and activates the agreement.
// Re-signing fails with ErrContractAlreadySigned.
func (s AgreementService) SignContract(ctx context.Context, id, signedBy, contractVersion string) (*domain.RegionalAgreement, error) {
	existing, err := s.repo.GetAgreementByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.ContractSignedAt != nil {
		return nil, ErrContractAlreadySigned
	}
	if contractVersion == "" {
		contractVersion = "1.0"
	}

	updated, err := s.repo.SignAgreementContract(ctx, id, signedBy, contractVersion, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "agreement.sign_contract", "regional_agreement", id, signedBy, nil,
		map[string]any{"signed_by": signedBy, "contract_version": contractVersion}, nil)
	publishEvent(ctx, s.publisher, "agreement.signed", "regional_agreement", id, updated)

	return updated, nil
}

// TerminateAgreement ends the agreement now: status TERMINATED and the
// validity window closed at the current time.
func (s AgreementService) TerminateAgreement(ctx context.Context, id, actorID string) (*domain.RegionalAgreement, error) {
	existing, err := s.repo.GetAgreementByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	terminated := domain.AgreementTerminated
	updated, err := s.repo.UpdateAgreement(ctx, id, store.UpdateAgreementParams{
		Status:     &terminated,
		ValidUntil: &now,
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "agreement.terminate", "regional_agreement", id, actorID, existing, updated, nil)
	publishEvent(ctx, s.publisher, "agreement.terminated", "regional_agreement", id, updated)

	return updated, nil
}
