/**
 * @description
 * Customer attribution: first-click-wins binding of a customer to the partner
 * credited with acquiring them, valid for a fixed number of years.
 */
package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

// CreateAttributionInput is one referral binding to register.
type CreateAttributionInput struct {
	CustomerID    string                   `json:"customer_id"`
	CustomerEmail string                   `json:"customer_email,omitempty"`
	PartnerID     string                   `json:"partner_id"`
	PartnerName   string                   `json:"partner_name,omitempty"`
	Source        domain.AttributionSource `json:"source,omitempty"`
	SourceRef     string                   `json:"source_ref,omitempty"`
}

// AttributionLookup is an attribution with its derived window state.
type AttributionLookup struct {
	Attribution   *domain.CustomerAttribution `json:"attribution"`
	IsActive      bool                        `json:"is_active"`
	DaysRemaining int                         `json:"days_remaining"`
}

// AttributionService manages customer attributions.
type AttributionService struct {
	repo      store.Repository
	limiter   RateLimiter
	publisher EventPublisher
	auditor   *Auditor
	rates     domain.Rates
}

// NewAttributionService creates the attribution service. A nil limiter
// disables rate limiting.
func NewAttributionService(repo store.Repository, limiter RateLimiter, publisher EventPublisher, auditor *Auditor, rates domain.Rates) AttributionService {
	if limiter == nil {
		limiter = noopRateLimiter{}
	}
	return AttributionService{repo: repo, limiter: limiter, publisher: publisher, auditor: auditor, rates: rates}
}

// CreateAttribution binds a customer to a partner. First click wins: an
// existing attribution fails with ErrAlreadyAttributed regardless of source.
// Creation is rate limited per partner to absorb referral-link abuse.
func (s AttributionService) CreateAttribution(ctx context.Context, input CreateAttributionInput) (*domain.CustomerAttribution, error) {
	allowed, err := s.limiter.Allow(ctx, "attribution:create:"+input.PartnerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	existing, err := s.repo.GetAttributionByCustomer(ctx, input.CustomerID)
	if err != nil && !errors.Is(err, store.ErrAttributionNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAttributed
	}

	source := input.Source
	if source == "" {
		source = domain.SourceAffiliateCode
	}

	now := time.Now().UTC()
	attribution := &domain.CustomerAttribution{
		ID:                  uuid.NewString(),
		CustomerID:          input.CustomerID,
		AttributedPartnerID: input.PartnerID,
		Source:              source,
		AttributedAt:        now,
		ExpiresAt:           now.AddDate(s.rates.AttributionYears, 0, 0),
		TotalRevenue:        decimal.Zero,
	}
	if input.CustomerEmail != "" {
		attribution.CustomerEmail = &input.CustomerEmail
	}
	if input.PartnerName != "" {
		attribution.AttributedPartnerName = &input.PartnerName
	}
	if input.SourceRef != "" {
		attribution.SourceRef = &input.SourceRef
	}

	if err := s.repo.CreateAttribution(ctx, attribution); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "attribution.create", "customer_attribution", attribution.ID, "", nil, attribution, nil)
	publishEvent(ctx, s.publisher, "attribution.created", "customer_attribution", attribution.ID, attribution)

	return attribution, nil
}

// GetAttribution returns a customer's attribution with its window state.
func (s AttributionService) GetAttribution(ctx context.Context, customerID string) (*AttributionLookup, error) {
	attribution, err := s.repo.GetAttributionByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lookup := &AttributionLookup{Attribution: attribution}
	if attribution.ActiveAt(now) {
		lookup.IsActive = true
		lookup.DaysRemaining = int(math.Ceil(attribution.ExpiresAt.Sub(now).Hours() / 24))
	}
	return lookup, nil
}

// RecordPurchase advances the attribution's purchase counters, stamping the
// first-purchase marker on the first call.
func (s AttributionService) RecordPurchase(ctx context.Context, customerID, orderID string, amount decimal.Decimal) (*domain.CustomerAttribution, bool, error) {
	existing, err := s.repo.GetAttributionByCustomer(ctx, customerID)
	if err != nil {
		return nil, false, err
	}

	firstPurchase := existing.FirstPurchaseAt == nil
	updated, err := s.repo.RecordAttributionPurchase(ctx, customerID, orderID, amount, firstPurchase, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	return updated, firstPurchase, nil
}

// DeleteAttribution removes a customer's attribution. Admin-only escape
// hatch; attributions are otherwise never deleted.
func (s AttributionService) DeleteAttribution(ctx context.Context, customerID, reason, actorID string) error {
	existing, err := s.repo.GetAttributionByCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAttribution(ctx, customerID); err != nil {
		return err
	}

	s.auditor.Record(ctx, "attribution.delete", "customer_attribution", existing.ID, actorID, existing, nil,
		map[string]any{"reason": reason})
	publishEvent(ctx, s.publisher, "attribution.deleted", "customer_attribution", existing.ID,
		map[string]any{"customer_id": customerID, "reason": reason})

	return nil
}

// ListAttributions returns attributions matching the filter.
func (s AttributionService) ListAttributions(ctx context.Context, filter store.AttributionFilter) ([]domain.CustomerAttribution, error) {
	if filter.Now.IsZero() {
		filter.Now = time.Now().UTC()
	}
	return s.repo.ListAttributions(ctx, filter)
}

// GetStats summarizes attributions, optionally scoped to one partner.
func (s AttributionService) GetStats(ctx context.Context, partnerID string) (*domain.AttributionStats, error) {
	return s.repo.GetAttributionStats(ctx, partnerID, time.Now().UTC())
}
