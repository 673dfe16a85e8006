package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

type attributionRepoStub struct {
	store.Repository

	existing *domain.CustomerAttribution

	created       *domain.CustomerAttribution
	deleteCalled  bool
	purchaseFirst bool
}

func (s *attributionRepoStub) GetAttributionByCustomer(ctx context.Context, customerID string) (*domain.CustomerAttribution, error) {
	if s.existing == nil {
		return nil, store.ErrAttributionNotFound
	}
	return s.existing, nil
}

func (s *attributionRepoStub) CreateAttribution(ctx context.Context, attribution *domain.CustomerAttribution) error {
	s.created = attribution
	return nil
}

func (s *attributionRepoStub) RecordAttributionPurchase(ctx context.Context, customerID, orderID string, amount decimal.Decimal, firstPurchase bool, at time.Time) (*domain.CustomerAttribution, error) {
	s.purchaseFirst = firstPurchase
	updated := *s.existing
	updated.TotalPurchases++
	updated.TotalRevenue = updated.TotalRevenue.Add(amount)
	if firstPurchase {
		updated.FirstPurchaseAt = &at
		updated.FirstPurchaseOrderID = &orderID
	}
	return &updated, nil
}

func (s *attributionRepoStub) DeleteAttribution(ctx context.Context, customerID string) error {
	s.deleteCalled = true
	return nil
}

func (s *attributionRepoStub) InsertAuditLog(ctx context.Context, entry store.AuditLogParams) error {
	return nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func newAttributionService(repo *attributionRepoStub, limiter RateLimiter) AttributionService {
	return NewAttributionService(repo, limiter, nil, NewAuditor(repo), domain.DefaultRates())
}

func TestCreateAttributionSetsExpiryWindow(t *testing.T) {
	repo := &attributionRepoStub{}
	svc := newAttributionService(repo, nil)

	before := time.Now().UTC()
	attribution, err := svc.CreateAttribution(context.Background(), CreateAttributionInput{
		CustomerID: "cust-1",
		PartnerID:  "partner-aff",
		SourceRef:  "SUMMER25",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantExpiry := attribution.AttributedAt.AddDate(3, 0, 0)
	if !attribution.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, attribution.ExpiresAt)
	}
	if attribution.AttributedAt.Before(before) {
		t.Fatalf("attributedAt %v precedes test start %v", attribution.AttributedAt, before)
	}
	if attribution.Source != domain.SourceAffiliateCode {
		t.Fatalf("expected default source AFFILIATE_CODE, got %s", attribution.Source)
	}
	if repo.created == nil {
		t.Fatal("expected attribution persisted")
	}
}

func TestCreateAttributionFirstClickWins(t *testing.T) {
	repo := &attributionRepoStub{existing: activeAttribution("partner-aff")}
	svc := newAttributionService(repo, nil)

	_, err := svc.CreateAttribution(context.Background(), CreateAttributionInput{
		CustomerID: "cust-1",
		PartnerID:  "partner-late",
	})
	if !errors.Is(err, ErrAlreadyAttributed) {
		t.Fatalf("expected ErrAlreadyAttributed, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected first attribution left untouched")
	}
}

func TestCreateAttributionRateLimited(t *testing.T) {
	repo := &attributionRepoStub{}
	svc := newAttributionService(repo, denyAllLimiter{})

	_, err := svc.CreateAttribution(context.Background(), CreateAttributionInput{
		CustomerID: "cust-1",
		PartnerID:  "partner-aff",
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected nothing persisted")
	}
}

func TestGetAttributionReportsWindowState(t *testing.T) {
	attribution := activeAttribution("partner-aff")
	attribution.ExpiresAt = time.Now().UTC().Add(36 * time.Hour)
	repo := &attributionRepoStub{existing: attribution}
	svc := newAttributionService(repo, nil)

	lookup, err := svc.GetAttribution(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lookup.IsActive {
		t.Fatal("expected active attribution")
	}
	if lookup.DaysRemaining != 2 {
		t.Fatalf("expected 2 days remaining, got %d", lookup.DaysRemaining)
	}

	attribution.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	lookup, err = svc.GetAttribution(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookup.IsActive || lookup.DaysRemaining != 0 {
		t.Fatalf("expected expired lookup, got active=%t days=%d", lookup.IsActive, lookup.DaysRemaining)
	}
}

func TestRecordPurchaseStampsFirstPurchaseOnce(t *testing.T) {
	repo := &attributionRepoStub{existing: activeAttribution("partner-aff")}
	svc := newAttributionService(repo, nil)

	updated, first, err := svc.RecordPurchase(context.Background(), "cust-1", "order-1", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("expected first purchase")
	}
	if updated.FirstPurchaseOrderID == nil || *updated.FirstPurchaseOrderID != "order-1" {
		t.Fatal("expected first purchase order stamped")
	}

	repo.existing = updated
	_, first, err = svc.RecordPurchase(context.Background(), "cust-1", "order-2", decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first {
		t.Fatal("expected subsequent purchase not marked first")
	}
}

func TestDeleteAttributionUnknownCustomer(t *testing.T) {
	repo := &attributionRepoStub{}
	svc := newAttributionService(repo, nil)

	err := svc.DeleteAttribution(context.Background(), "cust-1", "gdpr request", "admin-1")
	if !errors.Is(err, store.ErrAttributionNotFound) {
		t.Fatalf("expected ErrAttributionNotFound, got %v", err)
	}
	if repo.deleteCalled {
		t.Fatal("expected no delete issued")
	}
}
