package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

type ledgerRepoStub struct {
	store.Repository

	existingOrder bool
	agreement     *domain.RegionalAgreement
	attribution   *domain.CustomerAttribution
	refundCount   int64
	approveCount  int64

	createdCommissions     []domain.Commission
	recordPurchaseCalled   bool
	recordPurchaseFirst    bool
	refundOrderID          string
	refundReason           string
	approveCutoff          time.Time
	auditInserted          bool
}

func (s *ledgerRepoStub) CommissionsExistForOrder(ctx context.Context, orderID string) (bool, error) {
	return s.existingOrder, nil
}

func (s *ledgerRepoStub) CreateCommissions(ctx context.Context, commissions []domain.Commission) error {
	s.createdCommissions = commissions
	return nil
}

func (s *ledgerRepoStub) FindActiveAgreementForRegion(ctx context.Context, regionCode string, at time.Time) (*domain.RegionalAgreement, error) {
	if s.agreement == nil {
		return nil, store.ErrAgreementNotFound
	}
	return s.agreement, nil
}

func (s *ledgerRepoStub) GetAttributionByCustomer(ctx context.Context, customerID string) (*domain.CustomerAttribution, error) {
	if s.attribution == nil {
		return nil, store.ErrAttributionNotFound
	}
	return s.attribution, nil
}

func (s *ledgerRepoStub) RecordAttributionPurchase(ctx context.Context, customerID, orderID string, amount decimal.Decimal, firstPurchase bool, at time.Time) (*domain.CustomerAttribution, error) {
	s.recordPurchaseCalled = true
	s.recordPurchaseFirst = firstPurchase
	return s.attribution, nil
}

func (s *ledgerRepoStub) RefundCommissionsByOrder(ctx context.Context, orderID, reason string, at time.Time) (int64, error) {
	s.refundOrderID = orderID
	s.refundReason = reason
	return s.refundCount, nil
}

func (s *ledgerRepoStub) ApproveCommissionsBefore(ctx context.Context, cutoff, at time.Time) (int64, error) {
	s.approveCutoff = cutoff
	return s.approveCount, nil
}

func (s *ledgerRepoStub) InsertAuditLog(ctx context.Context, entry store.AuditLogParams) error {
	s.auditInserted = true
	return nil
}

func newLedgerService(repo *ledgerRepoStub) LedgerService {
	rates := domain.DefaultRates()
	calc := NewCalculator(repo, rates)
	return NewLedgerService(repo, calc, nil, NewAuditor(repo), rates)
}

func TestProcessOrderPersistsPendingCommissions(t *testing.T) {
	repo := &ledgerRepoStub{agreement: dachAgreement()}
	svc := newLedgerService(repo)

	result, err := svc.ProcessOrder(context.Background(), platformOrder(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(result.Lines))
	}
	if len(repo.createdCommissions) != 1 {
		t.Fatalf("expected 1 persisted commission, got %d", len(repo.createdCommissions))
	}

	persisted := repo.createdCommissions[0]
	if persisted.Status != domain.CommissionPending {
		t.Fatalf("expected status PENDING, got %s", persisted.Status)
	}
	if persisted.ID == "" {
		t.Fatal("expected a generated commission ID")
	}
	if persisted.OrderID != "order-1" {
		t.Fatalf("expected order ID order-1, got %q", persisted.OrderID)
	}
	if repo.recordPurchaseCalled {
		t.Fatal("expected no attribution update without an affiliate line")
	}
	if !repo.auditInserted {
		t.Fatal("expected an audit entry")
	}
}

func TestProcessOrderRejectsDuplicate(t *testing.T) {
	repo := &ledgerRepoStub{existingOrder: true, agreement: dachAgreement()}
	svc := newLedgerService(repo)

	_, err := svc.ProcessOrder(context.Background(), platformOrder(100))
	if err != ErrDuplicateOrder {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
	if repo.createdCommissions != nil {
		t.Fatal("expected no commissions written for a duplicate order")
	}
}

func TestProcessOrderStampsAttributionOnAffiliateLine(t *testing.T) {
	repo := &ledgerRepoStub{attribution: activeAttribution("partner-aff")}
	svc := newLedgerService(repo)

	order := platformOrder(100)
	order.CustomerBillingCountry = "US"

	result, err := svc.ProcessOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0].Type != domain.CommissionAffiliateFirst {
		t.Fatalf("expected one AFFILIATE_FIRST line, got %+v", result.Lines)
	}
	if !repo.recordPurchaseCalled {
		t.Fatal("expected attribution purchase to be recorded")
	}
	if !repo.recordPurchaseFirst {
		t.Fatal("expected first-purchase stamp")
	}
}

func TestProcessOrderSkipsAttributionWhenAffiliateCapped(t *testing.T) {
	// DACH distributor is also the affiliate: the affiliate line is capped
	// away, so the attribution counters must not advance either.
	repo := &ledgerRepoStub{
		agreement:   dachAgreement(),
		attribution: activeAttribution("partner-dach"),
	}
	svc := newLedgerService(repo)

	result, err := svc.ProcessOrder(context.Background(), platformOrder(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(result.Lines))
	}
	if repo.recordPurchaseCalled {
		t.Fatal("expected no attribution update for a capped affiliate line")
	}
}

func TestProcessOrderNoLinesWritesNothing(t *testing.T) {
	repo := &ledgerRepoStub{}
	svc := newLedgerService(repo)

	order := platformOrder(100)
	order.CustomerBillingCountry = "US"

	result, err := svc.ProcessOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(result.Lines))
	}
	if repo.createdCommissions != nil {
		t.Fatal("expected no commissions written")
	}
}

func TestRefundOrderReturnsReversedCount(t *testing.T) {
	repo := &ledgerRepoStub{refundCount: 2}
	svc := newLedgerService(repo)

	count, err := svc.RefundOrder(context.Background(), "order-7", "chargeback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 refunded, got %d", count)
	}
	if repo.refundOrderID != "order-7" || repo.refundReason != "chargeback" {
		t.Fatalf("unexpected refund call: %q %q", repo.refundOrderID, repo.refundReason)
	}

	// Re-running the refund finds nothing left in a refundable state.
	repo.refundCount = 0
	count, err = svc.RefundOrder(context.Background(), "order-7", "chargeback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 refunded on rerun, got %d", count)
	}
}

func TestApproveEligibleCommissionsUsesHoldPeriodCutoff(t *testing.T) {
	repo := &ledgerRepoStub{approveCount: 5}
	svc := newLedgerService(repo)

	now := time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC)
	count, err := svc.ApproveEligibleCommissions(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 approved, got %d", count)
	}

	wantCutoff := now.AddDate(0, 0, -30)
	if !repo.approveCutoff.Equal(wantCutoff) {
		t.Fatalf("expected cutoff %v, got %v", wantCutoff, repo.approveCutoff)
	}
}
