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

type revenueRepoStub struct {
	store.Repository

	agreement        *domain.RegionalAgreement
	activeAgreements []domain.RegionalAgreement
	pendingByPartner map[string][]domain.RevenueRecord
	regionalPayout   *domain.RegionalPayout

	createdRecords []domain.RevenueRecord
	createdPayouts []domain.RegionalPayout
	linkedIDs      [][]string
	markPaidID     string
	markPaidRef    string
}

func (s *revenueRepoStub) FindActiveAgreementForRegion(ctx context.Context, regionCode string, at time.Time) (*domain.RegionalAgreement, error) {
	if s.agreement == nil {
		return nil, store.ErrAgreementNotFound
	}
	return s.agreement, nil
}

func (s *revenueRepoStub) CreateRevenueRecord(ctx context.Context, record *domain.RevenueRecord) error {
	s.createdRecords = append(s.createdRecords, *record)
	return nil
}

func (s *revenueRepoStub) ListActiveAgreements(ctx context.Context) ([]domain.RegionalAgreement, error) {
	return s.activeAgreements, nil
}

func (s *revenueRepoStub) ListPendingRevenueRecords(ctx context.Context, partnerID, period string) ([]domain.RevenueRecord, error) {
	return s.pendingByPartner[partnerID], nil
}

func (s *revenueRepoStub) CreateRegionalPayoutWithRecords(ctx context.Context, payout *domain.RegionalPayout, recordIDs []string) error {
	s.createdPayouts = append(s.createdPayouts, *payout)
	s.linkedIDs = append(s.linkedIDs, recordIDs)
	return nil
}

func (s *revenueRepoStub) GetRegionalPayoutByID(ctx context.Context, id string) (*domain.RegionalPayout, error) {
	if s.regionalPayout == nil {
		return nil, store.ErrRegionalPayoutNotFound
	}
	return s.regionalPayout, nil
}

func (s *revenueRepoStub) MarkRegionalPayoutPaid(ctx context.Context, id, paymentRef string, paidAt time.Time) error {
	if s.regionalPayout == nil {
		return store.ErrRegionalPayoutNotFound
	}
	s.markPaidID = id
	s.markPaidRef = paymentRef
	return nil
}

func (s *revenueRepoStub) InsertAuditLog(ctx context.Context, entry store.AuditLogParams) error {
	return nil
}

func newRevenueService(repo *revenueRepoStub) RevenueService {
	return NewRevenueService(repo, nil, NewAuditor(repo), domain.DefaultRates())
}

var paymentDate = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func TestTrackMembershipRevenueSplitsFullAmount(t *testing.T) {
	repo := &revenueRepoStub{agreement: dachAgreement()}
	svc := newRevenueService(repo)

	record, err := svc.TrackMembershipRevenue(context.Background(), MembershipRevenueInput{
		PaymentRef:     "pay-1",
		Amount:         decimal.NewFromInt(100),
		Currency:       "EUR",
		PaymentDate:    paymentDate,
		CustomerID:     "cust-1",
		BillingCountry: "DE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !record.PartnerProvision.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected provision 30, got %s", record.PartnerProvision)
	}
	if !record.PlatformAmount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected platform amount 70, got %s", record.PlatformAmount)
	}
	if record.TransactionFee != nil {
		t.Fatal("membership records carry no transaction fee")
	}
	if record.RegionalPartnerID != "partner-dach" {
		t.Fatalf("expected partner from agreement, got %q", record.RegionalPartnerID)
	}
	if record.AgreementID == nil || *record.AgreementID != repo.agreement.ID {
		t.Fatal("expected record linked to the resolved agreement")
	}
	if record.PayoutPeriod != "2025-05" {
		t.Fatalf("expected period 2025-05, got %q", record.PayoutPeriod)
	}
	if record.PayoutStatus != domain.RevenuePending {
		t.Fatalf("expected PENDING, got %s", record.PayoutStatus)
	}
}

func TestTrackMembershipRevenueRequiresActiveAgreement(t *testing.T) {
	repo := &revenueRepoStub{}
	svc := newRevenueService(repo)

	_, err := svc.TrackMembershipRevenue(context.Background(), MembershipRevenueInput{
		PaymentRef:     "pay-1",
		Amount:         decimal.NewFromInt(29),
		Currency:       "EUR",
		PaymentDate:    paymentDate,
		BillingCountry: "FR",
	})
	if !errors.Is(err, ErrNoActiveAgreement) {
		t.Fatalf("expected ErrNoActiveAgreement, got %v", err)
	}
	if len(repo.createdRecords) != 0 {
		t.Fatal("expected no record written")
	}
}

func TestTrackTransactionRevenueSplitsFeeOnly(t *testing.T) {
	repo := &revenueRepoStub{}
	svc := newRevenueService(repo)

	record, err := svc.TrackTransactionRevenue(context.Background(), TransactionRevenueInput{
		PaymentRef:        "pay-2",
		Amount:            decimal.NewFromInt(100),
		Currency:          "EUR",
		PaymentDate:       paymentDate,
		TenantID:          "tenant-1",
		RegionalPartnerID: "partner-dach",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 100 × 3.9% + 0.50 = 4.40; partner 30% of the fee, platform 70%.
	if record.TransactionFee == nil || !record.TransactionFee.Equal(decimal.RequireFromString("4.40")) {
		t.Fatalf("expected fee 4.40, got %v", record.TransactionFee)
	}
	if !record.PartnerProvision.Equal(decimal.RequireFromString("1.32")) {
		t.Fatalf("expected provision 1.32, got %s", record.PartnerProvision)
	}
	if !record.PlatformAmount.Equal(decimal.RequireFromString("3.08")) {
		t.Fatalf("expected platform amount 3.08, got %s", record.PlatformAmount)
	}
	if record.RegionalPartnerID != "partner-dach" {
		t.Fatalf("expected explicit partner, got %q", record.RegionalPartnerID)
	}
}

func pendingRecord(id string, recType domain.RevenueType, amount, provision string) domain.RevenueRecord {
	return domain.RevenueRecord{
		ID:               id,
		Type:             recType,
		Amount:           decimal.RequireFromString(amount),
		PartnerProvision: decimal.RequireFromString(provision),
		PayoutStatus:     domain.RevenuePending,
	}
}

func TestCreateMonthlyPayoutsAggregatesPerPartner(t *testing.T) {
	busy := dachAgreement()
	idle := dachAgreement()
	idle.ID = "agr-2"
	idle.PartnerID = "partner-benelux"
	idle.PartnerName = "Benelux BV"

	repo := &revenueRepoStub{
		activeAgreements: []domain.RegionalAgreement{*busy, *idle},
		pendingByPartner: map[string][]domain.RevenueRecord{
			"partner-dach": {
				pendingRecord("r1", domain.RevenueMembership, "29.00", "8.70"),
				pendingRecord("r2", domain.RevenueMembership, "29.00", "8.70"),
				pendingRecord("r3", domain.RevenueTransaction, "100.00", "1.32"),
			},
		},
	}
	svc := newRevenueService(repo)

	payouts, err := svc.CreateMonthlyPayouts(context.Background(), "2025-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("expected 1 payout (idle partner skipped), got %d", len(payouts))
	}

	payout := payouts[0]
	if payout.RegionalPartnerID != "partner-dach" {
		t.Fatalf("unexpected partner %q", payout.RegionalPartnerID)
	}
	if payout.PayoutPeriod != "2025-05" {
		t.Fatalf("unexpected period %q", payout.PayoutPeriod)
	}
	if !payout.TotalRevenue.Equal(decimal.RequireFromString("158.00")) {
		t.Fatalf("expected total revenue 158.00, got %s", payout.TotalRevenue)
	}
	if !payout.TotalProvision.Equal(decimal.RequireFromString("18.72")) {
		t.Fatalf("expected total provision 18.72, got %s", payout.TotalProvision)
	}
	if !payout.MembershipProvision.Equal(decimal.RequireFromString("17.40")) {
		t.Fatalf("expected membership provision 17.40, got %s", payout.MembershipProvision)
	}
	if !payout.TransactionProvision.Equal(decimal.RequireFromString("1.32")) {
		t.Fatalf("expected transaction provision 1.32, got %s", payout.TransactionProvision)
	}
	if payout.MembershipCount != 2 || payout.TransactionCount != 1 {
		t.Fatalf("unexpected counts %d/%d", payout.MembershipCount, payout.TransactionCount)
	}
	if payout.Status != domain.RegionalPayoutPending {
		t.Fatalf("expected PENDING, got %s", payout.Status)
	}
	if len(repo.linkedIDs) != 1 || len(repo.linkedIDs[0]) != 3 {
		t.Fatalf("expected 3 linked records, got %v", repo.linkedIDs)
	}
}

func TestCreateMonthlyPayoutsNoActivePartners(t *testing.T) {
	repo := &revenueRepoStub{}
	svc := newRevenueService(repo)

	payouts, err := svc.CreateMonthlyPayouts(context.Background(), "2025-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payouts) != 0 {
		t.Fatalf("expected no payouts, got %d", len(payouts))
	}
}

func TestMarkPayoutAsPaid(t *testing.T) {
	repo := &revenueRepoStub{
		regionalPayout: &domain.RegionalPayout{
			ID:     "rp-1",
			Status: domain.RegionalPayoutPaid,
		},
	}
	svc := newRevenueService(repo)

	payout, err := svc.MarkPayoutAsPaid(context.Background(), "rp-1", "bank-tx-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.markPaidID != "rp-1" || repo.markPaidRef != "bank-tx-42" {
		t.Fatalf("unexpected mark-paid call: %q %q", repo.markPaidID, repo.markPaidRef)
	}
	if payout.Status != domain.RegionalPayoutPaid {
		t.Fatalf("expected PAID, got %s", payout.Status)
	}
}

func TestMarkPayoutAsPaidUnknownPayout(t *testing.T) {
	repo := &revenueRepoStub{}
	svc := newRevenueService(repo)

	_, err := svc.MarkPayoutAsPaid(context.Background(), "rp-missing", "ref")
	if !errors.Is(err, store.ErrRegionalPayoutNotFound) {
		t.Fatalf("expected ErrRegionalPayoutNotFound, got %v", err)
	}
}
