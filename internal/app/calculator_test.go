package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

type calculatorRepoStub struct {
	store.Repository

	agreement   *domain.RegionalAgreement
	attribution *domain.CustomerAttribution
}

func (s *calculatorRepoStub) FindActiveAgreementForRegion(ctx context.Context, regionCode string, at time.Time) (*domain.RegionalAgreement, error) {
	if s.agreement == nil {
		return nil, store.ErrAgreementNotFound
	}
	return s.agreement, nil
}

func (s *calculatorRepoStub) GetAttributionByCustomer(ctx context.Context, customerID string) (*domain.CustomerAttribution, error) {
	if s.attribution == nil {
		return nil, store.ErrAttributionNotFound
	}
	return s.attribution, nil
}

var testOrderDate = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dachAgreement() *domain.RegionalAgreement {
	return &domain.RegionalAgreement{
		ID:                "agr-1",
		PartnerID:         "partner-dach",
		PartnerName:       "DACH Distribution GmbH",
		RegionCodes:       []string{"DE", "AT", "CH"},
		RegionName:        "DACH",
		CommissionPercent: decimal.NewFromInt(30),
		AppliesTo:         domain.ScopePlatformProducts,
		ValidFrom:         testOrderDate.AddDate(-1, 0, 0),
		Status:            domain.AgreementActive,
	}
}

func activeAttribution(partnerID string) *domain.CustomerAttribution {
	return &domain.CustomerAttribution{
		ID:                  "att-1",
		CustomerID:          "cust-1",
		AttributedPartnerID: partnerID,
		AttributedAt:        testOrderDate.AddDate(-1, 0, 0),
		ExpiresAt:           testOrderDate.AddDate(2, 0, 0),
	}
}

func platformOrder(net int64) domain.Order {
	return domain.Order{
		OrderID:                "order-1",
		OrderDate:              testOrderDate,
		NetAmount:              decimal.NewFromInt(net),
		IsPlatformProduct:      true,
		CustomerID:             "cust-1",
		CustomerBillingCountry: "DE",
	}
}

func amountByType(t *testing.T, result *domain.CalculationResult, lineType domain.CommissionType) decimal.Decimal {
	t.Helper()
	for _, line := range result.Lines {
		if line.Type == lineType {
			return line.Amount
		}
	}
	t.Fatalf("expected a %s line, got %+v", lineType, result.Lines)
	return decimal.Zero
}

func TestCalculateCommissionsRegionalExclusive(t *testing.T) {
	repo := &calculatorRepoStub{agreement: dachAgreement()}
	calc := NewCalculator(repo, domain.DefaultRates())

	result, err := calc.CalculateCommissions(context.Background(), platformOrder(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(result.Lines))
	}

	got := amountByType(t, result, domain.CommissionRegionalExclusive)
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected regional amount 30, got %s", got)
	}
	if !result.NetForSeller.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected net for seller 70, got %s", result.NetForSeller)
	}
	if result.Lines[0].CustomerRegion != "DACH" {
		t.Fatalf("expected customer region DACH, got %q", result.Lines[0].CustomerRegion)
	}
}

func TestCalculateCommissionsRegionalSkips(t *testing.T) {
	tests := []struct {
		name  string
		setup func(repo *calculatorRepoStub, order *domain.Order)
	}{
		{
			name: "platform-products agreement ignores tenant sales",
			setup: func(repo *calculatorRepoStub, order *domain.Order) {
				order.IsPlatformProduct = false
			},
		},
		{
			name: "distributor buying for itself earns nothing",
			setup: func(repo *calculatorRepoStub, order *domain.Order) {
				order.CustomerID = repo.agreement.PartnerID
			},
		},
		{
			name: "no agreement for the billing country",
			setup: func(repo *calculatorRepoStub, order *domain.Order) {
				repo.agreement = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &calculatorRepoStub{agreement: dachAgreement()}
			order := platformOrder(100)
			tt.setup(repo, &order)

			calc := NewCalculator(repo, domain.DefaultRates())
			result, err := calc.CalculateCommissions(context.Background(), order)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, line := range result.Lines {
				if line.Type == domain.CommissionRegionalExclusive {
					t.Fatalf("expected no regional line, got %+v", line)
				}
			}
		})
	}
}

func TestCalculateCommissionsAllProductsAgreementCoversTenantSales(t *testing.T) {
	agreement := dachAgreement()
	agreement.AppliesTo = domain.ScopeAllProducts
	repo := &calculatorRepoStub{agreement: agreement}
	calc := NewCalculator(repo, domain.DefaultRates())

	order := platformOrder(100)
	order.IsPlatformProduct = false
	order.SellerPartnerID = "tenant-9"

	result, err := calc.CalculateCommissions(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := amountByType(t, result, domain.CommissionRegionalExclusive)
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected regional amount 30, got %s", got)
	}
}

func TestCalculateCommissionsAffiliateRates(t *testing.T) {
	firstPurchaseAt := testOrderDate.AddDate(0, -3, 0)

	tests := []struct {
		name            string
		firstPurchaseAt *time.Time
		wantType        domain.CommissionType
		wantAmount      string
	}{
		{
			name:            "first purchase pays 20 percent",
			firstPurchaseAt: nil,
			wantType:        domain.CommissionAffiliateFirst,
			wantAmount:      "20",
		},
		{
			name:            "recurring purchase pays 10 percent",
			firstPurchaseAt: &firstPurchaseAt,
			wantType:        domain.CommissionAffiliateRecurring,
			wantAmount:      "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attribution := activeAttribution("partner-aff")
			attribution.FirstPurchaseAt = tt.firstPurchaseAt
			repo := &calculatorRepoStub{attribution: attribution}

			calc := NewCalculator(repo, domain.DefaultRates())
			order := platformOrder(100)
			order.CustomerBillingCountry = "US"

			result, err := calc.CalculateCommissions(context.Background(), order)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Lines) != 1 {
				t.Fatalf("expected 1 line, got %d", len(result.Lines))
			}
			line := result.Lines[0]
			if line.Type != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, line.Type)
			}
			want, _ := decimal.NewFromString(tt.wantAmount)
			if !line.Amount.Equal(want) {
				t.Fatalf("expected amount %s, got %s", want, line.Amount)
			}
			if line.IsFirstPurchase != (tt.firstPurchaseAt == nil) {
				t.Fatalf("unexpected isFirstPurchase=%t", line.IsFirstPurchase)
			}
		})
	}
}

func TestCalculateCommissionsAttributionExpiryBoundary(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		wantLines int
	}{
		{
			name:      "expiring exactly on the order date still earns",
			expiresAt: testOrderDate,
			wantLines: 1,
		},
		{
			name:      "expired the instant before earns nothing",
			expiresAt: testOrderDate.Add(-time.Nanosecond),
			wantLines: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attribution := activeAttribution("partner-aff")
			attribution.ExpiresAt = tt.expiresAt
			repo := &calculatorRepoStub{attribution: attribution}

			calc := NewCalculator(repo, domain.DefaultRates())
			order := platformOrder(100)
			order.CustomerBillingCountry = "US"

			result, err := calc.CalculateCommissions(context.Background(), order)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Lines) != tt.wantLines {
				t.Fatalf("expected %d lines, got %d", tt.wantLines, len(result.Lines))
			}
		})
	}
}

func TestCalculateCommissionsCapSuppressesAffiliateLine(t *testing.T) {
	// Distributor is also the buyer's affiliate on a platform product: the
	// regional 30% already covers the referral, so no affiliate line and no
	// 50% combined payout.
	repo := &calculatorRepoStub{
		agreement:   dachAgreement(),
		attribution: activeAttribution("partner-dach"),
	}
	calc := NewCalculator(repo, domain.DefaultRates())

	result, err := calc.CalculateCommissions(context.Background(), platformOrder(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(result.Lines))
	}
	if result.Lines[0].Type != domain.CommissionRegionalExclusive {
		t.Fatalf("expected only the regional line, got %s", result.Lines[0].Type)
	}
	if !result.TotalCommissions.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total 30, got %s", result.TotalCommissions)
	}
}

func TestCalculateCommissionsCapNotAppliedForDifferentRecipients(t *testing.T) {
	repo := &calculatorRepoStub{
		agreement:   dachAgreement(),
		attribution: activeAttribution("partner-other"),
	}
	calc := NewCalculator(repo, domain.DefaultRates())

	result, err := calc.CalculateCommissions(context.Background(), platformOrder(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(result.Lines))
	}
	if !result.TotalCommissions.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", result.TotalCommissions)
	}
}

func TestCalculateCommissionsPlatformFee(t *testing.T) {
	repo := &calculatorRepoStub{}
	calc := NewCalculator(repo, domain.DefaultRates())

	order := platformOrder(100)
	order.IsPlatformProduct = false
	order.SellerPartnerID = "tenant-9"
	order.CustomerBillingCountry = "US"

	result, err := calc.CalculateCommissions(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(result.Lines))
	}
	line := result.Lines[0]
	if line.Type != domain.CommissionPlatformFee {
		t.Fatalf("expected platform fee, got %s", line.Type)
	}
	if line.RecipientID != "PLATFORM" {
		t.Fatalf("expected recipient PLATFORM, got %q", line.RecipientID)
	}
	if !line.Amount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected amount 2, got %s", line.Amount)
	}
}

func TestCalculateCommissionsNoLines(t *testing.T) {
	repo := &calculatorRepoStub{}
	calc := NewCalculator(repo, domain.DefaultRates())

	order := platformOrder(100)
	order.CustomerBillingCountry = "US"

	result, err := calc.CalculateCommissions(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(result.Lines))
	}
	if !result.NetForSeller.Equal(order.NetAmount) {
		t.Fatalf("expected full net to seller, got %s", result.NetForSeller)
	}
}

// Totals are sums of already-rounded line amounts, not a rounding of the raw
// total. With net 33.33 the three lines round individually (10.00, 3.33, 0.67)
// so the total can differ from round2(raw total) by up to 0.01 per line.
func TestCalculateCommissionsRoundsPerLineBeforeSumming(t *testing.T) {
	repo := &calculatorRepoStub{
		agreement:   dachAgreement(),
		attribution: activeAttribution("partner-other"),
	}
	attribution := repo.attribution
	prior := testOrderDate.AddDate(0, -1, 0)
	attribution.FirstPurchaseAt = &prior

	calc := NewCalculator(repo, domain.DefaultRates())
	order := platformOrder(0)
	order.NetAmount = decimal.RequireFromString("33.33")
	order.SellerPartnerID = "tenant-9"

	result, err := calc.CalculateCommissions(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantRegional := decimal.RequireFromString("10.00")  // 33.33 * 30%  = 9.999
	wantAffiliate := decimal.RequireFromString("3.33")  // 33.33 * 10%  = 3.333
	wantFee := decimal.RequireFromString("0.67")        // 33.33 * 2%   = 0.6666
	wantTotal := decimal.RequireFromString("14.00")

	if got := amountByType(t, result, domain.CommissionRegionalExclusive); !got.Equal(wantRegional) {
		t.Fatalf("expected regional %s, got %s", wantRegional, got)
	}
	if got := amountByType(t, result, domain.CommissionAffiliateRecurring); !got.Equal(wantAffiliate) {
		t.Fatalf("expected affiliate %s, got %s", wantAffiliate, got)
	}
	if got := amountByType(t, result, domain.CommissionPlatformFee); !got.Equal(wantFee) {
		t.Fatalf("expected fee %s, got %s", wantFee, got)
	}
	if !result.TotalCommissions.Equal(wantTotal) {
		t.Fatalf("expected total %s, got %s", wantTotal, result.TotalCommissions)
	}

	sum := decimal.Zero
	for _, line := range result.Lines {
		sum = sum.Add(line.Amount)
	}
	if !sum.Add(result.NetForSeller).Equal(order.NetAmount) {
		t.Fatalf("lines plus net %s do not reconstruct order net %s",
			sum.Add(result.NetForSeller), order.NetAmount)
	}
}
