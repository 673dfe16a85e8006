/**
 * @description
 * Regional revenue share tracker: splits membership and transaction revenue
 * with regional partners and aggregates the splits into monthly payouts.
 * Independent from the commission ledger.
 */
package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

// MembershipRevenueInput is one membership payment to split.
type MembershipRevenueInput struct {
	PaymentRef     string          `json:"payment_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaymentDate    time.Time       `json:"payment_date"`
	CustomerID     string          `json:"customer_id"`
	BillingCountry string          `json:"billing_country"`
}

// TransactionRevenueInput is one tenant transaction whose fee is split. The
// regional partner is supplied by the caller rather than resolved from a
// billing country.
type TransactionRevenueInput struct {
	PaymentRef        string          `json:"payment_ref"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaymentDate       time.Time       `json:"payment_date"`
	TenantID          string          `json:"tenant_id"`
	RegionalPartnerID string          `json:"regional_partner_id"`
	AgreementID       string          `json:"agreement_id,omitempty"`
}

// RevenueService tracks revenue splits and produces monthly regional payouts.
type RevenueService struct {
	repo      store.Repository
	publisher EventPublisher
	auditor   *Auditor
	rates     domain.Rates
}

// NewRevenueService creates the revenue tracker service.
func NewRevenueService(repo store.Repository, publisher EventPublisher, auditor *Auditor, rates domain.Rates) RevenueService {
	return RevenueService{repo: repo, publisher: publisher, auditor: auditor, rates: rates}
}

// TrackMembershipRevenue records a membership payment split against the
// active agreement covering the payer's billing country. The full amount is
// split between partner and platform.
func (s RevenueService) TrackMembershipRevenue(ctx context.Context, input MembershipRevenueInput) (*domain.RevenueRecord, error) {
	agreement, err := s.repo.FindActiveAgreementForRegion(ctx, input.BillingCountry, input.PaymentDate)
	if err != nil {
		if errors.Is(err, store.ErrAgreementNotFound) {
			return nil, ErrNoActiveAgreement
		}
		return nil, err
	}

	record := &domain.RevenueRecord{
		ID:                uuid.NewString(),
		Type:              domain.RevenueMembership,
		Amount:            input.Amount,
		Currency:          input.Currency,
		PaymentRef:        input.PaymentRef,
		PaymentDate:       input.PaymentDate,
		PartnerProvision:  input.Amount.Mul(s.rates.RegionalPartnerSplit).Round(2),
		PlatformAmount:    input.Amount.Mul(s.rates.PlatformSplit()).Round(2),
		RegionalPartnerID: agreement.PartnerID,
		AgreementID:       &agreement.ID,
		PayoutPeriod:      domain.PayoutPeriodOf(input.PaymentDate),
		PayoutStatus:      domain.RevenuePending,
	}
	if input.CustomerID != "" {
		record.CustomerID = &input.CustomerID
	}

	if err := s.repo.CreateRevenueRecord(ctx, record); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "revenue.track_membership", "revenue_record", record.ID, "", nil, record, nil)
	publishEvent(ctx, s.publisher, "revenue.membership", "revenue_record", record.ID, record)

	return record, nil
}

// TrackTransactionRevenue records a transaction fee split. The fee is
// amount × percent + fixed; only the fee is split, not the full amount.
func (s RevenueService) TrackTransactionRevenue(ctx context.Context, input TransactionRevenueInput) (*domain.RevenueRecord, error) {
	fee := s.TransactionFee(input.Amount)

	record := &domain.RevenueRecord{
		ID:                uuid.NewString(),
		Type:              domain.RevenueTransaction,
		Amount:            input.Amount,
		Currency:          input.Currency,
		PaymentRef:        input.PaymentRef,
		PaymentDate:       input.PaymentDate,
		PartnerProvision:  fee.Mul(s.rates.RegionalPartnerSplit).Round(2),
		PlatformAmount:    fee.Mul(s.rates.PlatformSplit()).Round(2),
		TransactionFee:    &fee,
		RegionalPartnerID: input.RegionalPartnerID,
		PayoutPeriod:      domain.PayoutPeriodOf(input.PaymentDate),
		PayoutStatus:      domain.RevenuePending,
	}
	if input.TenantID != "" {
		record.TenantID = &input.TenantID
	}
	if input.AgreementID != "" {
		record.AgreementID = &input.AgreementID
	}

	if err := s.repo.CreateRevenueRecord(ctx, record); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "revenue.track_transaction", "revenue_record", record.ID, "", nil, record, nil)
	publishEvent(ctx, s.publisher, "revenue.transaction", "revenue_record", record.ID, record)

	return record, nil
}

// TransactionFee computes the processing fee for a transaction amount.
func (s RevenueService) TransactionFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.rates.TransactionFeePercent).Div(oneHundred).
		Add(s.rates.TransactionFeeFixed).
		Round(2)
}

// CreateMonthlyPayouts aggregates all PENDING revenue records for the period
// into one payout per active regional partner, skipping partners with no
// records. Returns the created payouts.
func (s RevenueService) CreateMonthlyPayouts(ctx context.Context, period string) ([]domain.RegionalPayout, error) {
	agreements, err := s.repo.ListActiveAgreements(ctx)
	if err != nil {
		return nil, err
	}

	var payouts []domain.RegionalPayout
	for _, agreement := range agreements {
		records, err := s.repo.ListPendingRevenueRecords(ctx, agreement.PartnerID, period)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}

		payout := aggregateRegionalPayout(agreement, period, records)
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}

		if err := s.repo.CreateRegionalPayoutWithRecords(ctx, &payout, ids); err != nil {
			return nil, err
		}

		s.auditor.Record(ctx, "revenue.create_monthly_payout", "regional_payout", payout.ID, "", nil, payout,
			map[string]any{"period": period, "record_count": len(ids)})
		publishEvent(ctx, s.publisher, "regional_payout.created", "regional_payout", payout.ID, payout)

		payouts = append(payouts, payout)
	}

	return payouts, nil
}

// MarkPayoutAsPaid is the terminal step for a regional payout: the payout and
// every linked record move to PAID with the payment reference.
func (s RevenueService) MarkPayoutAsPaid(ctx context.Context, payoutID, paymentRef string) (*domain.RegionalPayout, error) {
	paidAt := time.Now().UTC()
	if err := s.repo.MarkRegionalPayoutPaid(ctx, payoutID, paymentRef, paidAt); err != nil {
		return nil, err
	}

	payout, err := s.repo.GetRegionalPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "revenue.mark_payout_paid", "regional_payout", payoutID, "", nil, payout,
		map[string]any{"payment_ref": paymentRef})
	publishEvent(ctx, s.publisher, "regional_payout.paid", "regional_payout", payoutID, payout)

	return payout, nil
}

// GetRegionalPayout returns a single regional payout.
func (s RevenueService) GetRegionalPayout(ctx context.Context, payoutID string) (*domain.RegionalPayout, error) {
	return s.repo.GetRegionalPayoutByID(ctx, payoutID)
}

// ListRegionalPayouts returns regional payouts matching the filter.
func (s RevenueService) ListRegionalPayouts(ctx context.Context, filter store.RegionalPayoutFilter) ([]domain.RegionalPayout, error) {
	return s.repo.ListRegionalPayouts(ctx, filter)
}

func aggregateRegionalPayout(agreement domain.RegionalAgreement, period string, records []domain.RevenueRecord) domain.RegionalPayout {
	payout := domain.RegionalPayout{
		ID:                   uuid.NewString(),
		RegionalPartnerID:    agreement.PartnerID,
		RegionalPartnerName:  agreement.PartnerName,
		PayoutPeriod:         period,
		RevenueCount:         len(records),
		TotalRevenue:         decimal.Zero,
		TotalProvision:       decimal.Zero,
		MembershipProvision:  decimal.Zero,
		TransactionProvision: decimal.Zero,
		Status:               domain.RegionalPayoutPending,
	}

	for _, r := range records {
		payout.TotalRevenue = payout.TotalRevenue.Add(r.Amount)
		payout.TotalProvision = payout.TotalProvision.Add(r.PartnerProvision)
		switch r.Type {
		case domain.RevenueMembership:
			payout.MembershipProvision = payout.MembershipProvision.Add(r.PartnerProvision)
			payout.MembershipCount++
		case domain.RevenueTransaction:
			payout.TransactionProvision = payout.TransactionProvision.Add(r.PartnerProvision)
			payout.TransactionCount++
		}
	}

	payout.TotalRevenue = payout.TotalRevenue.Round(2)
	payout.TotalProvision = payout.TotalProvision.Round(2)
	payout.MembershipProvision = payout.MembershipProvision.Round(2)
	payout.TransactionProvision = payout.TransactionProvision.Round(2)
	return payout
}
