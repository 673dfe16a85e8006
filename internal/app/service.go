/**
 * @description
 * Commission ledger: order processing, refund reversal, and the hold-period
 * approval sweep.
 */
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

// LedgerService records computed commissions as durable financial facts and
// drives their PENDING → APPROVED → REFUNDED transitions.
type LedgerService struct {
	repo      store.Repository
	calc      *Calculator
	publisher EventPublisher
	auditor   *Auditor
	rates     domain.Rates
}

// NewLedgerService creates the commission ledger service.
func NewLedgerService(repo store.Repository, calc *Calculator, publisher EventPublisher, auditor *Auditor, rates domain.Rates) LedgerService {
	return LedgerService{repo: repo, calc: calc, publisher: publisher, auditor: auditor, rates: rates}
}

// Preview computes the commission split for an order without persisting
// anything.
func (s LedgerService) Preview(ctx context.Context, order domain.Order) (*domain.CalculationResult, error) {
	return s.calc.CalculateCommissions(ctx, order)
}

// ProcessOrder computes and persists commissions for an order. Processing the
// same order twice fails with ErrDuplicateOrder rather than double-booking.
func (s LedgerService) ProcessOrder(ctx context.Context, order domain.Order) (*domain.CalculationResult, error) {
	exists, err := s.repo.CommissionsExistForOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateOrder
	}

	result, err := s.calc.CalculateCommissions(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(result.Lines) == 0 {
		return result, nil
	}

	commissions := make([]domain.Commission, 0, len(result.Lines))
	for _, line := range result.Lines {
		commissions = append(commissions, commissionFromLine(order, line))
	}
	if err := s.repo.CreateCommissions(ctx, commissions); err != nil {
		return nil, err
	}

	// Attribution counters advance only when the affiliate actually earned on
	// this order; a capped or expired attribution leaves them untouched.
	if affiliate := findAffiliateLine(result.Lines); affiliate != nil {
		_, err := s.repo.RecordAttributionPurchase(ctx, order.CustomerID, order.OrderID, order.NetAmount, affiliate.IsFirstPurchase, order.OrderDate)
		if err != nil {
			return nil, err
		}
	}

	s.auditor.Record(ctx, "commission.process_order", "order", order.OrderID, "",
		nil, result, map[string]any{"line_count": len(result.Lines)})
	publishEvent(ctx, s.publisher, "commission.created", "order", order.OrderID, result)

	return result, nil
}

// RefundOrder reverses every PENDING or APPROVED commission for the order and
// returns how many were reversed. Commissions already PAID are left alone.
func (s LedgerService) RefundOrder(ctx context.Context, orderID, reason string) (int64, error) {
	count, err := s.repo.RefundCommissionsByOrder(ctx, orderID, reason, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	s.auditor.Record(ctx, "commission.refund", "order", orderID, "",
		nil, nil, map[string]any{"reason": reason, "refunded_count": count})
	publishEvent(ctx, s.publisher, "commission.refunded", "order", orderID,
		map[string]any{"reason": reason, "refunded_count": count})

	return count, nil
}

// ApproveEligibleCommissions approves every PENDING commission whose order
// date has cleared the hold period as of now. Idempotent; safe to rerun.
func (s LedgerService) ApproveEligibleCommissions(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -s.rates.HoldPeriodDays)
	count, err := s.repo.ApproveCommissionsBefore(ctx, cutoff, now)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		publishEvent(ctx, s.publisher, "commission.approved", "sweep", "",
			map[string]any{"approved_count": count, "cutoff": cutoff})
	}

	return count, nil
}

// ListCommissions returns ledger rows matching the filter.
func (s LedgerService) ListCommissions(ctx context.Context, filter store.CommissionFilter) ([]domain.Commission, error) {
	return s.repo.ListCommissions(ctx, filter)
}

func commissionFromLine(order domain.Order, line domain.CommissionLine) domain.Commission {
	c := domain.Commission{
		ID:                uuid.NewString(),
		OrderID:           order.OrderID,
		OrderDate:         order.OrderDate,
		OrderAmount:       order.NetAmount,
		IsPlatformProduct: order.IsPlatformProduct,
		RecipientID:       line.RecipientID,
		Type:              line.Type,
		Percent:           line.Percent,
		Amount:            line.Amount,
		CustomerID:        order.CustomerID,
		IsFirstPurchase:   line.IsFirstPurchase,
		Status:            domain.CommissionPending,
	}
	if order.ProductID != "" {
		c.ProductID = &order.ProductID
	}
	if order.ProductName != "" {
		c.ProductName = &order.ProductName
	}
	if order.SellerPartnerID != "" {
		c.SellerPartnerID = &order.SellerPartnerID
	}
	if order.SellerPartnerName != "" {
		c.SellerPartnerName = &order.SellerPartnerName
	}
	if line.RecipientName != "" {
		c.RecipientName = &line.RecipientName
	}
	if order.CustomerBillingCountry != "" {
		country := order.CustomerBillingCountry
		c.CustomerRegion = &country
	}
	return c
}

func findAffiliateLine(lines []domain.CommissionLine) *domain.CommissionLine {
	for i := range lines {
		if lines[i].Type == domain.CommissionAffiliateFirst || lines[i].Type == domain.CommissionAffiliateRecurring {
			return &lines[i]
		}
	}
	return nil
}

// sumAmounts totals the amount column of a commission batch.
func sumAmounts(commissions []domain.Commission) decimal.Decimal {
	total := decimal.Zero
	for _, c := range commissions {
		total = total.Add(c.Amount)
	}
	return total
}
