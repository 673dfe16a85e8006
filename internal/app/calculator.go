/**
 * @description
 * Pure commission calculation for one order. Resolves the regional agreement
 * and customer attribution as of the order date and produces the split line
 * items; it never writes anything.
 *
 * @notes
 * - Evaluation order is fixed: regional, then affiliate, then platform fee.
 *   The affiliate cap decision depends on the regional result, so the order
 *   matters.
 * - Each line amount is rounded to 2 decimals (half away from zero) before
 *   totals are summed.
 */
package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

var oneHundred = decimal.NewFromInt(100)

// Calculator computes commission splits from registry and attribution state.
// Rates are injected so tests and environments can override them.
type Calculator struct {
	repo  store.Repository
	rates domain.Rates
}

// NewCalculator creates a Calculator backed by the given repository.
func NewCalculator(repo store.Repository, rates domain.Rates) *Calculator {
	return &Calculator{repo: repo, rates: rates}
}

// CalculateCommissions computes all commission line items for an order.
func (c *Calculator) CalculateCommissions(ctx context.Context, order domain.Order) (*domain.CalculationResult, error) {
	var lines []domain.CommissionLine

	regional, err := c.regionalLine(ctx, order)
	if err != nil {
		return nil, err
	}
	if regional != nil {
		lines = append(lines, *regional)
	}

	affiliate, err := c.affiliateLine(ctx, order)
	if err != nil {
		return nil, err
	}
	if affiliate != nil {
		// Cap rule: when the regional distributor is also the buyer's
		// affiliate on a platform-product order, the regional percentage
		// already subsumes the affiliate share. Emitting both would
		// double-count.
		capped := regional != nil &&
			regional.RecipientID == affiliate.RecipientID &&
			order.IsPlatformProduct
		if !capped {
			lines = append(lines, *affiliate)
		}
	}

	if order.SellerPartnerID != "" {
		lines = append(lines, c.platformFeeLine(order))
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}

	return &domain.CalculationResult{
		OrderID:          order.OrderID,
		Lines:            lines,
		TotalCommissions: total,
		NetForSeller:     order.NetAmount.Sub(total),
	}, nil
}

// regionalLine emits the exclusive distributor's share, if an agreement covers
// the buyer's billing country at order time.
func (c *Calculator) regionalLine(ctx context.Context, order domain.Order) (*domain.CommissionLine, error) {
	agreement, err := c.repo.FindActiveAgreementForRegion(ctx, order.CustomerBillingCountry, order.OrderDate)
	if err != nil {
		if errors.Is(err, store.ErrAgreementNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// PLATFORM_PRODUCTS agreements cover platform-product sales only.
	if !order.IsPlatformProduct && agreement.AppliesTo != domain.ScopeAllProducts {
		return nil, nil
	}

	// The distributor buying for itself earns no commission; the agreement
	// rate acts as an effective discount instead.
	if agreement.PartnerID == order.CustomerID {
		return nil, nil
	}

	return &domain.CommissionLine{
		Type:           domain.CommissionRegionalExclusive,
		RecipientID:    agreement.PartnerID,
		RecipientName:  agreement.PartnerName,
		Percent:        agreement.CommissionPercent,
		Amount:         percentOf(order.NetAmount, agreement.CommissionPercent),
		CustomerRegion: agreement.RegionName,
	}, nil
}

// affiliateLine emits the attributed partner's share: first purchase at the
// higher rate, recurring at the lower one.
func (c *Calculator) affiliateLine(ctx context.Context, order domain.Order) (*domain.CommissionLine, error) {
	attribution, err := c.repo.GetAttributionByCustomer(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrAttributionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Expiry boundary is inclusive: an attribution expiring exactly on the
	// order date still earns.
	if !attribution.ActiveAt(order.OrderDate) {
		return nil, nil
	}

	firstPurchase := attribution.FirstPurchaseAt == nil

	lineType := domain.CommissionAffiliateRecurring
	percent := c.rates.AffiliateRecurringPercent
	if firstPurchase {
		lineType = domain.CommissionAffiliateFirst
		percent = c.rates.AffiliateFirstPercent
	}

	line := domain.CommissionLine{
		Type:            lineType,
		RecipientID:     attribution.AttributedPartnerID,
		Percent:         percent,
		Amount:          percentOf(order.NetAmount, percent),
		IsFirstPurchase: firstPurchase,
	}
	if attribution.AttributedPartnerName != nil {
		line.RecipientName = *attribution.AttributedPartnerName
	}
	return &line, nil
}

// platformFeeLine emits the operator's flat fee on tenant sales.
func (c *Calculator) platformFeeLine(order domain.Order) domain.CommissionLine {
	return domain.CommissionLine{
		Type:          domain.CommissionPlatformFee,
		RecipientID:   c.rates.PlatformOperatorID,
		RecipientName: c.rates.PlatformOperatorName,
		Percent:       c.rates.PlatformFeePercent,
		Amount:        percentOf(order.NetAmount, c.rates.PlatformFeePercent),
	}
}

// percentOf computes amount × percent / 100 rounded to 2 decimal places,
// half away from zero.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(oneHundred).Round(2)
}
