/**
 * @description
 * Rate configuration injected into the calculator and revenue tracker, so
 * environments and tests can override the commercial constants without code
 * changes.
 */

package domain

import "github.com/shopspring/decimal"

// Rates holds every commercial constant used by the settlement engine.
type Rates struct {
	AffiliateFirstPercent     decimal.Decimal // of order net, first purchase
	AffiliateRecurringPercent decimal.Decimal // of order net, repeat purchase
	PlatformFeePercent        decimal.Decimal // of order net, tenant sales
	RegionalPartnerSplit      decimal.Decimal // fraction of revenue to the partner
	TransactionFeePercent     decimal.Decimal // of transaction amount
	TransactionFeeFixed       decimal.Decimal // flat per-transaction fee
	MinimumPayout             decimal.Decimal // payout batch threshold
	HoldPeriodDays            int             // commission approval delay
	AttributionYears          int             // attribution validity window
	PlatformOperatorID        string
	PlatformOperatorName      string
	Currency                  string
}

// PlatformSplit is the platform's share of tracked revenue, the complement of
// the regional partner split.
func (r Rates) PlatformSplit() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(r.RegionalPartnerSplit)
}

// DefaultRates returns the production constants: 20%/10% affiliate, 2%
// platform fee, 30/70 regional split, 3.9%+0.50 transaction fee, 50 minimum
// payout, 30-day hold, 3-year attribution.
func DefaultRates() Rates {
	return Rates{
		AffiliateFirstPercent:     decimal.NewFromInt(20),
		AffiliateRecurringPercent: decimal.NewFromInt(10),
		PlatformFeePercent:        decimal.NewFromInt(2),
		RegionalPartnerSplit:      decimal.NewFromFloat(0.30),
		TransactionFeePercent:     decimal.NewFromFloat(3.9),
		TransactionFeeFixed:       decimal.NewFromFloat(0.50),
		MinimumPayout:             decimal.NewFromInt(50),
		HoldPeriodDays:            30,
		AttributionYears:          3,
		PlatformOperatorID:        "PLATFORM",
		PlatformOperatorName:      "Mojo Platform",
		Currency:                  "EUR",
	}
}
