/**
 * @description
 * Customer attribution: the first-click-wins binding of a customer to the
 * partner credited with acquiring them, valid for a fixed window.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttributionSource records how the attribution was established.
type AttributionSource string

const (
	SourceAffiliateCode AttributionSource = "AFFILIATE_CODE"
	SourceReferralLink  AttributionSource = "REFERRAL_LINK"
	SourceManual        AttributionSource = "MANUAL"
	SourceMigration     AttributionSource = "MIGRATION"
)

// CustomerAttribution is the single attribution row for a customer. Immutable
// once created except for the purchase tracking counters.
type CustomerAttribution struct {
	ID                   string            `json:"id"`
	CustomerID           string            `json:"customer_id"`
	CustomerEmail        *string           `json:"customer_email,omitempty"`
	AttributedPartnerID  string            `json:"attributed_partner_id"`
	AttributedPartnerName *string          `json:"attributed_partner_name,omitempty"`
	Source               AttributionSource `json:"source"`
	SourceRef            *string           `json:"source_ref,omitempty"`
	AttributedAt         time.Time         `json:"attributed_at"`
	ExpiresAt            time.Time         `json:"expires_at"`
	FirstPurchaseAt      *time.Time        `json:"first_purchase_at,omitempty"`
	FirstPurchaseOrderID *string           `json:"first_purchase_order_id,omitempty"`
	TotalPurchases       int               `json:"total_purchases"`
	TotalRevenue         decimal.Decimal   `json:"total_revenue"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ActiveAt reports whether the attribution window still covers the given
// date. The expiry boundary is inclusive: an attribution expiring exactly at
// the order date is still honored.
func (a *CustomerAttribution) ActiveAt(date time.Time) bool {
	return !a.ExpiresAt.Before(date)
}

// AttributionStats summarizes attributions for a partner or the whole platform.
type AttributionStats struct {
	Total          int             `json:"total"`
	Active         int             `json:"active"`
	WithPurchase   int             `json:"with_purchase"`
	TotalPurchases int             `json:"total_purchases"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}
