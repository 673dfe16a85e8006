/**
 * @description
 * Core domain models for commission computation and the commission ledger.
 *
 * @notes
 * - Monetary amounts use shopspring/decimal. Every per-item amount is rounded
 *   to 2 decimal places (half away from zero) before totals are summed, so a
 *   total can differ from a single-shot rounding by at most 0.01 per item.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionType identifies why a commission line item exists.
type CommissionType string

const (
	CommissionRegionalExclusive  CommissionType = "REGIONAL_EXCLUSIVE"
	CommissionAffiliateFirst     CommissionType = "AFFILIATE_FIRST"
	CommissionAffiliateRecurring CommissionType = "AFFILIATE_RECURRING"
	CommissionPlatformFee        CommissionType = "PLATFORM_FEE"
)

// CommissionStatus is the lifecycle state of a ledger line item.
type CommissionStatus string

const (
	CommissionPending  CommissionStatus = "PENDING"
	CommissionApproved CommissionStatus = "APPROVED"
	CommissionRefunded CommissionStatus = "REFUNDED"
	CommissionPaid     CommissionStatus = "PAID"
)

// Order is the input to the commission calculator. Orders themselves are not
// persisted by this service; the relevant context is denormalized onto each
// commission row.
type Order struct {
	OrderID                string          `json:"order_id"`
	OrderDate              time.Time       `json:"order_date"`
	NetAmount              decimal.Decimal `json:"net_amount"`
	ProductID              string          `json:"product_id,omitempty"`
	ProductName            string          `json:"product_name,omitempty"`
	IsPlatformProduct      bool            `json:"is_platform_product"`
	SellerPartnerID        string          `json:"seller_partner_id,omitempty"`
	SellerPartnerName      string          `json:"seller_partner_name,omitempty"`
	CustomerID             string          `json:"customer_id"`
	CustomerBillingCountry string          `json:"customer_billing_country"` // ISO 3166-1 Alpha-2
}

// CommissionLine is one computed split before persistence.
type CommissionLine struct {
	Type            CommissionType  `json:"type"`
	RecipientID     string          `json:"recipient_id"`
	RecipientName   string          `json:"recipient_name,omitempty"`
	Percent         decimal.Decimal `json:"percent"`
	Amount          decimal.Decimal `json:"amount"`
	IsFirstPurchase bool            `json:"is_first_purchase,omitempty"`
	CustomerRegion  string          `json:"customer_region,omitempty"`
}

// CalculationResult is the outcome of a pure commission calculation for one order.
type CalculationResult struct {
	OrderID          string           `json:"order_id"`
	Lines            []CommissionLine `json:"commissions"`
	TotalCommissions decimal.Decimal  `json:"total_commissions"`
	NetForSeller     decimal.Decimal  `json:"net_for_seller"`
}

// Commission is a persisted ledger line item. Maps to the `commissions` table.
type Commission struct {
	ID                string           `json:"id"`
	OrderID           string           `json:"order_id"`
	OrderDate         time.Time        `json:"order_date"`
	OrderAmount       decimal.Decimal  `json:"order_amount"`
	ProductID         *string          `json:"product_id,omitempty"`
	ProductName       *string          `json:"product_name,omitempty"`
	IsPlatformProduct bool             `json:"is_platform_product"`
	SellerPartnerID   *string          `json:"seller_partner_id,omitempty"`
	SellerPartnerName *string          `json:"seller_partner_name,omitempty"`
	RecipientID       string           `json:"recipient_id"`
	RecipientName     *string          `json:"recipient_name,omitempty"`
	Type              CommissionType   `json:"commission_type"`
	Percent           decimal.Decimal  `json:"commission_percent"`
	Amount            decimal.Decimal  `json:"commission_amount"`
	CustomerID        string           `json:"customer_id"`
	CustomerRegion    *string          `json:"customer_region,omitempty"`
	IsFirstPurchase   bool             `json:"is_first_purchase"`
	Status            CommissionStatus `json:"status"`
	PayoutID          *string          `json:"payout_id,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	RefundedAt        *time.Time       `json:"refunded_at,omitempty"`
	RefundReason      *string          `json:"refund_reason,omitempty"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
