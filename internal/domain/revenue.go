/**
 * @description
 * Regional revenue share models: recurring membership and per-transaction fee
 * revenue split with regional partners, aggregated into monthly payouts.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueType distinguishes the two tracked revenue streams.
type RevenueType string

const (
	RevenueMembership  RevenueType = "MEMBERSHIP"
	RevenueTransaction RevenueType = "TRANSACTION"
)

// RevenuePayoutStatus is the payout state of a single revenue record.
type RevenuePayoutStatus string

const (
	RevenuePending  RevenuePayoutStatus = "PENDING"
	RevenueApproved RevenuePayoutStatus = "APPROVED"
	RevenuePaid     RevenuePayoutStatus = "PAID"
)

// RegionalPayoutStatus is the state of a monthly regional payout batch.
type RegionalPayoutStatus string

const (
	RegionalPayoutPending RegionalPayoutStatus = "PENDING"
	RegionalPayoutPaid    RegionalPayoutStatus = "PAID"
)

// RevenueRecord is one tracked payment split between a regional partner and
// the platform. Maps to the `revenue_records` table. For TRANSACTION records
// the split applies to the computed transaction fee, not the full amount.
type RevenueRecord struct {
	ID                string              `json:"id"`
	Type              RevenueType         `json:"type"`
	Amount            decimal.Decimal     `json:"amount"`
	Currency          string              `json:"currency"`
	PaymentRef        string              `json:"payment_ref"`
	PaymentDate       time.Time           `json:"payment_date"`
	PartnerProvision  decimal.Decimal     `json:"partner_provision"`
	PlatformAmount    decimal.Decimal     `json:"platform_amount"`
	TransactionFee    *decimal.Decimal    `json:"transaction_fee,omitempty"`
	RegionalPartnerID string              `json:"regional_partner_id"`
	AgreementID       *string             `json:"agreement_id,omitempty"`
	CustomerID        *string             `json:"customer_id,omitempty"`
	TenantID          *string             `json:"tenant_id,omitempty"`
	PayoutPeriod      string              `json:"payout_period"` // YYYY-MM
	PayoutStatus      RevenuePayoutStatus `json:"payout_status"`
	PayoutID          *string             `json:"payout_id,omitempty"`
	PayoutDate        *time.Time          `json:"payout_date,omitempty"`
	PayoutRef         *string             `json:"payout_ref,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// RegionalPayout is the monthly aggregate owed to one regional partner.
// Period-keyed, unlike the threshold-keyed commission Payout.
type RegionalPayout struct {
	ID                   string               `json:"id"`
	RegionalPartnerID    string               `json:"regional_partner_id"`
	RegionalPartnerName  string               `json:"regional_partner_name"`
	PayoutPeriod         string               `json:"payout_period"`
	TotalRevenue         decimal.Decimal      `json:"total_revenue"`
	TotalProvision       decimal.Decimal      `json:"total_provision"`
	RevenueCount         int                  `json:"revenue_count"`
	MembershipProvision  decimal.Decimal      `json:"membership_provision"`
	TransactionProvision decimal.Decimal      `json:"transaction_provision"`
	MembershipCount      int                  `json:"membership_count"`
	TransactionCount     int                  `json:"transaction_count"`
	Status               RegionalPayoutStatus `json:"status"`
	PaidAt               *time.Time           `json:"paid_at,omitempty"`
	PaymentRef           *string              `json:"payment_ref,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
}

// PayoutPeriodOf formats a payment date as a YYYY-MM payout period key.
func PayoutPeriodOf(date time.Time) string {
	return date.Format("2006-01")
}
