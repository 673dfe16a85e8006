/**
 * @description
 * Payout models: threshold-batched commission payouts and their settlement
 * lifecycle.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the settlement lifecycle state of a payout batch.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutCompleted  PayoutStatus = "COMPLETED"
	PayoutFailed     PayoutStatus = "FAILED"
)

// Payout is a batch of approved commissions for one recipient. Maps to the
// `payouts` table. TotalAmount is always the sum of the linked commission
// amounts at creation time.
type Payout struct {
	ID                 string          `json:"id"`
	RecipientID        string          `json:"recipient_id"`
	RecipientName      *string         `json:"recipient_name,omitempty"`
	DestinationAccount string          `json:"destination_account"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Currency           string          `json:"currency"`
	CommissionCount    int             `json:"commission_count"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	Status             PayoutStatus    `json:"status"`
	TransferRef        *string         `json:"transfer_ref,omitempty"`
	FailureReason      *string         `json:"failure_reason,omitempty"`
	ProcessedAt        *time.Time      `json:"processed_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	FailedAt           *time.Time      `json:"failed_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// EligibleRecipient is a recipient whose approved, unlinked commissions meet
// the minimum payout threshold.
type EligibleRecipient struct {
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Count       int             `json:"count"`
}

// PayoutStats aggregates payouts by status for reporting.
type PayoutStats struct {
	TotalPaidOut decimal.Decimal     `json:"total_paid_out"`
	TotalPayouts int                 `json:"total_payouts"`
	ByStatus     []PayoutStatusCount `json:"by_status"`
}

// PayoutStatusCount is one row of the status breakdown.
type PayoutStatusCount struct {
	Status PayoutStatus    `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}
