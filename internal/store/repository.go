/**
 * @description
 * Data access contract for the settlement service. The Repository interface is
 * what the application services depend on; PostgresRepository implements it.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
)

var (
	ErrAgreementNotFound      = errors.New("regional agreement not found")
	ErrAttributionNotFound    = errors.New("customer attribution not found")
	ErrPayoutNotFound         = errors.New("payout not found")
	ErrRegionalPayoutNotFound = errors.New("regional payout not found")
	// ErrCommissionsClaimed signals that another payout claimed some of the
	// commissions between selection and linking.
	ErrCommissionsClaimed = errors.New("commissions already claimed by another payout")
	// ErrPayoutStatusConflict signals a conditional status transition matched
	// no row, i.e. the payout moved concurrently.
	ErrPayoutStatusConflict = errors.New("payout status changed concurrently")
)

// CommissionFilter narrows commission list queries.
type CommissionFilter struct {
	RecipientID string
	OrderID     string
	Status      domain.CommissionStatus
	Limit       int
	Offset      int
}

// AttributionFilter narrows attribution list queries.
type AttributionFilter struct {
	PartnerID   string
	ActiveOnly  bool
	ExpiredOnly bool
	Now         time.Time
	Limit       int
	Offset      int
}

// AgreementFilter narrows agreement list queries.
type AgreementFilter struct {
	Status     domain.AgreementStatus
	RegionCode string
}

// PayoutFilter narrows payout list queries.
type PayoutFilter struct {
	RecipientID string
	Status      domain.PayoutStatus
	Limit       int
	Offset      int
}

// RegionalPayoutFilter narrows regional payout list queries.
type RegionalPayoutFilter struct {
	PartnerID string
	Period    string
	Status    domain.RegionalPayoutStatus
}

// UpdateAgreementParams carries the optional agreement mutations. Nil fields
// are left unchanged; ClearValidUntil resets the window to open-ended.
type UpdateAgreementParams struct {
	CommissionPercent *decimal.Decimal
	ValidUntil        *time.Time
	ClearValidUntil   bool
	Status            *domain.AgreementStatus
	Notes             *string
}

// AuditLogParams is one best-effort audit entry.
type AuditLogParams struct {
	Action     string
	Resource   string
	ResourceID string
	ActorID    string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
}

// Repository defines the database operations used by the settlement services.
type Repository interface {
	// Commission ledger
	CommissionsExistForOrder(ctx context.Context, orderID string) (bool, error)
	CreateCommissions(ctx context.Context, commissions []domain.Commission) error
	ListCommissions(ctx context.Context, filter CommissionFilter) ([]domain.Commission, error)
	RefundCommissionsByOrder(ctx context.Context, orderID, reason string, at time.Time) (int64, error)
	ApproveCommissionsBefore(ctx context.Context, cutoff, at time.Time) (int64, error)

	// Customer attributions
	GetAttributionByCustomer(ctx context.Context, customerID string) (*domain.CustomerAttribution, error)
	CreateAttribution(ctx context.Context, attribution *domain.CustomerAttribution) error
	RecordAttributionPurchase(ctx context.Context, customerID, orderID string, amount decimal.Decimal, firstPurchase bool, at time.Time) (*domain.CustomerAttribution, error)
	DeleteAttribution(ctx context.Context, customerID string) error
	ListAttributions(ctx context.Context, filter AttributionFilter) ([]domain.CustomerAttribution, error)
	GetAttributionStats(ctx context.Context, partnerID string, now time.Time) (*domain.AttributionStats, error)

	// Regional agreements
	FindActiveAgreementForRegion(ctx context.Context, regionCode string, at time.Time) (*domain.RegionalAgreement, error)
	FindAgreementOverlap(ctx context.Context, regionCodes []string) (*domain.RegionalAgreement, error)
	CreateAgreement(ctx context.Context, agreement *domain.RegionalAgreement) error
	GetAgreementByID(ctx context.Context, id string) (*domain.RegionalAgreement, error)
	ListAgreements(ctx context.Context, filter AgreementFilter) ([]domain.RegionalAgreement, error)
	ListActiveAgreements(ctx context.Context) ([]domain.RegionalAgreement, error)
	UpdateAgreement(ctx context.Context, id string, params UpdateAgreementParams) (*domain.RegionalAgreement, error)
	SignAgreementContract(ctx context.Context, id, signedBy, version string, at time.Time) (*domain.RegionalAgreement, error)

	// Payouts
	ListPayableCommissions(ctx context.Context, recipientID string) ([]domain.Commission, error)
	CreatePayoutWithCommissions(ctx context.Context, payout *domain.Payout, commissionIDs []string) error
	GetPayoutByID(ctx context.Context, id string) (*domain.Payout, error)
	ListPayouts(ctx context.Context, filter PayoutFilter) ([]domain.Payout, error)
	MarkPayoutProcessing(ctx context.Context, id, transferRef string, at time.Time) (*domain.Payout, error)
	CompletePayoutAndCommissions(ctx context.Context, id string, transferRef *string, at time.Time) (*domain.Payout, error)
	FailPayoutAndReleaseCommissions(ctx context.Context, id, reason string, at time.Time) (*domain.Payout, error)
	ListEligibleRecipients(ctx context.Context, minimum decimal.Decimal) ([]domain.EligibleRecipient, error)
	GetPayoutStats(ctx context.Context, recipientID string) (*domain.PayoutStats, error)

	// Regional revenue share
	CreateRevenueRecord(ctx context.Context, record *domain.RevenueRecord) error
	ListPendingRevenueRecords(ctx context.Context, partnerID, period string) ([]domain.RevenueRecord, error)
	CreateRegionalPayoutWithRecords(ctx context.Context, payout *domain.RegionalPayout, recordIDs []string) error
	GetRegionalPayoutByID(ctx context.Context, id string) (*domain.RegionalPayout, error)
	ListRegionalPayouts(ctx context.Context, filter RegionalPayoutFilter) ([]domain.RegionalPayout, error)
	MarkRegionalPayoutPaid(ctx context.Context, id, paymentRef string, paidAt time.Time) error

	// Audit
	InsertAuditLog(ctx context.Context, entry AuditLogParams) error
}
