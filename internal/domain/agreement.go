/**
 * @description
 * Regional exclusivity agreements: one partner holds the commission rights for
 * a set of billing regions during a validity window.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgreementStatus is the administrative lifecycle state of an agreement.
type AgreementStatus string

const (
	AgreementPending    AgreementStatus = "PENDING"
	AgreementActive     AgreementStatus = "ACTIVE"
	AgreementSuspended  AgreementStatus = "SUSPENDED"
	AgreementTerminated AgreementStatus = "TERMINATED"
)

// AgreementScope limits which product sales an agreement covers.
type AgreementScope string

const (
	ScopePlatformProducts AgreementScope = "PLATFORM_PRODUCTS"
	ScopeAllProducts      AgreementScope = "ALL_PRODUCTS"
)

// RegionalAgreement maps ISO region codes to an exclusive distributor and its
// commission rate. At most one PENDING or ACTIVE agreement may cover a given
// region code; this is enforced at creation time, not by storage.
type RegionalAgreement struct {
	ID                string          `json:"id"`
	PartnerID         string          `json:"partner_id"`
	PartnerName       string          `json:"partner_name"`
	PartnerSlug       *string         `json:"partner_slug,omitempty"`
	RegionCodes       []string        `json:"region_codes"` // ISO 3166-1 Alpha-2
	RegionName        string          `json:"region_name"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	AppliesTo         AgreementScope  `json:"applies_to"`
	ValidFrom         time.Time       `json:"valid_from"`
	ValidUntil        *time.Time      `json:"valid_until,omitempty"`
	Status            AgreementStatus `json:"status"`
	ContractSignedAt  *time.Time      `json:"contract_signed_at,omitempty"`
	ContractSignedBy  *string         `json:"contract_signed_by,omitempty"`
	ContractVersion   *string         `json:"contract_version,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CoversDate reports whether the agreement's validity window contains the
// given date. A nil ValidUntil means open-ended.
func (a *RegionalAgreement) CoversDate(date time.Time) bool {
	if a.ValidFrom.After(date) {
		return false
	}
	if a.ValidUntil != nil && a.ValidUntil.Before(date) {
		return false
	}
	return true
}
