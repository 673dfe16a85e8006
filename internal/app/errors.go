package app

import "errors"

// Service-level failures mapped to HTTP statuses at the API boundary.
var (
	ErrDuplicateOrder        = errors.New("commissions already exist for this order")
	ErrNoEligibleCommissions = errors.New("no eligible commissions for payout")
	ErrBelowMinimumPayout    = errors.New("eligible amount is below the minimum payout threshold")
	ErrInvalidPayoutStatus   = errors.New("payout is not in a valid status for this operation")
	ErrNoActiveAgreement     = errors.New("no active regional agreement covers this region")
	ErrRegionConflict        = errors.New("an agreement already covers one of these regions")
	ErrAlreadyAttributed     = errors.New("customer is already attributed to a partner")
	ErrContractAlreadySigned = errors.New("agreement contract has already been signed")
	ErrNoPendingRevenue      = errors.New("no pending revenue records for this period")
	ErrRateLimited           = errors.New("rate limit exceeded")
)
