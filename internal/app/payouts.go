/**
 * @description
 * Payout batching and settlement: collects approved commissions over the
 * minimum threshold into payouts and drives them through the transfer
 * lifecycle. A failed transfer releases its commissions for re-batching; that
 * is the sole retry path.
 */
package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mojoplatform/settlement-service/internal/domain"
	"github.com/mojoplatform/settlement-service/internal/store"
)

// TransferClient initiates external money transfers and returns an opaque
// provider reference. Completion or failure is reported asynchronously via a
// later CompletePayout/FailPayout call.
type TransferClient interface {
	InitiateTransfer(ctx context.Context, amount decimal.Decimal, currency, destinationAccount, reference string) (string, error)
}

// PayoutService batches approved commissions into payouts and settles them.
type PayoutService struct {
	repo      store.Repository
	transfers TransferClient
	publisher EventPublisher
	auditor   *Auditor
	rates     domain.Rates
}

// NewPayoutService creates the payout service.
func NewPayoutService(repo store.Repository, transfers TransferClient, publisher EventPublisher, auditor *Auditor, rates domain.Rates) PayoutService {
	return PayoutService{repo: repo, transfers: transfers, publisher: publisher, auditor: auditor, rates: rates}
}

// CreatePayout batches every approved, unlinked commission for the recipient
// into a new PENDING payout. Fails with ErrNoEligibleCommissions when there is
// nothing to batch and ErrBelowMinimumPayout when the sum is under the
// threshold. Linking is atomic: a concurrent creation for the same recipient
// cannot claim the same commission twice.
func (s PayoutService) CreatePayout(ctx context.Context, recipientID, destinationAccount string) (*domain.Payout, error) {
	commissions, err := s.repo.ListPayableCommissions(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if len(commissions) == 0 {
		return nil, ErrNoEligibleCommissions
	}

	total := sumAmounts(commissions)
	if total.LessThan(s.rates.MinimumPayout) {
		return nil, ErrBelowMinimumPayout
	}

	periodStart, periodEnd := orderDateRange(commissions)
	ids := make([]string, len(commissions))
	for i, c := range commissions {
		ids[i] = c.ID
	}

	payout := &domain.Payout{
		ID:                 uuid.NewString(),
		RecipientID:        recipientID,
		RecipientName:      commissions[0].RecipientName,
		DestinationAccount: destinationAccount,
		TotalAmount:        total,
		Currency:           s.rates.Currency,
		CommissionCount:    len(commissions),
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		Status:             domain.PayoutPending,
	}

	if err := s.repo.CreatePayoutWithCommissions(ctx, payout, ids); err != nil {
		if errors.Is(err, store.ErrCommissionsClaimed) {
			return nil, ErrNoEligibleCommissions
		}
		return nil, err
	}

	s.auditor.Record(ctx, "payout.create", "payout", payout.ID, "", nil, payout,
		map[string]any{"recipient_id": recipientID, "commission_count": len(ids)})
	publishEvent(ctx, s.publisher, "payout.created", "payout", payout.ID, payout)

	return payout, nil
}

// ProcessPayout initiates the external transfer for a PENDING payout and moves
// it to PROCESSING. Any other status fails with ErrInvalidPayoutStatus.
func (s PayoutService) ProcessPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	payout, err := s.repo.GetPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutPending {
		return nil, ErrInvalidPayoutStatus
	}

	transferRef, err := s.transfers.InitiateTransfer(ctx, payout.TotalAmount, payout.Currency, payout.DestinationAccount, payout.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkPayoutProcessing(ctx, payoutID, transferRef, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrPayoutStatusConflict) {
			return nil, ErrInvalidPayoutStatus
		}
		return nil, err
	}

	s.auditor.Record(ctx, "payout.process", "payout", payoutID, "", payout, updated, nil)
	publishEvent(ctx, s.publisher, "payout.processing", "payout", payoutID,
		map[string]any{"transfer_ref": transferRef})

	return updated, nil
}

// CompletePayout settles a PROCESSING payout: payout → COMPLETED and every
// linked commission → PAID, atomically.
func (s PayoutService) CompletePayout(ctx context.Context, payoutID string, transferRef *string) (*domain.Payout, error) {
	updated, err := s.repo.CompletePayoutAndCommissions(ctx, payoutID, transferRef, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrPayoutStatusConflict) {
			return nil, ErrInvalidPayoutStatus
		}
		return nil, err
	}

	s.auditor.Record(ctx, "payout.complete", "payout", payoutID, "", nil, updated, nil)
	publishEvent(ctx, s.publisher, "payout.completed", "payout", payoutID, updated)

	return updated, nil
}

// FailPayout marks the payout FAILED and releases its commissions back to
// APPROVED so a later CreatePayout can re-batch them.
func (s PayoutService) FailPayout(ctx context.Context, payoutID, reason string) (*domain.Payout, error) {
	updated, err := s.repo.FailPayoutAndReleaseCommissions(ctx, payoutID, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, "payout.fail", "payout", payoutID, "", nil, updated,
		map[string]any{"reason": reason})
	publishEvent(ctx, s.publisher, "payout.failed", "payout", payoutID,
		map[string]any{"reason": reason})

	return updated, nil
}

// GetPayout returns a single payout.
func (s PayoutService) GetPayout(ctx context.Context, payoutID string) (*domain.Payout, error) {
	return s.repo.GetPayoutByID(ctx, payoutID)
}

// ListPayouts returns payouts matching the filter.
func (s PayoutService) ListPayouts(ctx context.Context, filter store.PayoutFilter) ([]domain.Payout, error) {
	return s.repo.ListPayouts(ctx, filter)
}

// ListEligibleRecipients returns every recipient whose approved, unlinked
// commissions meet the minimum payout threshold.
func (s PayoutService) ListEligibleRecipients(ctx context.Context) ([]domain.EligibleRecipient, error) {
	return s.repo.ListEligibleRecipients(ctx, s.rates.MinimumPayout)
}

// GetStats aggregates payout totals, optionally scoped to one recipient.
func (s PayoutService) GetStats(ctx context.Context, recipientID string) (*domain.PayoutStats, error) {
	return s.repo.GetPayoutStats(ctx, recipientID)
}

// orderDateRange returns the earliest and latest order dates in the batch.
func orderDateRange(commissions []domain.Commission) (time.Time, time.Time) {
	start, end := commissions[0].OrderDate, commissions[0].OrderDate
	for _, c := range commissions[1:] {
		if c.OrderDate.Before(start) {
			start = c.OrderDate
		}
		if c.OrderDate.After(end) {
			end = c.OrderDate
		}
	}
	return start, end
}
