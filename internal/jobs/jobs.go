/**
 * @description
 * Scheduled job implementations for the settlement service.
 */
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/mojoplatform/settlement-service/internal/domain"
)

// CommissionApprover releases commissions whose hold period has elapsed.
type CommissionApprover interface {
	ApproveEligibleCommissions(ctx context.Context, now time.Time) (int64, error)
}

// RegionalPayoutCreator rolls pending revenue records into monthly payouts.
type RegionalPayoutCreator interface {
	CreateMonthlyPayouts(ctx context.Context, period string) ([]domain.RegionalPayout, error)
}

// RecipientReporter lists recipients whose approved balance clears the
// minimum payout threshold.
type RecipientReporter interface {
	ListEligibleRecipients(ctx context.Context) ([]domain.EligibleRecipient, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	ledger  CommissionApprover
	revenue RegionalPayoutCreator
	payouts RecipientReporter
	logger  *slog.Logger
	now     func() time.Time
}

// NewJobs creates a new Jobs runner.
func NewJobs(ledger CommissionApprover, revenue RegionalPayoutCreator, payouts RecipientReporter, logger *slog.Logger) *Jobs {
	return &Jobs{
		ledger:  ledger,
		revenue: revenue,
		payouts: payouts,
		logger:  logger,
		now:     time.Now,
	}
}

// ApproveHeldCommissions moves PENDING commissions past the hold period to APPROVED.
func (j *Jobs) ApproveHeldCommissions() {
	j.logger.Info("starting commission approval sweep")
	ctx := context.Background()

	count, err := j.ledger.ApproveEligibleCommissions(ctx, j.now())
	if err != nil {
		j.logger.Error("failed to approve held commissions", "error", err)
		return
	}

	j.logger.Info("commission approval sweep finished", "approved", count)
}

// CreateMonthlyRegionalPayouts aggregates the previous month's revenue records
// into one payout per active regional partner.
func (j *Jobs) CreateMonthlyRegionalPayouts() {
	period := domain.PayoutPeriodOf(j.now().AddDate(0, -1, 0))
	j.logger.Info("starting monthly regional payout job", "period", period)
	ctx := context.Background()

	payouts, err := j.revenue.CreateMonthlyPayouts(ctx, period)
	if err != nil {
		j.logger.Error("failed to create monthly regional payouts", "period", period, "error", err)
		return
	}

	if len(payouts) == 0 {
		j.logger.Info("no pending revenue records for period", "period", period)
		return
	}

	for _, payout := range payouts {
		j.logger.Info("created regional payout", "payout_id", payout.ID, "partner_id", payout.RegionalPartnerID, "total_provision", payout.TotalProvision.String())
	}

	j.logger.Info("monthly regional payout job finished", "period", period, "count", len(payouts))
}

// ReportEligibleRecipients logs recipients whose approved commission balance
// has cleared the minimum payout, so operators know who is due a payout run.
func (j *Jobs) ReportEligibleRecipients() {
	j.logger.Info("starting eligible recipient report")
	ctx := context.Background()

	recipients, err := j.payouts.ListEligibleRecipients(ctx)
	if err != nil {
		j.logger.Error("failed to list eligible recipients", "error", err)
		return
	}

	if len(recipients) == 0 {
		j.logger.Info("no recipients above minimum payout")
		return
	}

	for _, recipient := range recipients {
		j.logger.Info("recipient eligible for payout", "recipient_id", recipient.RecipientID, "amount", recipient.Amount.String(), "commissions", recipient.Count)
	}

	j.logger.Info("eligible recipient report finished", "count", len(recipients))
}
