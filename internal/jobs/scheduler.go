/**
 * @description
 * Cron scheduler setup for the settlement service's scheduled jobs.
 */
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/mojoplatform/settlement-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.ApprovalSweepSchedule, s.jobs.ApproveHeldCommissions); err != nil {
		s.logger.Error("failed to schedule commission approval sweep", "error", err)
	} else {
		s.logger.Info("scheduled commission approval sweep", "schedule", s.config.ApprovalSweepSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.MonthlyPayoutSchedule, s.jobs.CreateMonthlyRegionalPayouts); err != nil {
		s.logger.Error("failed to schedule monthly regional payout job", "error", err)
	} else {
		s.logger.Info("scheduled monthly regional payout job", "schedule", s.config.MonthlyPayoutSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.PayoutReportSchedule, s.jobs.ReportEligibleRecipients); err != nil {
		s.logger.Error("failed to schedule eligible recipient report", "error", err)
	} else {
		s.logger.Info("scheduled eligible recipient report", "schedule", s.config.PayoutReportSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
