package jobs

import (
	"context"
	"errors"

	"care-inventory-backend/internal/logger"
)

// ErrChainBroken is reported when the event log fails verification.
var ErrChainBroken = errors.New("event chain verification failed")

// SweepOverdueLoans marks active loans past their expected end date as overdue
func (jr *JobRunner) SweepOverdueLoans() error {
	return jr.runWithRecovery("SweepOverdueLoans", func(ctx context.Context) error {
		n, err := jr.services.Loan.SweepOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Info("Marked loans as overdue", "count", n)
		return nil
	})
}

// VerifyEventLog walks the audit log hash chain and reports the first broken link
func (jr *JobRunner) VerifyEventLog() error {
	return jr.runWithRecovery("VerifyEventLog", func(ctx context.Context) error {
		report, err := jr.services.Event.VerifyChain(ctx)
		if err != nil {
			return err
		}
		if !report.Valid {
			logger.Error("Event log tampering detected",
				"broken_at", report.BrokenAt,
				"reason", report.Reason,
				"checked", report.Checked)
			return ErrChainBroken
		}
		logger.Info("Event log verified", "checked", report.Checked, "head_sequence", report.HeadSequence)
		return nil
	})
}
