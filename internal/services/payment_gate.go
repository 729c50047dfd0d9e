package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

const maxPaymentRefLength = 256

// PaymentGate is the only path from an assessed task to a requested report. The payment
// reference is trusted as supplied; settlement is verified by the caller.
type PaymentGate struct {
	tasks   *TaskService
	store   store.TaskStore
	reports *ReportService
	now     func() time.Time
}

func NewPaymentGate(tasks *TaskService, s store.TaskStore, reports *ReportService) *PaymentGate {
	return &PaymentGate{tasks: tasks, store: s, reports: reports, now: time.Now}
}

// Authorize records the payment for taskID, moves the report to GENERATING and schedules
// rendering. Exactly one of any number of concurrent callers succeeds; the others get a
// Conflict.
func (g *PaymentGate) Authorize(ctx context.Context, taskID, paymentRef string, amount float64) (models.ReportStatus, error) {
	ref := strings.TrimSpace(paymentRef)
	if ref == "" {
		return "", ValidationError("payment_ref", "is required")
	}
	if len(ref) > maxPaymentRefLength {
		return "", ValidationError("payment_ref", fmt.Sprintf("must be at most %d characters", maxPaymentRefLength))
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return "", ValidationError("amount", "must be greater than 0")
	}

	log := logger.ForTask(taskID)

	task, err := g.tasks.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	if task.Status != models.TaskStatusCompleted {
		return "", fmt.Errorf("%w: assessment is %s", ErrPreconditionFailed, task.Status)
	}
	if task.ReportStatus == models.ReportStatusGenerating || task.ReportStatus == models.ReportStatusCompleted {
		return "", ErrReportInFlight
	}

	var patch store.Patch
	var conds []store.Condition
	if !task.Paid() {
		patch = store.Patch{
			store.ColPaymentRef:    ref,
			store.ColPaymentAmount: amount,
			store.ColPaidAt:        g.now(),
			store.ColReportStatus:  models.ReportStatusGenerating,
			store.ColReportError:   "",
		}
		conds = []store.Condition{
			store.Expect(store.ColStatus, models.TaskStatusCompleted),
			store.Expect(store.ColReportStatus, models.ReportStatusNotStarted, models.ReportStatusFailed),
			store.Expect(store.ColPaymentRef, ""),
		}
	} else {
		// Retry after a failed generation: the original payment stays as recorded.
		if task.PaymentRef != ref {
			log.Warn("Retry after failed report carries a different payment reference; keeping the original",
				zap.String("recorded_ref", task.PaymentRef), zap.String("supplied_ref", ref))
		}
		patch = store.Patch{
			store.ColReportStatus: models.ReportStatusGenerating,
			store.ColReportError:  "",
		}
		conds = []store.Condition{
			store.Expect(store.ColStatus, models.TaskStatusCompleted),
			store.Expect(store.ColReportStatus, models.ReportStatusFailed),
			store.Expect(store.ColPaymentRef, task.PaymentRef),
		}
	}

	ok, err := g.store.ConditionalUpdate(ctx, taskID, patch, conds...)
	if err != nil {
		log.Error("Failed to record payment", zap.Error(err))
		return "", fmt.Errorf("record payment: %w", err)
	}
	if !ok {
		log.Info("Payment lost the race for report generation", zap.String("payment_ref", ref))
		return "", ErrReportInFlight
	}
	log.Info("Payment authorized", zap.String("payment_ref", ref), zap.Float64("amount", amount))

	if err := g.reports.StartAsync(ctx, taskID); err != nil {
		return "", err
	}
	return models.ReportStatusGenerating, nil
}
