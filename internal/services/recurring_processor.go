package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contas/internal/core"
)

// RecurringProcessor projects recurring payables into the next month on a
// schedule. Generation is idempotent, so running it on every tick is safe.
type RecurringProcessor struct {
	session *Session
}

// NewRecurringProcessor creates a new recurring payable processor
func NewRecurringProcessor(session *Session) *RecurringProcessor {
	return &RecurringProcessor{session: session}
}

// ProcessDue reloads the stores, generates next month's recurring payables
// from the records due in the month of now and waits until they are saved.
// It returns the number of records created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.session == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	if err := p.session.Load(ctx); err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}

	plan, err := p.session.GenerateRecurring(ctx, now.Year(), int(now.Month()))
	if errors.Is(err, core.ErrNoRecurring) {
		slog.InfoContext(ctx, "No recurring payables configured",
			"processing_date", now.Format("2006-01-02"))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("generate recurring payables: %w", err)
	}

	if err := p.session.Flush(ctx); err != nil {
		return len(plan.Generated), fmt.Errorf("wait for persistence: %w", err)
	}

	slog.InfoContext(ctx, "Recurring payable processing complete",
		"processed", len(plan.Generated),
		"recurring", plan.Recurring,
		"duplicates", plan.Duplicates,
		"target", fmt.Sprintf("%04d-%02d", plan.TargetYear, plan.TargetMonth))

	return len(plan.Generated), nil
}
