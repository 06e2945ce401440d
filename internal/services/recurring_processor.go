package services

import (
	"context"
	"fmt"
	"log/slog"

	"financeiro/internal/core"
	"financeiro/internal/recurrence"
	"financeiro/internal/storage"
)

// RecurringProcessor materialises the occurrences of auto-recurring series
// up to a horizon a few months past today.
type RecurringProcessor struct {
	storage     *storage.SQLiteRepository
	service     *TransactionService
	monthsAhead int
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Series  int `json:"series"`
	Created int `json:"created"`
	Stopped int `json:"stopped"`
	Failed  int `json:"failed"`
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, service *TransactionService, monthsAhead int) *RecurringProcessor {
	if monthsAhead <= 0 {
		monthsAhead = recurrence.DefaultMonthsAhead
	}
	return &RecurringProcessor{
		storage:     storage,
		service:     service,
		monthsAhead: monthsAhead,
	}
}

// ProcessAutoRecurring extends every auto-recurring series up to today plus the
// configured months. Running it again, or concurrently, creates no duplicates:
// an occurrence already present for a due date is skipped by the store.
func (p *RecurringProcessor) ProcessAutoRecurring(ctx context.Context, today core.Date) (SweepResult, error) {
	var res SweepResult
	if p.storage == nil {
		return res, fmt.Errorf("processor not properly initialized")
	}

	roots, err := p.storage.ListAutoRecurringRoots(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to get auto recurring series: %w", err)
	}

	horizon := recurrence.Horizon(today, p.monthsAhead)
	slog.InfoContext(ctx, "Processing auto recurring series",
		"total_active", len(roots),
		"horizon", horizon.String())

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Series++
		created, stopped, err := p.extend(ctx, root, horizon)
		res.Created += created
		if err != nil {
			res.Failed++
			slog.ErrorContext(ctx, "Failed to extend recurring series",
				"root_id", root.ID,
				"description", root.Description,
				"error", err)
			continue
		}
		if stopped {
			res.Stopped++
		}
	}

	slog.InfoContext(ctx, "Auto recurring processing complete",
		"series", res.Series,
		"created", res.Created,
		"stopped", res.Stopped,
		"failed", res.Failed)

	return res, nil
}

func (p *RecurringProcessor) extend(ctx context.Context, root core.FinancialTransaction, horizon core.Date) (created int, stopped bool, err error) {
	latest, existing, err := p.storage.LatestOccurrence(ctx, root.ID)
	if err != nil {
		return 0, false, err
	}
	policy := root.Policy()

	dates, err := recurrence.Extend(latest.DueDate, existing, horizon, policy)
	if err != nil {
		return 0, false, err
	}

	last := latest.DueDate
	for _, due := range dates {
		id, inserted, err := p.storage.CreateOccurrence(ctx, root.Occurrence(root.ID, due))
		if err != nil {
			return created, false, fmt.Errorf("create occurrence %s: %w", due, err)
		}
		last = due
		if !inserted {
			continue
		}
		created++
		if p.service != nil {
			p.service.publishSync(ctx, id, 1)
		}
		slog.InfoContext(ctx, "Created occurrence from recurring series",
			"root_id", root.ID,
			"id", id,
			"due_date", due.String(),
			"amount_cents", root.Amount.Cents)
	}

	if !recurrence.Exhausted(last, existing+len(dates), policy) {
		return created, false, nil
	}
	if err := p.storage.SetAutoRecurring(ctx, root.ID, false); err != nil {
		return created, false, err
	}
	slog.InfoContext(ctx, "Recurring series reached its end",
		"root_id", root.ID,
		"last_due_date", last.String())
	return created, true, nil
}
