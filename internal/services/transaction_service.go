package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/recurrence"
	"financeiro/internal/storage"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Publisher announces ledger changes to the sync worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

// TransactionService orchestrates transaction operations across SQLite and AMQP
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	now       func() time.Time
}

// NewTransactionService builds the service. publisher may be nil, in which case
// rows stay pending until the sync worker's periodic pass picks them up.
func NewTransactionService(storage *storage.SQLiteRepository, publisher Publisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *TransactionService) today() core.Date {
	return core.DateOf(s.now())
}

// Create stores a transaction. A recurring transaction with a count is written
// together with all its occurrences; one without a count becomes an
// auto-recurring series with only its first two rows materialised.
func (s *TransactionService) Create(ctx context.Context, t core.FinancialTransaction) ([]core.FinancialTransaction, error) {
	t = s.withDefaults(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var (
		rows []core.FinancialTransaction
		err  error
	)
	switch {
	case !t.RecurrenceType.IsRecurring():
		var row core.FinancialTransaction
		row, err = s.storage.CreateTransaction(ctx, t)
		rows = []core.FinancialTransaction{row}
	case t.RecurrenceCount > 0:
		rows, err = s.createBatch(ctx, t)
	default:
		rows, err = s.createAuto(ctx, t)
	}
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	for _, row := range rows {
		s.publishSync(ctx, row.ID, row.Version)
	}
	return rows, nil
}

func (s *TransactionService) withDefaults(t core.FinancialTransaction) core.FinancialTransaction {
	t.ID = 0
	t.ParentTransactionID = nil
	if t.Status == "" {
		t.Status = core.StatusPending
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = core.PaymentOther
	}
	if t.RecurrenceType == "" {
		t.RecurrenceType = core.RecurrenceNone
	}
	if t.Status == core.StatusPaid && t.PaymentDate.IsZero() {
		t.PaymentDate = s.today()
	}
	if t.RecurrenceType.IsRecurring() {
		t.RecurrenceDay = t.DueDate.Day()
	} else {
		t.RecurrenceDay = 0
		t.RecurrenceCount = 0
		t.IsAutoRecurring = false
		t.RecurrenceEndDate = core.Date{}
	}
	return t
}

func (s *TransactionService) createBatch(ctx context.Context, first core.FinancialTransaction) ([]core.FinancialTransaction, error) {
	dates, err := recurrence.Plan(first.DueDate, first.Policy())
	if err != nil {
		return nil, err
	}
	return s.storage.CreateSeries(ctx, first, func(rootID int64) []core.FinancialTransaction {
		occ := make([]core.FinancialTransaction, 0, len(dates)-1)
		for _, d := range dates[1:] {
			occ = append(occ, first.Occurrence(rootID, d))
		}
		return occ
	})
}

func (s *TransactionService) createAuto(ctx context.Context, first core.FinancialTransaction) ([]core.FinancialTransaction, error) {
	first.IsAutoRecurring = true
	adv, err := recurrence.NewAdvancer(first.DueDate, first.Policy())
	if err != nil {
		return nil, err
	}
	next, ok := adv.Next(first.DueDate)
	return s.storage.CreateSeries(ctx, first, func(rootID int64) []core.FinancialTransaction {
		if !ok {
			return nil
		}
		return []core.FinancialTransaction{first.Occurrence(rootID, next)}
	})
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.FinancialTransaction, error) {
	return s.storage.ListTransactions(ctx, f)
}

// TransactionPatch lists the editable fields of a transaction; nil fields are left as they are.
type TransactionPatch struct {
	Description   *string             `json:"description"`
	Amount        *core.Money         `json:"amount_cents"`
	Category      *string             `json:"category"`
	PaymentMethod *core.PaymentMethod `json:"payment_method"`
	SupplierID    *int64              `json:"supplier_id"`
	ClientID      *string             `json:"client_id"`
	DueDate       *core.Date          `json:"due_date"`
	Notes         *string             `json:"notes"`
}

// Update edits a single row. Other rows of the same series are not touched.
func (s *TransactionService) Update(ctx context.Context, id int64, p TransactionPatch) (core.FinancialTransaction, error) {
	return s.mutate(ctx, id, func(t *core.FinancialTransaction) error {
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Amount != nil {
			t.Amount = *p.Amount
		}
		if p.Category != nil {
			t.Category = *p.Category
		}
		if p.PaymentMethod != nil {
			t.PaymentMethod = *p.PaymentMethod
		}
		if p.SupplierID != nil {
			t.SupplierID = p.SupplierID
		}
		if p.ClientID != nil {
			t.ClientID = *p.ClientID
		}
		if p.DueDate != nil {
			t.DueDate = *p.DueDate
		}
		if p.Notes != nil {
			t.Notes = *p.Notes
		}
		return nil
	})
}

// MarkPaid settles a pending transaction. A zero date means today; an empty method keeps the current one.
func (s *TransactionService) MarkPaid(ctx context.Context, id int64, paidOn core.Date, method core.PaymentMethod) (core.FinancialTransaction, error) {
	return s.mutate(ctx, id, func(t *core.FinancialTransaction) error {
		if t.Status != core.StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, core.StatusPaid)
		}
		if paidOn.IsZero() {
			paidOn = s.today()
		}
		t.Status = core.StatusPaid
		t.PaymentDate = paidOn
		if method != "" {
			t.PaymentMethod = method
		}
		return nil
	})
}

func (s *TransactionService) Cancel(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	return s.mutate(ctx, id, func(t *core.FinancialTransaction) error {
		if t.Status == core.StatusCancelled {
			return fmt.Errorf("%w: already cancelled", ErrInvalidTransition)
		}
		t.Status = core.StatusCancelled
		t.PaymentDate = core.Date{}
		return nil
	})
}

func (s *TransactionService) mutate(ctx context.Context, id int64, fn func(t *core.FinancialTransaction) error) (core.FinancialTransaction, error) {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return t, err
	}
	if err := fn(&t); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	updated, err := s.storage.UpdateTransaction(ctx, t)
	if err != nil {
		return updated, err
	}
	s.publishSync(ctx, updated.ID, updated.Version)
	return updated, nil
}

// Delete removes one row. Occurrences that reference it keep their parent id.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	if err := s.publisher.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - transaction is deleted locally
	}
	return nil
}

// Series returns every row of the series id belongs to, ordered by due date.
func (s *TransactionService) Series(ctx context.Context, id int64) ([]core.FinancialTransaction, error) {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.storage.Series(ctx, t.SeriesID())
}

// StopRecurrence ends lazy generation for the series id belongs to. Rows already created stay.
func (s *TransactionService) StopRecurrence(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return t, err
	}
	rootID := t.SeriesID()
	if err := s.storage.SetAutoRecurring(ctx, rootID, false); err != nil {
		return t, err
	}
	slog.InfoContext(ctx, "Auto recurrence stopped", "root_id", rootID)
	return s.storage.GetTransaction(ctx, rootID)
}

func (s *TransactionService) publishSync(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - row is saved locally and stays pending
	}
}

// Close closes storage
func (s *TransactionService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close transaction service: %w", err)
		}
	}
	return nil
}
