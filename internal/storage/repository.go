package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financeiro/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a SQL transaction, rolling back on any error.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateTransaction stores a single transaction and returns it as persisted.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.FinancialTransaction) (core.FinancialTransaction, error) {
	id, err := r.queries.CreateTransaction(ctx, t, r.now())
	if err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("create transaction: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"due_date", t.DueDate.String())
	return r.GetTransaction(ctx, id)
}

// CreateSeries stores root and the occurrences built by occurrences(rootID)
// in one SQL transaction: either every row is written or none is.
func (r *SQLiteRepository) CreateSeries(ctx context.Context, root core.FinancialTransaction, occurrences func(rootID int64) []core.FinancialTransaction) ([]core.FinancialTransaction, error) {
	var ids []int64
	now := r.now()
	err := r.InTx(ctx, func(q *Queries) error {
		rootID, err := q.CreateTransaction(ctx, root, now)
		if err != nil {
			return fmt.Errorf("create series root: %w", mapError(err))
		}
		ids = append(ids, rootID)
		for _, occ := range occurrences(rootID) {
			id, err := q.CreateTransaction(ctx, occ, now)
			if err != nil {
				return fmt.Errorf("create occurrence %s: %w", occ.DueDate, mapError(err))
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring series saved to SQLite",
		"root_id", ids[0],
		"occurrences", len(ids),
		"recurrence_type", root.RecurrenceType)

	rootID := ids[0]
	return r.queries.ListTransactions(ctx, TransactionFilter{SeriesID: &rootID})
}

// CreateOccurrence stores a lazily generated occurrence. created is false when
// the series already had a row on that due date.
func (r *SQLiteRepository) CreateOccurrence(ctx context.Context, occ core.FinancialTransaction) (id int64, created bool, err error) {
	id, created, err = r.queries.CreateOccurrence(ctx, occ, r.now())
	if err != nil {
		return 0, false, fmt.Errorf("create occurrence: %w", mapError(err))
	}
	return id, created, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return t, fmt.Errorf("get transaction %d: %w", id, mapError(err))
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.FinancialTransaction, error) {
	items, err := r.queries.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

// ListMonth returns the transactions due in year/month.
func (r *SQLiteRepository) ListMonth(ctx context.Context, year, month int) ([]core.FinancialTransaction, error) {
	from := core.NewDate(year, month, 1)
	to := from.AddMonths(1).AddDays(-1)
	return r.ListTransactions(ctx, TransactionFilter{DueFrom: from, DueTo: to})
}

// UpdateTransaction persists the mutable fields of t and returns the stored row.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.FinancialTransaction) (core.FinancialTransaction, error) {
	n, err := r.queries.UpdateTransaction(ctx, t, r.now())
	if err != nil {
		return core.FinancialTransaction{}, fmt.Errorf("update transaction %d: %w", t.ID, mapError(err))
	}
	if n == 0 {
		return core.FinancialTransaction{}, fmt.Errorf("update transaction %d: %w", t.ID, ErrNotFound)
	}
	return r.GetTransaction(ctx, t.ID)
}

// DeleteTransaction removes one row. Occurrences that point at it are left untouched.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// Series returns the root and every occurrence pointing at it, ordered by due date.
func (r *SQLiteRepository) Series(ctx context.Context, rootID int64) ([]core.FinancialTransaction, error) {
	return r.ListTransactions(ctx, TransactionFilter{SeriesID: &rootID})
}

func (r *SQLiteRepository) ListAutoRecurringRoots(ctx context.Context) ([]core.FinancialTransaction, error) {
	items, err := r.queries.ListAutoRecurringRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auto recurring: %w", err)
	}
	return items, nil
}

// LatestOccurrence returns the last due occurrence of the series and how many rows it has.
func (r *SQLiteRepository) LatestOccurrence(ctx context.Context, rootID int64) (core.FinancialTransaction, int, error) {
	latest, err := r.queries.LatestOccurrence(ctx, rootID)
	if err != nil {
		return latest, 0, fmt.Errorf("latest occurrence of %d: %w", rootID, mapError(err))
	}
	n, err := r.queries.CountSeries(ctx, rootID)
	if err != nil {
		return latest, 0, fmt.Errorf("count series %d: %w", rootID, err)
	}
	return latest, n, nil
}

func (r *SQLiteRepository) SetAutoRecurring(ctx context.Context, id int64, auto bool) error {
	n, err := r.queries.SetAutoRecurring(ctx, id, auto, r.now())
	if err != nil {
		return fmt.Errorf("set auto recurring %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set auto recurring %d: %w", id, ErrNotFound)
	}
	return nil
}

// PendingSyncTransaction represents minimal data needed for sync queue messages
type PendingSyncTransaction struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns rows that still need to reach the ledger sheet,
// including rows whose last attempt failed
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	items := make([]PendingSyncTransaction, len(rows))
	for i, row := range rows {
		items[i] = PendingSyncTransaction{ID: row.ID, Version: row.Version, CreatedAt: parseTimestamp(row.CreatedAt)}
	}
	return items, nil
}

// MarkSynced marks a transaction version as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, version int64) error {
	n, err := r.queries.MarkSynced(ctx, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n == 0 {
		slog.WarnContext(ctx, "Synced version is stale, leaving row pending", "id", id, "version", version)
		return nil
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError marks a transaction as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error) {
	id, err := r.queries.CreateSupplier(ctx, s, r.now())
	if err != nil {
		return core.Supplier{}, fmt.Errorf("create supplier: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Supplier saved to SQLite", "id", id, "name", s.Name)
	return r.GetSupplier(ctx, id)
}

func (r *SQLiteRepository) GetSupplier(ctx context.Context, id int64) (core.Supplier, error) {
	s, err := r.queries.GetSupplier(ctx, id)
	if err != nil {
		return s, fmt.Errorf("get supplier %d: %w", id, mapError(err))
	}
	return s, nil
}

func (r *SQLiteRepository) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	items, err := r.queries.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return items, nil
}

// CashTotals returns the cash received and paid out on day.
func (r *SQLiteRepository) CashTotals(ctx context.Context, day core.Date) (in, out core.Money, err error) {
	in.Cents, err = r.queries.SumPaidByMethod(ctx, day, core.PaymentCash, core.Income)
	if err != nil {
		return in, out, fmt.Errorf("sum cash income: %w", err)
	}
	out.Cents, err = r.queries.SumPaidByMethod(ctx, day, core.PaymentCash, core.Expense)
	if err != nil {
		return in, out, fmt.Errorf("sum cash expense: %w", err)
	}
	return in, out, nil
}

func (r *SQLiteRepository) OpenRegister(ctx context.Context, day core.Date, opening core.Money, notes string) (core.CashRegister, error) {
	if err := r.queries.OpenRegister(ctx, day, opening, notes, r.now()); err != nil {
		return core.CashRegister{}, fmt.Errorf("open register %s: %w", day, mapError(err))
	}
	slog.InfoContext(ctx, "Cash register opened", "date", day.String(), "opening_cents", opening.Cents)
	return r.GetRegister(ctx, day)
}

func (r *SQLiteRepository) GetRegister(ctx context.Context, day core.Date) (core.CashRegister, error) {
	reg, err := r.queries.GetRegister(ctx, day)
	if err != nil {
		return reg, fmt.Errorf("get register %s: %w", day, mapError(err))
	}
	return reg, nil
}

// CloseRegister stores the closing figures of an open register.
func (r *SQLiteRepository) CloseRegister(ctx context.Context, reg core.CashRegister) (core.CashRegister, error) {
	n, err := r.queries.CloseRegister(ctx, reg, r.now())
	if err != nil {
		return core.CashRegister{}, fmt.Errorf("close register %s: %w", reg.Date, err)
	}
	if n == 0 {
		return core.CashRegister{}, fmt.Errorf("close register %s: %w", reg.Date, ErrConflict)
	}
	slog.InfoContext(ctx, "Cash register closed",
		"date", reg.Date.String(),
		"expected_cents", reg.Expected.Cents,
		"counted_cents", reg.Counted.Cents,
		"difference_cents", reg.Difference.Cents)
	return r.GetRegister(ctx, reg.Date)
}

func (r *SQLiteRepository) ListOpenRegistersBefore(ctx context.Context, day core.Date) ([]core.CashRegister, error) {
	items, err := r.queries.ListOpenRegistersBefore(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list open registers: %w", err)
	}
	return items, nil
}

// mapError translates driver errors into the repository's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrConflict, se.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", ErrNotFound, "referenced row does not exist")
		}
	}
	return err
}
