package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"financeiro/internal/core"
)

const transactionColumns = `id, type, description, amount_cents, category, payment_method, supplier_id,
client_id, notes, due_date, payment_date, status, recurrence_type, recurrence_count,
recurrence_end_date, recurrence_day, parent_transaction_id, is_auto_recurring, version,
sync_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (core.FinancialTransaction, error) {
	var (
		t                            core.FinancialTransaction
		supplierID, parentID         sql.NullInt64
		dueDate                      string
		paymentDate, endDate         sql.NullString
		createdAt, updatedAt         string
		autoRecurring                bool
		txType, method, status, rtyp string
		syncStatus                   string
	)
	err := row.Scan(&t.ID, &txType, &t.Description, &t.Amount.Cents, &t.Category, &method, &supplierID,
		&t.ClientID, &t.Notes, &dueDate, &paymentDate, &status, &rtyp, &t.RecurrenceCount,
		&endDate, &t.RecurrenceDay, &parentID, &autoRecurring, &t.Version,
		&syncStatus, &createdAt, &updatedAt)
	if err != nil {
		return t, err
	}
	t.Type = core.TransactionType(txType)
	t.PaymentMethod = core.PaymentMethod(method)
	t.Status = core.Status(status)
	t.RecurrenceType = core.RecurrenceType(rtyp)
	t.SyncStatus = core.SyncStatus(syncStatus)
	t.IsAutoRecurring = autoRecurring
	if supplierID.Valid {
		id := supplierID.Int64
		t.SupplierID = &id
	}
	if parentID.Valid {
		id := parentID.Int64
		t.ParentTransactionID = &id
	}
	if t.DueDate, err = core.ParseDate(dueDate); err != nil {
		return t, err
	}
	if t.PaymentDate, err = parseNullDate(paymentDate); err != nil {
		return t, err
	}
	if t.RecurrenceEndDate, err = parseNullDate(endDate); err != nil {
		return t, err
	}
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)
	return t, nil
}

const createTransaction = `INSERT INTO financial_transactions (
    type, description, amount_cents, category, payment_method, supplier_id, client_id, notes,
    due_date, payment_date, status, recurrence_type, recurrence_count, recurrence_end_date,
    recurrence_day, parent_transaction_id, is_auto_recurring, version, sync_status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 'pending', ?, ?)`

func transactionArgs(t core.FinancialTransaction, now time.Time) []interface{} {
	ts := formatTimestamp(now)
	return []interface{}{
		string(t.Type), t.Description, t.Amount.Cents, t.Category, string(t.PaymentMethod),
		nullInt64(t.SupplierID), t.ClientID, t.Notes, t.DueDate.String(), nullDate(t.PaymentDate),
		string(t.Status), string(t.RecurrenceType), t.RecurrenceCount, nullDate(t.RecurrenceEndDate),
		t.RecurrenceDay, nullInt64(t.ParentTransactionID), t.IsAutoRecurring, ts, ts,
	}
}

// CreateTransaction inserts a row and returns its id.
func (q *Queries) CreateTransaction(ctx context.Context, t core.FinancialTransaction, now time.Time) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction+" RETURNING id", transactionArgs(t, now)...).Scan(&id)
	return id, err
}

// CreateOccurrence inserts a generated occurrence. It reports false, without
// error, when the series already has a row on that due date.
func (q *Queries) CreateOccurrence(ctx context.Context, t core.FinancialTransaction, now time.Time) (int64, bool, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction+" ON CONFLICT DO NOTHING RETURNING id", transactionArgs(t, now)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM financial_transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.FinancialTransaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

// TransactionFilter narrows ListTransactions. Zero fields are ignored.
type TransactionFilter struct {
	Type       core.TransactionType
	Status     core.Status
	DueFrom    core.Date
	DueTo      core.Date
	SupplierID *int64
	SeriesID   *int64
	Limit      int
	Offset     int
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.FinancialTransaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.DueFrom.IsZero() {
		where = append(where, "due_date >= ?")
		args = append(args, f.DueFrom.String())
	}
	if !f.DueTo.IsZero() {
		where = append(where, "due_date <= ?")
		args = append(args, f.DueTo.String())
	}
	if f.SupplierID != nil {
		where = append(where, "supplier_id = ?")
		args = append(args, *f.SupplierID)
	}
	if f.SeriesID != nil {
		where = append(where, "(id = ? OR parent_transaction_id = ?)")
		args = append(args, *f.SeriesID, *f.SeriesID)
	}

	query := `SELECT ` + transactionColumns + ` FROM financial_transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date, id"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	return q.queryTransactions(ctx, query, args...)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]core.FinancialTransaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.FinancialTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTransaction = `UPDATE financial_transactions SET
    description = ?, amount_cents = ?, category = ?, payment_method = ?, supplier_id = ?,
    client_id = ?, notes = ?, due_date = ?, payment_date = ?, status = ?,
    is_auto_recurring = ?, version = version + 1, sync_status = 'pending', sync_attempts = 0, updated_at = ?
WHERE id = ?`

// UpdateTransaction writes the mutable fields of t and bumps its version.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.FinancialTransaction, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.Description, t.Amount.Cents, t.Category, string(t.PaymentMethod), nullInt64(t.SupplierID),
		t.ClientID, t.Notes, t.DueDate.String(), nullDate(t.PaymentDate), string(t.Status),
		t.IsAutoRecurring, formatTimestamp(now), t.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM financial_transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listAutoRecurringRoots = `SELECT ` + transactionColumns + ` FROM financial_transactions
WHERE is_auto_recurring = 1 AND parent_transaction_id IS NULL AND recurrence_type != 'none'
ORDER BY id`

func (q *Queries) ListAutoRecurringRoots(ctx context.Context) ([]core.FinancialTransaction, error) {
	return q.queryTransactions(ctx, listAutoRecurringRoots)
}

const latestOccurrence = `SELECT ` + transactionColumns + ` FROM financial_transactions
WHERE id = ? OR parent_transaction_id = ?
ORDER BY due_date DESC, id DESC LIMIT 1`

func (q *Queries) LatestOccurrence(ctx context.Context, rootID int64) (core.FinancialTransaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, latestOccurrence, rootID, rootID))
}

const countSeries = `SELECT COUNT(*) FROM financial_transactions WHERE id = ? OR parent_transaction_id = ?`

func (q *Queries) CountSeries(ctx context.Context, rootID int64) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, countSeries, rootID, rootID).Scan(&n)
	return n, err
}

const setAutoRecurring = `UPDATE financial_transactions SET is_auto_recurring = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetAutoRecurring(ctx context.Context, id int64, auto bool, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, setAutoRecurring, auto, formatTimestamp(now), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Pending rows come first; rows in error rotate by attempt count.
const getPendingSync = `SELECT id, version, created_at FROM financial_transactions
WHERE sync_status IN ('pending', 'error')
ORDER BY CASE sync_status WHEN 'pending' THEN 0 ELSE 1 END, sync_attempts, id
LIMIT ?`

type PendingSyncRow struct {
	ID        int64
	Version   int64
	CreatedAt string
}

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSyncRow
	for rows.Next() {
		var i PendingSyncRow
		if err := rows.Scan(&i.ID, &i.Version, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The version guard keeps a stale message from marking a newer edit as synced.
const markSynced = `UPDATE financial_transactions SET sync_status = 'synced', sync_attempts = 0 WHERE id = ? AND version = ?`

func (q *Queries) MarkSynced(ctx context.Context, id, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, id, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE financial_transactions SET sync_status = 'error', sync_attempts = sync_attempts + 1 WHERE id = ?`

func (q *Queries) MarkSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markSyncError, id)
	return err
}

const sumPaidByMethod = `SELECT COALESCE(SUM(amount_cents), 0) FROM financial_transactions
WHERE status = 'paid' AND payment_date = ? AND payment_method = ? AND type = ?`

func (q *Queries) SumPaidByMethod(ctx context.Context, day core.Date, method core.PaymentMethod, typ core.TransactionType) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumPaidByMethod, day.String(), string(method), string(typ)).Scan(&total)
	return total, err
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
