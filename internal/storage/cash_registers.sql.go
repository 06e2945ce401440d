package storage

import (
	"context"
	"database/sql"
	"time"

	"financeiro/internal/core"
)

const openRegister = `INSERT INTO cash_registers (date, status, opening_cents, opened_at, notes)
VALUES (?, 'open', ?, ?, ?)`

func (q *Queries) OpenRegister(ctx context.Context, day core.Date, opening core.Money, notes string, now time.Time) error {
	_, err := q.db.ExecContext(ctx, openRegister, day.String(), opening.Cents, formatTimestamp(now), notes)
	return err
}

const registerColumns = `date, status, opening_cents, opened_at, counted_cents, expected_cents,
difference_cents, closed_at, notes`

func scanRegister(row rowScanner) (core.CashRegister, error) {
	var (
		r           core.CashRegister
		day, status string
		openedAt    string
		closedAt    sql.NullString
	)
	err := row.Scan(&day, &status, &r.Opening.Cents, &openedAt, &r.Counted.Cents, &r.Expected.Cents,
		&r.Difference.Cents, &closedAt, &r.Notes)
	if err != nil {
		return r, err
	}
	if r.Date, err = core.ParseDate(day); err != nil {
		return r, err
	}
	r.Status = core.RegisterStatus(status)
	r.OpenedAt = parseTimestamp(openedAt)
	if closedAt.Valid {
		t := parseTimestamp(closedAt.String)
		r.ClosedAt = &t
	}
	return r, nil
}

const getRegister = `SELECT ` + registerColumns + ` FROM cash_registers WHERE date = ?`

func (q *Queries) GetRegister(ctx context.Context, day core.Date) (core.CashRegister, error) {
	return scanRegister(q.db.QueryRowContext(ctx, getRegister, day.String()))
}

const closeRegister = `UPDATE cash_registers SET status = 'closed', counted_cents = ?, expected_cents = ?,
difference_cents = ?, closed_at = ?, notes = ? WHERE date = ? AND status = 'open'`

func (q *Queries) CloseRegister(ctx context.Context, r core.CashRegister, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, closeRegister, r.Counted.Cents, r.Expected.Cents, r.Difference.Cents,
		formatTimestamp(now), r.Notes, r.Date.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listOpenRegistersBefore = `SELECT ` + registerColumns + ` FROM cash_registers
WHERE status = 'open' AND date < ? ORDER BY date`

func (q *Queries) ListOpenRegistersBefore(ctx context.Context, day core.Date) ([]core.CashRegister, error) {
	rows, err := q.db.QueryContext(ctx, listOpenRegistersBefore, day.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.CashRegister
	for rows.Next() {
		r, err := scanRegister(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
