package storage

import (
	"context"
	"time"

	"financeiro/internal/core"
)

const createSupplier = `INSERT INTO suppliers (name, document, phone, email, created_at)
VALUES (?, ?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateSupplier(ctx context.Context, s core.Supplier, now time.Time) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createSupplier, s.Name, s.Document, s.Phone, s.Email, formatTimestamp(now)).Scan(&id)
	return id, err
}

const getSupplier = `SELECT id, name, document, phone, email, created_at FROM suppliers WHERE id = ?`

func (q *Queries) GetSupplier(ctx context.Context, id int64) (core.Supplier, error) {
	var (
		s         core.Supplier
		createdAt string
	)
	err := q.db.QueryRowContext(ctx, getSupplier, id).Scan(&s.ID, &s.Name, &s.Document, &s.Phone, &s.Email, &createdAt)
	s.CreatedAt = parseTimestamp(createdAt)
	return s, err
}

const listSuppliers = `SELECT id, name, document, phone, email, created_at FROM suppliers ORDER BY name`

func (q *Queries) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	rows, err := q.db.QueryContext(ctx, listSuppliers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.Supplier
	for rows.Next() {
		var (
			s         core.Supplier
			createdAt string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Document, &s.Phone, &s.Email, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTimestamp(createdAt)
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
