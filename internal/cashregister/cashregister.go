// Package cashregister keeps the daily cash drawer: opening float, expected
// balance from cash transactions paid that day, and the count at closing.
package cashregister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financeiro/internal/core"
	"financeiro/internal/storage"
)

// Store is the persistence the register needs; *storage.SQLiteRepository implements it.
type Store interface {
	OpenRegister(ctx context.Context, day core.Date, opening core.Money, notes string) (core.CashRegister, error)
	GetRegister(ctx context.Context, day core.Date) (core.CashRegister, error)
	CloseRegister(ctx context.Context, reg core.CashRegister) (core.CashRegister, error)
	CashTotals(ctx context.Context, day core.Date) (in, out core.Money, err error)
	ListOpenRegistersBefore(ctx context.Context, day core.Date) ([]core.CashRegister, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Open starts the register of day with the given float.
func (s *Service) Open(ctx context.Context, day core.Date, opening core.Money, notes string) (core.CashRegister, error) {
	if day.IsZero() {
		return core.CashRegister{}, core.ErrInvalidDate
	}
	if opening.Cents < 0 {
		return core.CashRegister{}, core.ErrNegativeBalance
	}
	reg, err := s.store.OpenRegister(ctx, day, opening, notes)
	if err != nil {
		return reg, err
	}
	return s.withTotals(ctx, reg)
}

// Status returns the register of day. While open, the expected balance reflects
// the cash transactions paid so far.
func (s *Service) Status(ctx context.Context, day core.Date) (core.CashRegister, error) {
	reg, err := s.store.GetRegister(ctx, day)
	if errors.Is(err, storage.ErrNotFound) {
		return reg, fmt.Errorf("%s: %w", day, core.ErrRegisterNotOpen)
	}
	if err != nil {
		return reg, err
	}
	return s.withTotals(ctx, reg)
}

// Close records the counted cash and the difference against the expected balance.
func (s *Service) Close(ctx context.Context, day core.Date, counted core.Money, notes string) (core.CashRegister, error) {
	if counted.Cents < 0 {
		return core.CashRegister{}, core.ErrNegativeBalance
	}
	reg, err := s.Status(ctx, day)
	if err != nil {
		return reg, err
	}
	if reg.Status == core.RegisterClosed {
		return reg, fmt.Errorf("%s: %w", day, core.ErrRegisterClosed)
	}

	reg.Counted = counted
	reg.Difference = core.Money{Cents: counted.Cents - reg.Expected.Cents}
	if notes != "" {
		reg.Notes = notes
	}

	closed, err := s.store.CloseRegister(ctx, reg)
	if errors.Is(err, storage.ErrConflict) {
		// closed by someone else in the meantime
		return reg, fmt.Errorf("%s: %w", day, core.ErrRegisterClosed)
	}
	if err != nil {
		return closed, err
	}
	closed.CashIn, closed.CashOut = reg.CashIn, reg.CashOut
	return closed, nil
}

func (s *Service) withTotals(ctx context.Context, reg core.CashRegister) (core.CashRegister, error) {
	in, out, err := s.store.CashTotals(ctx, reg.Date)
	if err != nil {
		return reg, err
	}
	reg.CashIn, reg.CashOut = in, out
	if reg.Status == core.RegisterOpen {
		reg.Expected = core.ExpectedBalance(reg.Opening, in, out)
	}
	return reg, nil
}

// SweepReport is the outcome of a periodic register check.
type SweepReport struct {
	StaleOpen []core.Date `json:"stale_open"`
	TodayOpen bool        `json:"today_open"`
}

// Sweep reports registers left open on earlier days and whether today's register is open.
func (s *Service) Sweep(ctx context.Context, today core.Date) (SweepReport, error) {
	var rep SweepReport

	stale, err := s.store.ListOpenRegistersBefore(ctx, today)
	if err != nil {
		return rep, err
	}
	for _, reg := range stale {
		rep.StaleOpen = append(rep.StaleOpen, reg.Date)
		slog.WarnContext(ctx, "Cash register left open",
			"date", reg.Date.String(),
			"opening_cents", reg.Opening.Cents)
	}

	reg, err := s.store.GetRegister(ctx, today)
	switch {
	case err == nil:
		rep.TodayOpen = reg.Status == core.RegisterOpen
	case errors.Is(err, storage.ErrNotFound):
		slog.InfoContext(ctx, "Cash register not opened yet", "date", today.String())
	default:
		return rep, err
	}
	return rep, nil
}
