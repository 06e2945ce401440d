package core

import (
	"errors"
	"time"
)

const (
	RegisterOpen   RegisterStatus = "open"
	RegisterClosed RegisterStatus = "closed"
)

type RegisterStatus string

// CashRegister is the cash drawer of one business day.
type CashRegister struct {
	Date       Date           `json:"date"`
	Status     RegisterStatus `json:"status"`
	Opening    Money          `json:"opening_cents"`
	OpenedAt   time.Time      `json:"opened_at"`
	CashIn     Money          `json:"cash_in_cents"`
	CashOut    Money          `json:"cash_out_cents"`
	Expected   Money          `json:"expected_cents"`
	Counted    Money          `json:"counted_cents"`
	Difference Money          `json:"difference_cents"`
	ClosedAt   *time.Time     `json:"closed_at"`
	Notes      string         `json:"notes,omitempty"`
}

var (
	ErrNegativeBalance = errors.New("cash amount cannot be negative")
	ErrRegisterClosed  = errors.New("cash register already closed")
	ErrRegisterNotOpen = errors.New("cash register not opened")
)

// ExpectedBalance is opening + cash received - cash paid out.
func ExpectedBalance(opening, cashIn, cashOut Money) Money {
	return Money{Cents: opening.Cents + cashIn.Cents - cashOut.Cents}
}
