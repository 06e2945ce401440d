package recurrence

import (
	"errors"
	"time"

	"financeiro/internal/core"
)

// FallbackHorizon caps series that have neither a count nor an end date
// (about five years at monthly cadence).
const FallbackHorizon = 60

// MaxOccurrences bounds a series that has an end date but no count.
const MaxOccurrences = 2 * core.MaxRecurrenceCount

// DefaultMonthsAhead is how far past today the lazy sweep materialises occurrences.
const DefaultMonthsAhead = 2

var ErrNotRecurring = errors.New("transaction does not recur")

// Advancer walks the due dates of one series.
type Advancer struct {
	stepper   Stepper
	anchorDay int
	endDate   core.Date
}

// NewAdvancer builds an advancer for policy. A zero AnchorDay falls back to
// the day of first.
func NewAdvancer(first core.Date, policy core.RecurrencePolicy) (*Advancer, error) {
	if !policy.Type.IsRecurring() {
		return nil, ErrNotRecurring
	}
	s, err := GetStepper(policy.Type)
	if err != nil {
		return nil, err
	}
	anchor := policy.AnchorDay
	if anchor == 0 {
		anchor = first.Day()
	}
	return &Advancer{stepper: s, anchorDay: anchor, endDate: policy.EndDate}, nil
}

// Next returns the occurrence after current, or false when it falls past the end date.
func (a *Advancer) Next(current core.Date) (core.Date, bool) {
	next := a.stepper.Next(current, a.anchorDay)
	if !a.endDate.IsZero() && next.After(a.endDate) {
		return core.Date{}, false
	}
	return next, true
}

// Limit is the maximum number of occurrences (first included) policy may produce.
// Only a series with neither a count nor an end date falls back to FallbackHorizon.
func Limit(policy core.RecurrencePolicy) int {
	switch {
	case policy.Count > 0:
		return policy.Count
	case !policy.EndDate.IsZero():
		return MaxOccurrences
	default:
		return FallbackHorizon
	}
}

// Capped reports whether dates, as returned by Plan, stopped on the safety
// limit rather than on the count or the end date.
func Capped(dates []core.Date, policy core.RecurrencePolicy) bool {
	if policy.Count > 0 || len(dates) == 0 || len(dates) < Limit(policy) {
		return false
	}
	adv, err := NewAdvancer(dates[0], policy)
	if err != nil {
		return false
	}
	_, more := adv.Next(dates[len(dates)-1])
	return more
}

// Plan returns every due date of a series starting at first, first included.
// A fixed count caps the series at Count dates and the end date may stop it
// earlier; without a count generation runs until the end date, or to
// FallbackHorizon when there is no end date either.
func Plan(first core.Date, policy core.RecurrencePolicy) ([]core.Date, error) {
	if !policy.Type.IsRecurring() {
		return []core.Date{first}, nil
	}
	adv, err := NewAdvancer(first, policy)
	if err != nil {
		return nil, err
	}
	limit := Limit(policy)
	dates := make([]core.Date, 0, min(limit, FallbackHorizon))
	dates = append(dates, first)
	current := first
	for len(dates) < limit {
		next, ok := adv.Next(current)
		if !ok {
			break
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}

// Extend returns the dates the lazy sweep must add after latest. existing is
// the number of occurrences already materialised (first included); no date
// past horizon, the end date or the policy limit is returned.
func Extend(latest core.Date, existing int, horizon core.Date, policy core.RecurrencePolicy) ([]core.Date, error) {
	adv, err := NewAdvancer(latest, policy)
	if err != nil {
		return nil, err
	}
	limit := Limit(policy)
	var dates []core.Date
	current := latest
	for existing+len(dates) < limit {
		next, ok := adv.Next(current)
		if !ok || next.After(horizon) {
			break
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}

// Exhausted reports whether a lazily generated series can produce no further date.
func Exhausted(latest core.Date, existing int, policy core.RecurrencePolicy) bool {
	if existing >= Limit(policy) {
		return true
	}
	adv, err := NewAdvancer(latest, policy)
	if err != nil {
		return true
	}
	_, ok := adv.Next(latest)
	return !ok
}

// Horizon is the last date the sweep materialises for a given day.
func Horizon(today core.Date, monthsAhead int) core.Date {
	if monthsAhead < 0 {
		monthsAhead = 0
	}
	return today.AddMonths(monthsAhead)
}

func timeMonth(m int) time.Month { return time.Month(m) }
