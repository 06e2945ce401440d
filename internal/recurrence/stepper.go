// Package recurrence advances due dates of recurring transactions.
//
// Each cadence (weekly, monthly, yearly) has its own Stepper registered by
// recurrence type. Monthly and yearly steps clamp against the anchor day
// captured from the first occurrence, never against the previous (possibly
// clamped) occurrence, so a short February does not shrink later months.
package recurrence

import (
	"fmt"

	"financeiro/internal/core"
)

// Stepper computes the due date following current for one cadence.
type Stepper interface {
	// Next returns the occurrence after current. anchorDay is the day of
	// month of the first occurrence of the series.
	Next(current core.Date, anchorDay int) core.Date
}

// WeeklyStepper adds seven days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(current core.Date, _ int) core.Date {
	return current.AddDays(7)
}

// MonthlyStepper moves to the following month on min(anchorDay, last day of that month).
type MonthlyStepper struct{}

func (MonthlyStepper) Next(current core.Date, anchorDay int) core.Date {
	year, month := current.Year(), current.Month()+1
	if month > 12 {
		year, month = year+1, 1
	}
	return clamp(year, month, anchorDay)
}

// YearlyStepper keeps the month and moves one year forward. A Feb 29 anchor
// lands on Feb 28 in common years and back on Feb 29 in leap years.
type YearlyStepper struct{}

func (YearlyStepper) Next(current core.Date, anchorDay int) core.Date {
	return clamp(current.Year()+1, current.Month(), anchorDay)
}

func clamp(year, month, day int) core.Date {
	last := core.DaysIn(year, timeMonth(month))
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return core.NewDate(year, month, day)
}

// steppers maps recurrence types to their cadence.
var steppers = map[core.RecurrenceType]Stepper{
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a recurrence type.
func GetStepper(t core.RecurrenceType) (Stepper, error) {
	s, ok := steppers[t]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence type: %s", t)
	}
	return s, nil
}

// RegisterStepper registers a stepper for an additional recurrence type.
func RegisterStepper(t core.RecurrenceType, s Stepper) {
	steppers[t] = s
}
