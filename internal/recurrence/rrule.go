package recurrence

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"financeiro/internal/core"
)

// RRuleOption translates a series into rrule-go options. Anchors past the
// 28th are expressed as "last of BYMONTHDAY=28..anchor" so the rule clamps
// to month end exactly like the monthly and yearly steppers.
func RRuleOption(first core.Date, policy core.RecurrencePolicy) (*rrule.ROption, error) {
	opt := &rrule.ROption{Dtstart: first.Time}
	anchor := policy.AnchorDay
	if anchor == 0 {
		anchor = first.Day()
	}

	switch policy.Type {
	case core.Weekly:
		opt.Freq = rrule.WEEKLY
	case core.Monthly:
		opt.Freq = rrule.MONTHLY
		if anchor > 28 {
			opt.Bymonthday = monthEndDays(anchor)
			opt.Bysetpos = []int{-1}
		}
	case core.Yearly:
		opt.Freq = rrule.YEARLY
		if first.Month() == 2 && anchor == 29 {
			opt.Bymonth = []int{2}
			opt.Bymonthday = monthEndDays(anchor)
			opt.Bysetpos = []int{-1}
		}
	default:
		return nil, ErrNotRecurring
	}

	// COUNT and UNTIL are mutually exclusive in RFC 5545: keep whichever ends the series.
	switch {
	case policy.Count > 0 && !policy.EndDate.IsZero():
		dates, err := Plan(first, policy)
		if err != nil {
			return nil, err
		}
		if len(dates) < policy.Count {
			opt.Until = policy.EndDate.Time
		} else {
			opt.Count = policy.Count
		}
	case !policy.EndDate.IsZero():
		opt.Until = policy.EndDate.Time
	default:
		opt.Count = Limit(policy)
	}
	return opt, nil
}

// RRule renders the series as an RFC 5545 RRULE value (without the DTSTART line).
func RRule(first core.Date, policy core.RecurrencePolicy) (string, error) {
	opt, err := RRuleOption(first, policy)
	if err != nil {
		return "", err
	}
	if _, err := rrule.NewRRule(*opt); err != nil {
		return "", fmt.Errorf("build rrule: %w", err)
	}
	return opt.RRuleString(), nil
}

// Expand returns the dates the RRULE of a series yields, for cross-checking and export.
func Expand(first core.Date, policy core.RecurrencePolicy) ([]core.Date, error) {
	opt, err := RRuleOption(first, policy)
	if err != nil {
		return nil, err
	}
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	limit := Limit(policy)
	dates := make([]core.Date, 0, min(limit, FallbackHorizon))
	iter := rule.Iterator()
	for len(dates) < limit {
		t, ok := iter()
		if !ok {
			break
		}
		d := core.DateOf(t.UTC())
		if !policy.EndDate.IsZero() && d.After(policy.EndDate) {
			break
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func monthEndDays(anchor int) []int {
	days := make([]int, 0, anchor-27)
	for d := 28; d <= anchor; d++ {
		days = append(days, d)
	}
	return days
}
