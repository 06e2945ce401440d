package http

import (
	"net/http"

	"financeiro/internal/core"
	"financeiro/internal/recurrence"
)

type previewResponse struct {
	Dates []core.Date `json:"dates"`
	RRule string      `json:"rrule"`
	// Capped is set when generation stopped on the safety limit, not on the count or end date.
	Capped bool `json:"capped"`
}

// handleRecurrencePreview lists the due dates a series would get, without writing anything.
// Query: due_date, recurrence_type, recurrence_count, recurrence_end_date.
func (s *Server) handleRecurrencePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	due, err := parseDateValue("due_date", q.Get("due_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if due.IsZero() {
		writeError(w, r, core.ErrMissingDueDate)
		return
	}
	end, err := parseDateValue("recurrence_end_date", q.Get("recurrence_end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := parseIntValue("recurrence_count", q.Get("recurrence_count"), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	policy := core.RecurrencePolicy{
		Type:      core.RecurrenceType(q.Get("recurrence_type")),
		Count:     count,
		EndDate:   end,
		AnchorDay: due.Day(),
	}
	if !policy.Type.Valid() {
		writeError(w, r, core.ErrInvalidRecurrence)
		return
	}
	if count > core.MaxRecurrenceCount {
		writeError(w, r, core.ErrRecurrenceCountTooLarge)
		return
	}
	if !end.IsZero() && end.Before(due) {
		writeError(w, r, core.ErrEndBeforeDue)
		return
	}

	rule, err := recurrence.RRule(due, policy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dates, err := recurrence.Plan(due, policy)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Dates:  dates,
		RRule:  rule,
		Capped: recurrence.Capped(dates, policy),
	})
}

// handleRecurrenceSweep runs the auto-recurrence sweep on demand. ?today=
// overrides the reference date.
func (s *Server) handleRecurrenceSweep(w http.ResponseWriter, r *http.Request) {
	today, err := parseDateValue("today", r.URL.Query().Get("today"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if today.IsZero() {
		today = s.today()
	}

	res, err := s.svc.Recurring.ProcessAutoRecurring(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Created > 0 || res.Stopped > 0 {
		s.invalidateDashboard()
	}
	writeJSON(w, http.StatusOK, res)
}
