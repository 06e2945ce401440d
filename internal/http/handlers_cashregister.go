package http

import (
	"net/http"

	"financeiro/internal/core"
)

type openRegisterRequest struct {
	Opening core.Money `json:"opening_cents"`
	Notes   string     `json:"notes"`
}

type closeRegisterRequest struct {
	Counted *core.Money `json:"counted_cents"`
	Notes   string      `json:"notes"`
}

func registerDate(r *http.Request) (core.Date, error) {
	d, err := parseDateValue("date", r.PathValue("date"))
	if err == nil && d.IsZero() {
		err = badRequest("date required")
	}
	return d, err
}

func (s *Server) handleRegisterStatus(w http.ResponseWriter, r *http.Request) {
	day, err := registerDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := s.svc.Registers.Status(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleRegisterOpen(w http.ResponseWriter, r *http.Request) {
	day, err := registerDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req openRegisterRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	reg, err := s.svc.Registers.Open(r.Context(), day, req.Opening, sanitizeInput(req.Notes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleRegisterClose(w http.ResponseWriter, r *http.Request) {
	day, err := registerDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req closeRegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Counted == nil {
		writeError(w, r, badRequest("counted_cents required"))
		return
	}

	reg, err := s.svc.Registers.Close(r.Context(), day, *req.Counted, sanitizeInput(req.Notes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}
