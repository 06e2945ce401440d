package http

import (
	"net/http"

	"financeiro/internal/core"
)

type dashboardResponse struct {
	core.MonthOverview
	Balance core.Money `json:"balance_cents"`
}

// handleDashboard serves the month overview: totals, per-category expenses,
// the month's transactions and the supplier list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ov, err := s.svc.Dashboard.Month(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ov.Transactions == nil {
		ov.Transactions = []core.FinancialTransaction{}
	}
	if ov.Suppliers == nil {
		ov.Suppliers = []core.Supplier{}
	}
	if ov.ByCategory == nil {
		ov.ByCategory = []core.CategoryAmount{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{MonthOverview: ov, Balance: ov.Balance()})
}

type supplierRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := s.svc.Suppliers.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sups == nil {
		sups = []core.Supplier{}
	}
	writeJSON(w, http.StatusOK, map[string][]core.Supplier{"suppliers": sups})
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	sup, err := s.svc.Suppliers.Create(r.Context(), core.Supplier{
		Name:     sanitizeInput(req.Name),
		Document: sanitizeInput(req.Document),
		Phone:    sanitizeInput(req.Phone),
		Email:    sanitizeInput(req.Email),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusCreated, sup)
}
