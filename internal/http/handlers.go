package http

import (
	"net/http"

	"financeiro/internal/core"
	applog "financeiro/internal/log"
	"financeiro/internal/services"
)

// transactionRequest is the create payload. Bookkeeping fields (id, version,
// sync status, parent) are never taken from clients.
type transactionRequest struct {
	Type              core.TransactionType `json:"type"`
	Description       string               `json:"description"`
	Amount            core.Money           `json:"amount_cents"`
	Category          string               `json:"category"`
	PaymentMethod     core.PaymentMethod   `json:"payment_method"`
	SupplierID        *int64               `json:"supplier_id"`
	ClientID          string               `json:"client_id"`
	Notes             string               `json:"notes"`
	DueDate           core.Date            `json:"due_date"`
	PaymentDate       core.Date            `json:"payment_date"`
	Status            core.Status          `json:"status"`
	RecurrenceType    core.RecurrenceType  `json:"recurrence_type"`
	RecurrenceCount   int                  `json:"recurrence_count"`
	RecurrenceEndDate core.Date            `json:"recurrence_end_date"`
	IsAutoRecurring   bool                 `json:"is_auto_recurring"`
}

func (req transactionRequest) transaction() core.FinancialTransaction {
	return core.FinancialTransaction{
		Type:              req.Type,
		Description:       sanitizeInput(req.Description),
		Amount:            req.Amount,
		Category:          sanitizeInput(req.Category),
		PaymentMethod:     req.PaymentMethod,
		SupplierID:        req.SupplierID,
		ClientID:          sanitizeInput(req.ClientID),
		Notes:             sanitizeInput(req.Notes),
		DueDate:           req.DueDate,
		PaymentDate:       req.PaymentDate,
		Status:            req.Status,
		RecurrenceType:    req.RecurrenceType,
		RecurrenceCount:   req.RecurrenceCount,
		RecurrenceEndDate: req.RecurrenceEndDate,
		IsAutoRecurring:   req.IsAutoRecurring,
	}
}

type transactionsResponse struct {
	Transactions []core.FinancialTransaction `json:"transactions"`
}

func list(txs []core.FinancialTransaction) transactionsResponse {
	if txs == nil {
		txs = []core.FinancialTransaction{}
	}
	return transactionsResponse{Transactions: txs}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.svc.Transactions.Create(r.Context(), req.transaction())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransactionsCreated(r.Context(), created)

	writeJSON(w, http.StatusCreated, list(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.TransactionPatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizePtr(patch.Description)
	sanitizePtr(patch.Category)
	sanitizePtr(patch.ClientID)
	sanitizePtr(patch.Notes)

	t, err := s.svc.Transactions.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type payRequest struct {
	PaymentDate   core.Date          `json:"payment_date"`
	PaymentMethod core.PaymentMethod `json:"payment_method"`
}

func (s *Server) handlePayTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req payRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.Valid() {
		writeError(w, r, core.ErrInvalidPaymentMethod)
		return
	}

	t, err := s.svc.Transactions.MarkPaid(r.Context(), id, req.PaymentDate, req.PaymentMethod)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Transactions.Series(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(txs))
}

func (s *Server) handleStopRecurrence(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	root, err := s.svc.Transactions.StopRecurrence(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, root)
}
