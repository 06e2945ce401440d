package log

import "financeiro/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldTransactionID = "transaction_id"
	FieldType          = "type"
	FieldDescription   = "description"
	FieldAmountCents   = "amount_cents"
	FieldDueDate       = "due_date"
	FieldRecurrence    = "recurrence_type"
	FieldSeriesID      = "series_id"
	FieldRows          = "rows"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentTransactions = "transactions"
	ComponentRecurrence   = "recurrence"
	ComponentCashRegister = "cash_register"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentLedger       = "ledger"
	ComponentRateLimit    = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
	OpSync   = "sync"
	OpSweep  = "sweep"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field; nil errors are skipped
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the identifying fields of a transaction
func (f LogFields) WithTransaction(t core.FinancialTransaction) LogFields {
	f[FieldTransactionID] = t.ID
	f[FieldType] = string(t.Type)
	f[FieldDescription] = t.Description
	f[FieldAmountCents] = t.Amount.Cents
	f[FieldDueDate] = t.DueDate.String()
	if t.RecurrenceType.IsRecurring() {
		f[FieldRecurrence] = string(t.RecurrenceType)
		f[FieldSeriesID] = t.SeriesID()
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// OperationFor names the operation an HTTP method performs.
func OperationFor(method string) string {
	switch method {
	case "POST":
		return OpCreate
	case "PUT", "PATCH":
		return OpUpdate
	case "DELETE":
		return OpDelete
	default:
		return OpRead
	}
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
