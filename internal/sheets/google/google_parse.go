package google

import (
	"strconv"
	"strings"

	"financeiro/internal/core"
)

const (
	DefaultSheetName = "Ledger"
	lastColumn       = "L"
)

var ledgerHeader = []any{
	"ID", "Type", "Due Date", "Description", "Amount", "Category",
	"Payment Method", "Status", "Payment Date", "Series", "Supplier", "Version",
}

// ledgerRow renders t in the column order of ledgerHeader. Amounts are signed:
// expenses are negative so the sheet can sum a balance.
func ledgerRow(t core.FinancialTransaction) []any {
	amount := t.Amount.Decimal()
	if t.Type == core.Expense {
		amount = "-" + amount
	}
	series := ""
	if t.ParentTransactionID != nil {
		series = strconv.FormatInt(*t.ParentTransactionID, 10)
	} else if t.RecurrenceType.IsRecurring() {
		series = strconv.FormatInt(t.ID, 10)
	}
	supplier := ""
	if t.SupplierID != nil {
		supplier = strconv.FormatInt(*t.SupplierID, 10)
	}
	return []any{
		strconv.FormatInt(t.ID, 10),
		string(t.Type),
		t.DueDate.String(),
		t.Description,
		amount,
		t.Category,
		string(t.PaymentMethod),
		string(t.Status),
		t.PaymentDate.String(),
		series,
		supplier,
		t.Version,
	}
}

// findRow returns the 1-based sheet row whose column A holds id, or 0.
func findRow(ids []string, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, v := range ids {
		if strings.TrimSpace(v) == want {
			return i + 1
		}
	}
	return 0
}
