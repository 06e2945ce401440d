package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount_cents"`
}

// MonthOverview is a compact summary of the transactions due in a year+month.
type MonthOverview struct {
	Year         int                    `json:"year"`
	Month        int                    `json:"month"` // 1-12
	IncomeTotal  Money                  `json:"income_total_cents"`
	ExpenseTotal Money                  `json:"expense_total_cents"`
	PaidIncome   Money                  `json:"paid_income_cents"`
	PaidExpense  Money                  `json:"paid_expense_cents"`
	PendingCount int                    `json:"pending_count"`
	OverdueCount int                    `json:"overdue_count"`
	ByCategory   []CategoryAmount       `json:"by_category"`
	Transactions []FinancialTransaction `json:"transactions"`
	Suppliers    []Supplier             `json:"suppliers"`
}

// Summarize builds the month overview of txs. Cancelled rows are skipped;
// overdue is judged against today.
func Summarize(year, month int, txs []FinancialTransaction, today Date) MonthOverview {
	ov := MonthOverview{Year: year, Month: month, Transactions: txs}
	byCat := map[string]int{}
	for _, t := range txs {
		if t.Status == StatusCancelled {
			continue
		}
		switch t.Type {
		case Income:
			ov.IncomeTotal.Cents += t.Amount.Cents
			if t.Status == StatusPaid {
				ov.PaidIncome.Cents += t.Amount.Cents
			}
		case Expense:
			ov.ExpenseTotal.Cents += t.Amount.Cents
			if t.Status == StatusPaid {
				ov.PaidExpense.Cents += t.Amount.Cents
			}
			name := t.Category
			if name == "" {
				name = "uncategorized"
			}
			idx, ok := byCat[name]
			if !ok {
				idx = len(ov.ByCategory)
				byCat[name] = idx
				ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: name})
			}
			ov.ByCategory[idx].Amount.Cents += t.Amount.Cents
		}
		if t.Status == StatusPending {
			ov.PendingCount++
			if t.Overdue(today) {
				ov.OverdueCount++
			}
		}
	}
	return ov
}

// Balance is income minus expenses over the whole month.
func (o MonthOverview) Balance() Money {
	return Money{Cents: o.IncomeTotal.Cents - o.ExpenseTotal.Cents}
}
