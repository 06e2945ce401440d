package sheets

import (
	"context"

	"financeiro/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors one transaction into the ledger sheet, replacing
	// the row already written for the same id.
	LedgerWriter interface {
		UpsertTransaction(ctx context.Context, t core.FinancialTransaction) (rowRef string, err error)
	}

	// LedgerDeleter removes a transaction's row. Missing rows are not an error.
	LedgerDeleter interface {
		DeleteTransaction(ctx context.Context, id int64) error
	}
)
