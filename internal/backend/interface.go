package backend

import (
	"context"
	"fmt"

	"financeiro/internal/sheets"
)

// Ledger is a mirror the sync worker can both write and prune.
type Ledger interface {
	sheets.LedgerWriter
	sheets.LedgerDeleter
}

// Factory creates ledgers based on configuration
type Factory interface {
	CreateLedger(ctx context.Context, config Config) (Ledger, error)
}

// Config holds configuration for ledger creation
type Config struct {
	Type LedgerType

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// LedgerType represents the type of ledger mirror
type LedgerType string

const (
	SheetsLedger LedgerType = "sheets"
	MemoryLedger LedgerType = "memory"
)

// IsValid checks if the ledger type is supported
func (t LedgerType) IsValid() bool {
	switch t {
	case SheetsLedger, MemoryLedger:
		return true
	}
	return false
}

// Validate validates the ledger configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid ledger type: %q", c.Type)
	}
	if c.Type == SheetsLedger && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id is required for sheets ledger")
	}
	return nil
}
