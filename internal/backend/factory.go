package backend

import (
	"context"
	"fmt"

	"financeiro/internal/config"
	applog "financeiro/internal/log"
	gsheet "financeiro/internal/sheets/google"
	"financeiro/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new ledger factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger}
}

// FromAppConfig converts the application config to ledger config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Type:                LedgerType(appConfig.LedgerBackend),
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}
	if cfg.Type == "" {
		cfg.Type = MemoryLedger
	}
	return cfg, cfg.Validate()
}

// CreateLedger implements Factory.CreateLedger
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsLedger:
		client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
		}
		f.logger.Info("Initialized Google Sheets ledger",
			"spreadsheet_id", config.GoogleSpreadsheetID,
			"sheet", config.GoogleSheetName)
		return client, nil
	default:
		f.logger.Info("Initialized memory ledger")
		return memory.New(), nil
	}
}
