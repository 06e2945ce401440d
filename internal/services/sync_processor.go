package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"financeiro/internal/sheets"
	"financeiro/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to look for rows still pending (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of rows to sync per poll cycle (default: 10)
	BatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    10,
	}
}

// SyncProcessor mirrors transactions into the ledger sheet. It serves the AMQP
// handlers of the sync worker and runs a periodic pass over rows whose message was lost.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	ledger  sheets.LedgerWriter
	deleter sheets.LedgerDeleter
	config  SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(
	storage *storage.SQLiteRepository,
	ledger sheets.LedgerWriter,
	deleter sheets.LedgerDeleter,
	config SyncProcessorConfig,
) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncProcessor{
		storage: storage,
		ledger:  ledger,
		deleter: deleter,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.ProcessPending(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessPending(ctx)
		}
	}
}

// ProcessPending syncs one batch of rows still pending or in error and returns how many succeeded.
func (p *SyncProcessor) ProcessPending(ctx context.Context) int {
	if p.storage == nil {
		return 0
	}
	items, err := p.storage.GetPendingSyncTransactions(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load pending sync rows", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	synced := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return synced
		}
		if err := p.SyncTransaction(ctx, item.ID, item.Version); err != nil {
			slog.WarnContext(ctx, "Sync processing failed", "id", item.ID, "error", err)
			continue
		}
		synced++
	}
	return synced
}

// SyncTransaction writes the current state of transaction id to the ledger.
// version is the version the caller was told about; the row is always written
// as it is now, and marked synced at its current version.
func (p *SyncProcessor) SyncTransaction(ctx context.Context, id, version int64) error {
	if p.ledger == nil {
		return fmt.Errorf("no ledger writer configured")
	}

	t, err := p.storage.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction gone before sync, skipping", "id", id, "version", version)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := p.ledger.UpsertTransaction(ctx, t)
	if err != nil {
		if markErr := p.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction sync error",
				"id", id, "error", markErr)
		}
		return fmt.Errorf("write ledger row: %w", err)
	}

	if err := p.storage.MarkSynced(ctx, id, t.Version); err != nil {
		slog.WarnContext(ctx, "Failed to mark transaction as synced",
			"id", id, "error", err)
		// Don't fail - the ledger row was written
	}

	slog.InfoContext(ctx, "Synced transaction to ledger",
		"id", id,
		"version", t.Version,
		"message_version", version,
		"ledger_ref", ref)
	return nil
}

// DeleteTransaction removes a deleted transaction's ledger row.
func (p *SyncProcessor) DeleteTransaction(ctx context.Context, id int64) error {
	if p.deleter == nil {
		slog.WarnContext(ctx, "No deleter configured, skipping delete", "id", id)
		return nil
	}
	if err := p.deleter.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete ledger row: %w", err)
	}
	slog.InfoContext(ctx, "Deleted transaction from ledger", "id", id)
	return nil
}
