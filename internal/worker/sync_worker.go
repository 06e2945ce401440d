package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"financeiro/internal/amqp"
)

// Processor is the ledger side of the worker.
type Processor interface {
	SyncTransaction(ctx context.Context, id, version int64) error
	DeleteTransaction(ctx context.Context, id int64) error
	ProcessPending(ctx context.Context) int
}

// Consumer delivers AMQP messages to the worker handlers.
type Consumer interface {
	ConsumeTransactionSync(ctx context.Context, handler func(*amqp.TransactionSyncMessage) error) error
	ConsumeTransactionDelete(ctx context.Context, handler func(*amqp.TransactionDeleteMessage) error) error
}

// startupBatches bounds the startup drain so a broken ledger cannot stall boot.
const startupBatches = 5

// SyncWorker mirrors transactions into the ledger from AMQP messages
type SyncWorker struct {
	processor Processor
}

func NewSyncWorker(processor Processor) *SyncWorker {
	return &SyncWorker{processor: processor}
}

// HandleSyncMessage processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	if msg.ID <= 0 {
		return fmt.Errorf("invalid transaction id %d", msg.ID)
	}
	if err := w.processor.SyncTransaction(ctx, msg.ID, msg.Version); err != nil {
		return fmt.Errorf("sync transaction %d: %w", msg.ID, err)
	}
	return nil
}

// HandleDeleteMessage processes a single transaction delete message from AMQP
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"timestamp", msg.Timestamp)

	if err := w.processor.DeleteTransaction(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete transaction %d: %w", msg.ID, err)
	}
	return nil
}

// StartupSyncCheck drains rows left pending while the worker was down.
// It returns how many rows were synced.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) int {
	total := 0
	for i := 0; i < startupBatches; i++ {
		n := w.processor.ProcessPending(ctx)
		total += n
		if n == 0 || ctx.Err() != nil {
			break
		}
	}

	if total == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
	} else {
		slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	}
	return total
}

// Run consumes the sync and delete queues until ctx is done or one consumer fails.
func (w *SyncWorker) Run(parent context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(parent)

	g.Go(func() error {
		return consumer.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		})
	})
	g.Go(func() error {
		return consumer.ConsumeTransactionDelete(ctx, func(msg *amqp.TransactionDeleteMessage) error {
			return w.HandleDeleteMessage(ctx, msg)
		})
	})

	err := g.Wait()
	if parent.Err() != nil && errors.Is(err, parent.Err()) {
		return nil
	}
	return err
}
