package cli

import (
	"financeiro/internal/amqp"
	"financeiro/internal/config"
	applog "financeiro/internal/log"
	"financeiro/internal/services"
)

// InitAMQP connects to the broker when AMQP_URL is set. A nil client means
// SQLite-only mode; connection failures are logged and also yield nil.
func InitAMQP(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - transactions will not be mirrored to the ledger")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPDeleteQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		return nil
	}
	logger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"delete_queue", cfg.AMQPDeleteQueue)
	return client
}

// Publisher adapts an optional client to services.Publisher without
// producing a non-nil interface around a nil pointer.
func Publisher(client *amqp.Client) services.Publisher {
	if client == nil {
		return nil
	}
	return client
}
