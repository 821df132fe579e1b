package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventLedger records which events have been seen
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AuditWorker consumes the order event stream and records every event in
// the processed-events ledger exactly once
type AuditWorker struct {
	consumer *broker.Consumer
	ledger   EventLedger
	logger   *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer, ledger EventLedger) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		ledger:   ledger,
		logger:   util.GetLogger(),
	}
}

// Start starts consuming until the context is cancelled
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker")
	return w.consumer.Close()
}

func (w *AuditWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.BaseEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	seen, err := w.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event ledger: %w", err)
	}
	if seen {
		w.logger.Debug("Skipping already recorded event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType))
		return nil
	}

	if err := w.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	w.logger.Info("Recorded order event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType))
	return nil
}
