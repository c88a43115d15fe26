package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockcore/backend/internal/domain/ledger"
)

// ThresholdNotifier receives low-stock alerts after the transaction that
// produced them has committed. Notification is fire-and-forget: a failing
// notifier never affects the ledger operation that triggered it.
type ThresholdNotifier interface {
	Notify(ctx context.Context, event *ledger.StockBelowThresholdEvent)
}

// LoggingThresholdNotifier writes low-stock alerts to the structured log.
// It is the default sink when no external notifier is wired.
type LoggingThresholdNotifier struct {
	logger *zap.Logger
}

// NewLoggingThresholdNotifier creates a notifier backed by the given logger
func NewLoggingThresholdNotifier(logger *zap.Logger) *LoggingThresholdNotifier {
	return &LoggingThresholdNotifier{logger: logger}
}

// Notify logs the low-stock alert
func (n *LoggingThresholdNotifier) Notify(_ context.Context, event *ledger.StockBelowThresholdEvent) {
	n.logger.Warn("stock below threshold",
		zap.String("stock_record_id", event.StockRecordID.String()),
		zap.String("product_id", event.ProductID.String()),
		zap.String("available", event.Available.String()),
		zap.String("threshold", event.Threshold.String()),
	)
}

var _ ThresholdNotifier = (*LoggingThresholdNotifier)(nil)
