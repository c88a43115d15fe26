package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
	"github.com/stockcore/backend/internal/infrastructure/telemetry"
)

// ReversalService compensates past journal entries. A reversal writes a new
// REVERSAL entry with the negated delta and applies it to the on-hand
// counter; the original entry stays untouched. Each entry can be reversed at
// most once, and reversals themselves cannot be reversed.
//
// Reversing one side of a transfer reverses the paired side too, found via
// the shared correlation reference, so locations never drift apart.
type ReversalService struct {
	scope          TransactionScope
	notifier       ThresholdNotifier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewReversalService creates a new ReversalService
func NewReversalService(scope TransactionScope, logger *zap.Logger) *ReversalService {
	return &ReversalService{
		scope:  scope,
		logger: logger,
	}
}

// SetThresholdNotifier wires the sink for post-commit low-stock alerts
func (s *ReversalService) SetThresholdNotifier(notifier ThresholdNotifier) {
	s.notifier = notifier
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReversalService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Reverse compensates the given movement, and its transfer counterpart when
// there is one, in a single transaction.
func (s *ReversalService) Reverse(ctx context.Context, req ReverseRequest) (*ReverseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reverse",
		telemetry.WithAttribute("movement_id", req.MovementID),
	)
	defer span.End()

	var (
		response *ReverseResponse
		lowStock []*ledger.StockBelowThresholdEvent
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.Movements().FindByID(ctx, req.MovementID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrMovementNotFound
			}
			return err
		}
		if original.IsReversal() {
			return shared.NewDomainError("CANNOT_REVERSE_REVERSAL", "A reversal entry cannot be reversed")
		}

		targets := []*ledger.MovementRecord{original}
		if original.Kind.IsTransfer() {
			counterpart, err := repos.Movements().FindTransferCounterpart(
				ctx, original.CorrelationRef, original.Kind.TransferCounterpart(), original.ID,
			)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if counterpart != nil {
				targets = append(targets, counterpart)
			}
		}

		touched := make(map[uuid.UUID]*ledger.StockRecord)
		reversals := make([]MovementResponse, 0, len(targets))

		for _, target := range targets {
			if _, err := repos.Movements().FindReversalOf(ctx, target.ID); err == nil {
				return ledger.ErrAlreadyReversed
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}

			reversal, err := s.reverseOne(ctx, repos, touched, target, actorOrDefault(req.CausedBy))
			if err != nil {
				return err
			}
			reversals = append(reversals, ToMovementResponse(reversal))
		}

		for _, record := range touched {
			if err := repos.StockRecords().SaveWithLock(ctx, record); err != nil {
				return err
			}
		}

		lowStock = collectLowStock(touched)
		clearRecordEvents(touched)
		response = &ReverseResponse{Reversals: reversals}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			err = ledger.ErrConflict
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	dispatchLowStock(ctx, s.notifier, lowStock)
	return response, nil
}

// reverseOne applies the negated delta of one movement and appends its
// REVERSAL journal entry
func (s *ReversalService) reverseOne(
	ctx context.Context,
	repos TransactionalRepositories,
	touched map[uuid.UUID]*ledger.StockRecord,
	original *ledger.MovementRecord,
	causedBy string,
) (*ledger.MovementRecord, error) {
	record, ok := touched[original.StockRecordID]
	if !ok {
		loaded, err := repos.StockRecords().FindByID(ctx, original.StockRecordID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, ledger.ErrRecordNotFound
			}
			return nil, err
		}
		record = loaded
		touched[record.ID] = record
	}

	delta := original.QuantityDelta.Neg()

	// Quantity coming back re-enters costing at the cost it originally left
	// with; without a booked cost the current average carries it.
	if delta.IsPositive() {
		cost := record.AverageCost
		if original.UnitCost != nil {
			cost = *original.UnitCost
		}
		if err := record.AbsorbCost(delta, cost); err != nil {
			return nil, err
		}
	}

	// A reversal that can no longer take its quantity back surfaces the
	// invariant violation untouched; the caller sees which counter blocks it.
	if err := record.ApplyDelta(delta, decimal.Zero); err != nil {
		return nil, err
	}

	reversal, err := ledger.NewMovementRecord(
		record.ID, original.ProductID, original.LocationID,
		ledger.MovementKindReversal, delta,
		original.CorrelationRef, causedBy,
	)
	if err != nil {
		return nil, err
	}
	reversal = reversal.WithReversalOf(original.ID)
	if original.UnitCost != nil {
		reversal = reversal.WithCost(*original.UnitCost)
	}
	if original.Kind.IsTransfer() {
		reversal = reversal.WithTransferLink(original.LinkedLocationOut, original.LinkedLocationIn)
	}

	if err := repos.Movements().Append(ctx, reversal); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, ledger.NewMovementReversedEvent(record, original, reversal))
	}
	return reversal, nil
}
