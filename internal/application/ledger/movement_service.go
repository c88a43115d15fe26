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

// MovementService books physical stock changes into the journal: receipts,
// manual adjustments and transfers between locations. Every operation writes
// its counter change and its journal entry in one transaction.
type MovementService struct {
	scope          TransactionScope
	notifier       ThresholdNotifier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewMovementService creates a new MovementService
func NewMovementService(scope TransactionScope, logger *zap.Logger) *MovementService {
	return &MovementService{
		scope:  scope,
		logger: logger,
	}
}

// SetThresholdNotifier wires the sink for post-commit low-stock alerts
func (s *MovementService) SetThresholdNotifier(notifier ThresholdNotifier) {
	s.notifier = notifier
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *MovementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Receive books incoming quantity at the given unit cost. The stock record
// is created on first receipt for a product/location pair; the average cost
// absorbs the incoming cost before the quantity lands.
func (s *MovementService) Receive(ctx context.Context, req ReceiveRequest) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "receive",
		telemetry.WithAttribute("product_id", req.ProductID),
		telemetry.WithAttribute("quantity", req.Quantity),
	)
	defer span.End()

	if req.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ledger.ErrInvalidQuantity
	}
	if req.UnitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if req.CorrelationRef == "" {
		return nil, shared.NewDomainError("INVALID_CORRELATION", "Correlation reference is required")
	}

	var response *JournalEntryResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, created, err := s.findOrCreateRecord(ctx, repos, req.ProductID, req.LocationID)
		if err != nil {
			return err
		}

		if err := record.AbsorbCost(req.Quantity, req.UnitCost); err != nil {
			return err
		}
		if err := record.ApplyDelta(req.Quantity, decimal.Zero); err != nil {
			return err
		}

		movement, err := ledger.NewMovementRecord(
			record.ID, req.ProductID, record.LocationID,
			ledger.MovementKindReceipt, req.Quantity,
			req.CorrelationRef, actorOrDefault(req.CausedBy),
		)
		if err != nil {
			return err
		}
		movement = movement.WithCost(req.UnitCost)

		if err := s.saveRecord(ctx, repos, record, created); err != nil {
			return err
		}
		if err := repos.Movements().Append(ctx, movement); err != nil {
			return err
		}

		s.publishDomainEvents(ctx, record)
		response = &JournalEntryResponse{
			Record:   ToStockRecordResponse(record),
			Movement: ToMovementResponse(movement),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			err = ledger.ErrConflict
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	return response, nil
}

// Adjust corrects the on-hand counter by a signed delta, typically after a
// physical count. A negative delta can never cut into committed quantity;
// that surfaces as an invariant violation and nothing changes.
func (s *MovementService) Adjust(ctx context.Context, req AdjustRequest) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "adjust",
		telemetry.WithAttribute("product_id", req.ProductID),
		telemetry.WithAttribute("quantity_delta", req.QuantityDelta),
	)
	defer span.End()

	if req.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if req.QuantityDelta.IsZero() {
		return nil, ledger.ErrInvalidQuantity
	}
	if req.CorrelationRef == "" {
		return nil, shared.NewDomainError("INVALID_CORRELATION", "Correlation reference is required")
	}

	causedBy := req.CausedBy
	if causedBy == "" {
		causedBy = req.Reason
	}
	causedBy = actorOrDefault(causedBy)

	var (
		response *JournalEntryResponse
		lowStock []*ledger.StockBelowThresholdEvent
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.StockRecords().FindByProductAndLocation(ctx, req.ProductID, req.LocationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Counting up stock that was never received still needs a
				// record to land on.
				if req.QuantityDelta.IsPositive() {
					created, createErr := ledger.NewStockRecord(req.ProductID, req.LocationID)
					if createErr != nil {
						return createErr
					}
					record = created
					if saveErr := repos.StockRecords().Save(ctx, record); saveErr != nil {
						return saveErr
					}
				} else {
					return ledger.ErrRecordNotFound
				}
			} else {
				return err
			}
		}

		// No corrections while any quantity is committed.
		if record.Committed.IsPositive() {
			return shared.NewDomainError("HAS_COMMITTED_STOCK", "Cannot adjust stock while quantity is committed")
		}

		if err := record.ApplyDelta(req.QuantityDelta, decimal.Zero); err != nil {
			return err
		}

		movement, err := ledger.NewMovementRecord(
			record.ID, req.ProductID, record.LocationID,
			ledger.MovementKindAdjustment, req.QuantityDelta,
			req.CorrelationRef, causedBy,
		)
		if err != nil {
			return err
		}
		movement = movement.WithCost(record.AverageCost)

		if err := repos.StockRecords().SaveWithLock(ctx, record); err != nil {
			return err
		}
		if err := repos.Movements().Append(ctx, movement); err != nil {
			return err
		}

		lowStock = collectLowStock(map[uuid.UUID]*ledger.StockRecord{record.ID: record})
		s.publishDomainEvents(ctx, record)
		response = &JournalEntryResponse{
			Record:   ToStockRecordResponse(record),
			Movement: ToMovementResponse(movement),
		}
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

// Transfer moves available quantity between two locations as a paired
// TRANSFER_OUT / TRANSFER_IN sharing one correlation reference. Committed
// quantity never moves; a transfer that would cut into it is rejected as
// insufficient stock.
func (s *MovementService) Transfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "transfer",
		telemetry.WithAttribute("product_id", req.ProductID),
		telemetry.WithAttribute("quantity", req.Quantity),
	)
	defer span.End()

	if req.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if req.FromLocationID == uuid.Nil || req.ToLocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Both locations are required")
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Source and destination locations must differ")
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ledger.ErrInvalidQuantity
	}

	// The correlation reference is the pairing key between the two sides.
	correlationRef := req.CorrelationRef
	if correlationRef == "" {
		correlationRef = uuid.New().String()
	}

	var (
		response *TransferResponse
		lowStock []*ledger.StockBelowThresholdEvent
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, err := repos.StockRecords().FindByProductAndLocation(ctx, req.ProductID, &req.FromLocationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrRecordNotFound
			}
			return err
		}
		if !source.CanFulfill(req.Quantity) {
			return ledger.NewInsufficientStockError(req.ProductID, req.Quantity, source.Available())
		}

		destination, destinationCreated, err := s.findOrCreateRecord(ctx, repos, req.ProductID, &req.ToLocationID)
		if err != nil {
			return err
		}

		transferCost := source.AverageCost

		if err := source.ApplyDelta(req.Quantity.Neg(), decimal.Zero); err != nil {
			return err
		}
		if err := destination.AbsorbCost(req.Quantity, transferCost); err != nil {
			return err
		}
		if err := destination.ApplyDelta(req.Quantity, decimal.Zero); err != nil {
			return err
		}

		outMovement, err := ledger.NewMovementRecord(
			source.ID, req.ProductID, source.LocationID,
			ledger.MovementKindTransferOut, req.Quantity.Neg(),
			correlationRef, actorOrDefault(req.CausedBy),
		)
		if err != nil {
			return err
		}
		inMovement, err := ledger.NewMovementRecord(
			destination.ID, req.ProductID, destination.LocationID,
			ledger.MovementKindTransferIn, req.Quantity,
			correlationRef, actorOrDefault(req.CausedBy),
		)
		if err != nil {
			return err
		}
		outMovement = outMovement.WithCost(transferCost).WithTransferLink(&req.FromLocationID, &req.ToLocationID)
		inMovement = inMovement.WithCost(transferCost).WithTransferLink(&req.FromLocationID, &req.ToLocationID)

		if err := repos.StockRecords().SaveWithLock(ctx, source); err != nil {
			return err
		}
		if err := s.saveRecord(ctx, repos, destination, destinationCreated); err != nil {
			return err
		}
		if err := repos.Movements().Append(ctx, outMovement); err != nil {
			return err
		}
		if err := repos.Movements().Append(ctx, inMovement); err != nil {
			return err
		}

		lowStock = collectLowStock(map[uuid.UUID]*ledger.StockRecord{source.ID: source})
		s.publishDomainEvents(ctx, source)
		s.publishDomainEvents(ctx, destination)
		response = &TransferResponse{
			OutMovement: ToMovementResponse(outMovement),
			InMovement:  ToMovementResponse(inMovement),
		}
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

// SetReorderThreshold updates the low-stock alert threshold on a record
func (s *MovementService) SetReorderThreshold(ctx context.Context, recordID uuid.UUID, threshold decimal.Decimal) (*StockRecordResponse, error) {
	var response *StockRecordResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.StockRecords().FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrRecordNotFound
			}
			return err
		}
		if err := record.SetReorderThreshold(threshold); err != nil {
			return err
		}
		if err := repos.StockRecords().SaveWithLock(ctx, record); err != nil {
			return err
		}
		resp := ToStockRecordResponse(record)
		response = &resp
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, ledger.ErrConflict
		}
		return nil, err
	}
	return response, nil
}

// findOrCreateRecord returns the record for a product/location pair,
// creating and inserting an empty one on first use
func (s *MovementService) findOrCreateRecord(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, locationID *uuid.UUID) (*ledger.StockRecord, bool, error) {
	record, err := repos.StockRecords().FindByProductAndLocation(ctx, productID, locationID)
	if err == nil {
		return record, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}
	record, err = ledger.NewStockRecord(productID, locationID)
	if err != nil {
		return nil, false, err
	}
	if err := repos.StockRecords().Save(ctx, record); err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// saveRecord persists a record with optimistic locking unless it was created
// inside this transaction, in which case a plain save avoids a version bump
// on a row no one else can have seen
func (s *MovementService) saveRecord(ctx context.Context, repos TransactionalRepositories, record *ledger.StockRecord, created bool) error {
	if created {
		return repos.StockRecords().Save(ctx, record)
	}
	return repos.StockRecords().SaveWithLock(ctx, record)
}

// publishDomainEvents publishes and clears the aggregate's pending events
func (s *MovementService) publishDomainEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	defer aggregate.ClearDomainEvents()
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
