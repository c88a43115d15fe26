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

// CommitmentService settles active reservations: Fulfill turns committed
// quantity into a physical consumption, Release hands it back to available.
//
// Fulfillment moves both counters down and writes a CONSUMPTION journal
// entry per drained line. Release only lowers the committed counter; nothing
// physical happened, so the journal stays untouched.
type CommitmentService struct {
	scope          TransactionScope
	notifier       ThresholdNotifier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCommitmentService creates a new CommitmentService
func NewCommitmentService(scope TransactionScope, logger *zap.Logger) *CommitmentService {
	return &CommitmentService{
		scope:  scope,
		logger: logger,
	}
}

// SetThresholdNotifier wires the sink for post-commit low-stock alerts
func (s *CommitmentService) SetThresholdNotifier(notifier ThresholdNotifier) {
	s.notifier = notifier
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CommitmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Fulfill drains committed quantity from the reservation and books the
// matching consumption. With no explicit lines every remaining line is
// drained in full.
func (s *CommitmentService) Fulfill(ctx context.Context, req FulfillRequest) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "fulfill",
		telemetry.WithAttribute("reservation_id", req.ReservationID),
	)
	defer span.End()

	var (
		response *ReservationResponse
		lowStock []*ledger.StockBelowThresholdEvent
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.Reservations().FindByID(ctx, req.ReservationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrReservationNotFound
			}
			return err
		}
		if !reservation.IsActive() {
			return ledger.ErrReservationNotActive
		}

		lines, err := resolveLines(reservation, req.Lines)
		if err != nil {
			return err
		}

		touched := make(map[uuid.UUID]*ledger.StockRecord)
		for _, line := range lines {
			allocation := reservation.FindAllocation(line.AllocationID)
			if allocation == nil {
				return shared.ErrNotFound
			}

			record, err := s.loadRecord(ctx, repos, touched, allocation.StockRecordID)
			if err != nil {
				return err
			}

			if err := reservation.Drain(line.AllocationID, line.Quantity); err != nil {
				return err
			}
			if err := record.ApplyDelta(line.Quantity.Neg(), line.Quantity.Neg()); err != nil {
				return err
			}

			movement, err := ledger.NewMovementRecord(
				record.ID, allocation.ProductID, record.LocationID,
				ledger.MovementKindConsumption, line.Quantity.Neg(),
				reservation.CorrelationRef, actorOrDefault(req.CausedBy),
			)
			if err != nil {
				return err
			}
			movement = movement.WithCost(record.AverageCost)
			if err := repos.Movements().Append(ctx, movement); err != nil {
				return err
			}
		}

		for _, record := range touched {
			if err := repos.StockRecords().SaveWithLock(ctx, record); err != nil {
				return err
			}
		}
		if err := repos.Reservations().SaveWithLock(ctx, reservation); err != nil {
			return err
		}

		lowStock = collectLowStock(touched)
		s.publishDomainEvents(ctx, reservation)
		clearRecordEvents(touched)

		resp := ToReservationResponse(reservation)
		response = &resp
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

// Release returns committed quantity to available. Releasing an already
// closed reservation, or an already drained line, is a no-op rather than an
// error, so callers can retry safely.
func (s *CommitmentService) Release(ctx context.Context, req ReleaseRequest) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "release",
		telemetry.WithAttribute("reservation_id", req.ReservationID),
	)
	defer span.End()

	var response *ReservationResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.Reservations().FindByID(ctx, req.ReservationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrReservationNotFound
			}
			return err
		}
		if !reservation.IsActive() {
			resp := ToReservationResponse(reservation)
			response = &resp
			return nil
		}

		lines, err := resolveLines(reservation, req.Lines)
		if err != nil {
			return err
		}

		touched := make(map[uuid.UUID]*ledger.StockRecord)
		for _, line := range lines {
			allocation := reservation.FindAllocation(line.AllocationID)
			if allocation == nil {
				return shared.ErrNotFound
			}

			released, err := reservation.ReleaseLine(line.AllocationID, line.Quantity)
			if err != nil {
				return err
			}
			if released.IsZero() {
				continue
			}

			record, err := s.loadRecord(ctx, repos, touched, allocation.StockRecordID)
			if err != nil {
				return err
			}
			if err := record.ApplyDelta(decimal.Zero, released.Neg()); err != nil {
				return err
			}
		}

		for _, record := range touched {
			if err := repos.StockRecords().SaveWithLock(ctx, record); err != nil {
				return err
			}
		}
		if err := repos.Reservations().SaveWithLock(ctx, reservation); err != nil {
			return err
		}

		s.publishDomainEvents(ctx, reservation)
		clearRecordEvents(touched)

		resp := ToReservationResponse(reservation)
		response = &resp
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

// loadRecord fetches a stock record once per transaction, reusing the
// already mutated instance on repeat lines
func (s *CommitmentService) loadRecord(ctx context.Context, repos TransactionalRepositories, touched map[uuid.UUID]*ledger.StockRecord, recordID uuid.UUID) (*ledger.StockRecord, error) {
	if record, ok := touched[recordID]; ok {
		return record, nil
	}
	record, err := repos.StockRecords().FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ledger.ErrRecordNotFound
		}
		return nil, err
	}
	touched[recordID] = record
	return record, nil
}

// resolveLines expands an empty line list into "every open line in full"
func resolveLines(reservation *ledger.Reservation, lines []CommitmentLine) ([]CommitmentLine, error) {
	if len(lines) == 0 {
		resolved := make([]CommitmentLine, 0, len(reservation.Allocations))
		for i := range reservation.Allocations {
			allocation := &reservation.Allocations[i]
			if allocation.Committed.IsPositive() {
				resolved = append(resolved, CommitmentLine{
					AllocationID: allocation.ID,
					Quantity:     allocation.Committed,
				})
			}
		}
		return resolved, nil
	}
	for _, line := range lines {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, ledger.ErrInvalidQuantity
		}
	}
	return lines, nil
}

// publishDomainEvents publishes and clears the aggregate's pending events
func (s *CommitmentService) publishDomainEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	aggregate.ClearDomainEvents()
}
