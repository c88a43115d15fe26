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

// DefaultConflictRetries is how often a reservation is replanned after an
// optimistic locking conflict before giving up.
const DefaultConflictRetries = 3

// ReservationService creates reservations all-or-nothing and reads them back.
//
// Reserve coordinates multiple stock record aggregates. Within one attempt it
// applies the planned committed deltas in memory, compensating the ones
// already applied if a later one fails, and persists everything in a single
// transaction. A version conflict on any record rolls the transaction back
// and the whole reservation is replanned from fresh state, up to the
// configured retry budget.
type ReservationService struct {
	scope          TransactionScope
	planner        *ledger.AllocationPlanner
	catalog        CatalogLookup
	notifier       ThresholdNotifier
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	maxRetries     int
}

// ReservationServiceOption is a functional option for configuring ReservationService
type ReservationServiceOption func(*ReservationService)

// WithConflictRetries overrides the optimistic-conflict retry budget
func WithConflictRetries(retries int) ReservationServiceOption {
	return func(s *ReservationService) {
		if retries > 0 {
			s.maxRetries = retries
		}
	}
}

// WithCatalogLookup wires a catalog used to distinguish unknown products from
// known products without stock
func WithCatalogLookup(catalog CatalogLookup) ReservationServiceOption {
	return func(s *ReservationService) {
		s.catalog = catalog
	}
}

// WithThresholdNotifier wires the sink for post-commit low-stock alerts
func WithThresholdNotifier(notifier ThresholdNotifier) ReservationServiceOption {
	return func(s *ReservationService) {
		s.notifier = notifier
	}
}

// WithEventPublisher wires the domain event publisher
func WithEventPublisher(publisher shared.EventPublisher) ReservationServiceOption {
	return func(s *ReservationService) {
		s.eventPublisher = publisher
	}
}

// NewReservationService creates a new ReservationService
func NewReservationService(scope TransactionScope, logger *zap.Logger, opts ...ReservationServiceOption) *ReservationService {
	s := &ReservationService{
		scope:      scope,
		planner:    ledger.NewAllocationPlanner(),
		logger:     logger,
		maxRetries: DefaultConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve plans and commits an all-or-nothing reservation. Either every
// requested item is committed in full or nothing is persisted.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reserve",
		telemetry.WithAttribute("correlation_ref", req.CorrelationRef),
		telemetry.WithAttribute("item_count", len(req.Items)),
	)
	defer span.End()

	if err := s.validateReserveRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		response   *ReservationResponse
		lowStock   []*ledger.StockBelowThresholdEvent
		attemptErr error
	)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		response, lowStock, attemptErr = s.reserveOnce(ctx, req)
		if attemptErr == nil {
			break
		}
		if !errors.Is(attemptErr, shared.ErrConcurrencyConflict) {
			telemetry.RecordError(span, attemptErr)
			return nil, attemptErr
		}
		s.logger.Debug("reservation hit version conflict, replanning",
			zap.String("correlation_ref", req.CorrelationRef),
			zap.Int("attempt", attempt+1),
		)
	}
	if attemptErr != nil {
		if errors.Is(attemptErr, shared.ErrConcurrencyConflict) {
			attemptErr = ledger.ErrConflict
		}
		telemetry.RecordError(span, attemptErr)
		return nil, attemptErr
	}

	s.dispatchLowStock(ctx, lowStock)
	return response, nil
}

// reserveOnce runs a single plan-and-commit attempt inside one transaction
func (s *ReservationService) reserveOnce(ctx context.Context, req ReserveRequest) (*ReservationResponse, []*ledger.StockBelowThresholdEvent, error) {
	var (
		response *ReservationResponse
		lowStock []*ledger.StockBelowThresholdEvent
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := ledger.NewReservation(req.CorrelationRef)
		if err != nil {
			return err
		}

		// Applied committed deltas, kept for in-memory compensation if a
		// later item fails mid-flight.
		type appliedDelta struct {
			record   *ledger.StockRecord
			quantity decimal.Decimal
		}
		applied := make([]appliedDelta, 0)
		compensate := func() {
			for i := len(applied) - 1; i >= 0; i-- {
				_ = applied[i].record.ApplyDelta(decimal.Zero, applied[i].quantity.Neg())
			}
		}

		touched := make(map[uuid.UUID]*ledger.StockRecord)

		for _, item := range req.Items {
			records, err := repos.StockRecords().FindByProduct(ctx, item.ProductID)
			if err != nil {
				compensate()
				return err
			}
			if len(records) == 0 {
				compensate()
				return s.classifyMissingProduct(ctx, item.ProductID, item.Quantity)
			}

			// Reuse instances already mutated by earlier items so their
			// availability reflects this reservation's own claims.
			candidates := make([]*ledger.StockRecord, 0, len(records))
			for _, record := range records {
				if seen, ok := touched[record.ID]; ok {
					candidates = append(candidates, seen)
				} else {
					candidates = append(candidates, record)
				}
			}

			plan, err := s.planner.Plan(ledger.PlanRequest{
				ProductID:         item.ProductID,
				Quantity:          item.Quantity,
				PreferredLocation: item.PreferredLocation,
				Records:           candidates,
			})
			if err != nil {
				compensate()
				return err
			}

			byID := make(map[uuid.UUID]*ledger.StockRecord, len(candidates))
			for _, record := range candidates {
				byID[record.ID] = record
			}

			for _, line := range plan.Lines {
				record := byID[line.StockRecordID]
				if err := record.ApplyDelta(decimal.Zero, line.Quantity); err != nil {
					compensate()
					return err
				}
				applied = append(applied, appliedDelta{record: record, quantity: line.Quantity})
				touched[record.ID] = record

				if err := reservation.AddAllocation(record.ID, item.ProductID, record.LocationID, line.Quantity); err != nil {
					compensate()
					return err
				}
			}
		}

		for _, record := range touched {
			if err := repos.StockRecords().SaveWithLock(ctx, record); err != nil {
				return err
			}
		}
		reservation.AddDomainEvent(ledger.NewStockReservedEvent(reservation))
		if err := repos.Reservations().Save(ctx, reservation); err != nil {
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
		return nil, nil, err
	}
	return response, lowStock, nil
}

// classifyMissingProduct decides between "unknown product" and "known
// product with nothing available" when no stock record exists.
func (s *ReservationService) classifyMissingProduct(ctx context.Context, productID uuid.UUID, requested decimal.Decimal) error {
	if s.catalog != nil {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil || product == nil {
			return ledger.ErrProductNotFound
		}
		return ledger.NewInsufficientStockError(productID, requested, decimal.Zero)
	}
	return ledger.NewInsufficientStockError(productID, requested, decimal.Zero)
}

// GetReservation retrieves a reservation by ID
func (s *ReservationService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	var response *ReservationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		resp := ToReservationResponse(reservation)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListReservations retrieves reservations with pagination
func (s *ReservationService) ListReservations(ctx context.Context, filter shared.Filter) (*shared.Paginated[ReservationResponse], error) {
	var response *shared.Paginated[ReservationResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		page, err := repos.Reservations().List(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]ReservationResponse, 0, len(page.Items))
		for _, reservation := range page.Items {
			items = append(items, ToReservationResponse(reservation))
		}
		paginated := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
		response = &paginated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListByCorrelationRef retrieves the reservations owned by one external document
func (s *ReservationService) ListByCorrelationRef(ctx context.Context, correlationRef string) ([]ReservationResponse, error) {
	var responses []ReservationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservations, err := repos.Reservations().FindByCorrelationRef(ctx, correlationRef)
		if err != nil {
			return err
		}
		responses = make([]ReservationResponse, 0, len(reservations))
		for _, reservation := range reservations {
			responses = append(responses, ToReservationResponse(reservation))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

func (s *ReservationService) validateReserveRequest(req ReserveRequest) error {
	if req.CorrelationRef == "" {
		return shared.NewDomainError("INVALID_CORRELATION", "Correlation reference is required")
	}
	if len(req.Items) == 0 {
		return shared.NewDomainError("INVALID_REQUEST", "At least one item is required")
	}
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return ledger.ErrInvalidQuantity
		}
	}
	return nil
}

// publishDomainEvents publishes and clears the aggregate's pending events
func (s *ReservationService) publishDomainEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Errors are logged by the event bus, not propagated.
	_ = s.eventPublisher.Publish(ctx, events...)
	aggregate.ClearDomainEvents()
}

// dispatchLowStock forwards low-stock alerts after commit, without blocking
// or failing the calling operation
func (s *ReservationService) dispatchLowStock(ctx context.Context, events []*ledger.StockBelowThresholdEvent) {
	dispatchLowStock(ctx, s.notifier, events)
}

// collectLowStock gathers threshold events raised by the touched records
func collectLowStock(records map[uuid.UUID]*ledger.StockRecord) []*ledger.StockBelowThresholdEvent {
	var events []*ledger.StockBelowThresholdEvent
	for _, record := range records {
		for _, event := range record.GetDomainEvents() {
			if lowStock, ok := event.(*ledger.StockBelowThresholdEvent); ok {
				events = append(events, lowStock)
			}
		}
	}
	return events
}

func clearRecordEvents(records map[uuid.UUID]*ledger.StockRecord) {
	for _, record := range records {
		record.ClearDomainEvents()
	}
}

// dispatchLowStock is shared by the ledger services that mutate counters
func dispatchLowStock(ctx context.Context, notifier ThresholdNotifier, events []*ledger.StockBelowThresholdEvent) {
	if notifier == nil || len(events) == 0 {
		return
	}
	go func() {
		// Detach from the request context; the request may already be done.
		detached := context.WithoutCancel(ctx)
		for _, event := range events {
			notifier.Notify(detached, event)
		}
	}()
}
