package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

// In-memory repositories backing the service tests. Loads hand out copies so
// every transaction works on its own instance, and SaveWithLock matches the
// stored version against the version the aggregate was loaded with, the same
// check the SQL repositories run.

type memStockRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ledger.StockRecord
	// saveWithLockHook, when set, runs before each SaveWithLock and may
	// return an error to inject conflicts.
	saveWithLockHook func(record *ledger.StockRecord) error
}

func newMemStockRecordRepo() *memStockRecordRepo {
	return &memStockRecordRepo{records: make(map[uuid.UUID]*ledger.StockRecord)}
}

func copyStockRecord(record *ledger.StockRecord) *ledger.StockRecord {
	clone := *record
	clone.ClearDomainEvents()
	clone.SyncLoadedVersion()
	return &clone
}

func (r *memStockRecordRepo) seed(record *ledger.StockRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = copyStockRecord(record)
}

func (r *memStockRecordRepo) stored(id uuid.UUID) *ledger.StockRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[id]; ok {
		return copyStockRecord(record)
	}
	return nil
}

func (r *memStockRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copyStockRecord(record), nil
}

func (r *memStockRecordRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.StockRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := r.records[id]; ok {
			result = append(result, copyStockRecord(record))
		}
	}
	return result, nil
}

func (r *memStockRecordRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.StockRecord, 0)
	for _, record := range r.records {
		if record.ProductID == productID {
			result = append(result, copyStockRecord(record))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (r *memStockRecordRepo) FindByProductAndLocation(_ context.Context, productID uuid.UUID, locationID *uuid.UUID) (*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ProductID != productID {
			continue
		}
		if locationID == nil && record.LocationID == nil {
			return copyStockRecord(record), nil
		}
		if locationID != nil && record.LocationID != nil && *locationID == *record.LocationID {
			return copyStockRecord(record), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memStockRecordRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*ledger.StockRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*ledger.StockRecord, 0, len(r.records))
	for _, record := range r.records {
		items = append(items, copyStockRecord(record))
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memStockRecordRepo) Save(_ context.Context, record *ledger.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = copyStockRecord(record)
	record.SyncLoadedVersion()
	return nil
}

func (r *memStockRecordRepo) SaveWithLock(_ context.Context, record *ledger.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveWithLockHook != nil {
		if err := r.saveWithLockHook(record); err != nil {
			return err
		}
	}
	existing, ok := r.records[record.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.GetVersion() != record.LoadedVersion() {
		return shared.ErrConcurrencyConflict
	}
	r.records[record.ID] = copyStockRecord(record)
	record.SyncLoadedVersion()
	return nil
}

type memReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*ledger.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{reservations: make(map[uuid.UUID]*ledger.Reservation)}
}

func copyReservation(reservation *ledger.Reservation) *ledger.Reservation {
	clone := *reservation
	clone.ClearDomainEvents()
	clone.SyncLoadedVersion()
	clone.Allocations = make([]ledger.Allocation, len(reservation.Allocations))
	copy(clone.Allocations, reservation.Allocations)
	return &clone
}

func (r *memReservationRepo) stored(id uuid.UUID) *ledger.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reservation, ok := r.reservations[id]; ok {
		return copyReservation(reservation)
	}
	return nil
}

func (r *memReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copyReservation(reservation), nil
}

func (r *memReservationRepo) FindByCorrelationRef(_ context.Context, correlationRef string) ([]*ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.Reservation, 0)
	for _, reservation := range r.reservations {
		if reservation.CorrelationRef == correlationRef {
			result = append(result, copyReservation(reservation))
		}
	}
	return result, nil
}

func (r *memReservationRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*ledger.Reservation], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*ledger.Reservation, 0, len(r.reservations))
	for _, reservation := range r.reservations {
		items = append(items, copyReservation(reservation))
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memReservationRepo) Save(_ context.Context, reservation *ledger.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[reservation.ID] = copyReservation(reservation)
	reservation.SyncLoadedVersion()
	return nil
}

func (r *memReservationRepo) SaveWithLock(_ context.Context, reservation *ledger.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.reservations[reservation.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.GetVersion() != reservation.LoadedVersion() {
		return shared.ErrConcurrencyConflict
	}
	r.reservations[reservation.ID] = copyReservation(reservation)
	reservation.SyncLoadedVersion()
	return nil
}

type memMovementRepo struct {
	mu        sync.Mutex
	movements []*ledger.MovementRecord
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{movements: make([]*ledger.MovementRecord, 0)}
}

func (r *memMovementRepo) all() []*ledger.MovementRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.MovementRecord, len(r.movements))
	copy(result, r.movements)
	return result
}

func (r *memMovementRepo) Append(_ context.Context, movement *ledger.MovementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *movement
	r.movements = append(r.movements, &clone)
	return nil
}

func (r *memMovementRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, movement := range r.movements {
		if movement.ID == id {
			clone := *movement
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) FindByStockRecord(_ context.Context, stockRecordID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*ledger.MovementRecord, 0)
	for _, movement := range r.movements {
		if movement.StockRecordID == stockRecordID {
			clone := *movement
			items = append(items, &clone)
		}
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memMovementRepo) FindByCorrelationRef(_ context.Context, correlationRef string) ([]*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.MovementRecord, 0)
	for _, movement := range r.movements {
		if movement.CorrelationRef == correlationRef {
			clone := *movement
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memMovementRepo) FindTransferCounterpart(_ context.Context, correlationRef string, kind ledger.MovementKind, excludeID uuid.UUID) (*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, movement := range r.movements {
		if movement.ID != excludeID && movement.CorrelationRef == correlationRef && movement.Kind == kind {
			clone := *movement
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) FindReversalOf(_ context.Context, movementID uuid.UUID) (*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, movement := range r.movements {
		if movement.ReversalOf != nil && *movement.ReversalOf == movementID {
			clone := *movement
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*ledger.MovementRecord, 0, len(r.movements))
	for _, movement := range r.movements {
		clone := *movement
		items = append(items, &clone)
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

var _ ledger.StockRecordRepository = (*memStockRecordRepo)(nil)
var _ ledger.ReservationRepository = (*memReservationRepo)(nil)
var _ ledger.MovementRecordRepository = (*memMovementRepo)(nil)

// memFixture bundles the in-memory repositories behind a no-op scope
type memFixture struct {
	stockRecords *memStockRecordRepo
	reservations *memReservationRepo
	movements    *memMovementRepo
	scope        *NoOpTransactionScope
}

func newMemFixture() *memFixture {
	stockRecords := newMemStockRecordRepo()
	reservations := newMemReservationRepo()
	movements := newMemMovementRepo()
	return &memFixture{
		stockRecords: stockRecords,
		reservations: reservations,
		movements:    movements,
		scope:        NewNoOpTransactionScope(stockRecords, reservations, movements),
	}
}

// captureNotifier collects low-stock alerts for assertions
type captureNotifier struct {
	mu     sync.Mutex
	events []*ledger.StockBelowThresholdEvent
}

func (n *captureNotifier) Notify(_ context.Context, event *ledger.StockBelowThresholdEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) all() []*ledger.StockBelowThresholdEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]*ledger.StockBelowThresholdEvent, len(n.events))
	copy(result, n.events)
	return result
}

var _ ThresholdNotifier = (*captureNotifier)(nil)

// staticCatalog is a CatalogLookup backed by a fixed product set
type staticCatalog struct {
	products map[uuid.UUID]ProductInfo
}

func (c *staticCatalog) GetProduct(_ context.Context, productID uuid.UUID) (*ProductInfo, error) {
	if product, ok := c.products[productID]; ok {
		return &product, nil
	}
	return nil, shared.ErrNotFound
}
