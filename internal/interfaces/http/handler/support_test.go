package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ledgerapp "github.com/stockcore/backend/internal/application/ledger"
	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

// Minimal in-memory repositories backing the handlers under test. Paths the
// tests never reach return not found or empty pages.

type stubStockRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ledger.StockRecord
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{records: make(map[uuid.UUID]*ledger.StockRecord)}
}

func (r *stubStockRepo) seed(record *ledger.StockRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
}

func (r *stubStockRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[id]; ok {
		return record, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubStockRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.StockRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := r.records[id]; ok {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *stubStockRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*ledger.StockRecord
	for _, record := range r.records {
		if record.ProductID == productID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *stubStockRepo) FindByProductAndLocation(_ context.Context, productID uuid.UUID, locationID *uuid.UUID) (*ledger.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ProductID != productID {
			continue
		}
		if locationID == nil && record.LocationID == nil {
			return record, nil
		}
		if locationID != nil && record.LocationID != nil && *record.LocationID == *locationID {
			return record, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubStockRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*ledger.StockRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*ledger.StockRecord, 0, len(r.records))
	for _, record := range r.records {
		items = append(items, record)
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *stubStockRepo) Save(_ context.Context, record *ledger.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *stubStockRepo) SaveWithLock(_ context.Context, record *ledger.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

type stubReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*ledger.Reservation
}

func newStubReservationRepo() *stubReservationRepo {
	return &stubReservationRepo{reservations: make(map[uuid.UUID]*ledger.Reservation)}
}

func (r *stubReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reservation, ok := r.reservations[id]; ok {
		return reservation, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubReservationRepo) FindByCorrelationRef(_ context.Context, correlationRef string) ([]*ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*ledger.Reservation
	for _, reservation := range r.reservations {
		if reservation.CorrelationRef == correlationRef {
			result = append(result, reservation)
		}
	}
	return result, nil
}

func (r *stubReservationRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*ledger.Reservation], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*ledger.Reservation, 0, len(r.reservations))
	for _, reservation := range r.reservations {
		items = append(items, reservation)
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *stubReservationRepo) Save(_ context.Context, reservation *ledger.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[reservation.ID] = reservation
	return nil
}

func (r *stubReservationRepo) SaveWithLock(_ context.Context, reservation *ledger.Reservation) error {
	return r.Save(context.Background(), reservation)
}

type stubMovementRepo struct {
	mu        sync.Mutex
	movements []*ledger.MovementRecord
}

func newStubMovementRepo() *stubMovementRepo {
	return &stubMovementRepo{}
}

func (r *stubMovementRepo) Append(_ context.Context, movement *ledger.MovementRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movement)
	return nil
}

func (r *stubMovementRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, movement := range r.movements {
		if movement.ID == id {
			return movement, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubMovementRepo) FindByStockRecord(_ context.Context, stockRecordID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*ledger.MovementRecord
	for _, movement := range r.movements {
		if movement.StockRecordID == stockRecordID {
			items = append(items, movement)
		}
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *stubMovementRepo) FindByCorrelationRef(_ context.Context, correlationRef string) ([]*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*ledger.MovementRecord
	for _, movement := range r.movements {
		if movement.CorrelationRef == correlationRef {
			result = append(result, movement)
		}
	}
	return result, nil
}

func (r *stubMovementRepo) FindTransferCounterpart(_ context.Context, correlationRef string, kind ledger.MovementKind, excludeID uuid.UUID) (*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, movement := range r.movements {
		if movement.CorrelationRef == correlationRef && movement.Kind == kind && movement.ID != excludeID {
			return movement, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubMovementRepo) FindReversalOf(_ context.Context, movementID uuid.UUID) (*ledger.MovementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, movement := range r.movements {
		if movement.ReversalOf != nil && *movement.ReversalOf == movementID {
			return movement, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubMovementRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := shared.NewPaginated(r.movements, int64(len(r.movements)), filter.Page, filter.PageSize)
	return &page, nil
}

// testServices wires the application services over in-memory repositories
type testServices struct {
	stockRepo       *stubStockRepo
	reservationRepo *stubReservationRepo
	movementRepo    *stubMovementRepo

	availability *ledgerapp.AvailabilityService
	movements    *ledgerapp.MovementService
	reservations *ledgerapp.ReservationService
	commitments  *ledgerapp.CommitmentService
	reversals    *ledgerapp.ReversalService
}

func newTestServices() *testServices {
	stockRepo := newStubStockRepo()
	reservationRepo := newStubReservationRepo()
	movementRepo := newStubMovementRepo()
	scope := ledgerapp.NewNoOpTransactionScope(stockRepo, reservationRepo, movementRepo)
	logger := zap.NewNop()

	return &testServices{
		stockRepo:       stockRepo,
		reservationRepo: reservationRepo,
		movementRepo:    movementRepo,
		availability:    ledgerapp.NewAvailabilityService(scope),
		movements:       ledgerapp.NewMovementService(scope, logger),
		reservations:    ledgerapp.NewReservationService(scope, logger),
		commitments:     ledgerapp.NewCommitmentService(scope, logger),
		reversals:       ledgerapp.NewReversalService(scope, logger),
	}
}
