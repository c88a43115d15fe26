package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockcore/backend/internal/domain/shared"
)

// StockRecordRepository persists stock record aggregates. Implementations
// must enforce optimistic locking in SaveWithLock: a version mismatch returns
// shared.ErrConcurrencyConflict and writes nothing.
type StockRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockRecord, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*StockRecord, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]*StockRecord, error)
	FindByProductAndLocation(ctx context.Context, productID uuid.UUID, locationID *uuid.UUID) (*StockRecord, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*StockRecord], error)
	Save(ctx context.Context, record *StockRecord) error
	SaveWithLock(ctx context.Context, record *StockRecord) error
}

// MovementRecordRepository persists the append-only movement journal.
// Movements are never updated or deleted; corrections enter as new rows.
type MovementRecordRepository interface {
	Append(ctx context.Context, movement *MovementRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*MovementRecord, error)
	FindByStockRecord(ctx context.Context, stockRecordID uuid.UUID, filter shared.Filter) (*shared.Paginated[*MovementRecord], error)
	FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*MovementRecord, error)
	// FindTransferCounterpart returns the movement sharing the correlation
	// reference with the opposite transfer kind, or shared.ErrNotFound.
	FindTransferCounterpart(ctx context.Context, correlationRef string, kind MovementKind, excludeID uuid.UUID) (*MovementRecord, error)
	// FindReversalOf returns the reversal movement pointing at the given
	// original, or shared.ErrNotFound when the original is unreversed.
	FindReversalOf(ctx context.Context, movementID uuid.UUID) (*MovementRecord, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*MovementRecord], error)
}

// ReservationRepository persists reservation aggregates together with their
// allocation lines.
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*Reservation, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Reservation], error)
	Save(ctx context.Context, reservation *Reservation) error
	SaveWithLock(ctx context.Context, reservation *Reservation) error
}
