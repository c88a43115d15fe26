package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/shared"
)

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	// ReservationStatusActive means committed quantity remains and nothing shipped yet
	ReservationStatusActive ReservationStatus = "ACTIVE"
	// ReservationStatusReleased means every line was cancelled back to available
	ReservationStatusReleased ReservationStatus = "RELEASED"
	// ReservationStatusFulfilled means every line was drained by shipments
	ReservationStatusFulfilled ReservationStatus = "FULFILLED"
	// ReservationStatusPartiallyFulfilled means some quantity shipped, some still committed
	ReservationStatusPartiallyFulfilled ReservationStatus = "PARTIALLY_FULFILLED"
)

// String returns the string representation of ReservationStatus
func (s ReservationStatus) String() string {
	return string(s)
}

// Allocation is one line of a reservation: committed quantity drawn from a
// single stock record. Each line is independently drainable and releasable,
// which is what makes partial fulfillment and compensation possible.
type Allocation struct {
	shared.BaseEntity
	ReservationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	StockRecordID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	LocationID    *uuid.UUID      `gorm:"type:uuid"`
	Committed     decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Remaining committed quantity
	Fulfilled     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Released      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Position      int             `gorm:"not null"` // Planner emission order
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "reservation_allocations"
}

// IsClosed returns true once no committed quantity remains on the line
func (a *Allocation) IsClosed() bool {
	return a.Committed.IsZero()
}

// Reservation is a provisional multi-line claim on committed stock, owned by
// exactly one external order or invoice via CorrelationRef. It is created
// all-or-nothing and mutated only through the commitment operations.
type Reservation struct {
	shared.BaseAggregateRoot
	CorrelationRef string            `gorm:"type:varchar(100);not null;index"`
	Status         ReservationStatus `gorm:"type:varchar(30);not null;index"`
	Allocations    []Allocation      `gorm:"foreignKey:ReservationID;references:ID"`
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "reservations"
}

// NewReservation creates an empty active reservation for a correlation reference
func NewReservation(correlationRef string) (*Reservation, error) {
	if correlationRef == "" {
		return nil, shared.NewDomainError("INVALID_CORRELATION", "Correlation reference cannot be empty")
	}
	return &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CorrelationRef:    correlationRef,
		Status:            ReservationStatusActive,
		Allocations:       make([]Allocation, 0),
	}, nil
}

// AddAllocation appends a committed allocation line in planner order
func (r *Reservation) AddAllocation(stockRecordID, productID uuid.UUID, locationID *uuid.UUID, quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	r.Allocations = append(r.Allocations, Allocation{
		BaseEntity:    shared.NewBaseEntity(),
		ReservationID: r.ID,
		StockRecordID: stockRecordID,
		ProductID:     productID,
		LocationID:    locationID,
		Committed:     quantity,
		Fulfilled:     decimal.Zero,
		Released:      decimal.Zero,
		Position:      len(r.Allocations),
	})
	r.Touch()
	r.IncrementVersion()
	return nil
}

// IsActive returns true while the reservation still carries committed quantity
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive || r.Status == ReservationStatusPartiallyFulfilled
}

// TotalCommitted sums the remaining committed quantity across all lines
func (r *Reservation) TotalCommitted() decimal.Decimal {
	total := decimal.Zero
	for i := range r.Allocations {
		total = total.Add(r.Allocations[i].Committed)
	}
	return total
}

// TotalFulfilled sums the drained quantity across all lines
func (r *Reservation) TotalFulfilled() decimal.Decimal {
	total := decimal.Zero
	for i := range r.Allocations {
		total = total.Add(r.Allocations[i].Fulfilled)
	}
	return total
}

// FindAllocation returns the allocation line with the given ID, or nil
func (r *Reservation) FindAllocation(allocationID uuid.UUID) *Allocation {
	for i := range r.Allocations {
		if r.Allocations[i].ID == allocationID {
			return &r.Allocations[i]
		}
	}
	return nil
}

// FindAllocationByStockRecord returns the line drawing from the given stock
// record, or nil. The planner never emits two lines against the same record
// within one reservation.
func (r *Reservation) FindAllocationByStockRecord(stockRecordID uuid.UUID) *Allocation {
	for i := range r.Allocations {
		if r.Allocations[i].StockRecordID == stockRecordID {
			return &r.Allocations[i]
		}
	}
	return nil
}

// Drain moves quantity on an allocation line from committed to fulfilled.
// Draining more than the remaining committed quantity is rejected.
func (r *Reservation) Drain(allocationID uuid.UUID, quantity decimal.Decimal) error {
	if !r.IsActive() {
		return ErrReservationNotActive
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}

	alloc := r.FindAllocation(allocationID)
	if alloc == nil {
		return shared.ErrNotFound
	}
	if quantity.GreaterThan(alloc.Committed) {
		return &OverFulfillmentError{
			StockRecordID: alloc.StockRecordID,
			Requested:     quantity,
			Remaining:     alloc.Committed,
		}
	}

	alloc.Committed = alloc.Committed.Sub(quantity)
	alloc.Fulfilled = alloc.Fulfilled.Add(quantity)
	alloc.Touch()
	r.recomputeStatus()
	r.Touch()
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationFulfilledEvent(r, alloc.StockRecordID, quantity))
	return nil
}

// ReleaseLine returns up to quantity from an allocation line back to
// available, capped at the remaining committed quantity. It reports the
// quantity actually released, which is zero on an already-drained line.
func (r *Reservation) ReleaseLine(allocationID uuid.UUID, quantity decimal.Decimal) (decimal.Decimal, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidQuantity
	}

	alloc := r.FindAllocation(allocationID)
	if alloc == nil {
		return decimal.Zero, shared.ErrNotFound
	}

	released := decimal.Min(quantity, alloc.Committed)
	if released.IsZero() {
		return decimal.Zero, nil
	}

	alloc.Committed = alloc.Committed.Sub(released)
	alloc.Released = alloc.Released.Add(released)
	alloc.Touch()
	r.recomputeStatus()
	r.Touch()
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationReleasedEvent(r, alloc.StockRecordID, released))
	return released, nil
}

// recomputeStatus derives the status from the allocation lines. A closed
// reservation reflects what physically happened: FULFILLED if any quantity
// shipped, RELEASED if everything was cancelled.
func (r *Reservation) recomputeStatus() {
	if !r.TotalCommitted().IsZero() {
		if r.TotalFulfilled().IsPositive() {
			r.Status = ReservationStatusPartiallyFulfilled
		} else {
			r.Status = ReservationStatusActive
		}
		return
	}
	if r.TotalFulfilled().IsPositive() {
		r.Status = ReservationStatusFulfilled
	} else {
		r.Status = ReservationStatusReleased
	}
}
