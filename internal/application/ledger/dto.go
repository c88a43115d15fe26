package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/ledger"
)

// ReserveItem is one product demand within a reservation request
type ReserveItem struct {
	ProductID         uuid.UUID       `json:"product_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	PreferredLocation *uuid.UUID      `json:"preferred_location_id,omitempty"`
}

// ReserveRequest asks for an all-or-nothing reservation across products
type ReserveRequest struct {
	CorrelationRef string        `json:"correlation_ref"`
	Items          []ReserveItem `json:"items"`
}

// CommitmentLine addresses one allocation line of a reservation
type CommitmentLine struct {
	AllocationID uuid.UUID       `json:"allocation_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// FulfillRequest drains committed quantity into shipped quantity.
// An empty Lines slice drains every line in full.
type FulfillRequest struct {
	ReservationID uuid.UUID        `json:"reservation_id"`
	Lines         []CommitmentLine `json:"lines,omitempty"`
	CausedBy      string           `json:"caused_by,omitempty"`
}

// ReleaseRequest returns committed quantity to available.
// An empty Lines slice releases every remaining line in full.
type ReleaseRequest struct {
	ReservationID uuid.UUID        `json:"reservation_id"`
	Lines         []CommitmentLine `json:"lines,omitempty"`
	CausedBy      string           `json:"caused_by,omitempty"`
}

// ReceiveRequest books incoming quantity onto a stock record
type ReceiveRequest struct {
	ProductID      uuid.UUID       `json:"product_id"`
	LocationID     *uuid.UUID      `json:"location_id,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	CorrelationRef string          `json:"correlation_ref"`
	CausedBy       string          `json:"caused_by,omitempty"`
}

// AdjustRequest corrects on-hand quantity by a signed delta
type AdjustRequest struct {
	ProductID      uuid.UUID       `json:"product_id"`
	LocationID     *uuid.UUID      `json:"location_id,omitempty"`
	QuantityDelta  decimal.Decimal `json:"quantity_delta"`
	Reason         string          `json:"reason"`
	CorrelationRef string          `json:"correlation_ref"`
	CausedBy       string          `json:"caused_by,omitempty"`
}

// TransferRequest moves quantity between two locations
type TransferRequest struct {
	ProductID      uuid.UUID       `json:"product_id"`
	FromLocationID uuid.UUID       `json:"from_location_id"`
	ToLocationID   uuid.UUID       `json:"to_location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	CorrelationRef string          `json:"correlation_ref"`
	CausedBy       string          `json:"caused_by,omitempty"`
}

// ReverseRequest compensates a past movement
type ReverseRequest struct {
	MovementID uuid.UUID `json:"movement_id"`
	CausedBy   string    `json:"caused_by,omitempty"`
}

// AvailabilityItem is one product demand in an availability check
type AvailabilityItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CheckAvailabilityRequest checks whether a set of demands could be reserved
type CheckAvailabilityRequest struct {
	Items []AvailabilityItem `json:"items"`
}

// StockRecordResponse is the read model for a stock record
type StockRecordResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	LocationID       *uuid.UUID      `json:"location_id,omitempty"`
	OnHand           decimal.Decimal `json:"on_hand"`
	Committed        decimal.Decimal `json:"committed"`
	Available        decimal.Decimal `json:"available"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	TotalValue       decimal.Decimal `json:"total_value"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToStockRecordResponse converts a stock record aggregate to its read model
func ToStockRecordResponse(record *ledger.StockRecord) StockRecordResponse {
	return StockRecordResponse{
		ID:               record.ID,
		ProductID:        record.ProductID,
		LocationID:       record.LocationID,
		OnHand:           record.OnHand,
		Committed:        record.Committed,
		Available:        record.Available(),
		AverageCost:      record.AverageCost,
		TotalValue:       record.TotalValue(),
		ReorderThreshold: record.ReorderThreshold,
		Version:          record.GetVersion(),
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

// AllocationResponse is the read model for one reservation line
type AllocationResponse struct {
	ID            uuid.UUID       `json:"id"`
	StockRecordID uuid.UUID       `json:"stock_record_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	LocationID    *uuid.UUID      `json:"location_id,omitempty"`
	Committed     decimal.Decimal `json:"committed"`
	Fulfilled     decimal.Decimal `json:"fulfilled"`
	Released      decimal.Decimal `json:"released"`
}

// ReservationResponse is the read model for a reservation
type ReservationResponse struct {
	ID             uuid.UUID            `json:"id"`
	CorrelationRef string               `json:"correlation_ref"`
	Status         string               `json:"status"`
	Allocations    []AllocationResponse `json:"allocations"`
	TotalCommitted decimal.Decimal      `json:"total_committed"`
	TotalFulfilled decimal.Decimal      `json:"total_fulfilled"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ToReservationResponse converts a reservation aggregate to its read model
func ToReservationResponse(reservation *ledger.Reservation) ReservationResponse {
	allocations := make([]AllocationResponse, 0, len(reservation.Allocations))
	for i := range reservation.Allocations {
		line := &reservation.Allocations[i]
		allocations = append(allocations, AllocationResponse{
			ID:            line.ID,
			StockRecordID: line.StockRecordID,
			ProductID:     line.ProductID,
			LocationID:    line.LocationID,
			Committed:     line.Committed,
			Fulfilled:     line.Fulfilled,
			Released:      line.Released,
		})
	}
	return ReservationResponse{
		ID:             reservation.ID,
		CorrelationRef: reservation.CorrelationRef,
		Status:         reservation.Status.String(),
		Allocations:    allocations,
		TotalCommitted: reservation.TotalCommitted(),
		TotalFulfilled: reservation.TotalFulfilled(),
		CreatedAt:      reservation.CreatedAt,
		UpdatedAt:      reservation.UpdatedAt,
	}
}

// MovementResponse is the read model for one journal entry
type MovementResponse struct {
	ID                uuid.UUID        `json:"id"`
	StockRecordID     uuid.UUID        `json:"stock_record_id"`
	ProductID         uuid.UUID        `json:"product_id"`
	LocationID        *uuid.UUID       `json:"location_id,omitempty"`
	Kind              string           `json:"kind"`
	QuantityDelta     decimal.Decimal  `json:"quantity_delta"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalCost         *decimal.Decimal `json:"total_cost,omitempty"`
	LinkedLocationOut *uuid.UUID       `json:"linked_location_out,omitempty"`
	LinkedLocationIn  *uuid.UUID       `json:"linked_location_in,omitempty"`
	CorrelationRef    string           `json:"correlation_ref"`
	CausedBy          string           `json:"caused_by,omitempty"`
	ReversalOf        *uuid.UUID       `json:"reversal_of,omitempty"`
	OccurredOn        time.Time        `json:"occurred_on"`
}

// ToMovementResponse converts a movement record to its read model
func ToMovementResponse(movement *ledger.MovementRecord) MovementResponse {
	return MovementResponse{
		ID:                movement.ID,
		StockRecordID:     movement.StockRecordID,
		ProductID:         movement.ProductID,
		LocationID:        movement.LocationID,
		Kind:              movement.Kind.String(),
		QuantityDelta:     movement.QuantityDelta,
		UnitCost:          movement.UnitCost,
		TotalCost:         movement.TotalCost,
		LinkedLocationOut: movement.LinkedLocationOut,
		LinkedLocationIn:  movement.LinkedLocationIn,
		CorrelationRef:    movement.CorrelationRef,
		CausedBy:          movement.CausedBy,
		ReversalOf:        movement.ReversalOf,
		OccurredOn:        movement.OccurredOn,
	}
}

// JournalEntryResponse pairs a written journal entry with the stock record
// state after it was applied
type JournalEntryResponse struct {
	Record   StockRecordResponse `json:"record"`
	Movement MovementResponse    `json:"movement"`
}

// TransferResponse pairs the two journal entries of one transfer
type TransferResponse struct {
	OutMovement MovementResponse `json:"out_movement"`
	InMovement  MovementResponse `json:"in_movement"`
}

// ReverseResponse lists the compensating entries written by one reversal.
// A transfer reversal produces two entries; everything else produces one.
type ReverseResponse struct {
	Reversals []MovementResponse `json:"reversals"`
}

// DefaultActor is recorded on movements whose request named no actor
const DefaultActor = "system"

func actorOrDefault(causedBy string) string {
	if causedBy == "" {
		return DefaultActor
	}
	return causedBy
}
