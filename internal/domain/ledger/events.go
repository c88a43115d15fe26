package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeStockRecord = "StockRecord"
	AggregateTypeReservation = "Reservation"
)

// Event type constants
const (
	EventTypeStockBelowThreshold  = "StockBelowThreshold"
	EventTypeStockReserved        = "StockReserved"
	EventTypeReservationFulfilled = "ReservationFulfilled"
	EventTypeReservationReleased  = "ReservationReleased"
	EventTypeMovementReversed     = "MovementReversed"
)

// StockBelowThresholdEvent is raised when available quantity reaches zero or
// falls below the reorder threshold
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	StockRecordID uuid.UUID       `json:"stock_record_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	LocationID    *uuid.UUID      `json:"location_id,omitempty"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Committed     decimal.Decimal `json:"committed"`
	Available     decimal.Decimal `json:"available"`
	Threshold     decimal.Decimal `json:"threshold"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(record *StockRecord) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStockRecord, record.ID),
		StockRecordID:   record.ID,
		ProductID:       record.ProductID,
		LocationID:      record.LocationID,
		OnHand:          record.OnHand,
		Committed:       record.Committed,
		Available:       record.Available(),
		Threshold:       record.ReorderThreshold,
	}
}

// EventType returns the event type name
func (e *StockBelowThresholdEvent) EventType() string {
	return EventTypeStockBelowThreshold
}

// StockReservedEvent is raised when a reservation is committed all-or-nothing
type StockReservedEvent struct {
	shared.BaseDomainEvent
	ReservationID  uuid.UUID       `json:"reservation_id"`
	CorrelationRef string          `json:"correlation_ref"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	LineCount      int             `json:"line_count"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(reservation *Reservation) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeReservation, reservation.ID),
		ReservationID:   reservation.ID,
		CorrelationRef:  reservation.CorrelationRef,
		TotalQuantity:   reservation.TotalCommitted(),
		LineCount:       len(reservation.Allocations),
	}
}

// EventType returns the event type name
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// ReservationFulfilledEvent is raised when committed quantity is drained by a shipment
type ReservationFulfilledEvent struct {
	shared.BaseDomainEvent
	ReservationID  uuid.UUID       `json:"reservation_id"`
	StockRecordID  uuid.UUID       `json:"stock_record_id"`
	CorrelationRef string          `json:"correlation_ref"`
	Quantity       decimal.Decimal `json:"quantity"`
	Status         string          `json:"status"`
}

// NewReservationFulfilledEvent creates a new ReservationFulfilledEvent
func NewReservationFulfilledEvent(reservation *Reservation, stockRecordID uuid.UUID, quantity decimal.Decimal) *ReservationFulfilledEvent {
	return &ReservationFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationFulfilled, AggregateTypeReservation, reservation.ID),
		ReservationID:   reservation.ID,
		StockRecordID:   stockRecordID,
		CorrelationRef:  reservation.CorrelationRef,
		Quantity:        quantity,
		Status:          reservation.Status.String(),
	}
}

// EventType returns the event type name
func (e *ReservationFulfilledEvent) EventType() string {
	return EventTypeReservationFulfilled
}

// ReservationReleasedEvent is raised when committed quantity is returned to available
type ReservationReleasedEvent struct {
	shared.BaseDomainEvent
	ReservationID  uuid.UUID       `json:"reservation_id"`
	StockRecordID  uuid.UUID       `json:"stock_record_id"`
	CorrelationRef string          `json:"correlation_ref"`
	Quantity       decimal.Decimal `json:"quantity"`
	Status         string          `json:"status"`
}

// NewReservationReleasedEvent creates a new ReservationReleasedEvent
func NewReservationReleasedEvent(reservation *Reservation, stockRecordID uuid.UUID, quantity decimal.Decimal) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationReleased, AggregateTypeReservation, reservation.ID),
		ReservationID:   reservation.ID,
		StockRecordID:   stockRecordID,
		CorrelationRef:  reservation.CorrelationRef,
		Quantity:        quantity,
		Status:          reservation.Status.String(),
	}
}

// EventType returns the event type name
func (e *ReservationReleasedEvent) EventType() string {
	return EventTypeReservationReleased
}

// MovementReversedEvent is raised when a journal movement is compensated
type MovementReversedEvent struct {
	shared.BaseDomainEvent
	StockRecordID      uuid.UUID       `json:"stock_record_id"`
	OriginalMovementID uuid.UUID       `json:"original_movement_id"`
	ReversalMovementID uuid.UUID       `json:"reversal_movement_id"`
	QuantityDelta      decimal.Decimal `json:"quantity_delta"`
}

// NewMovementReversedEvent creates a new MovementReversedEvent
func NewMovementReversedEvent(record *StockRecord, original, reversal *MovementRecord) *MovementReversedEvent {
	return &MovementReversedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMovementReversed, AggregateTypeStockRecord, record.ID),
		StockRecordID:      record.ID,
		OriginalMovementID: original.ID,
		ReversalMovementID: reversal.ID,
		QuantityDelta:      reversal.QuantityDelta,
	}
}

// EventType returns the event type name
func (e *MovementReversedEvent) EventType() string {
	return EventTypeMovementReversed
}
