package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/shared"
)

// MovementKind classifies a journal entry
type MovementKind string

const (
	// MovementKindReceipt is stock arriving at a location (purchase, return)
	MovementKindReceipt MovementKind = "RECEIPT"
	// MovementKindConsumption is committed stock leaving permanently (shipment)
	MovementKindConsumption MovementKind = "CONSUMPTION"
	// MovementKindTransferOut is the outgoing side of a location transfer
	MovementKindTransferOut MovementKind = "TRANSFER_OUT"
	// MovementKindTransferIn is the incoming side of a location transfer
	MovementKindTransferIn MovementKind = "TRANSFER_IN"
	// MovementKindAdjustment is a stock-count correction
	MovementKindAdjustment MovementKind = "ADJUSTMENT"
	// MovementKindReversal compensates a prior movement
	MovementKindReversal MovementKind = "REVERSAL"
)

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// IsValid returns true if the movement kind is known
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindReceipt,
		MovementKindConsumption,
		MovementKindTransferOut,
		MovementKindTransferIn,
		MovementKindAdjustment,
		MovementKindReversal:
		return true
	}
	return false
}

// IsTransfer returns true for either side of a transfer pair
func (k MovementKind) IsTransfer() bool {
	return k == MovementKindTransferOut || k == MovementKindTransferIn
}

// TransferCounterpart returns the opposite transfer kind, or the kind itself
// for non-transfer movements.
func (k MovementKind) TransferCounterpart() MovementKind {
	switch k {
	case MovementKindTransferOut:
		return MovementKindTransferIn
	case MovementKindTransferIn:
		return MovementKindTransferOut
	}
	return k
}

// MovementRecord is an immutable journal entry for a physical on-hand change.
// Once written it is never updated; undoing a movement creates a new
// compensating record of kind REVERSAL that points back via ReversalOf.
type MovementRecord struct {
	shared.BaseEntity
	StockRecordID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_movement_record"`
	ProductID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_movement_product"`
	LocationID        *uuid.UUID       `gorm:"type:uuid;index"`
	Kind              MovementKind     `gorm:"type:varchar(20);not null;index:idx_movement_kind"`
	QuantityDelta     decimal.Decimal  `gorm:"type:decimal(18,4);not null"` // Signed; positive increases on-hand
	UnitCost          *decimal.Decimal `gorm:"type:decimal(18,4)"`          // Cost basis at time of movement, if known
	TotalCost         *decimal.Decimal `gorm:"type:decimal(18,4)"`
	LinkedLocationOut *uuid.UUID       `gorm:"type:uuid"` // Counterpart source location, TRANSFER_* only
	LinkedLocationIn  *uuid.UUID       `gorm:"type:uuid"` // Counterpart destination location, TRANSFER_* only
	CorrelationRef    string           `gorm:"type:varchar(100);not null;index:idx_movement_correlation"`
	CausedBy          string           `gorm:"type:varchar(100);not null"` // Actor that triggered the movement
	ReversalOf        *uuid.UUID       `gorm:"type:uuid;index"`            // Set only on REVERSAL records
	OccurredOn        time.Time        `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (MovementRecord) TableName() string {
	return "movement_records"
}

// NewMovementRecord creates a journal entry. QuantityDelta must be non-zero;
// its sign encodes the direction of the on-hand change.
func NewMovementRecord(
	stockRecordID, productID uuid.UUID,
	locationID *uuid.UUID,
	kind MovementKind,
	quantityDelta decimal.Decimal,
	correlationRef, causedBy string,
) (*MovementRecord, error) {
	if stockRecordID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_RECORD", "Stock record ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Invalid movement kind")
	}
	if quantityDelta.IsZero() {
		return nil, ErrInvalidQuantity
	}
	if correlationRef == "" {
		return nil, shared.NewDomainError("INVALID_CORRELATION", "Correlation reference cannot be empty")
	}
	if causedBy == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Actor cannot be empty")
	}

	return &MovementRecord{
		BaseEntity:     shared.NewBaseEntity(),
		StockRecordID:  stockRecordID,
		ProductID:      productID,
		LocationID:     locationID,
		Kind:           kind,
		QuantityDelta:  quantityDelta,
		CorrelationRef: correlationRef,
		CausedBy:       causedBy,
		OccurredOn:     time.Now(),
	}, nil
}

// WithCost sets the cost basis; TotalCost is derived from the absolute delta
func (m *MovementRecord) WithCost(unitCost decimal.Decimal) *MovementRecord {
	total := m.QuantityDelta.Abs().Mul(unitCost)
	m.UnitCost = &unitCost
	m.TotalCost = &total
	return m
}

// WithTransferLink records the two locations of a transfer pair
func (m *MovementRecord) WithTransferLink(out, in *uuid.UUID) *MovementRecord {
	m.LinkedLocationOut = out
	m.LinkedLocationIn = in
	return m
}

// WithReversalOf marks this record as the compensation of a prior movement
func (m *MovementRecord) WithReversalOf(movementID uuid.UUID) *MovementRecord {
	m.ReversalOf = &movementID
	return m
}

// IsReversal returns true for compensating records
func (m *MovementRecord) IsReversal() bool {
	return m.Kind == MovementKindReversal
}

// AddsQuantity returns true if the movement increased on-hand
func (m *MovementRecord) AddsQuantity() bool {
	return m.QuantityDelta.IsPositive()
}
