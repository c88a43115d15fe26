package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/shared"
)

// StockRecord tracks the quantity counters for one product at one location.
// It is the aggregate root for all ledger operations; the composite
// identifier is ProductID + LocationID.
//
// Invariants, enforced by ApplyDelta and never clamped:
//
//	OnHand ≥ 0, Committed ≥ 0, Available() = OnHand − Committed ≥ 0
type StockRecord struct {
	shared.BaseAggregateRoot
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_record_product_location,priority:1"`
	LocationID       *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_stock_record_product_location,priority:2"` // nil = unassigned/default location
	OnHand           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`                              // Physical quantity at this location
	Committed        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`                              // Reserved for open reservations
	AverageCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`                              // Moving weighted average cost
	ReorderThreshold decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`                              // Low-stock alert threshold, owned by collaborators
}

// TableName returns the table name for GORM
func (StockRecord) TableName() string {
	return "stock_records"
}

// NewStockRecord creates a stock record for a product-location combination,
// starting with zero quantities.
func NewStockRecord(productID uuid.UUID, locationID *uuid.UUID) (*StockRecord, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if locationID != nil && *locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be the nil UUID")
	}

	return &StockRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		LocationID:        locationID,
		OnHand:            decimal.Zero,
		Committed:         decimal.Zero,
		AverageCost:       decimal.Zero,
		ReorderThreshold:  decimal.Zero,
	}, nil
}

// Available returns the quantity free to be newly reserved. This is the
// single authoritative definition: it is always derived, never stored.
func (r *StockRecord) Available() decimal.Decimal {
	return r.OnHand.Sub(r.Committed)
}

// TotalValue returns OnHand × AverageCost
func (r *StockRecord) TotalValue() decimal.Decimal {
	return r.OnHand.Mul(r.AverageCost)
}

// CanFulfill returns true if the available quantity covers the requested one
func (r *StockRecord) CanFulfill(quantity decimal.Decimal) bool {
	return r.Available().GreaterThanOrEqual(quantity)
}

// ApplyDelta is the single mutation entry point for quantity counters.
// Both deltas being zero is rejected as InvalidQuantity; a combination that
// would leave OnHand, Committed or Available negative is rejected as an
// invariant violation and nothing is changed.
func (r *StockRecord) ApplyDelta(onHandDelta, committedDelta decimal.Decimal) error {
	if onHandDelta.IsZero() && committedDelta.IsZero() {
		return ErrInvalidQuantity
	}

	newOnHand := r.OnHand.Add(onHandDelta)
	newCommitted := r.Committed.Add(committedDelta)

	if newOnHand.IsNegative() || newCommitted.IsNegative() || newOnHand.Sub(newCommitted).IsNegative() {
		return &InvariantViolationError{
			StockRecordID: r.ID,
			OnHand:        newOnHand,
			Committed:     newCommitted,
		}
	}

	r.OnHand = newOnHand
	r.Committed = newCommitted
	r.Touch()
	r.IncrementVersion()

	if r.isBelowThreshold() {
		r.AddDomainEvent(NewStockBelowThresholdEvent(r))
	}

	return nil
}

// AbsorbCost folds an incoming quantity at the given unit cost into the
// moving weighted average. Called for receipts and for reversals that bring
// consumed quantity back. The quantity itself is applied separately via
// ApplyDelta.
func (r *StockRecord) AbsorbCost(quantity, unitCost decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	if r.OnHand.IsZero() {
		r.AverageCost = unitCost
		return nil
	}

	// New Cost = (OnHand × OldCost + Quantity × UnitCost) / (OnHand + Quantity)
	totalValue := r.OnHand.Mul(r.AverageCost).Add(quantity.Mul(unitCost))
	totalQuantity := r.OnHand.Add(quantity)
	r.AverageCost = totalValue.Div(totalQuantity).Round(4)
	return nil
}

// SetReorderThreshold sets the low-stock alert threshold
func (r *StockRecord) SetReorderThreshold(threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return ErrInvalidQuantity
	}
	r.ReorderThreshold = threshold
	r.Touch()
	r.IncrementVersion()
	return nil
}

// isBelowThreshold reports whether the current available quantity should
// raise a low-stock alert: either below a configured threshold, or zero.
func (r *StockRecord) isBelowThreshold() bool {
	available := r.Available()
	if available.IsZero() {
		return true
	}
	return r.ReorderThreshold.GreaterThan(decimal.Zero) && available.LessThan(r.ReorderThreshold)
}
