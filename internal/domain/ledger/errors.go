package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/shared"
)

// Sentinel errors for conditions that need no structured context.
var (
	// ErrInvalidQuantity is returned for a zero or malformed quantity delta
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Quantity delta is zero or malformed")
	// ErrRecordNotFound is returned when a stock record does not exist
	ErrRecordNotFound = shared.NewDomainError("RECORD_NOT_FOUND", "Stock record not found")
	// ErrProductNotFound is returned when the catalog does not know the product
	ErrProductNotFound = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found in catalog")
	// ErrReservationNotFound is returned when a reservation does not exist
	ErrReservationNotFound = shared.NewDomainError("RESERVATION_NOT_FOUND", "Reservation not found")
	// ErrReservationNotActive is returned when fulfilling a reservation that is
	// already fully fulfilled or released
	ErrReservationNotActive = shared.NewDomainError("RESERVATION_NOT_ACTIVE", "Reservation is not active")
	// ErrMovementNotFound is returned when a movement record does not exist
	ErrMovementNotFound = shared.NewDomainError("MOVEMENT_NOT_FOUND", "Movement record not found")
	// ErrAlreadyReversed is returned when a movement has already been reversed,
	// or when the target is itself a reversal
	ErrAlreadyReversed = shared.NewDomainError("ALREADY_REVERSED", "Movement has already been reversed")
	// ErrConflict is returned after bounded retries on a concurrent modification
	// have been exhausted; the caller may retry the whole operation
	ErrConflict = shared.NewDomainError("CONFLICT", "Concurrent stock update, operation aborted")
)

// InsufficientStockError reports that a requested quantity exceeds the total
// available quantity across all candidate stock records, with enough context
// for the caller to offer alternatives.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %s, available %s",
		e.ProductID, e.Requested, e.Available)
}

// Shortfall returns the missing quantity
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// NewInsufficientStockError creates a new InsufficientStockError
func NewInsufficientStockError(productID uuid.UUID, requested, available decimal.Decimal) *InsufficientStockError {
	return &InsufficientStockError{ProductID: productID, Requested: requested, Available: available}
}

// InvariantViolationError reports a delta that would drive on-hand, committed
// or available negative. If the allocation planner is correct this is
// unreachable through the public API and signals a bug, not a user error.
type InvariantViolationError struct {
	StockRecordID uuid.UUID
	OnHand        decimal.Decimal
	Committed     decimal.Decimal
}

// Error implements the error interface
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation on stock record %s: onHand=%s committed=%s would leave a negative counter",
		e.StockRecordID, e.OnHand, e.Committed)
}

// OverFulfillmentError reports a fulfillment quantity exceeding the remaining
// committed quantity on an allocation line.
type OverFulfillmentError struct {
	StockRecordID uuid.UUID
	Requested     decimal.Decimal
	Remaining     decimal.Decimal
}

// Error implements the error interface
func (e *OverFulfillmentError) Error() string {
	return fmt.Sprintf("over-fulfillment on stock record %s: requested %s, remaining committed %s",
		e.StockRecordID, e.Requested, e.Remaining)
}

// ReconciliationRequiredError is raised only when compensation of a partially
// applied reservation itself fails. Automated action on the affected stock
// record must halt; an operator has to reconcile the counters manually.
type ReconciliationRequiredError struct {
	StockRecordID uuid.UUID
	Cause         error
}

// Error implements the error interface
func (e *ReconciliationRequiredError) Error() string {
	return fmt.Sprintf("compensation failed for stock record %s, manual reconciliation required: %v",
		e.StockRecordID, e.Cause)
}

// Unwrap returns the underlying compensation failure
func (e *ReconciliationRequiredError) Unwrap() error {
	return e.Cause
}
