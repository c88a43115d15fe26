package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockcore/backend/internal/domain/shared"
)

// AllocationPlanner is a pure domain service that decides which stock records
// a requested quantity should be drawn from. It never mutates the records it
// inspects; committing the plan is the caller's job.
//
// Planning rules:
//  1. If a preferred location is given and its record alone covers the full
//     quantity, the plan is a single line against that record.
//  2. Otherwise records are consumed greedily in descending available order.
//     Ties break on record ID so the plan is deterministic for a given state.
//  3. Records without a location are consumed last regardless of quantity,
//     since unassigned stock cannot be picked without an operator decision.
//  4. If the total available across all records cannot cover the request the
//     plan fails as a whole; partial plans are never returned.
type AllocationPlanner struct{}

// NewAllocationPlanner creates a new allocation planner
func NewAllocationPlanner() *AllocationPlanner {
	return &AllocationPlanner{}
}

// PlanRequest describes one product quantity to source from candidate records
type PlanRequest struct {
	ProductID         uuid.UUID
	Quantity          decimal.Decimal
	PreferredLocation *uuid.UUID
	Records           []*StockRecord
}

// Validate validates the plan request
func (r *PlanRequest) Validate() error {
	if r.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID is required")
	}
	if r.Quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	for _, record := range r.Records {
		if record == nil {
			return shared.NewDomainError("INVALID_RECORD", "Candidate stock record cannot be nil")
		}
		if record.ProductID != r.ProductID {
			return shared.NewDomainError("PRODUCT_MISMATCH", "Candidate stock record belongs to a different product")
		}
	}
	return nil
}

// PlannedAllocation is one line of an allocation plan
type PlannedAllocation struct {
	StockRecordID uuid.UUID       `json:"stock_record_id"`
	LocationID    *uuid.UUID      `json:"location_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// AllocationPlan is the full sourcing decision for one plan request
type AllocationPlan struct {
	ProductID      uuid.UUID           `json:"product_id"`
	Lines          []PlannedAllocation `json:"lines"`
	TotalPlanned   decimal.Decimal     `json:"total_planned"`
	TotalAvailable decimal.Decimal     `json:"total_available"`
}

// Plan computes an allocation plan for the request. It returns
// InsufficientStockError when the candidate records cannot cover the
// requested quantity in full.
func (p *AllocationPlanner) Plan(req PlanRequest) (*AllocationPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan := &AllocationPlan{
		ProductID:      req.ProductID,
		Lines:          make([]PlannedAllocation, 0, len(req.Records)),
		TotalPlanned:   decimal.Zero,
		TotalAvailable: decimal.Zero,
	}
	for _, record := range req.Records {
		plan.TotalAvailable = plan.TotalAvailable.Add(decimal.Max(record.Available(), decimal.Zero))
	}

	if plan.TotalAvailable.LessThan(req.Quantity) {
		return nil, NewInsufficientStockError(req.ProductID, req.Quantity, plan.TotalAvailable)
	}

	// A preferred location that covers the whole quantity short-circuits the
	// greedy pass: one line, no splitting.
	if req.PreferredLocation != nil {
		for _, record := range req.Records {
			if record.LocationID == nil || *record.LocationID != *req.PreferredLocation {
				continue
			}
			if record.Available().GreaterThanOrEqual(req.Quantity) {
				plan.Lines = append(plan.Lines, PlannedAllocation{
					StockRecordID: record.ID,
					LocationID:    record.LocationID,
					Quantity:      req.Quantity,
				})
				plan.TotalPlanned = req.Quantity
				return plan, nil
			}
			break
		}
	}

	ordered := make([]*StockRecord, len(req.Records))
	copy(ordered, req.Records)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if (a.LocationID == nil) != (b.LocationID == nil) {
			return b.LocationID == nil
		}
		if !a.Available().Equal(b.Available()) {
			return a.Available().GreaterThan(b.Available())
		}
		return a.ID.String() < b.ID.String()
	})

	remaining := req.Quantity
	for _, record := range ordered {
		if remaining.IsZero() {
			break
		}
		available := record.Available()
		if available.LessThanOrEqual(decimal.Zero) {
			continue
		}
		take := decimal.Min(remaining, available)
		plan.Lines = append(plan.Lines, PlannedAllocation{
			StockRecordID: record.ID,
			LocationID:    record.LocationID,
			Quantity:      take,
		})
		plan.TotalPlanned = plan.TotalPlanned.Add(take)
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		// Availability shifted between the sum check and the greedy pass can
		// only happen on concurrent mutation of shared records; treat it the
		// same as a plain shortage.
		return nil, NewInsufficientStockError(req.ProductID, req.Quantity, plan.TotalPlanned)
	}

	return plan, nil
}
