package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AvailabilityChecker is a pure domain service answering "can this demand be
// covered right now". It reads derived availability only and has no side
// effects, so a positive answer is advisory: only a reservation makes the
// quantity safe against concurrent claims.
type AvailabilityChecker struct{}

// NewAvailabilityChecker creates a new availability checker
func NewAvailabilityChecker() *AvailabilityChecker {
	return &AvailabilityChecker{}
}

// AvailabilityQuery is one product demand to check
type AvailabilityQuery struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	Records   []*StockRecord
}

// AvailabilityLine is the per-record breakdown for one checked product
type AvailabilityLine struct {
	StockRecordID uuid.UUID       `json:"stock_record_id"`
	LocationID    *uuid.UUID      `json:"location_id,omitempty"`
	OnHand        decimal.Decimal `json:"on_hand"`
	Committed     decimal.Decimal `json:"committed"`
	Available     decimal.Decimal `json:"available"`
}

// ProductAvailability is the availability verdict for one product demand
type ProductAvailability struct {
	ProductID      uuid.UUID          `json:"product_id"`
	Requested      decimal.Decimal    `json:"requested"`
	TotalAvailable decimal.Decimal    `json:"total_available"`
	Shortfall      decimal.Decimal    `json:"shortfall"`
	Sufficient     bool               `json:"sufficient"`
	Lines          []AvailabilityLine `json:"lines"`
}

// AvailabilityReport aggregates the verdicts for a multi-product check
type AvailabilityReport struct {
	Products      []ProductAvailability `json:"products"`
	AllSufficient bool                  `json:"all_sufficient"`
}

// Check evaluates each demand against its candidate records. Quantities that
// are zero or negative are rejected; an empty record set is a plain shortage,
// not an error.
func (c *AvailabilityChecker) Check(queries []AvailabilityQuery) (*AvailabilityReport, error) {
	report := &AvailabilityReport{
		Products:      make([]ProductAvailability, 0, len(queries)),
		AllSufficient: true,
	}

	for _, query := range queries {
		if query.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidQuantity
		}

		product := ProductAvailability{
			ProductID:      query.ProductID,
			Requested:      query.Quantity,
			TotalAvailable: decimal.Zero,
			Lines:          make([]AvailabilityLine, 0, len(query.Records)),
		}

		for _, record := range query.Records {
			available := record.Available()
			product.Lines = append(product.Lines, AvailabilityLine{
				StockRecordID: record.ID,
				LocationID:    record.LocationID,
				OnHand:        record.OnHand,
				Committed:     record.Committed,
				Available:     available,
			})
			product.TotalAvailable = product.TotalAvailable.Add(decimal.Max(available, decimal.Zero))
		}

		product.Sufficient = product.TotalAvailable.GreaterThanOrEqual(query.Quantity)
		if product.Sufficient {
			product.Shortfall = decimal.Zero
		} else {
			product.Shortfall = query.Quantity.Sub(product.TotalAvailable)
			report.AllSufficient = false
		}

		report.Products = append(report.Products, product)
	}

	return report, nil
}
