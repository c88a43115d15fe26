package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

// AvailabilityService is the read side of the ledger: availability checks,
// stock record lookups and journal browsing. It never mutates anything, so a
// positive availability answer can be stale by the time the caller acts on
// it; only Reserve makes quantity safe.
type AvailabilityService struct {
	scope   TransactionScope
	checker *ledger.AvailabilityChecker
	catalog CatalogLookup
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(scope TransactionScope) *AvailabilityService {
	return &AvailabilityService{
		scope:   scope,
		checker: ledger.NewAvailabilityChecker(),
	}
}

// SetCatalogLookup wires a catalog used to reject checks for unknown products
func (s *AvailabilityService) SetCatalogLookup(catalog CatalogLookup) {
	s.catalog = catalog
}

// CheckAvailability answers whether each requested demand could currently be
// covered, with a per-record breakdown and shortfall
func (s *AvailabilityService) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*ledger.AvailabilityReport, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_REQUEST", "At least one item is required")
	}

	var report *ledger.AvailabilityReport
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		queries := make([]ledger.AvailabilityQuery, 0, len(req.Items))
		for _, item := range req.Items {
			records, err := repos.StockRecords().FindByProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if len(records) == 0 && s.catalog != nil {
				product, err := s.catalog.GetProduct(ctx, item.ProductID)
				if err != nil || product == nil {
					return ledger.ErrProductNotFound
				}
			}
			queries = append(queries, ledger.AvailabilityQuery{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Records:   records,
			})
		}

		result, err := s.checker.Check(queries)
		if err != nil {
			return err
		}
		report = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetStockRecord retrieves one stock record by ID
func (s *AvailabilityService) GetStockRecord(ctx context.Context, recordID uuid.UUID) (*StockRecordResponse, error) {
	var response *StockRecordResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.StockRecords().FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrRecordNotFound
			}
			return err
		}
		resp := ToStockRecordResponse(record)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// GetStockByProduct retrieves every stock record of a product across locations
func (s *AvailabilityService) GetStockByProduct(ctx context.Context, productID uuid.UUID) ([]StockRecordResponse, error) {
	var responses []StockRecordResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		records, err := repos.StockRecords().FindByProduct(ctx, productID)
		if err != nil {
			return err
		}
		responses = make([]StockRecordResponse, 0, len(records))
		for _, record := range records {
			responses = append(responses, ToStockRecordResponse(record))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// ListStockRecords retrieves stock records with filtering and pagination
func (s *AvailabilityService) ListStockRecords(ctx context.Context, filter shared.Filter) (*shared.Paginated[StockRecordResponse], error) {
	var response *shared.Paginated[StockRecordResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		page, err := repos.StockRecords().List(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]StockRecordResponse, 0, len(page.Items))
		for _, record := range page.Items {
			items = append(items, ToStockRecordResponse(record))
		}
		paginated := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
		response = &paginated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// GetMovement retrieves one journal entry by ID
func (s *AvailabilityService) GetMovement(ctx context.Context, movementID uuid.UUID) (*MovementResponse, error) {
	var response *MovementResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movement, err := repos.Movements().FindByID(ctx, movementID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ledger.ErrMovementNotFound
			}
			return err
		}
		resp := ToMovementResponse(movement)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListMovements retrieves journal entries with filtering and pagination
func (s *AvailabilityService) ListMovements(ctx context.Context, filter shared.Filter) (*shared.Paginated[MovementResponse], error) {
	var response *shared.Paginated[MovementResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		page, err := repos.Movements().List(ctx, filter)
		if err != nil {
			return err
		}
		response = toMovementPage(page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListMovementsByStockRecord retrieves the journal of one stock record
func (s *AvailabilityService) ListMovementsByStockRecord(ctx context.Context, recordID uuid.UUID, filter shared.Filter) (*shared.Paginated[MovementResponse], error) {
	var response *shared.Paginated[MovementResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		page, err := repos.Movements().FindByStockRecord(ctx, recordID, filter)
		if err != nil {
			return err
		}
		response = toMovementPage(page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

func toMovementPage(page *shared.Paginated[*ledger.MovementRecord]) *shared.Paginated[MovementResponse] {
	items := make([]MovementResponse, 0, len(page.Items))
	for _, movement := range page.Items {
		items = append(items, ToMovementResponse(movement))
	}
	paginated := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &paginated
}
