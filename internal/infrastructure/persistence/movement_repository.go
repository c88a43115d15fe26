package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

// GormMovementRepository implements MovementRecordRepository using GORM.
// The journal is append-only: there is deliberately no update or delete.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Append inserts a new movement record
func (r *GormMovementRepository) Append(ctx context.Context, movement *ledger.MovementRecord) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByID finds a movement record by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.MovementRecord, error) {
	var movement ledger.MovementRecord
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByStockRecord returns a page of the journal for one stock record
func (r *GormMovementRepository) FindByStockRecord(ctx context.Context, stockRecordID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	query := r.db.WithContext(ctx).
		Model(&ledger.MovementRecord{}).
		Where("stock_record_id = ?", stockRecordID)
	return r.paginate(query, filter)
}

// FindByCorrelationRef returns every movement booked under a correlation
// reference, in occurrence order
func (r *GormMovementRepository) FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*ledger.MovementRecord, error) {
	var movements []*ledger.MovementRecord
	if err := r.db.WithContext(ctx).
		Where("correlation_ref = ?", correlationRef).
		Order("occurred_on ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindTransferCounterpart returns the movement that shares the correlation
// reference with the given transfer kind, excluding the movement itself
func (r *GormMovementRepository) FindTransferCounterpart(ctx context.Context, correlationRef string, kind ledger.MovementKind, excludeID uuid.UUID) (*ledger.MovementRecord, error) {
	var movement ledger.MovementRecord
	if err := r.db.WithContext(ctx).
		Where("correlation_ref = ? AND kind = ? AND id <> ?", correlationRef, kind, excludeID).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindReversalOf returns the reversal entry pointing at the given original
func (r *GormMovementRepository) FindReversalOf(ctx context.Context, movementID uuid.UUID) (*ledger.MovementRecord, error) {
	var movement ledger.MovementRecord
	if err := r.db.WithContext(ctx).
		Where("reversal_of = ?", movementID).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// List returns a page of the whole journal matching the filter
func (r *GormMovementRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	query := r.db.WithContext(ctx).Model(&ledger.MovementRecord{})
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "kind":
			query = query.Where("kind = ?", value)
		case "correlation_ref":
			query = query.Where("correlation_ref = ?", value)
		case "caused_by":
			query = query.Where("caused_by = ?", value)
		}
	}
	return r.paginate(query, filter)
}

func (r *GormMovementRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[*ledger.MovementRecord], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, MovementSortFields, "occurred_on")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	page, pageSize := normalizePage(filter)
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var movements []*ledger.MovementRecord
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(movements, total, page, pageSize)
	return &result, nil
}

// Ensure GormMovementRepository implements MovementRecordRepository
var _ ledger.MovementRecordRepository = (*GormMovementRepository)(nil)
