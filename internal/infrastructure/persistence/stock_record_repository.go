package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

// GormStockRecordRepository implements StockRecordRepository using GORM
type GormStockRecordRepository struct {
	db *gorm.DB
}

// NewGormStockRecordRepository creates a new GormStockRecordRepository
func NewGormStockRecordRepository(db *gorm.DB) *GormStockRecordRepository {
	return &GormStockRecordRepository{db: db}
}

// FindByID finds a stock record by its ID
func (r *GormStockRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.StockRecord, error) {
	var record ledger.StockRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByIDs finds multiple stock records by their IDs
func (r *GormStockRecordRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ledger.StockRecord, error) {
	if len(ids) == 0 {
		return []*ledger.StockRecord{}, nil
	}
	var records []*ledger.StockRecord
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByProduct finds all stock records for a product across locations
func (r *GormStockRecordRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*ledger.StockRecord, error) {
	var records []*ledger.StockRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByProductAndLocation finds the record for a product/location pair.
// A nil location matches the unassigned record.
func (r *GormStockRecordRepository) FindByProductAndLocation(ctx context.Context, productID uuid.UUID, locationID *uuid.UUID) (*ledger.StockRecord, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if locationID == nil {
		query = query.Where("location_id IS NULL")
	} else {
		query = query.Where("location_id = ?", *locationID)
	}

	var record ledger.StockRecord
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// List returns a page of stock records matching the filter
func (r *GormStockRecordRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*ledger.StockRecord], error) {
	query := r.db.WithContext(ctx).Model(&ledger.StockRecord{})
	query = r.applyFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, StockRecordSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	page, pageSize := normalizePage(filter)
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var records []*ledger.StockRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(records, total, page, pageSize)
	return &result, nil
}

// Save creates or updates a stock record without a version check
func (r *GormStockRecordRepository) Save(ctx context.Context, record *ledger.StockRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return err
	}
	record.SyncLoadedVersion()
	return nil
}

// SaveWithLock saves with optimistic locking. The row must still carry the
// version the aggregate was loaded with; a transaction that mutated the
// aggregate several times bumps Version past loaded+1 and that is fine.
func (r *GormStockRecordRepository) SaveWithLock(ctx context.Context, record *ledger.StockRecord) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.StockRecord{}).
		Where("id = ? AND version = ?", record.ID, record.LoadedVersion()).
		Updates(map[string]interface{}{
			"on_hand":           record.OnHand,
			"committed":         record.Committed,
			"average_cost":      record.AverageCost,
			"reorder_threshold": record.ReorderThreshold,
			"version":           record.Version,
			"updated_at":        record.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	record.SyncLoadedVersion()
	return nil
}

func (r *GormStockRecordRepository) applyFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "unassigned":
			if value == true {
				query = query.Where("location_id IS NULL")
			}
		case "has_stock":
			if value == true {
				query = query.Where("on_hand - committed > 0")
			}
		case "below_threshold":
			if value == true {
				query = query.Where("reorder_threshold > 0 AND (on_hand - committed) <= reorder_threshold")
			}
		}
	}
	return query
}

// normalizePage clamps pagination input to sane values
func normalizePage(filter shared.Filter) (page, pageSize int) {
	page, pageSize = filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// Ensure GormStockRecordRepository implements StockRecordRepository
var _ ledger.StockRecordRepository = (*GormStockRecordRepository)(nil)
