package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

// GormReservationRepository implements ReservationRepository using GORM.
// Allocations are loaded and persisted together with their reservation.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation with its allocation lines
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Reservation, error) {
	var reservation ledger.Reservation
	if err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&reservation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// FindByCorrelationRef finds every reservation booked under a correlation
// reference
func (r *GormReservationRepository) FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*ledger.Reservation, error) {
	var reservations []*ledger.Reservation
	if err := r.db.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("correlation_ref = ?", correlationRef).
		Order("created_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// List returns a page of reservations matching the filter
func (r *GormReservationRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*ledger.Reservation], error) {
	query := r.db.WithContext(ctx).Model(&ledger.Reservation{})
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "correlation_ref":
			query = query.Where("correlation_ref = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ReservationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	page, pageSize := normalizePage(filter)
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var reservations []*ledger.Reservation
	if err := query.Preload("Allocations", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Find(&reservations).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(reservations, total, page, pageSize)
	return &result, nil
}

// Save creates or updates a reservation together with its allocations
func (r *GormReservationRepository) Save(ctx context.Context, reservation *ledger.Reservation) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(reservation).Error
	if err != nil {
		return err
	}
	reservation.SyncLoadedVersion()
	return nil
}

// SaveWithLock saves with optimistic locking against the version the
// reservation was loaded with; allocation lines piggyback on the
// successful check.
func (r *GormReservationRepository) SaveWithLock(ctx context.Context, reservation *ledger.Reservation) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.Reservation{}).
		Where("id = ? AND version = ?", reservation.ID, reservation.LoadedVersion()).
		Updates(map[string]interface{}{
			"correlation_ref": reservation.CorrelationRef,
			"status":          reservation.Status,
			"version":         reservation.Version,
			"updated_at":      reservation.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	reservation.SyncLoadedVersion()

	if len(reservation.Allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&reservation.Allocations).Error
}

// Ensure GormReservationRepository implements ReservationRepository
var _ ledger.ReservationRepository = (*GormReservationRepository)(nil)
