package persistence

import (
	"context"

	"gorm.io/gorm"

	appledger "github.com/stockcore/backend/internal/application/ledger"
	"github.com/stockcore/backend/internal/domain/ledger"
)

// GormTransactionScope implements the application TransactionScope using
// GORM transactions: every repository handed to the callback runs on the
// same open transaction, so a returned error rolls everything back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) StockRecords() ledger.StockRecordRepository {
	return NewGormStockRecordRepository(r.tx)
}

func (r *gormTransactionalRepositories) Reservations() ledger.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Movements() ledger.MovementRecordRepository {
	return NewGormMovementRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
