package ledger

import (
	"context"

	"github.com/stockcore/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations inside Execute belong to the same database
// transaction and commit or roll back as one unit. Reservation commits rely
// on this: the counter updates, the reservation row and the journal entries
// land together or not at all.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories bound
// to the current transaction.
//
// Aggregate boundary notes:
//   - StockRecords: the StockRecord aggregate; every counter change goes
//     through SaveWithLock so concurrent writers surface as conflicts.
//   - Reservations: the Reservation aggregate with its allocation lines,
//     persisted via GORM association handling.
//   - Movements: append-only journal rows. Never updated in place.
type TransactionalRepositories interface {
	StockRecords() ledger.StockRecordRepository
	Reservations() ledger.ReservationRepository
	Movements() ledger.MovementRecordRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests with in-memory repositories.
type NoOpTransactionScope struct {
	stockRecords ledger.StockRecordRepository
	reservations ledger.ReservationRepository
	movements    ledger.MovementRecordRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	stockRecords ledger.StockRecordRepository,
	reservations ledger.ReservationRepository,
	movements ledger.MovementRecordRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockRecords: stockRecords,
		reservations: reservations,
		movements:    movements,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockRecords returns the stock record repository.
func (s *NoOpTransactionScope) StockRecords() ledger.StockRecordRepository {
	return s.stockRecords
}

// Reservations returns the reservation repository.
func (s *NoOpTransactionScope) Reservations() ledger.ReservationRepository {
	return s.reservations
}

// Movements returns the movement journal repository.
func (s *NoOpTransactionScope) Movements() ledger.MovementRecordRepository {
	return s.movements
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
