package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
)

func TestMovementService_Receive(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("first receipt creates the record", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)
		productID := uuid.New()
		locationID := uuid.New()

		response, err := service.Receive(ctx, ReceiveRequest{
			ProductID:      productID,
			LocationID:     &locationID,
			Quantity:       decimal.NewFromInt(100),
			UnitCost:       decimal.NewFromInt(10),
			CorrelationRef: "PO-1001",
		})

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(100), response.Record.OnHand)
		assert.Equal(t, "10", response.Record.AverageCost.String())
		assert.Equal(t, ledger.MovementKindReceipt.String(), response.Movement.Kind)
		assert.Equal(t, decimal.NewFromInt(100), response.Movement.QuantityDelta)
		require.NotNil(t, response.Movement.TotalCost)
		assert.Equal(t, "1000", response.Movement.TotalCost.String())
	})

	t.Run("second receipt reuses the record and averages the cost", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)
		productID := uuid.New()
		locationID := uuid.New()

		_, err := service.Receive(ctx, ReceiveRequest{
			ProductID: productID, LocationID: &locationID,
			Quantity: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(10),
			CorrelationRef: "PO-1001",
		})
		require.NoError(t, err)
		response, err := service.Receive(ctx, ReceiveRequest{
			ProductID: productID, LocationID: &locationID,
			Quantity: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(20),
			CorrelationRef: "PO-1002",
		})

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(200), response.Record.OnHand)
		assert.Equal(t, "15", response.Record.AverageCost.String())
		assert.Len(t, fixture.movements.all(), 2)
	})

	t.Run("validates the request", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)

		_, err := service.Receive(ctx, ReceiveRequest{ProductID: uuid.New(), Quantity: decimal.Zero, CorrelationRef: "PO-1"})
		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

		_, err = service.Receive(ctx, ReceiveRequest{ProductID: uuid.New(), Quantity: decimal.NewFromInt(1)})
		require.Error(t, err)
	})
}

func TestMovementService_Adjust(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("negative adjustment lowers on-hand", func(t *testing.T) {
		fixture := newMemFixture()
		productID := uuid.New()
		locationID := uuid.New()
		record := seedRecord(t, fixture, productID, &locationID, 50, 0)
		service := NewMovementService(fixture.scope, logger)

		response, err := service.Adjust(ctx, AdjustRequest{
			ProductID:      productID,
			LocationID:     &locationID,
			QuantityDelta:  decimal.NewFromInt(-8),
			Reason:         "cycle count",
			CorrelationRef: "CC-2024-11",
		})

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(42), response.Record.OnHand)
		assert.Equal(t, ledger.MovementKindAdjustment.String(), response.Movement.Kind)
		assert.Equal(t, "cycle count", response.Movement.CausedBy)
		assert.Equal(t, decimal.NewFromInt(42), fixture.stockRecords.stored(record.ID).OnHand)
	})

	t.Run("rejected while quantity is committed", func(t *testing.T) {
		fixture := newMemFixture()
		productID := uuid.New()
		locationID := uuid.New()
		record := seedRecord(t, fixture, productID, &locationID, 50, 30)
		service := NewMovementService(fixture.scope, logger)

		_, err := service.Adjust(ctx, AdjustRequest{
			ProductID:      productID,
			LocationID:     &locationID,
			QuantityDelta:  decimal.NewFromInt(-25),
			Reason:         "cycle count",
			CorrelationRef: "CC-2024-12",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "HAS_COMMITTED_STOCK", domainErr.Code)
		assert.Equal(t, decimal.NewFromInt(50), fixture.stockRecords.stored(record.ID).OnHand)
		assert.Empty(t, fixture.movements.all())
	})

	t.Run("positive adjustment on a missing record creates it", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)

		response, err := service.Adjust(ctx, AdjustRequest{
			ProductID:      uuid.New(),
			QuantityDelta:  decimal.NewFromInt(3),
			Reason:         "found stock",
			CorrelationRef: "CC-2024-13",
		})

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(3), response.Record.OnHand)
		assert.Nil(t, response.Record.LocationID)
	})

	t.Run("negative adjustment on a missing record fails", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)

		_, err := service.Adjust(ctx, AdjustRequest{
			ProductID:      uuid.New(),
			QuantityDelta:  decimal.NewFromInt(-3),
			Reason:         "shrinkage",
			CorrelationRef: "CC-2024-14",
		})

		assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
	})

	t.Run("rejects zero delta", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)

		_, err := service.Adjust(ctx, AdjustRequest{
			ProductID:      uuid.New(),
			QuantityDelta:  decimal.Zero,
			CorrelationRef: "CC-2024-15",
		})

		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
	})
}

func TestMovementService_Transfer(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("writes a paired journal and moves the quantity", func(t *testing.T) {
		fixture := newMemFixture()
		productID := uuid.New()
		from, to := uuid.New(), uuid.New()
		source := seedRecord(t, fixture, productID, &from, 100, 0)
		source.AverageCost = decimal.NewFromInt(4)
		fixture.stockRecords.seed(source)
		service := NewMovementService(fixture.scope, logger)

		response, err := service.Transfer(ctx, TransferRequest{
			ProductID:      productID,
			FromLocationID: from,
			ToLocationID:   to,
			Quantity:       decimal.NewFromInt(30),
			CorrelationRef: "TR-5001",
		})

		require.NoError(t, err)
		assert.Equal(t, ledger.MovementKindTransferOut.String(), response.OutMovement.Kind)
		assert.Equal(t, ledger.MovementKindTransferIn.String(), response.InMovement.Kind)
		assert.Equal(t, response.OutMovement.CorrelationRef, response.InMovement.CorrelationRef)
		assert.Equal(t, decimal.NewFromInt(-30), response.OutMovement.QuantityDelta)
		assert.Equal(t, decimal.NewFromInt(30), response.InMovement.QuantityDelta)

		assert.Equal(t, decimal.NewFromInt(70), fixture.stockRecords.stored(source.ID).OnHand)
		destination, err := fixture.stockRecords.FindByProductAndLocation(ctx, productID, &to)
		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(30), destination.OnHand)
		assert.Equal(t, "4", destination.AverageCost.String())
	})

	t.Run("committed stock cannot leave its location", func(t *testing.T) {
		fixture := newMemFixture()
		productID := uuid.New()
		from, to := uuid.New(), uuid.New()
		seedRecord(t, fixture, productID, &from, 50, 30)
		service := NewMovementService(fixture.scope, logger)

		_, err := service.Transfer(ctx, TransferRequest{
			ProductID:      productID,
			FromLocationID: from,
			ToLocationID:   to,
			Quantity:       decimal.NewFromInt(25),
			CorrelationRef: "TR-5002",
		})

		var insufficient *ledger.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, decimal.NewFromInt(20), insufficient.Available)
	})

	t.Run("generates a correlation reference when none is given", func(t *testing.T) {
		fixture := newMemFixture()
		productID := uuid.New()
		from, to := uuid.New(), uuid.New()
		seedRecord(t, fixture, productID, &from, 10, 0)
		service := NewMovementService(fixture.scope, logger)

		response, err := service.Transfer(ctx, TransferRequest{
			ProductID:      productID,
			FromLocationID: from,
			ToLocationID:   to,
			Quantity:       decimal.NewFromInt(5),
		})

		require.NoError(t, err)
		assert.NotEmpty(t, response.OutMovement.CorrelationRef)
		assert.Equal(t, response.OutMovement.CorrelationRef, response.InMovement.CorrelationRef)
	})

	t.Run("rejects a transfer onto itself", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)
		locationID := uuid.New()

		_, err := service.Transfer(ctx, TransferRequest{
			ProductID:      uuid.New(),
			FromLocationID: locationID,
			ToLocationID:   locationID,
			Quantity:       decimal.NewFromInt(5),
		})

		require.Error(t, err)
	})

	t.Run("missing source record", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewMovementService(fixture.scope, logger)

		_, err := service.Transfer(ctx, TransferRequest{
			ProductID:      uuid.New(),
			FromLocationID: uuid.New(),
			ToLocationID:   uuid.New(),
			Quantity:       decimal.NewFromInt(5),
		})

		assert.ErrorIs(t, err, ledger.ErrRecordNotFound)
	})
}
