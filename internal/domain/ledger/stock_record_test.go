package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStockRecord(t *testing.T) *StockRecord {
	t.Helper()
	locationID := uuid.New()
	record, err := NewStockRecord(uuid.New(), &locationID)
	require.NoError(t, err)
	return record
}

func TestNewStockRecord(t *testing.T) {
	t.Run("creates stock record successfully", func(t *testing.T) {
		productID := uuid.New()
		locationID := uuid.New()

		record, err := NewStockRecord(productID, &locationID)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, record.ID)
		assert.Equal(t, productID, record.ProductID)
		assert.Equal(t, locationID, *record.LocationID)
		assert.True(t, record.OnHand.IsZero())
		assert.True(t, record.Committed.IsZero())
		assert.True(t, record.Available().IsZero())
	})

	t.Run("accepts nil location as unassigned stock", func(t *testing.T) {
		record, err := NewStockRecord(uuid.New(), nil)

		require.NoError(t, err)
		assert.Nil(t, record.LocationID)
	})

	t.Run("fails with nil product ID", func(t *testing.T) {
		record, err := NewStockRecord(uuid.Nil, nil)

		require.Error(t, err)
		assert.Nil(t, record)
	})

	t.Run("fails with zero-value location pointer", func(t *testing.T) {
		zero := uuid.Nil
		record, err := NewStockRecord(uuid.New(), &zero)

		require.Error(t, err)
		assert.Nil(t, record)
	})
}

func TestStockRecord_Available(t *testing.T) {
	record := createTestStockRecord(t)
	record.OnHand = decimal.NewFromInt(100)
	record.Committed = decimal.NewFromInt(30)

	assert.Equal(t, decimal.NewFromInt(70), record.Available())
}

func TestStockRecord_ApplyDelta(t *testing.T) {
	t.Run("applies on-hand and committed deltas", func(t *testing.T) {
		record := createTestStockRecord(t)

		err := record.ApplyDelta(decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		err = record.ApplyDelta(decimal.Zero, decimal.NewFromInt(40))
		require.NoError(t, err)

		assert.Equal(t, decimal.NewFromInt(100), record.OnHand)
		assert.Equal(t, decimal.NewFromInt(40), record.Committed)
		assert.Equal(t, decimal.NewFromInt(60), record.Available())
	})

	t.Run("rejects zero delta on both counters", func(t *testing.T) {
		record := createTestStockRecord(t)

		err := record.ApplyDelta(decimal.Zero, decimal.Zero)

		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects delta driving on-hand negative", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.OnHand = decimal.NewFromInt(10)

		err := record.ApplyDelta(decimal.NewFromInt(-11), decimal.Zero)

		var invariant *InvariantViolationError
		require.ErrorAs(t, err, &invariant)
		assert.Equal(t, record.ID, invariant.StockRecordID)
		assert.Equal(t, decimal.NewFromInt(10), record.OnHand)
	})

	t.Run("rejects delta driving committed negative", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.OnHand = decimal.NewFromInt(10)

		err := record.ApplyDelta(decimal.Zero, decimal.NewFromInt(-1))

		var invariant *InvariantViolationError
		assert.ErrorAs(t, err, &invariant)
	})

	t.Run("rejects committed exceeding on-hand", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.OnHand = decimal.NewFromInt(10)

		err := record.ApplyDelta(decimal.Zero, decimal.NewFromInt(11))

		var invariant *InvariantViolationError
		assert.ErrorAs(t, err, &invariant)
		assert.Equal(t, decimal.NewFromInt(10), record.OnHand)
		assert.True(t, record.Committed.IsZero())
	})

	t.Run("increments version on success", func(t *testing.T) {
		record := createTestStockRecord(t)
		before := record.GetVersion()

		err := record.ApplyDelta(decimal.NewFromInt(5), decimal.Zero)

		require.NoError(t, err)
		assert.Equal(t, before+1, record.GetVersion())
	})

	t.Run("emits StockBelowThreshold when available drops under threshold", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.OnHand = decimal.NewFromInt(100)
		record.ReorderThreshold = decimal.NewFromInt(20)

		err := record.ApplyDelta(decimal.Zero, decimal.NewFromInt(90))

		require.NoError(t, err)
		events := record.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeStockBelowThreshold, events[0].EventType())
	})

	t.Run("emits StockBelowThreshold when available reaches zero without threshold", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.OnHand = decimal.NewFromInt(50)

		err := record.ApplyDelta(decimal.Zero, decimal.NewFromInt(50))

		require.NoError(t, err)
		events := record.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeStockBelowThreshold, events[0].EventType())
	})

	t.Run("does not emit event while available stays above threshold", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.ReorderThreshold = decimal.NewFromInt(20)

		err := record.ApplyDelta(decimal.NewFromInt(100), decimal.Zero)

		require.NoError(t, err)
		assert.Empty(t, record.GetDomainEvents())
	})
}

func TestStockRecord_CanFulfill(t *testing.T) {
	record := createTestStockRecord(t)
	record.OnHand = decimal.NewFromInt(100)
	record.Committed = decimal.NewFromInt(60)

	assert.True(t, record.CanFulfill(decimal.NewFromInt(40)))
	assert.False(t, record.CanFulfill(decimal.NewFromInt(41)))
}

func TestStockRecord_AbsorbCost(t *testing.T) {
	t.Run("calculates weighted average cost", func(t *testing.T) {
		record := createTestStockRecord(t)
		record.OnHand = decimal.NewFromInt(100)
		record.AverageCost = decimal.NewFromInt(10)

		// (100*10 + 100*20) / 200 = 15
		err := record.AbsorbCost(decimal.NewFromInt(100), decimal.NewFromInt(20))

		require.NoError(t, err)
		assert.Equal(t, "15", record.AverageCost.String())
	})

	t.Run("sets cost directly when nothing is on hand", func(t *testing.T) {
		record := createTestStockRecord(t)

		err := record.AbsorbCost(decimal.NewFromInt(50), decimal.NewFromFloat(12.5))

		require.NoError(t, err)
		assert.Equal(t, "12.5", record.AverageCost.String())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		record := createTestStockRecord(t)

		err := record.AbsorbCost(decimal.Zero, decimal.NewFromInt(10))

		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestStockRecord_TotalValue(t *testing.T) {
	record := createTestStockRecord(t)
	record.OnHand = decimal.NewFromInt(40)
	record.AverageCost = decimal.NewFromFloat(2.5)

	assert.Equal(t, "100", record.TotalValue().String())
}
