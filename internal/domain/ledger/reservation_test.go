package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestReservation(t *testing.T, quantities ...int64) *Reservation {
	t.Helper()
	reservation, err := NewReservation("SO-1001")
	require.NoError(t, err)
	for _, quantity := range quantities {
		locationID := uuid.New()
		err := reservation.AddAllocation(uuid.New(), uuid.New(), &locationID, decimal.NewFromInt(quantity))
		require.NoError(t, err)
	}
	return reservation
}

func TestNewReservation(t *testing.T) {
	t.Run("creates active reservation", func(t *testing.T) {
		reservation, err := NewReservation("SO-1001")

		require.NoError(t, err)
		assert.Equal(t, ReservationStatusActive, reservation.Status)
		assert.Equal(t, "SO-1001", reservation.CorrelationRef)
		assert.Empty(t, reservation.Allocations)
	})

	t.Run("fails without correlation reference", func(t *testing.T) {
		reservation, err := NewReservation("")

		require.Error(t, err)
		assert.Nil(t, reservation)
	})
}

func TestReservation_AddAllocation(t *testing.T) {
	t.Run("appends lines in planner order", func(t *testing.T) {
		reservation := createTestReservation(t, 10, 5)

		require.Len(t, reservation.Allocations, 2)
		assert.Equal(t, 0, reservation.Allocations[0].Position)
		assert.Equal(t, 1, reservation.Allocations[1].Position)
		assert.Equal(t, decimal.NewFromInt(15), reservation.TotalCommitted())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		reservation := createTestReservation(t)

		err := reservation.AddAllocation(uuid.New(), uuid.New(), nil, decimal.Zero)

		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestReservation_Drain(t *testing.T) {
	t.Run("moves quantity from committed to fulfilled", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]

		err := reservation.Drain(allocation.ID, decimal.NewFromInt(4))

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(6), allocation.Committed)
		assert.Equal(t, decimal.NewFromInt(4), allocation.Fulfilled)
		assert.Equal(t, ReservationStatusPartiallyFulfilled, reservation.Status)
	})

	t.Run("closes reservation as fulfilled when fully drained", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]

		err := reservation.Drain(allocation.ID, decimal.NewFromInt(10))

		require.NoError(t, err)
		assert.True(t, allocation.IsClosed())
		assert.Equal(t, ReservationStatusFulfilled, reservation.Status)
		assert.False(t, reservation.IsActive())
	})

	t.Run("rejects draining more than committed", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]

		err := reservation.Drain(allocation.ID, decimal.NewFromInt(11))

		var overFulfillment *OverFulfillmentError
		require.ErrorAs(t, err, &overFulfillment)
		assert.Equal(t, decimal.NewFromInt(10), allocation.Committed)
	})

	t.Run("rejects drain on inactive reservation", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]
		_, err := reservation.ReleaseLine(allocation.ID, decimal.NewFromInt(10))
		require.NoError(t, err)

		err = reservation.Drain(allocation.ID, decimal.NewFromInt(1))

		assert.ErrorIs(t, err, ErrReservationNotActive)
	})

	t.Run("emits ReservationFulfilled event", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		reservation.ClearDomainEvents()

		err := reservation.Drain(reservation.Allocations[0].ID, decimal.NewFromInt(3))

		require.NoError(t, err)
		events := reservation.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeReservationFulfilled, events[0].EventType())
	})
}

func TestReservation_ReleaseLine(t *testing.T) {
	t.Run("returns committed quantity and closes as released", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]

		released, err := reservation.ReleaseLine(allocation.ID, decimal.NewFromInt(10))

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(10), released)
		assert.Equal(t, ReservationStatusReleased, reservation.Status)
	})

	t.Run("caps the release at the remaining committed quantity", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]

		released, err := reservation.ReleaseLine(allocation.ID, decimal.NewFromInt(999))

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(10), released)
	})

	t.Run("releasing a drained line is a no-op", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]
		require.NoError(t, reservation.Drain(allocation.ID, decimal.NewFromInt(10)))
		versionBefore := reservation.GetVersion()

		released, err := reservation.ReleaseLine(allocation.ID, decimal.NewFromInt(5))

		require.NoError(t, err)
		assert.True(t, released.IsZero())
		assert.Equal(t, versionBefore, reservation.GetVersion())
		assert.Equal(t, ReservationStatusFulfilled, reservation.Status)
	})

	t.Run("mixed drain and release closes as fulfilled", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]
		require.NoError(t, reservation.Drain(allocation.ID, decimal.NewFromInt(4)))

		released, err := reservation.ReleaseLine(allocation.ID, decimal.NewFromInt(6))

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(6), released)
		assert.Equal(t, ReservationStatusFulfilled, reservation.Status)
	})

	t.Run("partial release keeps the reservation active", func(t *testing.T) {
		reservation := createTestReservation(t, 10)
		allocation := &reservation.Allocations[0]

		released, err := reservation.ReleaseLine(allocation.ID, decimal.NewFromInt(4))

		require.NoError(t, err)
		assert.Equal(t, decimal.NewFromInt(4), released)
		assert.Equal(t, ReservationStatusActive, reservation.Status)
		assert.True(t, reservation.IsActive())
	})
}

func TestReservation_FindAllocationByStockRecord(t *testing.T) {
	reservation := createTestReservation(t, 10, 5)
	target := reservation.Allocations[1].StockRecordID

	found := reservation.FindAllocationByStockRecord(target)

	require.NotNil(t, found)
	assert.Equal(t, decimal.NewFromInt(5), found.Committed)
	assert.Nil(t, reservation.FindAllocationByStockRecord(uuid.New()))
}
