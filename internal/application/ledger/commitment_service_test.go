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
)

// reserveFixture seeds one record with stock and an active reservation on it
func reserveFixture(t *testing.T, onHand, reserved int64) (*memFixture, *ReservationResponse, uuid.UUID) {
	t.Helper()
	fixture := newMemFixture()
	productID := uuid.New()
	locationID := uuid.New()
	record := seedRecord(t, fixture, productID, &locationID, onHand, 0)

	service := NewReservationService(fixture.scope, zap.NewNop())
	reservation, err := service.Reserve(context.Background(), ReserveRequest{
		CorrelationRef: "SO-3001",
		Items:          []ReserveItem{{ProductID: productID, Quantity: decimal.NewFromInt(reserved)}},
	})
	require.NoError(t, err)
	return fixture, reservation, record.ID
}

func TestCommitmentService_Fulfill(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("full fulfillment drains both counters and books a consumption", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		response, err := service.Fulfill(ctx, FulfillRequest{ReservationID: reservation.ID, CausedBy: "shipment"})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusFulfilled), response.Status)
		assert.Equal(t, decimal.NewFromInt(40), response.TotalFulfilled)

		stored := fixture.stockRecords.stored(recordID)
		assert.Equal(t, decimal.NewFromInt(60), stored.OnHand)
		assert.True(t, stored.Committed.IsZero())
		assert.Equal(t, decimal.NewFromInt(60), stored.Available())

		movements := fixture.movements.all()
		require.Len(t, movements, 1)
		assert.Equal(t, ledger.MovementKindConsumption, movements[0].Kind)
		assert.Equal(t, decimal.NewFromInt(-40), movements[0].QuantityDelta)
		assert.Equal(t, "SO-3001", movements[0].CorrelationRef)
	})

	t.Run("missing actor falls back to the system default", func(t *testing.T) {
		fixture, reservation, _ := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		_, err := service.Fulfill(ctx, FulfillRequest{ReservationID: reservation.ID})

		require.NoError(t, err)
		movements := fixture.movements.all()
		require.Len(t, movements, 1)
		assert.Equal(t, DefaultActor, movements[0].CausedBy)
	})

	t.Run("drains a reservation split across two locations", func(t *testing.T) {
		fixture := newMemFixture()
		productID := uuid.New()
		loc1 := uuid.New()
		loc2 := uuid.New()
		first := seedRecord(t, fixture, productID, &loc1, 5, 0)
		second := seedRecord(t, fixture, productID, &loc2, 3, 0)

		reservationService := NewReservationService(fixture.scope, logger)
		reservation, err := reservationService.Reserve(ctx, ReserveRequest{
			CorrelationRef: "SO-3002",
			Items:          []ReserveItem{{ProductID: productID, Quantity: decimal.NewFromInt(8)}},
		})
		require.NoError(t, err)
		require.Len(t, reservation.Allocations, 2)

		// Two lines drain in one transaction, bumping the reservation
		// version twice before its lock-checked save.
		service := NewCommitmentService(fixture.scope, logger)
		response, err := service.Fulfill(ctx, FulfillRequest{ReservationID: reservation.ID, CausedBy: "shipment"})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusFulfilled), response.Status)
		assert.Equal(t, decimal.NewFromInt(8), response.TotalFulfilled)
		assert.True(t, fixture.stockRecords.stored(first.ID).OnHand.IsZero())
		assert.True(t, fixture.stockRecords.stored(second.ID).OnHand.IsZero())
		require.Len(t, fixture.movements.all(), 2)
	})

	t.Run("partial fulfillment keeps the rest committed", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		response, err := service.Fulfill(ctx, FulfillRequest{
			ReservationID: reservation.ID,
			Lines: []CommitmentLine{{
				AllocationID: reservation.Allocations[0].ID,
				Quantity:     decimal.NewFromInt(15),
			}},
		})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusPartiallyFulfilled), response.Status)

		stored := fixture.stockRecords.stored(recordID)
		assert.Equal(t, decimal.NewFromInt(85), stored.OnHand)
		assert.Equal(t, decimal.NewFromInt(25), stored.Committed)
	})

	t.Run("rejects draining more than committed", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		_, err := service.Fulfill(ctx, FulfillRequest{
			ReservationID: reservation.ID,
			Lines: []CommitmentLine{{
				AllocationID: reservation.Allocations[0].ID,
				Quantity:     decimal.NewFromInt(41),
			}},
		})

		var overFulfillment *ledger.OverFulfillmentError
		require.ErrorAs(t, err, &overFulfillment)
		assert.Equal(t, decimal.NewFromInt(100), fixture.stockRecords.stored(recordID).OnHand)
		assert.Empty(t, fixture.movements.all())
	})

	t.Run("rejects fulfillment of a released reservation", func(t *testing.T) {
		fixture, reservation, _ := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)
		_, err := service.Release(ctx, ReleaseRequest{ReservationID: reservation.ID})
		require.NoError(t, err)

		_, err = service.Fulfill(ctx, FulfillRequest{ReservationID: reservation.ID})

		assert.ErrorIs(t, err, ledger.ErrReservationNotActive)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		fixture := newMemFixture()
		service := NewCommitmentService(fixture.scope, logger)

		_, err := service.Fulfill(ctx, FulfillRequest{ReservationID: uuid.New()})

		assert.ErrorIs(t, err, ledger.ErrReservationNotFound)
	})
}

func TestCommitmentService_Release(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("release restores availability without touching on-hand", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		response, err := service.Release(ctx, ReleaseRequest{ReservationID: reservation.ID})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusReleased), response.Status)

		stored := fixture.stockRecords.stored(recordID)
		assert.Equal(t, decimal.NewFromInt(100), stored.OnHand)
		assert.True(t, stored.Committed.IsZero())
		// Nothing physical happened, so the journal stays empty.
		assert.Empty(t, fixture.movements.all())
	})

	t.Run("release is idempotent", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		_, err := service.Release(ctx, ReleaseRequest{ReservationID: reservation.ID})
		require.NoError(t, err)
		response, err := service.Release(ctx, ReleaseRequest{ReservationID: reservation.ID})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusReleased), response.Status)
		assert.True(t, fixture.stockRecords.stored(recordID).Committed.IsZero())
	})

	t.Run("partial release keeps the reservation active", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		response, err := service.Release(ctx, ReleaseRequest{
			ReservationID: reservation.ID,
			Lines: []CommitmentLine{{
				AllocationID: reservation.Allocations[0].ID,
				Quantity:     decimal.NewFromInt(10),
			}},
		})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusActive), response.Status)
		assert.Equal(t, decimal.NewFromInt(30), fixture.stockRecords.stored(recordID).Committed)
	})

	t.Run("mixed fulfill and release closes as fulfilled", func(t *testing.T) {
		fixture, reservation, recordID := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		_, err := service.Fulfill(ctx, FulfillRequest{
			ReservationID: reservation.ID,
			Lines: []CommitmentLine{{
				AllocationID: reservation.Allocations[0].ID,
				Quantity:     decimal.NewFromInt(25),
			}},
		})
		require.NoError(t, err)

		response, err := service.Release(ctx, ReleaseRequest{ReservationID: reservation.ID})

		require.NoError(t, err)
		assert.Equal(t, string(ledger.ReservationStatusFulfilled), response.Status)

		stored := fixture.stockRecords.stored(recordID)
		assert.Equal(t, decimal.NewFromInt(75), stored.OnHand)
		assert.True(t, stored.Committed.IsZero())
	})

	t.Run("rejects non-positive line quantity", func(t *testing.T) {
		fixture, reservation, _ := reserveFixture(t, 100, 40)
		service := NewCommitmentService(fixture.scope, logger)

		_, err := service.Release(ctx, ReleaseRequest{
			ReservationID: reservation.ID,
			Lines: []CommitmentLine{{
				AllocationID: reservation.Allocations[0].ID,
				Quantity:     decimal.Zero,
			}},
		})

		assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
	})
}
