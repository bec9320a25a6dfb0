package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryledger/internal/models"
	"libraryledger/internal/services"
)

func Test_PlaceReservation(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "VH001", 0, 1, 1)
	holder := f.reader(t, "BD001")
	second := f.reader(t, "BD002")
	third := f.reader(t, "BD003")

	t.Run("rejected_while_copies_available", func(t *testing.T) {
		_, err := f.svc.PlaceReservation(f.ctx, book.ID, second.ID)

		assert.ErrorIs(t, err, services.ErrCopiesAvailable)
	})

	f.borrow(t, holder.ID, book.ID)

	t.Run("queues_in_order", func(t *testing.T) {
		r1, err := f.svc.PlaceReservation(f.ctx, book.ID, second.ID)
		require.NoError(t, err)
		r2, err := f.svc.PlaceReservation(f.ctx, book.ID, third.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, r1.QueuePosition)
		assert.Equal(t, 2, r2.QueuePosition)

		queue, err := f.svc.ListReservations(f.ctx, book.ID)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, second.ID, queue[0].ReaderID)
		require.NotNil(t, queue[0].Reader)
		assert.Equal(t, "BD002", queue[0].Reader.CardID)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.svc.PlaceReservation(f.ctx, book.ID, second.ID)

		assert.ErrorIs(t, err, services.ErrDuplicateReservation)
	})

	t.Run("unknown_reader", func(t *testing.T) {
		_, err := f.svc.PlaceReservation(f.ctx, book.ID, uuid.New())

		assert.ErrorIs(t, err, services.ErrReaderNotFound)
	})

	t.Run("unknown_book", func(t *testing.T) {
		_, err := f.svc.PlaceReservation(f.ctx, uuid.New(), second.ID)

		assert.ErrorIs(t, err, services.ErrBookNotFound)
		_, err = f.svc.ListReservations(f.ctx, uuid.New())
		assert.ErrorIs(t, err, services.ErrBookNotFound)
	})
}

func Test_FulfillReservation(t *testing.T) {
	// arrange
	f := newFixture(t)
	book := f.book(t, "VH001", 0, 1, 1)
	holder := f.reader(t, "BD001")
	first := f.reader(t, "BD002")
	second := f.reader(t, "BD003")
	loan := f.borrow(t, holder.ID, book.ID)

	head, err := f.svc.PlaceReservation(f.ctx, book.ID, first.ID)
	require.NoError(t, err)
	next, err := f.svc.PlaceReservation(f.ctx, book.ID, second.ID)
	require.NoError(t, err)

	t.Run("only_head_of_queue", func(t *testing.T) {
		_, err := f.svc.FulfillReservation(f.ctx, next.ID)

		assert.ErrorIs(t, err, services.ErrNotHeadOfQueue)
	})

	t.Run("needs_a_returned_copy", func(t *testing.T) {
		_, err := f.svc.FulfillReservation(f.ctx, head.ID)

		assert.ErrorIs(t, err, services.ErrInventoryExhausted)
		queue, err := f.svc.ListReservations(f.ctx, book.ID)
		require.NoError(t, err)
		assert.Len(t, queue, 2, "failed fulfilment keeps the reservation")
	})

	t.Run("lends_to_head_and_drops_reservation", func(t *testing.T) {
		_, err := f.svc.ApplyLoanTransition(f.ctx, services.LoanInput{ID: &loan.ID, Status: models.LoanStatusReturned})
		require.NoError(t, err)

		tr, err := f.svc.FulfillReservation(f.ctx, head.ID)

		require.NoError(t, err)
		assert.Equal(t, first.ID, tr.Loan.ReaderID)
		assert.Equal(t, models.LoanStatusBorrowing, tr.Loan.Status)
		assert.Equal(t, -1, tr.AvailableDelta)
		assert.Equal(t, 0, f.available(t, book.ID))

		queue, err := f.svc.ListReservations(f.ctx, book.ID)
		require.NoError(t, err)
		require.Len(t, queue, 1)
		assert.Equal(t, next.ID, queue[0].ID)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := f.svc.FulfillReservation(f.ctx, uuid.New())

		assert.ErrorIs(t, err, services.ErrReservationNotFound)
	})
}

func Test_CancelReservation(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "VH001", 0, 1, 1)
	f.borrow(t, f.reader(t, "BD001").ID, book.ID)
	first := f.reader(t, "BD002")
	second := f.reader(t, "BD003")

	head, err := f.svc.PlaceReservation(f.ctx, book.ID, first.ID)
	require.NoError(t, err)
	next, err := f.svc.PlaceReservation(f.ctx, book.ID, second.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelReservation(f.ctx, head.ID))
	assert.ErrorIs(t, f.svc.CancelReservation(f.ctx, head.ID), services.ErrReservationNotFound)

	// The next reader moves to the head of the queue.
	_, err = f.svc.FulfillReservation(f.ctx, next.ID)
	assert.ErrorIs(t, err, services.ErrInventoryExhausted)

	again, err := f.svc.PlaceReservation(f.ctx, book.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.QueuePosition)
}
