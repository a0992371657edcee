package service

import (
	"context"
	"io"
	"testing"
	"time"

	"staysync/internal/database"
	"staysync/internal/events"
	"staysync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBookingService(ledger *mockLedger, pub *mockPublisher, trigger *mockTrigger) *BookingService {
	logger := zerolog.New(io.Discard)
	if trigger == nil {
		return NewBookingService(ledger, pub, nil, &logger)
	}
	return NewBookingService(ledger, pub, trigger, &logger)
}

func sampleReservation() *models.Reservation {
	return &models.Reservation{
		ID:         7,
		PropertyID: 1,
		Guest:      models.Guest{Name: "Ana"},
		CheckIn:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Paid:       true,
	}
}

func TestBookingService(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateReservationPublishesAndRequestsSync", func(t *testing.T) {
		ledger := new(mockLedger)
		pub := new(mockPublisher)
		trigger := new(mockTrigger)
		svc := newBookingService(ledger, pub, trigger)
		r := sampleReservation()

		ledger.On("CreateReservation", ctx, r).Return(nil).Once()
		pub.On("PublishJSON", events.EventReservationCreated, mock.MatchedBy(func(p events.ReservationEventPayload) bool {
			return p.ReservationID == 7 && p.GuestName == "Ana" && p.Paid
		})).Return(nil).Once()
		trigger.On("ForceSync").Return(true).Once()

		require.NoError(t, svc.CreateReservation(ctx, r))
		ledger.AssertExpectations(t)
		pub.AssertExpectations(t)
		trigger.AssertExpectations(t)
	})

	t.Run("CreateReservationOverlap", func(t *testing.T) {
		ledger := new(mockLedger)
		pub := new(mockPublisher)
		svc := newBookingService(ledger, pub, nil)
		r := sampleReservation()

		ledger.On("CreateReservation", ctx, r).Return(database.ErrDatesUnavailable).Once()

		err := svc.CreateReservation(ctx, r)
		assert.ErrorIs(t, err, database.ErrDatesUnavailable)
		pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("UpdateReservation", func(t *testing.T) {
		ledger := new(mockLedger)
		pub := new(mockPublisher)
		svc := newBookingService(ledger, pub, nil)
		r := sampleReservation()

		ledger.On("UpdateReservation", ctx, r).Return(nil).Once()
		pub.On("PublishJSON", events.EventReservationUpdated, mock.Anything).Return(nil).Once()

		require.NoError(t, svc.UpdateReservation(ctx, r))
		pub.AssertExpectations(t)
	})

	t.Run("UpdatePaymentStatus", func(t *testing.T) {
		ledger := new(mockLedger)
		pub := new(mockPublisher)
		svc := newBookingService(ledger, pub, nil)

		ledger.On("UpdatePaymentStatus", ctx, int64(7), false).Return(nil).Once()
		ledger.On("GetReservation", ctx, int64(7)).Return(sampleReservation(), nil).Once()
		pub.On("PublishJSON", events.EventReservationPaid, mock.Anything).Return(nil).Once()

		require.NoError(t, svc.UpdatePaymentStatus(ctx, 7, false))
		ledger.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("CancelReservationSnapshotsBeforeDelete", func(t *testing.T) {
		ledger := new(mockLedger)
		pub := new(mockPublisher)
		svc := newBookingService(ledger, pub, nil)

		ledger.On("GetReservation", ctx, int64(7)).Return(sampleReservation(), nil).Once()
		ledger.On("CancelReservation", ctx, int64(7)).Return(nil).Once()
		pub.On("PublishJSON", events.EventReservationCancelled, mock.MatchedBy(func(p events.ReservationEventPayload) bool {
			return p.GuestName == "Ana"
		})).Return(nil).Once()

		require.NoError(t, svc.CancelReservation(ctx, 7))
		ledger.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("CancelUnknownReservation", func(t *testing.T) {
		ledger := new(mockLedger)
		svc := newBookingService(ledger, new(mockPublisher), nil)

		ledger.On("GetReservation", ctx, int64(99)).Return(nil, database.ErrReservationNotFound).Once()

		err := svc.CancelReservation(ctx, 99)
		assert.ErrorIs(t, err, database.ErrReservationNotFound)
		ledger.AssertNotCalled(t, "CancelReservation", mock.Anything, mock.Anything)
	})

	t.Run("CompleteCheckOut", func(t *testing.T) {
		ledger := new(mockLedger)
		pub := new(mockPublisher)
		svc := newBookingService(ledger, pub, nil)
		report := models.CheckoutReport{ExitTime: "11:00", KeysReturned: true}

		ledger.On("CompleteCheckOut", ctx, int64(7), report).Return(nil).Once()
		ledger.On("GetReservation", ctx, int64(7)).Return(sampleReservation(), nil).Once()
		pub.On("PublishJSON", events.EventCheckOutCompleted, mock.Anything).Return(nil).Once()

		require.NoError(t, svc.CompleteCheckOut(ctx, 7, report))
		pub.AssertExpectations(t)
	})

	t.Run("MonthViewKeysByDate", func(t *testing.T) {
		ledger := new(mockLedger)
		svc := newBookingService(ledger, new(mockPublisher), nil)
		d := &models.CalendarDay{PropertyID: 1, Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Status: models.DayPaid}

		ledger.On("GetMonthDays", ctx, int64(1), 2025, time.June).Return([]*models.CalendarDay{d}, nil).Once()

		view, err := svc.MonthView(ctx, 1, 2025, time.June)
		require.NoError(t, err)
		assert.Equal(t, models.DayPaid, view["2025-06-02"].Status)
		assert.Len(t, view, 1)
	})
}

func TestBookingServiceAgainstDatabase(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(t.TempDir()+"/staysync.db", &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	p := &models.Property{Name: "Casa Sol"}
	require.NoError(t, db.CreateProperty(ctx, p))

	bus := events.NewEventBus()
	var received []string
	bus.Subscribe(events.EventReservationCreated, func(e *events.Event) error {
		received = append(received, e.Type)
		return nil
	})

	svc := NewBookingService(db, bus, nil, &logger)
	r := &models.Reservation{
		PropertyID: p.ID,
		Guest:      models.Guest{Name: "Ana"},
		CheckIn:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.CreateReservation(ctx, r))

	clash := *r
	clash.ID = 0
	clash.CheckIn = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	clash.CheckOut = time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, svc.CreateReservation(ctx, &clash), database.ErrDatesUnavailable)

	assert.Equal(t, []string{events.EventReservationCreated}, received)

	view, err := svc.MonthView(ctx, p.ID, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, models.DayReserved, view["2025-06-02"].Status)
	assert.Equal(t, models.DayReserved, view["2025-06-03"].Status)
	_, hasCheckOut := view["2025-06-04"]
	assert.False(t, hasCheckOut)
}
