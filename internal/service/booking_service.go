package service

import (
	"context"
	"time"

	"staysync/internal/domain"
	"staysync/internal/events"
	"staysync/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the entry point for reservation changes. Every mutation
// goes through the ledger in one transaction; events and the optional sync
// request follow a successful commit.
type BookingService struct {
	ledger   domain.Ledger
	eventBus domain.EventPublisher
	trigger  domain.SyncTrigger
	logger   *zerolog.Logger
}

func NewBookingService(ledger domain.Ledger, eventBus domain.EventPublisher, trigger domain.SyncTrigger, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		ledger:   ledger,
		eventBus: eventBus,
		trigger:  trigger,
		logger:   logger,
	}
}

func (s *BookingService) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if err := s.ledger.CreateReservation(ctx, r); err != nil {
		return err
	}
	s.publishEvent(events.EventReservationCreated, r)
	s.requestSync()
	return nil
}

func (s *BookingService) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	if err := s.ledger.UpdateReservation(ctx, r); err != nil {
		return err
	}
	s.publishEvent(events.EventReservationUpdated, r)
	s.requestSync()
	return nil
}

func (s *BookingService) UpdatePaymentStatus(ctx context.Context, id int64, paid bool) error {
	if err := s.ledger.UpdatePaymentStatus(ctx, id, paid); err != nil {
		return err
	}
	if r, err := s.ledger.GetReservation(ctx, id); err == nil {
		s.publishEvent(events.EventReservationPaid, r)
	}
	s.requestSync()
	return nil
}

func (s *BookingService) CancelReservation(ctx context.Context, id int64) error {
	// Снимок до удаления нужен для события.
	r, err := s.ledger.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ledger.CancelReservation(ctx, id); err != nil {
		return err
	}
	s.publishEvent(events.EventReservationCancelled, r)
	s.requestSync()
	return nil
}

func (s *BookingService) CompleteCheckIn(ctx context.Context, id int64) error {
	if err := s.ledger.CompleteCheckIn(ctx, id); err != nil {
		return err
	}
	if r, err := s.ledger.GetReservation(ctx, id); err == nil {
		s.publishEvent(events.EventCheckInCompleted, r)
	}
	s.requestSync()
	return nil
}

func (s *BookingService) CompleteCheckOut(ctx context.Context, id int64, report models.CheckoutReport) error {
	if err := s.ledger.CompleteCheckOut(ctx, id, report); err != nil {
		return err
	}
	if r, err := s.ledger.GetReservation(ctx, id); err == nil {
		s.publishEvent(events.EventCheckOutCompleted, r)
	}
	s.requestSync()
	return nil
}

func (s *BookingService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.ledger.GetReservation(ctx, id)
}

func (s *BookingService) GetCheckoutReport(ctx context.Context, id int64) (*models.CheckoutReport, error) {
	return s.ledger.GetCheckoutReport(ctx, id)
}

func (s *BookingService) ReservationForDay(ctx context.Context, propertyID int64, date time.Time) (*models.Reservation, error) {
	return s.ledger.ReservationForDay(ctx, propertyID, date)
}

func (s *BookingService) ReservationByCheckOut(ctx context.Context, propertyID int64, date time.Time) (*models.Reservation, error) {
	return s.ledger.ReservationByCheckOut(ctx, propertyID, date)
}

func (s *BookingService) ListReservations(ctx context.Context, propertyID int64, from, to time.Time) ([]*models.Reservation, error) {
	return s.ledger.ListReservations(ctx, propertyID, from, to)
}

func (s *BookingService) GetDay(ctx context.Context, propertyID int64, date time.Time) (*models.CalendarDay, error) {
	return s.ledger.GetDay(ctx, propertyID, date)
}

func (s *BookingService) GetDaysInRange(ctx context.Context, propertyID int64, start, endInclusive time.Time) ([]*models.CalendarDay, error) {
	return s.ledger.GetDaysInRange(ctx, propertyID, start, endInclusive)
}

// MonthView returns the ledger rows of one month keyed by date.
func (s *BookingService) MonthView(ctx context.Context, propertyID int64, year int, month time.Month) (map[string]*models.CalendarDay, error) {
	days, err := s.ledger.GetMonthDays(ctx, propertyID, year, month)
	if err != nil {
		return nil, err
	}
	view := make(map[string]*models.CalendarDay, len(days))
	for _, d := range days {
		view[models.FormatDate(d.Date)] = d
	}
	return view, nil
}

func (s *BookingService) publishEvent(eventType string, r *models.Reservation) {
	if s.eventBus == nil || r == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		PropertyID:    r.PropertyID,
		GuestName:     r.Guest.Name,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		Paid:          r.Paid,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

func (s *BookingService) requestSync() {
	if s.trigger == nil {
		return
	}
	s.trigger.ForceSync()
}
