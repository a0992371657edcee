package database

import "errors"

var (
	ErrInvalidRange        = errors.New("check-out must be after check-in")
	ErrDatesUnavailable    = errors.New("dates overlap an existing reservation")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPropertyNotFound    = errors.New("property not found")
	ErrPriceNotConfigured  = errors.New("price is not configured for property")
	ErrDayNotFound         = errors.New("calendar day not found")
	ErrGuestNameRequired   = errors.New("guest name is required")
	ErrRangeTooLong        = errors.New("date range is too long")
)
