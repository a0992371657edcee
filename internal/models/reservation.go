package models

import "time"

type Guest struct {
	Name       string `json:"name"`
	DocumentID string `json:"document_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Reservation covers the nights [CheckIn, CheckOut) of one property.
type Reservation struct {
	ID               int64     `json:"id"`
	PropertyID       int64     `json:"property_id"`
	Guest            Guest     `json:"guest"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
	Pax              int       `json:"pax"`
	Paid             bool      `json:"paid"`
	CheckedIn        bool      `json:"checked_in"`
	CheckedOut       bool      `json:"checked_out"`
	CheckInEventID   string    `json:"check_in_event_id,omitempty"`
	CheckOutEventID  string    `json:"check_out_event_id,omitempty"`
	OperationsSynced bool      `json:"operations_synced"`
	Revision         int64     `json:"revision"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Nights returns the dates occupied by the reservation.
func (r *Reservation) Nights() []time.Time {
	return Nights(r.CheckIn, r.CheckOut)
}

// CheckoutReport carries what the operator records when a guest leaves.
type CheckoutReport struct {
	ExitTime          string `json:"exit_time"`
	KeysReturned      bool   `json:"keys_returned"`
	DamageDetected    bool   `json:"damage_detected"`
	DamageDescription string `json:"damage_description,omitempty"`
}

// OperationSyncItem is a reservation whose check-in/out events need a push.
type OperationSyncItem struct {
	ReservationID   int64
	PropertyID      int64
	CalendarID      string
	GuestName       string
	CheckIn         time.Time
	CheckOut        time.Time
	CheckedIn       bool
	CheckedOut      bool
	CheckInEventID  string
	CheckOutEventID string
	Revision        int64
}

// CancelledOperation holds the remote check-in/out events of a cancelled
// reservation until they are marked as cancelled.
type CancelledOperation struct {
	ID              int64
	ReservationID   int64
	PropertyID      int64
	CalendarID      string
	GuestName       string
	CheckIn         time.Time
	CheckOut        time.Time
	CheckInEventID  string
	CheckOutEventID string
}

// Movement is an upcoming check-in or check-out.
type Movement struct {
	ReservationID int64     `json:"reservation_id"`
	GuestName     string    `json:"guest_name"`
	Date          time.Time `json:"date"`
	Type          string    `json:"type"`
}

const (
	MovementCheckIn  = "CHECK-IN"
	MovementCheckOut = "CHECK-OUT"
)
