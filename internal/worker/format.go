package worker

import (
	"fmt"
	"strings"
	"time"

	"staysync/internal/models"
)

// Google Calendar color ids.
const (
	colorBasil     = "10"
	colorTangerine = "6"
	colorTomato    = "11"
	colorGraphite  = "8"
	colorPeacock   = "7"
)

// SeasonColor maps a season tier to the calendar color of its day events.
func SeasonColor(season models.Season) string {
	switch models.ParseSeason(string(season)) {
	case models.SeasonLow:
		return colorBasil
	case models.SeasonAverage:
		return colorTangerine
	case models.SeasonHigh:
		return colorTomato
	default:
		return colorGraphite
	}
}

// DayEvent renders the remote event of one ledger day.
func DayEvent(item models.DaySyncItem) models.RemoteEvent {
	status := strings.ToUpper(string(item.Status))
	amount := item.Price.StringFixed(0)

	title := fmt.Sprintf("[%s] - %s€", status, amount)
	if item.GuestName != "" {
		title = fmt.Sprintf("[%s] %s - %s€", status, item.GuestName, amount)
	}

	return models.RemoteEvent{
		Date:        item.Date,
		Title:       title,
		Description: fmt.Sprintf("Status: %s\nPrice: %s", item.Status, item.Price.String()),
		ColorID:     SeasonColor(item.Season),
	}
}

// CheckInEvent renders the check-in marker of a reservation.
func CheckInEvent(op models.OperationSyncItem) models.RemoteEvent {
	ev := models.RemoteEvent{
		Date:        op.CheckIn,
		Title:       "➡ CHECK-IN: " + op.GuestName,
		Description: operationDescription(op.ReservationID, op.CheckedIn),
		ColorID:     colorPeacock,
	}
	if op.CheckedIn {
		ev.Title = "[✓] CHECK-IN: " + op.GuestName
		ev.ColorID = colorBasil
	}
	return ev
}

// CheckOutEvent renders the check-out marker of a reservation.
func CheckOutEvent(op models.OperationSyncItem) models.RemoteEvent {
	ev := models.RemoteEvent{
		Date:        op.CheckOut,
		Title:       "⬅ CHECK-OUT: " + op.GuestName,
		Description: operationDescription(op.ReservationID, op.CheckedOut),
		ColorID:     colorTangerine,
	}
	if op.CheckedOut {
		ev.Title = "[✓] CHECK-OUT: " + op.GuestName
		ev.ColorID = colorGraphite
	}
	return ev
}

// CancelledEvent renders a check-in or check-out marker of a cancelled reservation.
func CancelledEvent(op models.CancelledOperation, date time.Time, movement string) models.RemoteEvent {
	return models.RemoteEvent{
		Date:        date,
		Title:       fmt.Sprintf("[✗] %s: %s", movement, op.GuestName),
		Description: fmt.Sprintf("Reservation ID: %d\nStatus: CANCELLED", op.ReservationID),
		ColorID:     colorGraphite,
	}
}

func operationDescription(id int64, completed bool) string {
	state := "PENDING"
	if completed {
		state = "COMPLETED"
	}
	return fmt.Sprintf("Reservation ID: %d\nStatus: %s", id, state)
}
