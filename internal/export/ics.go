package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"staysync/internal/models"

	ics "github.com/arran4/golang-ical"
)

// WriteICS renders the reservations of one property as an iCalendar feed.
// Each stay is one all-day event covering [CheckIn, CheckOut).
func WriteICS(w io.Writer, property *models.Property, reservations []*models.Reservation, stamp time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//staysync//reservations//EN")
	if property != nil {
		cal.SetXWRCalName(property.Name)
	}

	for _, r := range reservations {
		ev := cal.AddEvent(fmt.Sprintf("reservation-%d@staysync", r.ID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(models.Day(r.CheckIn))
		ev.SetAllDayEndAt(models.Day(r.CheckOut))
		ev.SetSummary(stayTitle(r))
		ev.SetDescription(stayDescription(r))
		ev.SetStatus(ics.ObjectStatusConfirmed)
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func stayTitle(r *models.Reservation) string {
	status := strings.ToUpper(string(models.StatusForPayment(r.Paid)))
	return fmt.Sprintf("[%s] %s", status, r.Guest.Name)
}

func stayDescription(r *models.Reservation) string {
	return fmt.Sprintf("Reservation ID: %d\nPax: %d\nCheck-in: %s\nCheck-out: %s",
		r.ID, r.Pax, models.FormatDate(r.CheckIn), models.FormatDate(r.CheckOut))
}
