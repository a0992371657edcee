package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Season string

// ParseSeason maps free-form input onto a known tier; anything else is SeasonNone.
func ParseSeason(raw string) Season {
	switch Season(strings.ToLower(strings.TrimSpace(raw))) {
	case SeasonLow:
		return SeasonLow
	case SeasonAverage:
		return SeasonAverage
	case SeasonHigh:
		return SeasonHigh
	default:
		return SeasonNone
	}
}

type DayStatus string

// Occupied reports whether the day belongs to a reservation.
func (s DayStatus) Occupied() bool {
	return s == DayReserved || s == DayPaid
}

// StatusForPayment returns the occupied status matching the paid flag.
func StatusForPayment(paid bool) DayStatus {
	if paid {
		return DayPaid
	}
	return DayReserved
}

// CalendarDay is one ledger row keyed by (PropertyID, Date).
type CalendarDay struct {
	PropertyID    int64           `json:"property_id"`
	Date          time.Time       `json:"date"`
	Price         decimal.Decimal `json:"price"`
	Season        Season          `json:"season"`
	Status        DayStatus       `json:"status"`
	Synced        bool            `json:"synced"`
	RemoteEventID string          `json:"remote_event_id,omitempty"`
	Revision      int64           `json:"revision"`
}

// DaySyncItem is an unsynchronized day joined with the guest occupying it.
type DaySyncItem struct {
	PropertyID    int64
	CalendarID    string
	Date          time.Time
	Price         decimal.Decimal
	Season        Season
	Status        DayStatus
	RemoteEventID string
	GuestName     string
	Revision      int64
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a ledger date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MaxRangeDays bounds how many dates one price range or stay may cover.
const MaxRangeDays = 3 * 366

// SpanDays counts the dates in [start, endExclusive) without enumerating them.
func SpanDays(start, endExclusive time.Time) int {
	return int(Day(endExclusive).Sub(Day(start)).Hours() / 24)
}

// Nights enumerates every date in [checkIn, checkOut).
func Nights(checkIn, checkOut time.Time) []time.Time {
	start, end := Day(checkIn), Day(checkOut)
	var dates []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// DateRange enumerates every date in [start, endInclusive].
func DateRange(start, endInclusive time.Time) []time.Time {
	return Nights(start, Day(endInclusive).AddDate(0, 0, 1))
}
