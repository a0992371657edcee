package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthStats aggregates one month of one property.
type MonthStats struct {
	Year         int             `json:"year"`
	Month        time.Month      `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	OccupiedDays int             `json:"occupied_days"`
	DaysInMonth  int             `json:"days_in_month"`
}

// Occupancy is the share of occupied days, in percent.
func (s MonthStats) Occupancy() float64 {
	if s.DaysInMonth == 0 {
		return 0
	}
	return float64(s.OccupiedDays) * 100 / float64(s.DaysInMonth)
}

// DaysIn returns the number of days of the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
