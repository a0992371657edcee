package database

import (
	"context"
	"fmt"
	"time"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
)

// MonthStats sums the price of paid days and counts occupied days in a month.
func (db *DB) MonthStats(ctx context.Context, propertyID int64, year int, month time.Month) (models.MonthStats, error) {
	stats := models.MonthStats{
		Year:        year,
		Month:       month,
		Revenue:     decimal.Zero,
		DaysInMonth: models.DaysIn(year, month),
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	rows, err := db.QueryContext(ctx,
		`SELECT status, price FROM days
         WHERE property_id = ? AND day_date BETWEEN ? AND ? AND status IN (?, ?)`,
		propertyID, models.FormatDate(first), models.FormatDate(last), models.DayReserved, models.DayPaid)
	if err != nil {
		return stats, fmt.Errorf("failed to get month stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, raw string
		if err := rows.Scan(&status, &raw); err != nil {
			return stats, fmt.Errorf("failed to scan month stats: %w", err)
		}
		stats.OccupiedDays++
		if models.DayStatus(status) != models.DayPaid {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return stats, fmt.Errorf("failed to parse price %q: %w", raw, err)
		}
		stats.Revenue = stats.Revenue.Add(price)
	}
	return stats, rows.Err()
}

// YearStats returns twelve monthly aggregates.
func (db *DB) YearStats(ctx context.Context, propertyID int64, year int) ([]models.MonthStats, error) {
	series := make([]models.MonthStats, 0, 12)
	for m := time.January; m <= time.December; m++ {
		s, err := db.MonthStats(ctx, propertyID, year, m)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

// UpcomingMovements lists the next check-ins and check-outs on or after from.
func (db *DB) UpcomingMovements(ctx context.Context, propertyID int64, from time.Time, limit int) ([]models.Movement, error) {
	if limit <= 0 {
		limit = models.UpcomingMovementsLimit
	}
	query := `SELECT id, guest_name, check_in AS d, ? AS kind FROM reservations WHERE property_id = ? AND check_in >= ?
              UNION ALL
              SELECT id, guest_name, check_out AS d, ? AS kind FROM reservations WHERE property_id = ? AND check_out >= ?
              ORDER BY d, kind DESC, id
              LIMIT ?`
	day := models.FormatDate(from)
	rows, err := db.QueryContext(ctx, query,
		models.MovementCheckIn, propertyID, day,
		models.MovementCheckOut, propertyID, day,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming movements: %w", err)
	}
	defer rows.Close()

	var movements []models.Movement
	for rows.Next() {
		var (
			m       models.Movement
			dateStr string
		)
		if err := rows.Scan(&m.ReservationID, &m.GuestName, &dateStr, &m.Type); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		if m.Date, err = models.ParseDate(dateStr); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
