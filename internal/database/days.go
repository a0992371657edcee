package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
)

// AssignPriceRange upserts price and season for every date in
// [start, endInclusive]. Reserved and paid days keep their price.
func (db *DB) AssignPriceRange(ctx context.Context, propertyID int64, start, endInclusive time.Time, price decimal.Decimal, season models.Season) error {
	span := models.SpanDays(start, models.Day(endInclusive).AddDate(0, 0, 1))
	if span <= 0 {
		return ErrInvalidRange
	}
	if span > models.MaxRangeDays {
		return ErrRangeTooLong
	}
	dates := models.DateRange(start, endInclusive)

	// Повторное применение тех же значений к несинхронизированному дню ничего не меняет.
	query := `INSERT INTO days (property_id, day_date, price, season, status, is_synced, revision)
              VALUES (?, ?, ?, ?, ?, 0, 1)
              ON CONFLICT(property_id, day_date) DO UPDATE SET
                  price = excluded.price,
                  season = excluded.season,
                  is_synced = 0,
                  revision = days.revision + 1
              WHERE days.status NOT IN (?, ?)
                AND (days.price != excluded.price OR days.season != excluded.season OR days.is_synced = 1)`

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := propertyExists(ctx, tx, propertyID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare price upsert: %w", err)
		}
		defer stmt.Close()

		for _, d := range dates {
			if _, err := stmt.ExecContext(ctx, propertyID, models.FormatDate(d), price.String(), string(season),
				models.DayFree, models.DayReserved, models.DayPaid); err != nil {
				return fmt.Errorf("failed to assign price for %s: %w", models.FormatDate(d), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.Debug().
		Int64("property_id", propertyID).
		Str("start", models.FormatDate(start)).
		Str("end", models.FormatDate(endInclusive)).
		Str("price", price.String()).
		Str("season", string(season)).
		Msg("Price range assigned")
	return nil
}

// GetDay returns one ledger row.
func (db *DB) GetDay(ctx context.Context, propertyID int64, date time.Time) (*models.CalendarDay, error) {
	query := `SELECT property_id, day_date, price, season, status, is_synced, google_event_id, revision
              FROM days WHERE property_id = ? AND day_date = ?`
	day, err := scanDay(db.QueryRowContext(ctx, query, propertyID, models.FormatDate(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day: %w", err)
	}
	return day, nil
}

// GetDaysInRange returns existing ledger rows in [start, endInclusive] ordered by date.
func (db *DB) GetDaysInRange(ctx context.Context, propertyID int64, start, endInclusive time.Time) ([]*models.CalendarDay, error) {
	query := `SELECT property_id, day_date, price, season, status, is_synced, google_event_id, revision
              FROM days WHERE property_id = ? AND day_date BETWEEN ? AND ?
              ORDER BY day_date`
	rows, err := db.QueryContext(ctx, query, propertyID, models.FormatDate(start), models.FormatDate(endInclusive))
	if err != nil {
		return nil, fmt.Errorf("failed to get days: %w", err)
	}
	defer rows.Close()

	var days []*models.CalendarDay
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// GetMonthDays returns the ledger rows of one calendar month.
func (db *DB) GetMonthDays(ctx context.Context, propertyID int64, year int, month time.Month) ([]*models.CalendarDay, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return db.GetDaysInRange(ctx, propertyID, first, first.AddDate(0, 1, -1))
}

// PendingDays returns unsynchronized days dated on or after today, joined
// with the guest of the reservation covering each of them.
func (db *DB) PendingDays(ctx context.Context, today time.Time) ([]models.DaySyncItem, error) {
	query := `SELECT d.property_id, p.calendar_id, d.day_date, d.price, d.season, d.status,
                     d.google_event_id, d.revision, COALESCE(r.guest_name, '')
              FROM days d
              JOIN properties p ON p.id = d.property_id
              LEFT JOIN reservations r ON r.property_id = d.property_id
                   AND r.check_in <= d.day_date AND r.check_out > d.day_date
              WHERE d.is_synced = 0 AND d.day_date >= ?
              ORDER BY d.property_id, d.day_date`
	rows, err := db.QueryContext(ctx, query, models.FormatDate(today))
	if err != nil {
		return nil, fmt.Errorf("failed to get pending days: %w", err)
	}
	defer rows.Close()

	var items []models.DaySyncItem
	for rows.Next() {
		var (
			item            models.DaySyncItem
			dateStr, priceS string
			season, status  string
		)
		if err := rows.Scan(&item.PropertyID, &item.CalendarID, &dateStr, &priceS, &season, &status,
			&item.RemoteEventID, &item.Revision, &item.GuestName); err != nil {
			return nil, fmt.Errorf("failed to scan pending day: %w", err)
		}
		if item.Date, err = models.ParseDate(dateStr); err != nil {
			return nil, err
		}
		if item.Price, err = decimal.NewFromString(priceS); err != nil {
			return nil, fmt.Errorf("failed to parse price %q: %w", priceS, err)
		}
		item.Season = models.Season(season)
		item.Status = models.DayStatus(status)
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkDaySynced stores the remote reference of a pushed day. The synchronized
// flag is only raised when the row has not changed since it was pulled.
func (db *DB) MarkDaySynced(ctx context.Context, propertyID int64, date time.Time, remoteEventID string, revision int64) (bool, error) {
	query := `UPDATE days
              SET google_event_id = ?,
                  is_synced = CASE WHEN revision = ? THEN 1 ELSE 0 END
              WHERE property_id = ? AND day_date = ?
              RETURNING is_synced`

	var synced bool
	err := db.QueryRowContext(ctx, query, remoteEventID, revision, propertyID, models.FormatDate(date)).Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrDayNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark day synced: %w", err)
	}
	return synced, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (*models.CalendarDay, error) {
	var (
		day             models.CalendarDay
		dateStr, priceS string
		season, status  string
	)
	if err := row.Scan(&day.PropertyID, &dateStr, &priceS, &season, &status, &day.Synced, &day.RemoteEventID, &day.Revision); err != nil {
		return nil, err
	}

	var err error
	if day.Date, err = models.ParseDate(dateStr); err != nil {
		return nil, err
	}
	if day.Price, err = decimal.NewFromString(priceS); err != nil {
		return nil, fmt.Errorf("failed to parse price %q: %w", priceS, err)
	}
	day.Season = models.Season(season)
	day.Status = models.DayStatus(status)
	return &day, nil
}

// markNights sets the occupied status on every night, inserting unpriced rows.
func markNights(ctx context.Context, tx *sql.Tx, propertyID int64, nights []time.Time, status models.DayStatus) error {
	for _, d := range nights {
		date := models.FormatDate(d)
		res, err := tx.ExecContext(ctx,
			`UPDATE days SET status = ?, is_synced = 0, revision = revision + 1 WHERE property_id = ? AND day_date = ?`,
			status, propertyID, date)
		if err != nil {
			return fmt.Errorf("failed to update day %s: %w", date, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO days (property_id, day_date, price, season, status, is_synced, revision) VALUES (?, ?, '0', ?, ?, 0, 1)`,
			propertyID, date, models.SeasonNone, status)
		if err != nil {
			return fmt.Errorf("failed to insert day %s: %w", date, err)
		}
	}
	return nil
}

// freeNights resets existing rows to free. Rows are never deleted.
func freeNights(ctx context.Context, tx *sql.Tx, propertyID int64, nights []time.Time) error {
	for _, d := range nights {
		date := models.FormatDate(d)
		_, err := tx.ExecContext(ctx,
			`UPDATE days SET status = ?, is_synced = 0, revision = revision + 1 WHERE property_id = ? AND day_date = ?`,
			models.DayFree, propertyID, date)
		if err != nil {
			return fmt.Errorf("failed to free day %s: %w", date, err)
		}
	}
	return nil
}
