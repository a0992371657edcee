package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"staysync/internal/models"
)

const reservationColumns = `id, property_id, guest_name, guest_document, guest_email, guest_phone,
       check_in, check_out, pax, paid, checked_in, checked_out,
       check_in_event_id, check_out_event_id, ops_synced, revision, created_at, updated_at`

func validateReservation(r *models.Reservation) error {
	if r == nil {
		return errors.New("reservation is nil")
	}
	if r.PropertyID == 0 {
		return ErrPropertyNotFound
	}
	if !models.Day(r.CheckOut).After(models.Day(r.CheckIn)) {
		return ErrInvalidRange
	}
	if models.SpanDays(r.CheckIn, r.CheckOut) > models.MaxRangeDays {
		return ErrRangeTooLong
	}
	if strings.TrimSpace(r.Guest.Name) == "" {
		return ErrGuestNameRequired
	}
	if r.Pax < 1 {
		r.Pax = 1
	}
	return nil
}

// CreateReservation inserts the reservation and marks every night of
// [CheckIn, CheckOut) as reserved or paid in one transaction.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if err := validateReservation(r); err != nil {
		return err
	}
	r.CheckIn, r.CheckOut = models.Day(r.CheckIn), models.Day(r.CheckOut)
	now := nowUTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := propertyExists(ctx, tx, r.PropertyID); err != nil {
			return err
		}
		if err := ensureRangeFree(ctx, tx, r.PropertyID, r.CheckIn, r.CheckOut, 0); err != nil {
			return err
		}

		query := `INSERT INTO reservations (
                      property_id, guest_name, guest_document, guest_email, guest_phone,
                      check_in, check_out, pax, paid, ops_synced, revision, created_at, updated_at
                  ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?, ?)`
		result, err := tx.ExecContext(ctx, query,
			r.PropertyID,
			r.Guest.Name,
			r.Guest.DocumentID,
			r.Guest.Email,
			r.Guest.Phone,
			models.FormatDate(r.CheckIn),
			models.FormatDate(r.CheckOut),
			r.Pax,
			boolToInt(r.Paid),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reservation in tx: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id in tx: %w", err)
		}

		if err := markNights(ctx, tx, r.PropertyID, r.Nights(), models.StatusForPayment(r.Paid)); err != nil {
			return err
		}

		r.ID = id
		return nil
	})
	if err != nil {
		return err
	}

	r.CreatedAt, r.UpdatedAt = now, now
	r.Revision = 1
	r.OperationsSynced = false

	db.logger.Info().
		Int64("reservation_id", r.ID).
		Int64("property_id", r.PropertyID).
		Str("check_in", models.FormatDate(r.CheckIn)).
		Str("check_out", models.FormatDate(r.CheckOut)).
		Bool("paid", r.Paid).
		Msg("Reservation created")
	return nil
}

// UpdateReservation rewrites guest, pax, paid and dates. Nights that left the
// range go back to free, nights of the new range take the new status.
func (db *DB) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	if err := validateReservation(r); err != nil {
		return err
	}
	if r.ID == 0 {
		return ErrReservationNotFound
	}
	r.CheckIn, r.CheckOut = models.Day(r.CheckIn), models.Day(r.CheckOut)
	now := nowUTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getReservation(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		if current.PropertyID != r.PropertyID {
			if err := propertyExists(ctx, tx, r.PropertyID); err != nil {
				return err
			}
		}
		if err := ensureRangeFree(ctx, tx, r.PropertyID, r.CheckIn, r.CheckOut, r.ID); err != nil {
			return err
		}

		query := `UPDATE reservations SET
                      property_id = ?, guest_name = ?, guest_document = ?, guest_email = ?, guest_phone = ?,
                      check_in = ?, check_out = ?, pax = ?, paid = ?,
                      ops_synced = 0, revision = revision + 1, updated_at = ?
                  WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query,
			r.PropertyID,
			r.Guest.Name,
			r.Guest.DocumentID,
			r.Guest.Email,
			r.Guest.Phone,
			models.FormatDate(r.CheckIn),
			models.FormatDate(r.CheckOut),
			r.Pax,
			boolToInt(r.Paid),
			now,
			r.ID,
		); err != nil {
			return fmt.Errorf("failed to update reservation in tx: %w", err)
		}

		keep := make(map[string]bool)
		if current.PropertyID == r.PropertyID {
			for _, d := range r.Nights() {
				keep[models.FormatDate(d)] = true
			}
		}
		var released []time.Time
		for _, d := range current.Nights() {
			if !keep[models.FormatDate(d)] {
				released = append(released, d)
			}
		}
		if err := freeNights(ctx, tx, current.PropertyID, released); err != nil {
			return err
		}

		return markNights(ctx, tx, r.PropertyID, r.Nights(), models.StatusForPayment(r.Paid))
	})
	if err != nil {
		return err
	}

	r.UpdatedAt = now
	r.OperationsSynced = false
	r.Revision++

	db.logger.Info().Int64("reservation_id", r.ID).Msg("Reservation updated")
	return nil
}

// UpdatePaymentStatus flips the nights of a reservation between reserved and paid.
func (db *DB) UpdatePaymentStatus(ctx context.Context, id int64, paid bool) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getReservation(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET paid = ?, revision = revision + 1, updated_at = ? WHERE id = ?`,
			boolToInt(paid), nowUTC(), id); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}

		return markNights(ctx, tx, current.PropertyID, current.Nights(), models.StatusForPayment(paid))
	})
	if err != nil {
		return err
	}

	db.logger.Info().Int64("reservation_id", id).Bool("paid", paid).Msg("Payment status updated")
	return nil
}

// CancelReservation deletes the reservation and frees its nights.
func (db *DB) CancelReservation(ctx context.Context, id int64) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getReservation(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := freeNights(ctx, tx, current.PropertyID, current.Nights()); err != nil {
			return err
		}

		// события заезда/выезда уже в календаре: оставляем запись, чтобы воркер пометил их отменёнными
		if current.CheckInEventID != "" || current.CheckOutEventID != "" {
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO cancelled_operations
                    (reservation_id, property_id, guest_name, check_in, check_out, check_in_event_id, check_out_event_id, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				current.ID, current.PropertyID, current.Guest.Name,
				models.FormatDate(current.CheckIn), models.FormatDate(current.CheckOut),
				current.CheckInEventID, current.CheckOutEventID, nowUTC()); err != nil {
				return fmt.Errorf("failed to record cancelled operations: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.Info().Int64("reservation_id", id).Msg("Reservation cancelled")
	return nil
}

// CompleteCheckIn marks the guest as arrived.
func (db *DB) CompleteCheckIn(ctx context.Context, id int64) error {
	query := `UPDATE reservations SET checked_in = 1, ops_synced = 0, revision = revision + 1, updated_at = ? WHERE id = ?`
	return db.execReservation(ctx, "complete check-in", query, nowUTC(), id)
}

// CompleteCheckOut marks the guest as gone and stores the exit report.
func (db *DB) CompleteCheckOut(ctx context.Context, id int64, report models.CheckoutReport) error {
	query := `UPDATE reservations SET
                  checked_out = 1, exit_time = ?, keys_returned = ?, damage_detected = ?, damage_description = ?,
                  ops_synced = 0, revision = revision + 1, updated_at = ?
              WHERE id = ?`
	return db.execReservation(ctx, "complete check-out", query,
		report.ExitTime, boolToInt(report.KeysReturned), boolToInt(report.DamageDetected), report.DamageDescription,
		nowUTC(), id)
}

func (db *DB) execReservation(ctx context.Context, action, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return getReservation(ctx, db, id)
}

// GetCheckoutReport returns what was recorded when the guest left.
func (db *DB) GetCheckoutReport(ctx context.Context, id int64) (*models.CheckoutReport, error) {
	var report models.CheckoutReport
	err := db.QueryRowContext(ctx,
		`SELECT exit_time, keys_returned, damage_detected, damage_description FROM reservations WHERE id = ?`, id).
		Scan(&report.ExitTime, &report.KeysReturned, &report.DamageDetected, &report.DamageDescription)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout report: %w", err)
	}
	return &report, nil
}

// ReservationForDay returns the reservation occupying the night of date.
func (db *DB) ReservationForDay(ctx context.Context, propertyID int64, date time.Time) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE property_id = ? AND check_in <= ? AND check_out > ?`
	d := models.FormatDate(date)
	return db.queryOneReservation(ctx, query, propertyID, d, d)
}

// ReservationByCheckOut returns the reservation leaving on date.
func (db *DB) ReservationByCheckOut(ctx context.Context, propertyID int64, date time.Time) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE property_id = ? AND check_out = ?`
	return db.queryOneReservation(ctx, query, propertyID, models.FormatDate(date))
}

func (db *DB) queryOneReservation(ctx context.Context, query string, args ...any) (*models.Reservation, error) {
	r, err := scanReservation(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// ListReservations returns reservations overlapping [from, to). A zero
// propertyID lists every property.
func (db *DB) ListReservations(ctx context.Context, propertyID int64, from, to time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE (? = 0 OR property_id = ?) AND check_in < ? AND check_out > ?
              ORDER BY check_in, id`
	rows, err := db.QueryContext(ctx, query, propertyID, propertyID, models.FormatDate(to), models.FormatDate(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var out []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PendingOperations returns reservations whose check-in/out events need a
// push and whose check-out is on or after since.
func (db *DB) PendingOperations(ctx context.Context, since time.Time) ([]models.OperationSyncItem, error) {
	query := `SELECT r.id, r.property_id, p.calendar_id, r.guest_name, r.check_in, r.check_out,
                     r.checked_in, r.checked_out, r.check_in_event_id, r.check_out_event_id, r.revision
              FROM reservations r
              JOIN properties p ON p.id = r.property_id
              WHERE r.ops_synced = 0 AND r.check_out >= ?
              ORDER BY r.check_in, r.id`
	rows, err := db.QueryContext(ctx, query, models.FormatDate(since))
	if err != nil {
		return nil, fmt.Errorf("failed to get pending operations: %w", err)
	}
	defer rows.Close()

	var items []models.OperationSyncItem
	for rows.Next() {
		var (
			item      models.OperationSyncItem
			inS, outS string
		)
		if err := rows.Scan(&item.ReservationID, &item.PropertyID, &item.CalendarID, &item.GuestName, &inS, &outS,
			&item.CheckedIn, &item.CheckedOut, &item.CheckInEventID, &item.CheckOutEventID, &item.Revision); err != nil {
			return nil, fmt.Errorf("failed to scan pending operation: %w", err)
		}
		if item.CheckIn, err = models.ParseDate(inS); err != nil {
			return nil, err
		}
		if item.CheckOut, err = models.ParseDate(outS); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveCheckInEvent stores the remote reference of the check-in event.
func (db *DB) SaveCheckInEvent(ctx context.Context, reservationID int64, remoteEventID string) error {
	return db.execReservation(ctx, "save check-in event",
		`UPDATE reservations SET check_in_event_id = ? WHERE id = ?`, remoteEventID, reservationID)
}

// SaveCheckOutEvent stores the remote reference of the check-out event.
func (db *DB) SaveCheckOutEvent(ctx context.Context, reservationID int64, remoteEventID string) error {
	return db.execReservation(ctx, "save check-out event",
		`UPDATE reservations SET check_out_event_id = ? WHERE id = ?`, remoteEventID, reservationID)
}

// MarkOperationsSynced raises ops_synced unless the reservation changed since
// it was pulled.
func (db *DB) MarkOperationsSynced(ctx context.Context, reservationID, revision int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE reservations SET ops_synced = 1 WHERE id = ? AND revision = ?`, reservationID, revision)
	if err != nil {
		return false, fmt.Errorf("failed to mark operations synced: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func getReservation(ctx context.Context, q queryer, id int64) (*models.Reservation, error) {
	r, err := scanReservation(q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r         models.Reservation
		inS, outS string
	)
	err := row.Scan(
		&r.ID, &r.PropertyID, &r.Guest.Name, &r.Guest.DocumentID, &r.Guest.Email, &r.Guest.Phone,
		&inS, &outS, &r.Pax, &r.Paid, &r.CheckedIn, &r.CheckedOut,
		&r.CheckInEventID, &r.CheckOutEventID, &r.OperationsSynced, &r.Revision, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.CheckIn, err = models.ParseDate(inS); err != nil {
		return nil, err
	}
	if r.CheckOut, err = models.ParseDate(outS); err != nil {
		return nil, err
	}
	return &r, nil
}

// ensureRangeFree fails with ErrDatesUnavailable when another reservation of
// the property shares a night with [checkIn, checkOut).
func ensureRangeFree(ctx context.Context, tx *sql.Tx, propertyID int64, checkIn, checkOut time.Time, excludeID int64) error {
	var conflicting int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE property_id = ? AND id != ? AND check_in < ? AND check_out > ?`,
		propertyID, excludeID, models.FormatDate(checkOut), models.FormatDate(checkIn)).Scan(&conflicting)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if conflicting > 0 {
		return ErrDatesUnavailable
	}
	return nil
}

// PendingCancellations returns check-in/out events of cancelled reservations
// that are still shown as active on the remote calendar.
func (db *DB) PendingCancellations(ctx context.Context) ([]models.CancelledOperation, error) {
	query := `SELECT c.id, c.reservation_id, c.property_id, p.calendar_id, c.guest_name, c.check_in, c.check_out,
                     c.check_in_event_id, c.check_out_event_id
              FROM cancelled_operations c
              JOIN properties p ON p.id = c.property_id
              ORDER BY c.id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending cancellations: %w", err)
	}
	defer rows.Close()

	var items []models.CancelledOperation
	for rows.Next() {
		var (
			item      models.CancelledOperation
			inS, outS string
		)
		if err := rows.Scan(&item.ID, &item.ReservationID, &item.PropertyID, &item.CalendarID, &item.GuestName,
			&inS, &outS, &item.CheckInEventID, &item.CheckOutEventID); err != nil {
			return nil, fmt.Errorf("failed to scan cancelled operation: %w", err)
		}
		if item.CheckIn, err = models.ParseDate(inS); err != nil {
			return nil, err
		}
		if item.CheckOut, err = models.ParseDate(outS); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClearCancellation drops a cancellation once its events are marked on the remote side.
func (db *DB) ClearCancellation(ctx context.Context, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM cancelled_operations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear cancelled operation: %w", err)
	}
	return nil
}
