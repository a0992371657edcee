package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"staysync/internal/models"
)

func (db *DB) CreateProperty(ctx context.Context, p *models.Property) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("property name is required")
	}

	now := nowUTC()
	query := `INSERT INTO properties (name, url, calendar_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if p.ID != 0 {
		query = `INSERT INTO properties (id, name, url, calendar_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	}

	args := []any{p.Name, p.URL, p.CalendarID, now, now}
	if p.ID != 0 {
		args = append([]any{p.ID}, args...)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	var p models.Property
	err := db.QueryRowContext(ctx,
		`SELECT id, name, url, calendar_id, created_at, updated_at FROM properties WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.URL, &p.CalendarID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

func (db *DB) ListProperties(ctx context.Context) ([]*models.Property, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, url, calendar_id, created_at, updated_at FROM properties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.CalendarID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, &p)
	}
	return properties, rows.Err()
}

// UpdateProperty rewrites name, url and calendar override. Changing the
// calendar marks every day and reservation of the property for a fresh push.
func (db *DB) UpdateProperty(ctx context.Context, p *models.Property) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("property name is required")
	}
	now := nowUTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var calendarID string
		err := tx.QueryRowContext(ctx, `SELECT calendar_id FROM properties WHERE id = ?`, p.ID).Scan(&calendarID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPropertyNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get property: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE properties SET name = ?, url = ?, calendar_id = ?, updated_at = ? WHERE id = ?`,
			p.Name, p.URL, p.CalendarID, now, p.ID); err != nil {
			return fmt.Errorf("failed to update property: %w", err)
		}

		if calendarID != p.CalendarID {
			// События старого календаря не переносятся, создаём заново.
			if _, err := tx.ExecContext(ctx,
				`UPDATE days SET is_synced = 0, google_event_id = '', revision = revision + 1 WHERE property_id = ?`, p.ID); err != nil {
				return fmt.Errorf("failed to reset days sync: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE reservations SET ops_synced = 0, check_in_event_id = '', check_out_event_id = '', revision = revision + 1
                 WHERE property_id = ?`, p.ID); err != nil {
				return fmt.Errorf("failed to reset operations sync: %w", err)
			}
		}

		p.UpdatedAt = now
		return nil
	})
}

// DeleteProperty removes the property together with its ledger rows, prices
// and reservations.
func (db *DB) DeleteProperty(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// SyncProperties inserts configured properties that are not stored yet.
func (db *DB) SyncProperties(ctx context.Context, properties []models.Property) error {
	for i := range properties {
		p := properties[i]
		_, err := db.GetProperty(ctx, p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPropertyNotFound) {
			return err
		}
		if err := db.CreateProperty(ctx, &p); err != nil {
			return err
		}
		db.logger.Info().Int64("property_id", p.ID).Str("name", p.Name).Msg("Property seeded")
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func propertyExists(ctx context.Context, q queryer, id int64) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check property: %w", err)
	}
	if n == 0 {
		return ErrPropertyNotFound
	}
	return nil
}
