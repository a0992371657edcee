package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// AddPrice stores a configured nightly price; duplicates are ignored.
// It reports whether the price was new.
func (db *DB) AddPrice(ctx context.Context, propertyID int64, price decimal.Decimal) (bool, error) {
	if err := propertyExists(ctx, db, propertyID); err != nil {
		return false, err
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO prices (property_id, price) VALUES (?, ?) ON CONFLICT(property_id, price) DO NOTHING`,
		propertyID, price.String())
	if err != nil {
		return false, fmt.Errorf("failed to add price: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (db *DB) RemovePrice(ctx context.Context, propertyID int64, price decimal.Decimal) error {
	result, err := db.ExecContext(ctx, `DELETE FROM prices WHERE property_id = ? AND price = ?`, propertyID, price.String())
	if err != nil {
		return fmt.Errorf("failed to remove price: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrPriceNotConfigured
	}
	return nil
}

// ListPrices returns the configured prices of a property in ascending order.
func (db *DB) ListPrices(ctx context.Context, propertyID int64) ([]decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx, `SELECT price FROM prices WHERE property_id = ?`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer rows.Close()

	var prices []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price %q: %w", raw, err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	return prices, nil
}
