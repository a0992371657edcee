package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"staysync/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "staysync.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestProperty(t *testing.T, db *DB, name string) *models.Property {
	t.Helper()
	p := &models.Property{Name: name, URL: "https://example.com/" + name}
	require.NoError(t, db.CreateProperty(context.Background(), p))
	return p
}

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newReservation(propertyID int64, guest string, in, out time.Time, paid bool) *models.Reservation {
	return &models.Reservation{
		PropertyID: propertyID,
		Guest:      models.Guest{Name: guest, Email: guest + "@example.com"},
		CheckIn:    in,
		CheckOut:   out,
		Pax:        2,
		Paid:       paid,
	}
}
