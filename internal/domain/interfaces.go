package domain

import (
	"context"
	"time"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger is the storage surface the booking engine writes through.
type Ledger interface {
	AssignPriceRange(ctx context.Context, propertyID int64, start, endInclusive time.Time, price decimal.Decimal, season models.Season) error
	CreateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	UpdatePaymentStatus(ctx context.Context, id int64, paid bool) error
	CancelReservation(ctx context.Context, id int64) error
	CompleteCheckIn(ctx context.Context, id int64) error
	CompleteCheckOut(ctx context.Context, id int64, report models.CheckoutReport) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetCheckoutReport(ctx context.Context, id int64) (*models.CheckoutReport, error)
	ReservationForDay(ctx context.Context, propertyID int64, date time.Time) (*models.Reservation, error)
	ReservationByCheckOut(ctx context.Context, propertyID int64, date time.Time) (*models.Reservation, error)
	ListReservations(ctx context.Context, propertyID int64, from, to time.Time) ([]*models.Reservation, error)
	GetDay(ctx context.Context, propertyID int64, date time.Time) (*models.CalendarDay, error)
	GetDaysInRange(ctx context.Context, propertyID int64, start, endInclusive time.Time) ([]*models.CalendarDay, error)
	GetMonthDays(ctx context.Context, propertyID int64, year int, month time.Month) ([]*models.CalendarDay, error)
}

// SyncLedger is what one synchronization cycle reads and writes.
type SyncLedger interface {
	PendingDays(ctx context.Context, today time.Time) ([]models.DaySyncItem, error)
	MarkDaySynced(ctx context.Context, propertyID int64, date time.Time, remoteEventID string, revision int64) (bool, error)
	PendingOperations(ctx context.Context, since time.Time) ([]models.OperationSyncItem, error)
	SaveCheckInEvent(ctx context.Context, reservationID int64, remoteEventID string) error
	SaveCheckOutEvent(ctx context.Context, reservationID int64, remoteEventID string) error
	MarkOperationsSynced(ctx context.Context, reservationID, revision int64) (bool, error)
	PendingCancellations(ctx context.Context) ([]models.CancelledOperation, error)
	ClearCancellation(ctx context.Context, id int64) error
}

type PropertyStore interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id int64) (*models.Property, error)
	ListProperties(ctx context.Context) ([]*models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	DeleteProperty(ctx context.Context, id int64) error
	SyncProperties(ctx context.Context, properties []models.Property) error
}

type PriceStore interface {
	AddPrice(ctx context.Context, propertyID int64, price decimal.Decimal) (bool, error)
	RemovePrice(ctx context.Context, propertyID int64, price decimal.Decimal) error
	ListPrices(ctx context.Context, propertyID int64) ([]decimal.Decimal, error)
}

type StatsStore interface {
	MonthStats(ctx context.Context, propertyID int64, year int, month time.Month) (models.MonthStats, error)
	YearStats(ctx context.Context, propertyID int64, year int) ([]models.MonthStats, error)
	UpcomingMovements(ctx context.Context, propertyID int64, from time.Time, limit int) ([]models.Movement, error)
}

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSettings(ctx context.Context, values map[string]string) error
}

// RemoteCalendar is the external calendar account. Event calls are all-day.
type RemoteCalendar interface {
	Authenticate(ctx context.Context, credentialsPath string) error
	CreateEvent(ctx context.Context, calendarID string, event models.RemoteEvent) (string, error)
	UpdateEvent(ctx context.Context, calendarID, remoteEventID string, event models.RemoteEvent) error
	// ListCalendars maps display name to calendar id.
	ListCalendars(ctx context.Context) (map[string]string, error)
}

// SettingsProvider resolves the calendar id and credential reference.
type SettingsProvider interface {
	RemoteSettings(ctx context.Context) (models.RemoteSettings, error)
}

// StatusStore keeps the last sync status for other processes.
type StatusStore interface {
	SaveStatus(ctx context.Context, status *models.SyncStatus) error
	LastStatus(ctx context.Context) (*models.SyncStatus, error)
}

// RateLimitStore counts requests per key inside a fixed window.
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StatusRepository is the shared state other processes read: last status and
// per-client request counters.
type StatusRepository interface {
	StatusStore
	RateLimitStore
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier forwards sync outcomes to the operator.
type Notifier interface {
	NotifyStatus(ctx context.Context, status models.SyncStatus) error
}

// SyncTrigger is the on-demand entry of the scheduler.
type SyncTrigger interface {
	ForceSync() bool
}
