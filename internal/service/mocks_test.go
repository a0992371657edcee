package service

import (
	"context"
	"time"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) AssignPriceRange(ctx context.Context, pid int64, s, e time.Time, p decimal.Decimal, season models.Season) error {
	return m.Called(ctx, pid, s, e, p, season).Error(0)
}
func (m *mockLedger) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockLedger) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockLedger) UpdatePaymentStatus(ctx context.Context, id int64, paid bool) error {
	return m.Called(ctx, id, paid).Error(0)
}
func (m *mockLedger) CancelReservation(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockLedger) CompleteCheckIn(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockLedger) CompleteCheckOut(ctx context.Context, id int64, report models.CheckoutReport) error {
	return m.Called(ctx, id, report).Error(0)
}
func (m *mockLedger) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockLedger) GetCheckoutReport(ctx context.Context, id int64) (*models.CheckoutReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutReport), args.Error(1)
}
func (m *mockLedger) ReservationForDay(ctx context.Context, pid int64, d time.Time) (*models.Reservation, error) {
	args := m.Called(ctx, pid, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockLedger) ReservationByCheckOut(ctx context.Context, pid int64, d time.Time) (*models.Reservation, error) {
	args := m.Called(ctx, pid, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockLedger) ListReservations(ctx context.Context, pid int64, from, to time.Time) ([]*models.Reservation, error) {
	args := m.Called(ctx, pid, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockLedger) GetDay(ctx context.Context, pid int64, d time.Time) (*models.CalendarDay, error) {
	args := m.Called(ctx, pid, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarDay), args.Error(1)
}
func (m *mockLedger) GetDaysInRange(ctx context.Context, pid int64, s, e time.Time) ([]*models.CalendarDay, error) {
	args := m.Called(ctx, pid, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CalendarDay), args.Error(1)
}
func (m *mockLedger) GetMonthDays(ctx context.Context, pid int64, y int, mo time.Month) ([]*models.CalendarDay, error) {
	args := m.Called(ctx, pid, y, mo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CalendarDay), args.Error(1)
}

type mockPriceStore struct {
	mock.Mock
}

func (m *mockPriceStore) AddPrice(ctx context.Context, pid int64, p decimal.Decimal) (bool, error) {
	args := m.Called(ctx, pid, p)
	return args.Bool(0), args.Error(1)
}
func (m *mockPriceStore) RemovePrice(ctx context.Context, pid int64, p decimal.Decimal) error {
	return m.Called(ctx, pid, p).Error(0)
}
func (m *mockPriceStore) ListPrices(ctx context.Context, pid int64) ([]decimal.Decimal, error) {
	args := m.Called(ctx, pid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.Decimal), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockTrigger struct {
	mock.Mock
}

func (m *mockTrigger) ForceSync() bool {
	return m.Called().Bool(0)
}

type mockPropertyStore struct {
	mock.Mock
}

func (m *mockPropertyStore) CreateProperty(ctx context.Context, p *models.Property) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPropertyStore) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *mockPropertyStore) ListProperties(ctx context.Context) ([]*models.Property, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Property), args.Error(1)
}
func (m *mockPropertyStore) UpdateProperty(ctx context.Context, p *models.Property) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPropertyStore) DeleteProperty(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockPropertyStore) SyncProperties(ctx context.Context, props []models.Property) error {
	return m.Called(ctx, props).Error(0)
}

type mockStatsStore struct {
	mock.Mock
}

func (m *mockStatsStore) MonthStats(ctx context.Context, pid int64, y int, mo time.Month) (models.MonthStats, error) {
	args := m.Called(ctx, pid, y, mo)
	return args.Get(0).(models.MonthStats), args.Error(1)
}
func (m *mockStatsStore) YearStats(ctx context.Context, pid int64, y int) ([]models.MonthStats, error) {
	args := m.Called(ctx, pid, y)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MonthStats), args.Error(1)
}
func (m *mockStatsStore) UpcomingMovements(ctx context.Context, pid int64, from time.Time, limit int) ([]models.Movement, error) {
	args := m.Called(ctx, pid, from, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Movement), args.Error(1)
}

type memorySettings map[string]string

func (m memorySettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memorySettings) SetSettings(_ context.Context, values map[string]string) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}
