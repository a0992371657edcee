package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"staysync/internal/clock"
	"staysync/internal/config"
	"staysync/internal/database"
	"staysync/internal/google"
	"staysync/internal/models"
	"staysync/internal/repository"
	"staysync/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type fakeSync struct {
	mu     sync.Mutex
	forced int
	status models.SyncStatus
}

func (f *fakeSync) ForceSync() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced++
	f.status = models.SyncStatus{Message: models.StatusManualRequested}
	return true
}

func (f *fakeSync) LastStatus() models.SyncStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSync) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forced
}

type fakeCalendars struct {
	calendars map[string]string
	err       error
}

func (f *fakeCalendars) ListCalendars(context.Context) (map[string]string, error) {
	return f.calendars, f.err
}

type fakeReports struct {
	got []*models.Reservation
	err error
}

func (f *fakeReports) ReplaceReservationsSheet(_ context.Context, reservations []*models.Reservation) error {
	f.got = reservations
	return f.err
}

type testEnv struct {
	db     *database.DB
	svc    Services
	server *HTTPServer
	ts     *httptest.Server
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newServices(db *database.DB) Services {
	logger := zerolog.Nop()
	return Services{
		Bookings:   service.NewBookingService(db, nil, nil, &logger),
		Pricing:    service.NewPricingService(db, db, nil, nil, &logger),
		Properties: service.NewPropertyService(db, db, &logger),
		Stats:      service.NewStatsService(db, clock.NewManual(testNow)),
		Settings:   service.NewSettingsService(db, config.GoogleConfig{}),
		Health:     db,
		Clock:      clock.NewManual(testNow),
	}
}

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T, cfg config.APIConfig, tweak func(*Services)) *testEnv {
	t.Helper()
	db := newTestDB(t)
	svc := newServices(db)
	if tweak != nil {
		tweak(&svc)
	}
	srv := NewHTTPServer(cfg, svc, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{db: db, svc: svc, server: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) createProperty(t *testing.T, name string) models.Property {
	t.Helper()
	resp, data := e.do(t, http.MethodPost, "/api/v1/properties", map[string]string{"name": name, "url": "https://example.com/" + name})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var p models.Property
	require.NoError(t, json.Unmarshal(data, &p))
	return p
}

func (e *testEnv) createReservation(t *testing.T, propertyID int64, guest, in, out string) models.Reservation {
	t.Helper()
	resp, data := e.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"property_id": propertyID,
		"guest":       map[string]string{"name": guest},
		"check_in":    in,
		"check_out":   out,
		"pax":         2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var r models.Reservation
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)

	resp, data := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "ok")

	resp, _ = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyz_DBFail(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	require.NoError(t, env.db.Close())

	resp, _ := env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)

	resp, _ := env.do(t, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "req-42")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "req-42", resp2.Header.Get(requestIDHeader))
}

func TestPropertyLifecycle(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/properties", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	p := env.createProperty(t, "loft")
	assert.NotZero(t, p.ID)

	resp, data := env.do(t, http.MethodGet, "/api/v1/properties", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Properties []models.Property `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Properties, 1)
	assert.Equal(t, "loft", list.Properties[0].Name)

	resp, data = env.do(t, http.MethodPut, "/api/v1/properties/"+itoa(p.ID), map[string]string{"name": "loft 2", "calendar_id": "loft@group"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var updated models.Property
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, "loft 2", updated.Name)
	assert.Equal(t, "loft@group", updated.CalendarID)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/properties/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/properties/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReservationErrors(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	p := env.createProperty(t, "loft")

	first := env.createReservation(t, p.ID, "Ana", "2025-07-01", "2025-07-04")
	assert.NotZero(t, first.ID)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{
			name:   "overlap",
			body:   map[string]any{"property_id": p.ID, "guest": map[string]string{"name": "Bo"}, "check_in": "2025-07-03", "check_out": "2025-07-05"},
			status: http.StatusConflict,
		},
		{
			name:   "inverted range",
			body:   map[string]any{"property_id": p.ID, "guest": map[string]string{"name": "Bo"}, "check_in": "2025-07-10", "check_out": "2025-07-10"},
			status: http.StatusBadRequest,
		},
		{
			name:   "no guest",
			body:   map[string]any{"property_id": p.ID, "check_in": "2025-07-10", "check_out": "2025-07-12"},
			status: http.StatusBadRequest,
		},
		{
			name:   "bad date",
			body:   map[string]any{"property_id": p.ID, "guest": map[string]string{"name": "Bo"}, "check_in": "10.07.2025", "check_out": "2025-07-12"},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   map[string]any{"property_id": p.ID, "nights": 3},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, "/api/v1/reservations", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))
		})
	}

	resp, _ := env.do(t, http.MethodGet, "/api/v1/reservations/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReservationFlow(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	p := env.createProperty(t, "loft")
	r := env.createReservation(t, p.ID, "Ana", "2025-07-01", "2025-07-04")

	resp, data := env.do(t, http.MethodPut, "/api/v1/reservations/"+itoa(r.ID)+"/payment", map[string]bool{"paid": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var paid models.Reservation
	require.NoError(t, json.Unmarshal(data, &paid))
	assert.True(t, paid.Paid)

	resp, data = env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID)+"/days/2025-07-02", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var day models.CalendarDay
	require.NoError(t, json.Unmarshal(data, &day))
	assert.Equal(t, models.DayPaid, day.Status)

	resp, data = env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID)+"/days/2025-07-02/reservation", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"Ana"`)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID)+"/checkouts/2025-07-04", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID)+"/checkouts/2025-07-05", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/v1/reservations/"+itoa(r.ID)+"/check-in", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"checked_in":true`)

	report := models.CheckoutReport{ExitTime: "11:00", KeysReturned: true}
	resp, data = env.do(t, http.MethodPost, "/api/v1/reservations/"+itoa(r.ID)+"/check-out", report)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"checked_out":true`)

	resp, data = env.do(t, http.MethodGet, "/api/v1/reservations/"+itoa(r.ID)+"/check-out", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var gotReport models.CheckoutReport
	require.NoError(t, json.Unmarshal(data, &gotReport))
	assert.Equal(t, report, gotReport)

	resp, data = env.do(t, http.MethodGet, "/api/v1/reservations?property_id="+itoa(p.ID)+"&from=2025-07-01&to=2025-08-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Reservations []models.Reservation `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Len(t, list.Reservations, 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/reservations/"+itoa(r.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID)+"/days/2025-07-02", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &day))
	assert.Equal(t, models.DayFree, day.Status)
}

func TestUpdateReservation(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	p := env.createProperty(t, "loft")
	r := env.createReservation(t, p.ID, "Ana", "2025-07-01", "2025-07-04")
	env.createReservation(t, p.ID, "Bo", "2025-07-10", "2025-07-12")

	resp, data := env.do(t, http.MethodPut, "/api/v1/reservations/"+itoa(r.ID), map[string]any{
		"property_id": p.ID,
		"guest":       map[string]string{"name": "Ana Maria"},
		"check_in":    "2025-07-02",
		"check_out":   "2025-07-06",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), "Ana Maria")

	resp, _ = env.do(t, http.MethodPut, "/api/v1/reservations/"+itoa(r.ID), map[string]any{
		"property_id": p.ID,
		"guest":       map[string]string{"name": "Ana"},
		"check_in":    "2025-07-05",
		"check_out":   "2025-07-11",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPricesAndMonthView(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	p := env.createProperty(t, "loft")
	base := "/api/v1/properties/" + itoa(p.ID)

	for _, price := range []string{"80", "100", "120"} {
		resp, data := env.do(t, http.MethodPost, base+"/prices", map[string]string{"price": price})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	}

	resp, _ := env.do(t, http.MethodPost, base+"/prices", map[string]string{"price": "-5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := env.do(t, http.MethodGet, base+"/prices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var catalog struct {
		Prices []struct {
			Price  string        `json:"price"`
			Season models.Season `json:"season"`
		} `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(data, &catalog))
	require.Len(t, catalog.Prices, 3)
	assert.Equal(t, models.SeasonLow, catalog.Prices[0].Season)
	assert.Equal(t, models.SeasonAverage, catalog.Prices[1].Season)
	assert.Equal(t, models.SeasonHigh, catalog.Prices[2].Season)

	resp, data = env.do(t, http.MethodPost, base+"/price-ranges", map[string]string{"start": "2025-06-10", "end": "2025-06-12", "price": "120"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"season":"high"`)

	resp, _ = env.do(t, http.MethodPost, base+"/price-ranges", map[string]string{"start": "2025-06-10", "end": "2025-06-12", "price": "95"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, base+"/price-ranges", map[string]string{"start": "0001-01-01", "end": "9999-12-31", "price": "120"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), database.ErrRangeTooLong.Error())

	resp, data = env.do(t, http.MethodGet, base+"/calendar?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Days map[string]models.CalendarDay `json:"days"`
	}
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Len(t, view.Days, 3)
	day := view.Days["2025-06-11"]
	assert.Equal(t, "120", day.Price.String())
	assert.Equal(t, models.SeasonHigh, day.Season)
	assert.Equal(t, models.DayFree, day.Status)

	resp, _ = env.do(t, http.MethodGet, base+"/calendar?month=13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = env.do(t, http.MethodDelete, base+"/prices/80", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	require.NoError(t, json.Unmarshal(data, &catalog))
	assert.Len(t, catalog.Prices, 2)
}

func TestStatsEndpoints(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	p := env.createProperty(t, "loft")
	base := "/api/v1/stats/" + itoa(p.ID)
	env.createReservation(t, p.ID, "Ana", "2025-06-20", "2025-06-22")

	resp, data := env.do(t, http.MethodGet, base+"/month?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var month models.MonthStats
	require.NoError(t, json.Unmarshal(data, &month))
	assert.Equal(t, 2, month.OccupiedDays)
	assert.Equal(t, 30, month.DaysInMonth)

	resp, data = env.do(t, http.MethodGet, base+"/year?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var year struct {
		Months []models.MonthStats `json:"months"`
	}
	require.NoError(t, json.Unmarshal(data, &year))
	assert.Len(t, year.Months, 12)

	resp, data = env.do(t, http.MethodGet, base+"/upcoming", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var upcoming struct {
		Movements []models.Movement `json:"movements"`
	}
	require.NoError(t, json.Unmarshal(data, &upcoming))
	assert.Len(t, upcoming.Movements, 2)
}

func TestGoogleConfig(t *testing.T) {
	syncer := &fakeSync{}
	env := newTestEnv(t, config.APIConfig{}, func(s *Services) { s.Sync = syncer })

	resp, data := env.do(t, http.MethodGet, "/api/v1/google/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"complete":false`)

	resp, _ = env.do(t, http.MethodPut, "/api/v1/google/config", map[string]string{"calendar_id": "cal@group"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, syncer.count())

	resp, data = env.do(t, http.MethodPut, "/api/v1/google/config", map[string]string{"calendar_id": " cal@group ", "credentials_path": "/etc/creds.json"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"calendar_id":"cal@group"`)
	assert.Contains(t, string(data), `"complete":true`)
	assert.Equal(t, 1, syncer.count())
}

func TestListCalendars(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, func(s *Services) {
		s.Calendars = &fakeCalendars{calendars: map[string]string{"Beach": "b@group", "Attic": "a@group"}}
	})

	resp, data := env.do(t, http.MethodGet, "/api/v1/google/calendars", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Calendars []calendarEntry `json:"calendars"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []calendarEntry{{ID: "a@group", Name: "Attic"}, {ID: "b@group", Name: "Beach"}}, body.Calendars)

	failing := newTestEnv(t, config.APIConfig{}, func(s *Services) {
		s.Calendars = &fakeCalendars{err: errors.New("auth failed")}
	})
	resp, _ = failing.do(t, http.MethodGet, "/api/v1/google/calendars", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	noCreds := newTestEnv(t, config.APIConfig{}, func(s *Services) {
		s.Calendars = &fakeCalendars{err: service.ErrNoCredentials}
	})
	resp, _ = noCreds.do(t, http.MethodGet, "/api/v1/google/calendars", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	none := newTestEnv(t, config.APIConfig{}, nil)
	resp, _ = none.do(t, http.MethodGet, "/api/v1/google/calendars", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListCalendars_GoogleClient(t *testing.T) {
	mux := http.NewServeMux()
	remote := httptest.NewServer(mux)
	t.Cleanup(remote.Close)
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(calendar.CalendarList{
			Items: []*calendar.CalendarListEntry{
				{Id: "beach-id@group", Summary: "Beach"},
				{Id: "attic-id@group", Summary: "raw", SummaryOverride: "Attic"},
			},
		})
	})

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(remote.URL+"/calendar/v3/"), option.WithoutAuthentication())
	require.NoError(t, err)

	env := newTestEnv(t, config.APIConfig{}, func(s *Services) {
		s.Calendars = google.NewCalendarServiceWithClient(srv, 0, nil)
	})

	resp, data := env.do(t, http.MethodGet, "/api/v1/google/calendars", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var body struct {
		Calendars []calendarEntry `json:"calendars"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, []calendarEntry{
		{ID: "attic-id@group", Name: "Attic"},
		{ID: "beach-id@group", Name: "Beach"},
	}, body.Calendars)
}

func TestForceSync(t *testing.T) {
	syncer := &fakeSync{}
	env := newTestEnv(t, config.APIConfig{}, func(s *Services) { s.Sync = syncer })

	resp, data := env.do(t, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, string(data), `"queued":true`)
	assert.Equal(t, 1, syncer.count())

	resp, data = env.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st models.SyncStatus
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, models.StatusManualRequested, st.Message)

	disabled := newTestEnv(t, config.APIConfig{}, nil)
	resp, _ = disabled.do(t, http.MethodPost, "/api/v1/sync", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSyncStatusFromStore(t *testing.T) {
	store := repository.NewMemoryStatusRepository()
	env := newTestEnv(t, config.APIConfig{}, func(s *Services) { s.Status = store })

	resp, _ := env.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, store.SaveStatus(context.Background(), &models.SyncStatus{Message: "Synced 3 updates", Changes: 3, Final: true}))

	resp, data := env.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st models.SyncStatus
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 3, st.Changes)
}

func TestICSFeed(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	p := env.createProperty(t, "loft")
	r := env.createReservation(t, p.ID, "Ana", "2025-07-01", "2025-07-04")

	resp, data := env.do(t, http.MethodGet, "/api/v1/properties/"+itoa(p.ID)+"/calendar.ics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))

	feed := string(data)
	assert.Contains(t, feed, "BEGIN:VCALENDAR")
	assert.Contains(t, feed, "reservation-"+itoa(r.ID)+"@staysync")
	assert.Contains(t, feed, "[RESERVED] Ana")

	resp, _ = env.do(t, http.MethodGet, "/api/v1/properties/999/calendar.ics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportXLSX(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, config.APIConfig{}, func(s *Services) { s.ExportDir = dir })
	p := env.createProperty(t, "loft")
	env.createReservation(t, p.ID, "Ana", "2025-06-20", "2025-06-22")

	resp, data := env.do(t, http.MethodPost, "/api/v1/exports/xlsx", map[string]any{"property_id": p.ID, "from": "2025-06-01", "to": "2025-07-01"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var body struct {
		Path         string `json:"path"`
		Reservations int    `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, 1, body.Reservations)
	assert.Equal(t, filepath.Join(dir, "reservations_2025-06-01_to_2025-07-01.xlsx"), body.Path)
	_, err := os.Stat(body.Path)
	assert.NoError(t, err)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/exports/xlsx", map[string]any{"from": "2025-07-01", "to": "2025-06-01"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportSheets(t *testing.T) {
	reports := &fakeReports{}
	env := newTestEnv(t, config.APIConfig{}, func(s *Services) { s.Reports = reports })
	p := env.createProperty(t, "loft")
	env.createReservation(t, p.ID, "Ana", "2025-06-20", "2025-06-22")
	env.createReservation(t, p.ID, "Bo", "2025-06-25", "2025-06-27")

	// текущий месяц по умолчанию
	resp, data := env.do(t, http.MethodPost, "/api/v1/exports/sheets", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	require.Len(t, reports.got, 2)
	assert.Equal(t, "Ana", reports.got[0].Guest.Name)

	reports.err = errors.New("quota exceeded")
	resp, _ = env.do(t, http.MethodPost, "/api/v1/exports/sheets", map[string]any{})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, nil)
	env.do(t, http.MethodGet, "/healthz", nil)

	resp, _ := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_StartStop(t *testing.T) {
	srv := NewHTTPServer(config.APIConfig{HTTP: config.APIHTTPConfig{Port: 0}}, newServices(newTestDB(t)), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
