package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"staysync/internal/clock"
	"staysync/internal/config"
	"staysync/internal/database"
	"staysync/internal/domain"
	"staysync/internal/metrics"
	"staysync/internal/models"
	"staysync/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// SyncController is the part of the sync worker the API drives.
type SyncController interface {
	ForceSync() bool
	LastStatus() models.SyncStatus
}

// CalendarLister maps calendar display names to calendar ids.
type CalendarLister interface {
	ListCalendars(ctx context.Context) (map[string]string, error)
}

// ReportPublisher pushes the reservations list to a shared spreadsheet.
type ReportPublisher interface {
	ReplaceReservationsSheet(ctx context.Context, reservations []*models.Reservation) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services groups what the handlers need. Sync, Calendars, Reports, Status
// and Quota are optional.
type Services struct {
	Bookings   *service.BookingService
	Pricing    *service.PricingService
	Properties *service.PropertyService
	Stats      *service.StatsService
	Settings   *service.SettingsService

	Sync      SyncController
	Calendars CalendarLister
	Reports   ReportPublisher
	Status    domain.StatusStore
	Quota     domain.RateLimitStore
	Health    Pinger

	Clock     clock.Clock
	ExportDir string
}

// HTTPServer exposes the booking calendar and the sync controls over JSON.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	server *http.Server
	auth   *HTTPAuth
	logger zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}
	if svc.Clock == nil {
		svc.Clock = clock.NewSystem()
	}

	srv := &HTTPServer{cfg: cfg, svc: svc, logger: base}
	srv.auth = NewHTTPAuth(cfg, svc.Quota, base)

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/properties", s.handleListProperties)
	mux.HandleFunc("POST /api/v1/properties", s.handleCreateProperty)
	mux.HandleFunc("GET /api/v1/properties/{id}", s.handleGetProperty)
	mux.HandleFunc("PUT /api/v1/properties/{id}", s.handleUpdateProperty)
	mux.HandleFunc("DELETE /api/v1/properties/{id}", s.handleDeleteProperty)

	mux.HandleFunc("GET /api/v1/properties/{id}/prices", s.handleListPrices)
	mux.HandleFunc("POST /api/v1/properties/{id}/prices", s.handleAddPrice)
	mux.HandleFunc("DELETE /api/v1/properties/{id}/prices/{price}", s.handleRemovePrice)
	mux.HandleFunc("POST /api/v1/properties/{id}/price-ranges", s.handleApplyPrice)

	mux.HandleFunc("GET /api/v1/properties/{id}/calendar", s.handleMonthView)
	mux.HandleFunc("GET /api/v1/properties/{id}/days/{date}", s.handleGetDay)
	mux.HandleFunc("GET /api/v1/properties/{id}/days/{date}/reservation", s.handleReservationForDay)
	mux.HandleFunc("GET /api/v1/properties/{id}/checkouts/{date}", s.handleReservationByCheckOut)
	mux.HandleFunc("GET /api/v1/properties/{id}/calendar.ics", s.handleICS)

	mux.HandleFunc("GET /api/v1/reservations", s.handleListReservations)
	mux.HandleFunc("POST /api/v1/reservations", s.handleCreateReservation)
	mux.HandleFunc("GET /api/v1/reservations/{id}", s.handleGetReservation)
	mux.HandleFunc("PUT /api/v1/reservations/{id}", s.handleUpdateReservation)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", s.handleCancelReservation)
	mux.HandleFunc("PUT /api/v1/reservations/{id}/payment", s.handlePayment)
	mux.HandleFunc("POST /api/v1/reservations/{id}/check-in", s.handleCheckIn)
	mux.HandleFunc("POST /api/v1/reservations/{id}/check-out", s.handleCheckOut)
	mux.HandleFunc("GET /api/v1/reservations/{id}/check-out", s.handleGetCheckoutReport)

	mux.HandleFunc("GET /api/v1/stats/{id}/month", s.handleMonthStats)
	mux.HandleFunc("GET /api/v1/stats/{id}/year", s.handleYearStats)
	mux.HandleFunc("GET /api/v1/stats/{id}/upcoming", s.handleUpcoming)

	mux.HandleFunc("GET /api/v1/google/config", s.handleGetGoogleConfig)
	mux.HandleFunc("PUT /api/v1/google/config", s.handleSaveGoogleConfig)
	mux.HandleFunc("GET /api/v1/google/calendars", s.handleListCalendars)

	mux.HandleFunc("POST /api/v1/sync", s.handleForceSync)
	mux.HandleFunc("GET /api/v1/sync/status", s.handleSyncStatus)

	mux.HandleFunc("POST /api/v1/exports/xlsx", s.handleExportXLSX)
	mux.HandleFunc("POST /api/v1/exports/sheets", s.handleExportSheets)
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Health.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		ev := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			ev = s.logger.Error()
		}
		ev.Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeServiceError maps ledger sentinels onto HTTP codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrReservationNotFound),
		errors.Is(err, database.ErrPropertyNotFound),
		errors.Is(err, database.ErrDayNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrDatesUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidRange),
		errors.Is(err, database.ErrGuestNameRequired),
		errors.Is(err, database.ErrRangeTooLong),
		errors.Is(err, database.ErrPriceNotConfigured),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrPropertyNameRequired),
		errors.Is(err, service.ErrIncompleteGoogleConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func pathDate(r *http.Request, name string) (time.Time, error) {
	d, err := models.ParseDate(r.PathValue(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s; expected YYYY-MM-DD", name)
	}
	return d, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func queryDate(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s; expected YYYY-MM-DD", name)
	}
	return d, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
