package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"staysync/internal/models"

	"github.com/karlseguin/ccache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const calendarListCacheTTL = models.CalendarListCacheTTL * time.Second

// CalendarService pushes all-day events to one Google Calendar account.
type CalendarService struct {
	mu              sync.RWMutex
	service         *calendar.Service
	credentialsPath string

	limiter   *rate.Limiter
	calendars *ccache.Cache[map[string]string]
	logger    *zerolog.Logger

	// newService builds the API client from service-account JSON.
	newService func(ctx context.Context, credentials []byte) (*calendar.Service, error)
}

func NewCalendarService(callsPerSecond float64, logger *zerolog.Logger) *CalendarService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	limit := rate.Inf
	if callsPerSecond > 0 {
		limit = rate.Limit(callsPerSecond)
	}
	return &CalendarService{
		limiter:    rate.NewLimiter(limit, 1),
		calendars:  ccache.New(ccache.Configure[map[string]string]().MaxSize(16)),
		logger:     logger,
		newService: serviceFromJSON,
	}
}

// NewCalendarServiceWithClient wraps an already authenticated client.
func NewCalendarServiceWithClient(srv *calendar.Service, callsPerSecond float64, logger *zerolog.Logger) *CalendarService {
	s := NewCalendarService(callsPerSecond, logger)
	s.service = srv
	s.credentialsPath = "preconfigured"
	s.newService = func(context.Context, []byte) (*calendar.Service, error) { return srv, nil }
	return s
}

func serviceFromJSON(ctx context.Context, credentials []byte) (*calendar.Service, error) {
	config, err := google.JWTConfigFromJSON(credentials, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	// Клиент живёт дольше одного цикла, поэтому не наследует его контекст.
	client := config.Client(context.Background())

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

// Authenticate builds a session from the service-account file. An existing
// session for the same file is reused.
func (s *CalendarService) Authenticate(ctx context.Context, credentialsPath string) error {
	s.mu.RLock()
	ready := s.service != nil && s.credentialsPath == credentialsPath
	s.mu.RUnlock()
	if ready {
		return nil
	}

	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return fmt.Errorf("unable to read credentials file: %w", err)
	}

	srv, err := s.newService(ctx, credentials)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.service = srv
	s.credentialsPath = credentialsPath
	s.mu.Unlock()

	s.calendars.Clear()
	s.logger.Info().Str("credentials", credentialsPath).Msg("Google Calendar session established")
	return nil
}

func (s *CalendarService) client() (*calendar.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.service == nil {
		return nil, ErrNotAuthenticated
	}
	return s.service, nil
}

// CreateEvent inserts an all-day event and returns its id.
func (s *CalendarService) CreateEvent(ctx context.Context, calendarID string, event models.RemoteEvent) (string, error) {
	srv, err := s.client()
	if err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	created, err := srv.Events.Insert(calendarID, toCalendarEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	if created.Id == "" {
		return "", errors.New("failed to create event: empty id in response")
	}
	return created.Id, nil
}

// UpdateEvent overwrites an existing event. Events deleted out-of-band are
// restored to confirmed by the same call when the API still knows them.
func (s *CalendarService) UpdateEvent(ctx context.Context, calendarID, remoteEventID string, event models.RemoteEvent) error {
	srv, err := s.client()
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := srv.Events.Update(calendarID, remoteEventID, toCalendarEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update event %s: %w", remoteEventID, err)
	}
	return nil
}

// ListCalendars maps display names to calendar ids. The user's override of
// a calendar name wins over its summary.
func (s *CalendarService) ListCalendars(ctx context.Context) (map[string]string, error) {
	srv, err := s.client()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	key := s.credentialsPath
	s.mu.RUnlock()

	if item := s.calendars.Get(key); item != nil && !item.Expired() {
		return copyMap(item.Value()), nil
	}

	result := make(map[string]string)
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := srv.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list calendars: %w", err)
		}
		for _, entry := range list.Items {
			name := entry.Summary
			if entry.SummaryOverride != "" {
				name = entry.SummaryOverride
			}
			result[name] = entry.Id
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	s.calendars.Set(key, result, calendarListCacheTTL)
	return copyMap(result), nil
}

func toCalendarEvent(event models.RemoteEvent) *calendar.Event {
	day := models.Day(event.Date)
	return &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		ColorId:     event.ColorID,
		Status:      "confirmed",
		Start:       &calendar.EventDateTime{Date: models.FormatDate(day)},
		End:         &calendar.EventDateTime{Date: models.FormatDate(day.AddDate(0, 0, 1))},
	}
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var ErrNotAuthenticated = errors.New("google calendar session is not authenticated")

// IsTransient reports whether a retry of the same call may succeed.
func IsTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

// IsNotFound reports whether the remote object no longer exists.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}
