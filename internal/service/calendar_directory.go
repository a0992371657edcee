package service

import (
	"context"
	"errors"
	"fmt"

	"staysync/internal/domain"
)

var ErrNoCredentials = errors.New("google credentials path is not configured")

// CalendarDirectory lists the calendars visible to the configured account so
// the operator can pick a target.
type CalendarDirectory struct {
	settings domain.SettingsProvider
	remote   domain.RemoteCalendar
}

func NewCalendarDirectory(settings domain.SettingsProvider, remote domain.RemoteCalendar) *CalendarDirectory {
	return &CalendarDirectory{settings: settings, remote: remote}
}

func (d *CalendarDirectory) ListCalendars(ctx context.Context) (map[string]string, error) {
	settings, err := d.settings.RemoteSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.CredentialsPath == "" {
		return nil, ErrNoCredentials
	}
	if err := d.remote.Authenticate(ctx, settings.CredentialsPath); err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return d.remote.ListCalendars(ctx)
}
