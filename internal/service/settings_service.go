package service

import (
	"context"
	"errors"
	"strings"

	"staysync/internal/config"
	"staysync/internal/domain"
	"staysync/internal/models"
)

const (
	SettingCalendarID      = "google.calendar_id"
	SettingCredentialsPath = "google.credentials_path"
)

var ErrIncompleteGoogleConfig = errors.New("calendar id and credentials path are required")

// SettingsService resolves the remote calendar account. Values stored in the
// database win over the configuration file.
type SettingsService struct {
	store    domain.SettingsStore
	defaults config.GoogleConfig
}

func NewSettingsService(store domain.SettingsStore, defaults config.GoogleConfig) *SettingsService {
	return &SettingsService{store: store, defaults: defaults}
}

func (s *SettingsService) RemoteSettings(ctx context.Context) (models.RemoteSettings, error) {
	calendarID, err := s.lookup(ctx, SettingCalendarID, s.defaults.CalendarID)
	if err != nil {
		return models.RemoteSettings{}, err
	}
	credentials, err := s.lookup(ctx, SettingCredentialsPath, s.defaults.CredentialsFile)
	if err != nil {
		return models.RemoteSettings{}, err
	}
	return models.RemoteSettings{CalendarID: calendarID, CredentialsPath: credentials}, nil
}

// SaveRemoteSettings stores both values; the next cycle picks them up.
func (s *SettingsService) SaveRemoteSettings(ctx context.Context, settings models.RemoteSettings) error {
	settings.CalendarID = strings.TrimSpace(settings.CalendarID)
	settings.CredentialsPath = strings.TrimSpace(settings.CredentialsPath)
	if !settings.Complete() {
		return ErrIncompleteGoogleConfig
	}
	return s.store.SetSettings(ctx, map[string]string{
		SettingCalendarID:      settings.CalendarID,
		SettingCredentialsPath: settings.CredentialsPath,
	})
}

func (s *SettingsService) lookup(ctx context.Context, key, fallback string) (string, error) {
	value, ok, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if ok && value != "" {
		return value, nil
	}
	return fallback, nil
}
