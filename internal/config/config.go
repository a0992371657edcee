package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"staysync/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	Database   DatabaseConfig    `yaml:"database"`
	Google     GoogleConfig      `yaml:"google"`
	Sync       SyncConfig        `yaml:"sync"`
	API        APIConfig         `yaml:"api"`
	Redis      RedisConfig       `yaml:"redis"`
	Backup     BackupConfig      `yaml:"backup"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
	Telegram   TelegramConfig    `yaml:"telegram"`
	Exports    ExportConfig      `yaml:"exports"`
	Properties []models.Property `yaml:"properties"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GoogleConfig holds installation-wide defaults. Values stored through the
// settings API take precedence over these.
type GoogleConfig struct {
	CredentialsFile      string  `yaml:"credentials_file"`
	CalendarID           string  `yaml:"calendar_id"`
	ReportsSpreadsheetID string  `yaml:"reports_spreadsheet_id"`
	CallsPerSecond       float64 `yaml:"calls_per_second"`
}

type SyncConfig struct {
	Enabled                bool `yaml:"enabled"`
	IntervalSeconds        int  `yaml:"interval"`
	InitialDelaySeconds    int  `yaml:"initial_delay"`
	CallTimeoutSeconds     int  `yaml:"call_timeout"`
	OperationsLookbackDays int  `yaml:"operations_lookback_days"`
	MaxRetries             int  `yaml:"max_retries"`
	SyncOnChange           bool `yaml:"sync_on_change"`
}

func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s SyncConfig) InitialDelay() time.Duration {
	return time.Duration(s.InitialDelaySeconds) * time.Second
}

func (s SyncConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutSeconds) * time.Second
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// PerMinute is a per-client quota shared through the status repository.
	PerMinute int `yaml:"per_minute"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// TelegramConfig configures operator alerts. Alerts are off when BotToken is empty.
type TelegramConfig struct {
	BotToken         string `yaml:"bot_token"`
	ChatID           int64  `yaml:"chat_id"`
	NotifyErrorsOnly bool   `yaml:"notify_errors_only"`
	// Commands enables /status, /sync and /today in the alert chat.
	Commands bool `yaml:"commands"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Sync.IntervalSeconds < 1 {
		return errors.New("sync interval must be at least 1 second")
	}
	if c.Sync.OperationsLookbackDays < 0 {
		return errors.New("sync operations_lookback_days must not be negative")
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram chat_id is required when bot_token is set")
	}

	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api_keys are configured")
	}

	return ValidateProperties(c.Properties)
}

// ValidateProperties checks seeded properties for missing names and duplicate IDs.
func ValidateProperties(properties []models.Property) error {
	ids := make(map[int64]bool)
	for _, p := range properties {
		if p.ID == 0 {
			return fmt.Errorf("property '%s' has invalid ID 0", p.Name)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("property %d has no name", p.ID)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate property ID found: %d", p.ID)
		}
		ids[p.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "staysync"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Sync.IntervalSeconds == 0 {
		c.Sync.IntervalSeconds = models.DefaultSyncIntervalSeconds
	}
	if c.Sync.InitialDelaySeconds == 0 {
		c.Sync.InitialDelaySeconds = models.DefaultSyncInitialDelaySeconds
	}
	if c.Sync.CallTimeoutSeconds == 0 {
		c.Sync.CallTimeoutSeconds = models.DefaultRemoteCallTimeoutSeconds
	}
	if c.Sync.OperationsLookbackDays == 0 {
		c.Sync.OperationsLookbackDays = models.DefaultOperationsLookbackDays
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 3
	}

	if c.Google.CallsPerSecond == 0 {
		c.Google.CallsPerSecond = 5
	}

	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "0 3 * * *"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
