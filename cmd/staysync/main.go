package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"staysync/internal/api"
	"staysync/internal/bot"
	"staysync/internal/config"
	"staysync/internal/database"
	"staysync/internal/domain"
	"staysync/internal/events"
	"staysync/internal/google"
	"staysync/internal/logging"
	"staysync/internal/metrics"
	"staysync/internal/models"
	"staysync/internal/notify"
	"staysync/internal/repository"
	"staysync/internal/service"
	"staysync/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config.yaml")
	once := flag.Bool("once", false, "run a single sync cycle and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(configPath string, once bool) error {
	cfg, logger, closer, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	redisClient, statusRepo := initStatusRepository(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	subscribeDomainEvents(eventBus, &logger)

	settingsService := service.NewSettingsService(db, cfg.Google)
	calendarService := google.NewCalendarService(cfg.Google.CallsPerSecond, &logger)

	syncWorker := worker.NewSyncWorker(db, calendarService, settingsService, eventBus, worker.Options{
		Interval:     cfg.Sync.Interval(),
		InitialDelay: cfg.Sync.InitialDelay(),
		CallTimeout:  cfg.Sync.CallTimeout(),
		LookbackDays: cfg.Sync.OperationsLookbackDays,
		Retry: worker.RetryPolicy{
			MaxRetries:    cfg.Sync.MaxRetries,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2,
		},
	}, &logger).WithStatusStore(statusRepo)

	tgBot := initTelegram(cfg, &logger)
	if tgBot != nil {
		syncWorker.WithNotifier(notify.NewTelegramNotifier(tgBot, cfg.Telegram, &logger))
	}

	if once {
		res := syncWorker.RunCycle(ctx)
		status := syncWorker.LastStatus()
		logger.Info().
			Str("cycle_id", res.CycleID).
			Int("changes", res.Changes()).
			Int("failures", res.Failures).
			Str("status", status.Message).
			Msg("Single sync cycle finished")
		if res.Err != nil || res.AuthFailed {
			return errors.New(status.Message)
		}
		return nil
	}

	// мутации запускают синхронизацию сразу, если включено
	var trigger domain.SyncTrigger
	if cfg.Sync.Enabled && cfg.Sync.SyncOnChange {
		trigger = syncWorker
	}

	propertyService := service.NewPropertyService(db, db, &logger)
	if err := propertyService.Seed(ctx, cfg.Properties); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации объектов")
	}

	services := api.Services{
		Bookings:   service.NewBookingService(db, eventBus, trigger, &logger),
		Pricing:    service.NewPricingService(db, db, eventBus, trigger, &logger),
		Properties: propertyService,
		Stats:      service.NewStatsService(db, nil),
		Settings:   settingsService,
		Calendars:  service.NewCalendarDirectory(settingsService, calendarService),
		Reports:    initReports(ctx, cfg, &logger),
		Status:     statusRepo,
		Quota:      statusRepo,
		Health:     db,
		ExportDir:  cfg.Exports.Path,
	}

	if cfg.Sync.Enabled {
		services.Sync = syncWorker
		go func() {
			if err := syncWorker.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("sync worker stopped")
			}
		}()
	} else {
		logger.Warn().Msg("Sync is disabled in config")
		if redisClient != nil {
			go watchRemoteStatus(ctx, redisClient, &logger)
		}
	}

	if tgBot != nil && cfg.Telegram.Commands && cfg.Sync.Enabled {
		operatorBot := bot.NewBot(bot.NewBotWrapper(tgBot), cfg.Telegram.ChatID, syncWorker, propertyService, services.Stats, nil, &logger)
		go operatorBot.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go func() {
			if err := backupService.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("backup service stopped")
			}
		}()
	}

	startMetrics(ctx, cfg, &logger)

	var httpServer *api.HTTPServer
	if cfg.API.Enabled && cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(cfg.API, services, &logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().Bool("sync", cfg.Sync.Enabled).Bool("api", httpServer != nil).Msg("staysync started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger(configPath string) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := *logging.Component(baseLogger, "main")

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
			return err
		}
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

// initStatusRepository keeps the last sync status in Redis when it is
// reachable and in memory otherwise.
func initStatusRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.StatusRepository) {
	ttl := time.Duration(models.DefaultStatusTTL) * time.Second
	fallback := repository.NewMemoryStatusRepository()
	if cfg.Redis.Address == "" {
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisStatusRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverStatusRepository(primary, fallback, logger)
}

// watchRemoteStatus logs cycles reported by a sync worker running in another process.
func watchRemoteStatus(ctx context.Context, client *redis.Client, logger *zerolog.Logger) {
	repo := repository.NewRedisStatusRepository(client, time.Duration(models.DefaultStatusTTL)*time.Second)
	ch, err := repo.WatchStatus(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("remote sync status unavailable")
		return
	}
	for st := range ch {
		logger.Info().
			Str("cycle_id", st.CycleID).
			Str("status", st.Message).
			Int("changes", st.Changes).
			Bool("error", st.Error).
			Msg("remote sync status")
	}
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) *tgbotapi.BotAPI {
	if cfg.Telegram.BotToken == "" {
		return nil
	}
	botAPI, err := notify.NewTelegramBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram alerts disabled")
		return nil
	}
	return botAPI
}

func initReports(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) api.ReportPublisher {
	if cfg.Google.CredentialsFile == "" || cfg.Google.ReportsSpreadsheetID == "" {
		return nil
	}

	reports, err := google.NewReportService(ctx, cfg.Google.CredentialsFile, cfg.Google.ReportsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without reports")
		return nil
	}
	if err := reports.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return reports
}

func subscribeDomainEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "events")

	reservationHandler := func(ev *events.Event) error {
		var payload events.ReservationEventPayload
		if err := ev.Decode(&payload); err != nil {
			audit.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		audit.Info().
			Str("event", ev.Type).
			Int64("reservation_id", payload.ReservationID).
			Int64("property_id", payload.PropertyID).
			Str("guest", payload.GuestName).
			Msg("reservation event")
		return nil
	}

	for _, t := range []string{
		events.EventReservationCreated,
		events.EventReservationUpdated,
		events.EventReservationPaid,
		events.EventReservationCancelled,
		events.EventCheckInCompleted,
		events.EventCheckOutCompleted,
	} {
		bus.Subscribe(t, reservationHandler)
	}

	bus.Subscribe(events.EventPriceRangeAssigned, func(ev *events.Event) error {
		var payload events.PriceRangePayload
		if err := ev.Decode(&payload); err != nil {
			audit.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		audit.Info().
			Int64("property_id", payload.PropertyID).
			Str("start", models.FormatDate(payload.Start)).
			Str("end", models.FormatDate(payload.End)).
			Str("price", payload.Price).
			Str("season", payload.Season).
			Msg("price range assigned")
		return nil
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
