package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"staysync/internal/clock"
	"staysync/internal/domain"
	"staysync/internal/events"
	"staysync/internal/google"
	"staysync/internal/logging"
	"staysync/internal/metrics"
	"staysync/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrAlreadyRunning = errors.New("sync worker is already running")

// Options tunes the scheduler. Zero values fall back to the defaults, except
// InitialDelay where zero fires the first cycle immediately.
type Options struct {
	Interval     time.Duration
	InitialDelay time.Duration
	CallTimeout  time.Duration
	LookbackDays int
	Retry        RetryPolicy
}

// SyncWorker pushes unsynchronized ledger rows to the remote calendar. Cycles
// never overlap: scheduled ticks, forced runs and direct RunCycle calls are
// serialized.
type SyncWorker struct {
	ledger   domain.SyncLedger
	remote   domain.RemoteCalendar
	settings domain.SettingsProvider
	bus      *events.EventBus
	status   domain.StatusStore
	notifier domain.Notifier
	clock    clock.Clock
	trigger  Trigger
	logger   zerolog.Logger

	callTimeout  time.Duration
	lookbackDays int
	retryPolicy  RetryPolicy

	force   chan struct{}
	cycleMu sync.Mutex

	mu      sync.Mutex
	running bool
	last    models.SyncStatus
}

// NewSyncWorker builds a worker with sane defaults.
func NewSyncWorker(ledger domain.SyncLedger, remote domain.RemoteCalendar, settings domain.SettingsProvider, bus *events.EventBus, opts Options, logger *zerolog.Logger) *SyncWorker {
	if opts.Interval <= 0 {
		opts.Interval = models.DefaultSyncIntervalSeconds * time.Second
	}
	if opts.InitialDelay < 0 {
		opts.InitialDelay = 0
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = models.DefaultRemoteCallTimeoutSeconds * time.Second
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = models.DefaultOperationsLookbackDays
	}
	if opts.Retry.MaxRetries < 0 {
		opts.Retry.MaxRetries = 0
	}
	if opts.Retry.InitialDelay == 0 {
		opts.Retry.InitialDelay = 500 * time.Millisecond
	}
	if opts.Retry.MaxDelay == 0 {
		opts.Retry.MaxDelay = 5 * time.Second
	}
	if opts.Retry.BackoffFactor == 0 {
		opts.Retry.BackoffFactor = 2
	}
	if bus == nil {
		bus = events.NewEventBus()
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sync_worker").Logger()
	}

	return &SyncWorker{
		ledger:       ledger,
		remote:       remote,
		settings:     settings,
		bus:          bus,
		clock:        clock.NewSystem(),
		trigger:      TickerTrigger{InitialDelay: opts.InitialDelay, Interval: opts.Interval},
		logger:       l,
		callTimeout:  opts.CallTimeout,
		lookbackDays: opts.LookbackDays,
		retryPolicy:  opts.Retry,
		force:        make(chan struct{}, 1),
	}
}

func (w *SyncWorker) WithTrigger(t Trigger) *SyncWorker {
	w.trigger = t
	return w
}

func (w *SyncWorker) WithClock(c clock.Clock) *SyncWorker {
	w.clock = c
	return w
}

// WithStatusStore persists every final cycle status.
func (w *SyncWorker) WithStatusStore(s domain.StatusStore) *SyncWorker {
	w.status = s
	return w
}

// WithNotifier forwards every final cycle status to the operator.
func (w *SyncWorker) WithNotifier(n domain.Notifier) *SyncWorker {
	w.notifier = n
	return w
}

// Start runs the scheduler until ctx is cancelled. A second concurrent Start
// returns ErrAlreadyRunning.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	ticks := w.trigger.Ticks(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			w.RunCycle(ctx)
		case <-w.force:
			w.RunCycle(ctx)
		}
	}
}

// ForceSync schedules an immediate cycle. It returns false when a forced
// cycle is already waiting.
func (w *SyncWorker) ForceSync() bool {
	w.publish(models.SyncStatus{Message: models.StatusManualRequested})
	select {
	case w.force <- struct{}{}:
		return true
	default:
		return false
	}
}

// Subscribe returns a channel of status updates. Updates are dropped for a
// subscriber whose buffer is full. cancel closes the channel.
func (w *SyncWorker) Subscribe(buf int) (<-chan models.SyncStatus, func()) {
	ch := make(chan models.SyncStatus, buf)
	var (
		mu     sync.Mutex
		closed bool
	)

	unsubscribe := w.bus.Subscribe(events.EventSyncStatus, func(e *events.Event) error {
		var st models.SyncStatus
		if err := e.Decode(&st); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil
		}
		select {
		case ch <- st:
		default:
		}
		return nil
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel
}

// LastStatus returns the most recent status published by this worker.
func (w *SyncWorker) LastStatus() models.SyncStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// RunCycle executes one synchronization cycle.
func (w *SyncWorker) RunCycle(ctx context.Context) models.CycleResult {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	started := time.Now()
	res := models.CycleResult{CycleID: uuid.NewString()}
	log := logging.Cycle(w.logger, res.CycleID)

	outcome := w.runCycle(ctx, &res, log)
	metrics.ObserveCycle(outcome, time.Since(started))

	log.Info().
		Str("result", outcome).
		Int("days", res.Days).
		Int("operations", res.Operations).
		Int("failures", res.Failures).
		Dur("took", time.Since(started)).
		Msg("sync cycle finished")
	return res
}

func (w *SyncWorker) runCycle(ctx context.Context, res *models.CycleResult, log zerolog.Logger) string {
	settings, err := w.settings.RemoteSettings(ctx)
	if err != nil {
		res.Err = fmt.Errorf("failed to load remote settings: %w", err)
		w.finish(ctx, res, errorStatus(res.Err))
		return "error"
	}
	if !settings.Complete() {
		res.Skipped = true
		w.finish(ctx, res, models.SyncStatus{Message: models.StatusSkippedNoConfig})
		return "skipped"
	}

	authCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	err = w.remote.Authenticate(authCtx, settings.CredentialsPath)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("remote authentication failed")
		res.AuthFailed = true
		res.Err = err
		w.finish(ctx, res, models.SyncStatus{Message: models.StatusAuthFailed, Error: true})
		return "auth_failed"
	}

	w.publish(models.SyncStatus{Message: models.StatusSyncing, CycleID: res.CycleID})

	today := models.Day(w.clock.Now())
	if err := w.syncDays(ctx, settings.CalendarID, today, res, log); err != nil {
		res.Err = err
		w.finish(ctx, res, errorStatus(err))
		return "error"
	}

	since := today.AddDate(0, 0, -w.lookbackDays)
	if err := w.syncOperations(ctx, settings.CalendarID, since, res, log); err != nil {
		res.Err = err
		w.finish(ctx, res, errorStatus(err))
		return "error"
	}

	if err := w.syncCancellations(ctx, settings.CalendarID, res, log); err != nil {
		res.Err = err
		w.finish(ctx, res, errorStatus(err))
		return "error"
	}

	if ctx.Err() != nil {
		res.Err = ctx.Err()
		w.finish(ctx, res, errorStatus(ctx.Err()))
		return "error"
	}

	if n := res.Changes(); n > 0 {
		w.finish(ctx, res, models.SyncStatus{Message: fmt.Sprintf("Synced %d updates", n), Changes: n})
		return "synced"
	}
	w.finish(ctx, res, models.SyncStatus{Message: models.StatusNoChanges})
	return "no_changes"
}

func (w *SyncWorker) syncDays(ctx context.Context, defaultCalendar string, today time.Time, res *models.CycleResult, log zerolog.Logger) error {
	days, err := w.ledger.PendingDays(ctx, today)
	if err != nil {
		return err
	}

	for _, day := range days {
		if ctx.Err() != nil {
			return nil
		}

		ref, err := w.upsert(ctx, calendarFor(day.CalendarID, defaultCalendar), day.RemoteEventID, DayEvent(day))
		if err != nil {
			res.Failures++
			metrics.IncItem("day", false)
			log.Warn().Err(err).
				Int64("property_id", day.PropertyID).
				Str("date", models.FormatDate(day.Date)).
				Msg("failed to push day")
			continue
		}

		synced, err := w.ledger.MarkDaySynced(ctx, day.PropertyID, day.Date, ref, day.Revision)
		if err != nil {
			res.Failures++
			metrics.IncItem("day", false)
			log.Error().Err(err).
				Int64("property_id", day.PropertyID).
				Str("date", models.FormatDate(day.Date)).
				Msg("failed to mark day synced")
			continue
		}
		if !synced {
			log.Debug().
				Int64("property_id", day.PropertyID).
				Str("date", models.FormatDate(day.Date)).
				Msg("day changed during push, left pending")
		}

		res.Days++
		metrics.IncItem("day", true)
	}
	return nil
}

func (w *SyncWorker) syncOperations(ctx context.Context, defaultCalendar string, since time.Time, res *models.CycleResult, log zerolog.Logger) error {
	ops, err := w.ledger.PendingOperations(ctx, since)
	if err != nil {
		return err
	}

	for _, op := range ops {
		if ctx.Err() != nil {
			return nil
		}

		calendarID := calendarFor(op.CalendarID, defaultCalendar)
		opLog := log.With().Int64("reservation_id", op.ReservationID).Logger()

		inOK := w.pushOperation(ctx, calendarID, op.CheckInEventID, CheckInEvent(op), opLog, "check-in",
			func(ref string) error { return w.ledger.SaveCheckInEvent(ctx, op.ReservationID, ref) })
		outOK := w.pushOperation(ctx, calendarID, op.CheckOutEventID, CheckOutEvent(op), opLog, "check-out",
			func(ref string) error { return w.ledger.SaveCheckOutEvent(ctx, op.ReservationID, ref) })

		if !inOK || !outOK {
			res.Failures++
			metrics.IncItem("operation", false)
		}
		if !inOK && !outOK {
			continue
		}

		res.Operations++
		if inOK && outOK {
			metrics.IncItem("operation", true)
			if _, err := w.ledger.MarkOperationsSynced(ctx, op.ReservationID, op.Revision); err != nil {
				opLog.Error().Err(err).Msg("failed to mark operations synced")
			}
		}
	}
	return nil
}

// syncCancellations marks the check-in/out events of cancelled reservations.
// An event already gone from the remote calendar needs nothing more.
func (w *SyncWorker) syncCancellations(ctx context.Context, defaultCalendar string, res *models.CycleResult, log zerolog.Logger) error {
	cancelled, err := w.ledger.PendingCancellations(ctx)
	if err != nil {
		return err
	}

	for _, op := range cancelled {
		if ctx.Err() != nil {
			return nil
		}

		calendarID := calendarFor(op.CalendarID, defaultCalendar)
		opLog := log.With().Int64("reservation_id", op.ReservationID).Logger()

		inOK := w.markCancelled(ctx, calendarID, op.CheckInEventID, CancelledEvent(op, op.CheckIn, models.MovementCheckIn), opLog)
		outOK := w.markCancelled(ctx, calendarID, op.CheckOutEventID, CancelledEvent(op, op.CheckOut, models.MovementCheckOut), opLog)
		if !inOK || !outOK {
			res.Failures++
			metrics.IncItem("cancellation", false)
			continue
		}

		if err := w.ledger.ClearCancellation(ctx, op.ID); err != nil {
			res.Failures++
			metrics.IncItem("cancellation", false)
			opLog.Error().Err(err).Msg("failed to clear cancelled operations")
			continue
		}
		res.Operations++
		metrics.IncItem("cancellation", true)
	}
	return nil
}

func (w *SyncWorker) markCancelled(ctx context.Context, calendarID, ref string, ev models.RemoteEvent, log zerolog.Logger) bool {
	if ref == "" {
		return true
	}
	err := w.call(ctx, "update", func(c context.Context) error {
		return w.remote.UpdateEvent(c, calendarID, ref, ev)
	})
	if err == nil || google.IsNotFound(err) {
		return true
	}
	log.Warn().Err(err).Str("event", ev.Title).Msg("failed to mark event cancelled")
	return false
}

func (w *SyncWorker) pushOperation(ctx context.Context, calendarID, ref string, ev models.RemoteEvent, log zerolog.Logger, kind string, save func(string) error) bool {
	newRef, err := w.upsert(ctx, calendarID, ref, ev)
	if err != nil {
		log.Warn().Err(err).Str("event", kind).Msg("failed to push operation")
		return false
	}
	if err := save(newRef); err != nil {
		log.Error().Err(err).Str("event", kind).Msg("failed to save remote reference")
		return false
	}
	return true
}

// upsert updates the event behind ref and recreates it when the update fails.
func (w *SyncWorker) upsert(ctx context.Context, calendarID, ref string, ev models.RemoteEvent) (string, error) {
	if ref != "" {
		err := w.call(ctx, "update", func(c context.Context) error {
			return w.remote.UpdateEvent(c, calendarID, ref, ev)
		})
		if err == nil {
			return ref, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if google.IsNotFound(err) {
			w.logger.Info().Str("ref", ref).Str("date", models.FormatDate(ev.Date)).Msg("remote event is gone, recreating")
		} else {
			w.logger.Debug().Err(err).Str("date", models.FormatDate(ev.Date)).Msg("update failed, recreating event")
		}
	}

	var created string
	err := w.call(ctx, "create", func(c context.Context) error {
		id, err := w.remote.CreateEvent(c, calendarID, ev)
		created = id
		return err
	})
	if err != nil {
		return "", err
	}
	return created, nil
}

// call runs fn under the per-call deadline and retries transient failures.
func (w *SyncWorker) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return w.retryPolicy.Do(ctx, w.callTimeout, google.IsTransient, func(err error) {
		metrics.IncRemoteCall(op, err == nil)
	}, fn)
}

func (w *SyncWorker) finish(ctx context.Context, res *models.CycleResult, st models.SyncStatus) {
	st.CycleID = res.CycleID
	st.Failures = res.Failures
	st.Final = true
	w.publish(st)

	// Persist with a fresh context so a shutdown still records the last status.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if w.status != nil {
		if err := w.status.SaveStatus(storeCtx, &st); err != nil {
			w.logger.Warn().Err(err).Msg("failed to store sync status")
		}
	}
	if w.notifier != nil {
		if err := w.notifier.NotifyStatus(storeCtx, st); err != nil {
			w.logger.Warn().Err(err).Msg("failed to notify sync status")
		}
	}
}

func (w *SyncWorker) publish(st models.SyncStatus) {
	st.CreatedAt = w.clock.Now()

	w.mu.Lock()
	w.last = st
	w.mu.Unlock()

	if err := w.bus.PublishJSON(events.EventSyncStatus, st); err != nil {
		w.logger.Warn().Err(err).Msg("failed to publish sync status")
	}
}

func errorStatus(err error) models.SyncStatus {
	return models.SyncStatus{Message: "Sync Error: " + err.Error(), Error: true}
}

func calendarFor(propertyCalendar, defaultCalendar string) string {
	if propertyCalendar != "" {
		return propertyCalendar
	}
	return defaultCalendar
}
