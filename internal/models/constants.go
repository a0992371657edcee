package models

// Season tiers assigned to a nightly price.
const (
	SeasonLow     Season = "low"
	SeasonAverage Season = "average"
	SeasonHigh    Season = "high"
	SeasonNone    Season = "none"
)

// Occupancy statuses of a calendar day.
const (
	DayFree     DayStatus = "free"
	DayReserved DayStatus = "reserved"
	DayPaid     DayStatus = "paid"
)

const (
	// DateLayout is the wire and storage format of ledger dates.
	DateLayout = "2006-01-02"

	// DefaultSyncIntervalSeconds период между циклами синхронизации
	DefaultSyncIntervalSeconds = 30

	// DefaultSyncInitialDelaySeconds задержка перед первым циклом
	DefaultSyncInitialDelaySeconds = 5

	// DefaultRemoteCallTimeoutSeconds deadline for one remote calendar call
	DefaultRemoteCallTimeoutSeconds = 20

	// DefaultOperationsLookbackDays keeps just-finished stays eligible for sync
	DefaultOperationsLookbackDays = 1

	// DefaultStatusTTL время жизни последнего статуса в Redis
	DefaultStatusTTL = 24 * 60 * 60

	// CalendarListCacheTTL время жизни кэша списка календарей
	CalendarListCacheTTL = 5 * 60

	// UpcomingMovementsLimit caps the dashboard movement list
	UpcomingMovementsLimit = 10
)

// Status messages published by the sync worker.
const (
	StatusManualRequested = "Manual Sync Requested..."
	StatusSkippedNoConfig = "Sync Skipped: Config missing"
	StatusAuthFailed      = "Sync Error: Auth Failed"
	StatusSyncing         = "Syncing..."
	StatusNoChanges       = "System Synced (No changes)"
)
