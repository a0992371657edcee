package models

import "time"

// SyncStatus is one message on the status channel.
type SyncStatus struct {
	Message   string    `json:"message"`
	Changes   int       `json:"changes"`
	Error     bool      `json:"error"`
	Failures  int       `json:"failures,omitempty"`
	Final     bool      `json:"final"`
	CycleID   string    `json:"cycle_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteSettings identifies the remote calendar account.
type RemoteSettings struct {
	CalendarID      string `json:"calendar_id"`
	CredentialsPath string `json:"credentials_path"`
}

// Complete reports whether both values are present.
func (s RemoteSettings) Complete() bool {
	return s.CalendarID != "" && s.CredentialsPath != ""
}

// RemoteEvent is the payload of one all-day remote calendar event.
type RemoteEvent struct {
	Date        time.Time
	Title       string
	Description string
	ColorID     string
}

// CycleResult summarises one synchronization cycle.
type CycleResult struct {
	CycleID    string
	Skipped    bool
	AuthFailed bool
	Days       int
	Operations int
	Failures   int
	Err        error
}

// Changes is the number of items pushed successfully.
func (r CycleResult) Changes() int {
	return r.Days + r.Operations
}
