package types

import "time"

// JobStatus is a point-in-time snapshot of a scheduled job's state.
type JobStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	IsRunning bool          `json:"is_running"`
	LastRun   time.Time     `json:"last_run"`
	LastError string        `json:"last_error,omitempty"`
	RunCount  int64         `json:"run_count"`
}
