// Package monitor builds a uniform view of the managed jobs' runtime status
// from either scheduler backend.
package monitor

import (
	"sort"
)

// Labels used in place of timestamps.
const (
	LabelNever   = "never"
	LabelRunning = "running"
	LabelNA      = "n/a"
	LabelNone    = "--"
)

// Schedule texts of services without a timer.
const (
	ScheduleAlways = "always"
	ScheduleManual = "manual"
)

// Entry is one monitor row. A systemd service and its timer collapse into a
// single entry named after the job.
type Entry struct {
	Unit     string `json:"unit"`
	Status   string `json:"status"`
	StatusOK bool   `json:"status_ok"`
	Left     string `json:"left"`
	Next     string `json:"next"`
	Schedule string `json:"schedule"`

	// Command is set only when requested.
	Command string `json:"command,omitempty"`

	// PID is empty unless the job is running.
	PID string `json:"pid,omitempty"`

	// Result is the raw backend result ("success", "exit-code", "exitcode 1").
	Result string `json:"result"`

	// LastRun is the time since the last run, or "never".
	LastRun string `json:"last_run,omitempty"`

	// SuccessRate is set only when requested.
	SuccessRate *float64 `json:"success_rate,omitempty"`
}

// Running reports whether the job has a live process.
func (e Entry) Running() bool {
	return e.PID != ""
}

// Sort orders entries with running jobs first, then failing jobs, then by unit name.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, k int) bool {
		a, b := entries[i], entries[k]
		if a.Running() != b.Running() {
			return a.Running()
		}
		if a.StatusOK != b.StatusOK {
			return !a.StatusOK
		}
		return a.Unit < b.Unit
	})
}
