package contracts

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a screening run
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// NoteDailyTracker marks runs created by the daily position tracker.
// Such runs never serve as a source for pick building.
const NoteDailyTracker = "DAILY_TRACKER"

// MaxRunErrorLen caps the stored error message on failed runs
const MaxRunErrorLen = 800

// Run represents one execution of a pipeline stage
type Run struct {
	RunID           uuid.UUID  `json:"run_id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Status          RunStatus  `json:"status"`
	UniverseSize    int        `json:"universe_size"`
	CandidatesCount int        `json:"candidates_count"`
	PicksCount      int        `json:"picks_count"`
	BuildMarker     string     `json:"build_marker"`
	Note            string     `json:"note,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// IsTerminal reports whether the run has reached a final state
func (r *Run) IsTerminal() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusFailed
}

// IsTrackerRun reports whether this run was created by the daily tracker
func (r *Run) IsTrackerRun() bool {
	return r.Note == NoteDailyTracker
}

// TruncateError trims an error message to the storable length
func TruncateError(msg string) string {
	if len(msg) > MaxRunErrorLen {
		return msg[:MaxRunErrorLen]
	}
	return msg
}
