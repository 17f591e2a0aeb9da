package miniapp

import (
	"time"

	"dingd/pkg/types"
)

// TaskResult is the outcome of one handler for one event.
type TaskResult struct {
	Handler  string
	Level    int
	OK       bool
	Err      error
	Panicked bool
	Duration time.Duration
}

// Failed reports whether the handler did not succeed.
func (r TaskResult) Failed() bool { return !r.OK || r.Err != nil || r.Panicked }

// LevelReport collects the results of one level. When the wait for the level
// was interrupted Results is nil, since its tasks may still be running.
type LevelReport struct {
	Order       int
	Results     []TaskResult
	Duration    time.Duration
	Interrupted bool
}

// Report describes one dispatch.
type Report struct {
	DispatchID  string
	Event       types.EventType
	Selected    int
	Levels      []LevelReport
	Interrupted bool
	// Cause is the interruption cause when Interrupted is set.
	Cause error
}

// Failures returns the failed task results across completed levels.
func (r Report) Failures() []TaskResult {
	var out []TaskResult
	for _, l := range r.Levels {
		for _, t := range l.Results {
			if t.Failed() {
				out = append(out, t)
			}
		}
	}
	return out
}
