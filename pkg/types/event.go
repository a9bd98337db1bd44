// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// EventKind tags a progress event emitted by the batch Worker.
type EventKind string

const (
	EventStarting  EventKind = "starting"
	EventProgress  EventKind = "progress"
	EventFailed    EventKind = "failed"
	EventCompleted EventKind = "completed"
	EventCancelled EventKind = "cancelled"
	EventAborted   EventKind = "aborted"
)

// Event is one message on the Worker's event channel. Which fields are set
// depends on Kind:
//
//	starting:  Index, Total, Path
//	progress:  Index, Total, Path, Output, Percent
//	failed:    Index, Total, Path, Err, Percent
//	completed: Elapsed, Summary, Cancelled
//	cancelled: Elapsed, Summary
//	aborted:   Path, Err, Elapsed, Summary
type Event struct {
	Kind      EventKind     `json:"kind"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Path      string        `json:"path,omitempty"`
	Output    string        `json:"output,omitempty"`
	Percent   int           `json:"percent"`
	Err       error         `json:"-"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Summary   RunSummary    `json:"summary"`
	Cancelled bool          `json:"cancelled,omitempty"`
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventCompleted, EventCancelled, EventAborted:
		return true
	}
	return false
}

// ErrorText returns the error message, or "" when Err is nil.
func (e Event) ErrorText() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// String renders the event as a human-readable log line.
func (e Event) String() string {
	switch e.Kind {
	case EventStarting:
		return fmt.Sprintf("Converting: %s", e.Path)
	case EventProgress:
		return fmt.Sprintf("Finished converting: %s, Progress: %d%%", e.Output, e.Percent)
	case EventFailed:
		return fmt.Sprintf("Failed converting: %s (%v), Progress: %d%%", e.Path, e.Err, e.Percent)
	case EventCompleted:
		return fmt.Sprintf("Conversion completed! Time elapsed: %.2f seconds", e.Elapsed.Seconds())
	case EventCancelled:
		return fmt.Sprintf("Conversion cancelled after %d of %d file(s). Time elapsed: %.2f seconds",
			e.Summary.Processed(), e.Summary.Total, e.Elapsed.Seconds())
	case EventAborted:
		return fmt.Sprintf("Conversion aborted at %s: %v", e.Path, e.Err)
	}
	return string(e.Kind)
}

// Percent returns floor((index+1)*100/total) for a 0-based index.
func Percent(index, total int) int {
	if total <= 0 {
		return 100
	}
	return (index + 1) * 100 / total
}
