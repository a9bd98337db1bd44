// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"sync"

	"github.com/pdiddy/xlsx2pdf/internal/batch"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

// eventView is the wire form of a types.Event.
type eventView struct {
	types.Event
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func viewOf(e types.Event) eventView {
	return eventView{Event: e, Error: e.ErrorText(), Message: e.String()}
}

// run tracks the events of the most recently started batch.
type run struct {
	id        string
	outputDir string
	total     int

	mu      sync.Mutex
	events  []eventView
	percent int
	summary types.RunSummary
	status  types.RunStatus
	done    bool
	notify  chan struct{}
}

func newRun(id, outputDir string, total int) *run {
	return &run{
		id:        id,
		outputDir: outputDir,
		total:     total,
		status:    types.RunRunning,
		summary:   types.RunSummary{Total: total},
		notify:    make(chan struct{}),
	}
}

// wake releases every follower waiting on the current notify channel.
// Callers hold r.mu.
func (r *run) wake() {
	close(r.notify)
	r.notify = make(chan struct{})
}

func (r *run) add(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, viewOf(e))
	switch e.Kind {
	case types.EventProgress, types.EventFailed:
		r.percent = e.Percent
		r.summary = e.Summary
	case types.EventCompleted:
		r.summary = e.Summary
		r.status = types.RunCompleted
		if e.Cancelled {
			r.status = types.RunCancelled
		} else {
			r.percent = 100
		}
	case types.EventCancelled:
		r.summary = e.Summary
		r.status = types.RunCancelled
	case types.EventAborted:
		r.summary = e.Summary
		r.status = types.RunAborted
	}
	r.wake()
}

func (r *run) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.wake()
}

// since returns the events from index next on, a channel closed on the
// next change, and whether the run has ended.
func (r *run) since(next int) ([]eventView, <-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventView
	if next < len(r.events) {
		out = append(out, r.events[next:]...)
	}
	return out, r.notify, r.done
}

type runSnapshot struct {
	RunID     string           `json:"run_id"`
	State     string           `json:"state"`
	Status    types.RunStatus  `json:"status"`
	OutputDir string           `json:"output_dir"`
	Total     int              `json:"total"`
	Percent   int              `json:"percent"`
	Summary   types.RunSummary `json:"summary"`
}

func (r *run) snapshot(state batch.State) runSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return runSnapshot{
		RunID:     r.id,
		State:     state.String(),
		Status:    r.status,
		OutputDir: r.outputDir,
		Total:     r.total,
		Percent:   r.percent,
		Summary:   r.summary,
	}
}
