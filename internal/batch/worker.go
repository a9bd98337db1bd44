// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives the conversion of a list of workbooks on a single
// background goroutine and reports progress as a stream of events.
//
// A Worker moves Idle -> Running -> (Cancelling) -> Idle. Cancellation is
// cooperative: it is observed at the top of each iteration, so the item in
// flight always finishes.
//
// Implements: docs/ARCHITECTURE § Worker.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

// ErrBusy is returned by Start while a run is active.
var ErrBusy = errors.New("a conversion run is already active")

// State is the Worker lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Cancelling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Converter converts one workbook into outputDir and returns the final path.
// *convert.Pipeline implements it.
type Converter interface {
	Convert(ctx context.Context, input, outputDir string) (string, error)
}

// Options controls failure and cancellation handling.
type Options struct {
	// ContinueOnError keeps going after a failed item.
	ContinueOnError bool
	// CompleteOnCancel ends a cancelled run with a completed event
	// (Cancelled set) rather than a cancelled event.
	CompleteOnCancel bool
}

// OptionsFrom maps batch settings onto Worker options.
func OptionsFrom(cfg types.BatchConfig) Options {
	return Options{
		ContinueOnError:  cfg.ContinueOnError,
		CompleteOnCancel: cfg.CompleteOnCancel,
	}
}

// Worker runs one batch at a time.
type Worker struct {
	conv Converter
	opts Options

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// New creates an idle Worker.
func New(conv Converter, opts Options) *Worker {
	return &Worker{conv: conv, opts: opts}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start creates outputDir and converts paths in order on a new goroutine.
// The returned channel carries one starting event and one progress or
// failed event per processed item, then exactly one terminal event, and is
// then closed. Cancelling ctx has the same effect as Cancel.
func (w *Worker) Start(ctx context.Context, paths []string, outputDir string) (<-chan types.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Idle {
		return nil, ErrBusy
	}

	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory %s: %w", outputDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", abs, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.state = Running
	w.cancel = cancel

	items := append([]string(nil), paths...)
	events := make(chan types.Event, 2*len(items)+1)
	go w.run(runCtx, items, abs, events)
	return events, nil
}

// Cancel asks the active run to stop before its next item. It reports
// whether a running batch was asked to stop.
func (w *Worker) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Running {
		return false
	}
	w.state = Cancelling
	w.cancel()
	return true
}

func (w *Worker) stopRequested(ctx context.Context) bool {
	return ctx.Err() != nil || w.State() == Cancelling
}

// finish returns the Worker to Idle. It runs before the terminal event is
// sent so a consumer that sees the terminal event can start a new run.
func (w *Worker) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.state = Idle
}

func (w *Worker) run(ctx context.Context, paths []string, outputDir string, events chan<- types.Event) {
	defer close(events)

	start := time.Now()
	total := len(paths)
	summary := types.RunSummary{Total: total}
	// In-flight conversions are never interrupted by cancellation.
	itemCtx := context.WithoutCancel(ctx)

	for i, path := range paths {
		if w.stopRequested(ctx) {
			w.finish()
			events <- w.cancelledEvent(time.Since(start), summary)
			return
		}

		events <- types.Event{Kind: types.EventStarting, Index: i, Total: total, Path: path}

		out, err := w.conv.Convert(itemCtx, path, outputDir)
		percent := types.Percent(i, total)
		if err != nil {
			summary.Failed++
			events <- types.Event{
				Kind:    types.EventFailed,
				Index:   i,
				Total:   total,
				Path:    path,
				Err:     err,
				Percent: percent,
				Summary: summary,
			}
			if !w.opts.ContinueOnError {
				w.finish()
				events <- types.Event{
					Kind:    types.EventAborted,
					Index:   i,
					Total:   total,
					Path:    path,
					Err:     err,
					Elapsed: time.Since(start),
					Summary: summary,
				}
				return
			}
			continue
		}

		if abs, err := filepath.Abs(out); err == nil {
			out = abs
		}
		summary.Converted++
		events <- types.Event{
			Kind:    types.EventProgress,
			Index:   i,
			Total:   total,
			Path:    path,
			Output:  out,
			Percent: percent,
			Summary: summary,
		}
	}

	w.finish()
	events <- types.Event{
		Kind:    types.EventCompleted,
		Total:   total,
		Percent: 100,
		Elapsed: time.Since(start),
		Summary: summary,
	}
}

func (w *Worker) cancelledEvent(elapsed time.Duration, summary types.RunSummary) types.Event {
	if w.opts.CompleteOnCancel {
		return types.Event{
			Kind:      types.EventCompleted,
			Total:     summary.Total,
			Elapsed:   elapsed,
			Summary:   summary,
			Cancelled: true,
		}
	}
	return types.Event{
		Kind:    types.EventCancelled,
		Total:   summary.Total,
		Elapsed: elapsed,
		Summary: summary,
	}
}
