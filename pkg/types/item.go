// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data shared across xlsx2pdf: configuration,
// per-item and per-run results, and Worker events.
// Implements: docs/ARCHITECTURE § Data Model.
package types

import "time"

// ItemStatus indicates the outcome of converting one input workbook.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemConverted ItemStatus = "converted"
	ItemFailed    ItemStatus = "failed"
)

// ItemResult holds the outcome of one input path within a run.
type ItemResult struct {
	// Index is the 0-based position of the input in the run.
	Index int `json:"index" yaml:"index"`

	// InputPath is the workbook path as supplied by the caller.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputPath is the absolute path of the final PDF, empty on failure.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	Status ItemStatus `json:"status" yaml:"status"`

	// Error is the failure message for failed items.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunStatus indicates how a run ended.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunAborted   RunStatus = "aborted"
)

// RunSummary holds counts for a batch run.
type RunSummary struct {
	Total     int `json:"total" yaml:"total"`
	Converted int `json:"converted" yaml:"converted"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Processed returns the number of items that reached an outcome.
func (s RunSummary) Processed() int {
	return s.Converted + s.Failed
}

// HasFailures reports whether any item failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Run is a persisted batch run with its items.
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	OutputDir  string        `json:"output_dir" yaml:"output_dir"`
	Status     RunStatus     `json:"status" yaml:"status"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Summary    RunSummary    `json:"summary" yaml:"summary"`
	Items      []ItemResult  `json:"items,omitempty" yaml:"items,omitempty"`
}
