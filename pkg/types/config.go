// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EngineBackend identifies the Conversion Engine implementation.
type EngineBackend string

const (
	BackendSoffice   EngineBackend = "soffice"
	BackendContainer EngineBackend = "container"
	BackendGotenberg EngineBackend = "gotenberg"
)

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "xlsx2pdf/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EngineConfig holds settings for the Conversion Engine host.
type EngineConfig struct {
	// Backend selects the engine: soffice, container, or gotenberg.
	Backend EngineBackend `json:"backend" yaml:"backend"`

	// SofficeBin is the LibreOffice binary used by the soffice backend
	// and inside the container image (default "soffice").
	SofficeBin string `json:"soffice_bin" yaml:"soffice_bin"`

	// Image is the container image for the container backend
	// (default "libreoffice:latest").
	Image string `json:"image" yaml:"image"`

	// GotenbergURL is the base URL of the Gotenberg service.
	GotenbergURL string `json:"gotenberg_url" yaml:"gotenberg_url"`

	// RenderTimeout bounds a single workbook render (default 2m).
	RenderTimeout time.Duration `json:"render_timeout" yaml:"render_timeout"`

	HTTP HTTPConfig `json:"http" yaml:"http"`
}

// RedactionConfig holds settings for the watermark Redactor.
type RedactionConfig struct {
	// Keyword is matched against whitespace-stripped span text.
	Keyword string `json:"keyword" yaml:"keyword"`

	// IntermediateSuffix replaces the input extension for the engine's raw render.
	IntermediateSuffix string `json:"intermediate_suffix" yaml:"intermediate_suffix"`
}

// BatchConfig holds settings for the batch Worker.
type BatchConfig struct {
	// OutputDir is the directory receiving final PDFs (default "pdf_output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// ContinueOnError keeps the batch running after a failed item. When false
	// the first failure aborts the run.
	ContinueOnError bool `json:"continue_on_error" yaml:"continue_on_error"`

	// CompleteOnCancel emits the completion summary for cancelled runs instead
	// of a dedicated cancellation event.
	CompleteOnCancel bool `json:"complete_on_cancel" yaml:"complete_on_cancel"`

	// Separator splits a multi-path selection string (default ", ").
	Separator string `json:"separator" yaml:"separator"`
}

// HistoryConfig holds settings for the run history store.
type HistoryConfig struct {
	// Dir contains history.db. Empty disables history.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default number of runs listed (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServerConfig holds settings for the HTTP shell.
type ServerConfig struct {
	// Addr is the listen address (default ":8081").
	Addr string `json:"addr" yaml:"addr"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Config groups all settings for xlsx2pdf.
type Config struct {
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Redaction RedactionConfig `json:"redaction" yaml:"redaction"`
	Batch     BatchConfig     `json:"batch" yaml:"batch"`
	History   HistoryConfig   `json:"history" yaml:"history"`
	Server    ServerConfig    `json:"server" yaml:"server"`
}
