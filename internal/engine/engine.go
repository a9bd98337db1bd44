// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine hosts the external Conversion Engine that renders xlsx
// workbooks to PDF. The engine is started once per process through Start,
// reused for every conversion, and released with Close. Renders are
// serialized because the underlying engines are not reentrant.
//
// Implements: docs/ARCHITECTURE § Conversion Engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pdiddy/xlsx2pdf/internal/secrets"
	"github.com/pdiddy/xlsx2pdf/internal/workbook"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

const (
	defaultSofficeBin    = "soffice"
	defaultImage         = "libreoffice:latest"
	defaultGotenbergURL  = "http://localhost:3000"
	defaultRenderTimeout = 2 * time.Minute
	defaultHTTPTimeout   = 3 * time.Minute
	defaultUserAgent     = "xlsx2pdf/0.1"
)

// ErrClosed is returned by a Host after Close.
var ErrClosed = errors.New("engine host closed")

// SaveOptions controls the PDF render.
type SaveOptions struct {
	// OnePagePerSheet fits each worksheet onto a single PDF page.
	OnePagePerSheet bool
}

// Renderer is one engine backend (soffice, container, gotenberg).
type Renderer interface {
	// Name identifies the backend in logs.
	Name() string

	// Check verifies the backend is usable. Start calls it once.
	Check(ctx context.Context) error

	// Render writes the PDF rendering of the workbook at src to dst.
	Render(ctx context.Context, src, dst string, opts SaveOptions) error

	// Close releases backend resources.
	Close() error
}

// Host is the started Conversion Engine shared by all conversions in the
// process.
type Host struct {
	renderer Renderer
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
}

// WithDefaults fills unset engine settings.
func WithDefaults(cfg types.EngineConfig) types.EngineConfig {
	if cfg.Backend == "" {
		cfg.Backend = types.BackendSoffice
	}
	if cfg.SofficeBin == "" {
		cfg.SofficeBin = defaultSofficeBin
	}
	if cfg.Image == "" {
		cfg.Image = defaultImage
	}
	if cfg.GotenbergURL == "" {
		cfg.GotenbergURL = defaultGotenbergURL
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = defaultRenderTimeout
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = defaultHTTPTimeout
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = defaultUserAgent
	}
	return cfg
}

// Start builds the configured backend, checks that it is usable, and returns
// the Host that owns it.
func Start(ctx context.Context, cfg types.EngineConfig, s secrets.Secrets) (*Host, error) {
	cfg = WithDefaults(cfg)

	var r Renderer
	switch cfg.Backend {
	case types.BackendSoffice:
		r = NewSofficeRenderer(cfg.SofficeBin)
	case types.BackendContainer:
		cr, err := NewContainerRenderer(cfg.Image, cfg.SofficeBin)
		if err != nil {
			return nil, err
		}
		r = cr
	case types.BackendGotenberg:
		r = NewGotenbergRenderer(cfg.GotenbergURL, cfg.HTTP, s.Get(secrets.GotenbergUsername), s.Get(secrets.GotenbergPassword))
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}

	return StartWith(ctx, r, cfg.RenderTimeout)
}

// StartWith wraps an already constructed Renderer. A zero timeout uses the
// default render timeout.
func StartWith(ctx context.Context, r Renderer, timeout time.Duration) (*Host, error) {
	if err := r.Check(ctx); err != nil {
		return nil, fmt.Errorf("starting %s engine: %w", r.Name(), err)
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &Host{renderer: r, timeout: timeout}, nil
}

// Name returns the backend name.
func (h *Host) Name() string {
	return h.renderer.Name()
}

// Open inspects the workbook at path and returns a handle for SaveAsPDF.
// Unreadable, corrupt, or unsupported workbooks fail here.
func (h *Host) Open(_ context.Context, path string) (*workbook.Workbook, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return workbook.Inspect(path)
}

// SaveAsPDF renders wb to pdfPath. Only one render runs at a time.
func (h *Host) SaveAsPDF(ctx context.Context, wb *workbook.Workbook, pdfPath string, opts SaveOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.renderer.Render(ctx, wb.Path, pdfPath, opts); err != nil {
		return fmt.Errorf("rendering %s with %s: %w", wb.Path, h.renderer.Name(), err)
	}

	info, err := os.Stat(pdfPath)
	if err != nil {
		return fmt.Errorf("%s produced no output for %s: %w", h.renderer.Name(), wb.Path, err)
	}
	if info.Size() == 0 {
		os.Remove(pdfPath)
		return fmt.Errorf("%s produced an empty PDF for %s", h.renderer.Name(), wb.Path)
	}
	return nil
}

// Close releases the backend. Later calls to Open and SaveAsPDF fail with
// ErrClosed; Close is idempotent.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.renderer.Close()
}
