// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns one xlsx workbook into a watermark-free PDF.
//
// The Pipeline renders the workbook through the Conversion Engine to an
// intermediate PDF next to the input, then has the Redactor write the final
// PDF into the output directory. The intermediate never outlives a call.
//
// Implements: docs/ARCHITECTURE § Conversion Pipeline.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/xlsx2pdf/internal/engine"
	"github.com/pdiddy/xlsx2pdf/internal/redact"
	"github.com/pdiddy/xlsx2pdf/internal/workbook"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

// DefaultIntermediateSuffix replaces the input extension on the raw render.
const DefaultIntermediateSuffix = "_demo.pdf"

// Engine renders workbooks. *engine.Host implements it.
type Engine interface {
	Open(ctx context.Context, path string) (*workbook.Workbook, error)
	SaveAsPDF(ctx context.Context, wb *workbook.Workbook, pdfPath string, opts engine.SaveOptions) error
}

// Redactor strips the keyword from src into dst and deletes src.
// *redact.Redactor implements it.
type Redactor interface {
	Redact(src, dst, keyword string) (redact.Result, error)
}

// Pipeline converts single workbooks. It is safe for sequential use only;
// the batch Worker never runs two conversions at once.
type Pipeline struct {
	engine   Engine
	redactor Redactor
	keyword  string
	suffix   string
}

// New creates a Pipeline. Empty settings fall back to the default keyword
// and intermediate suffix.
func New(e Engine, r Redactor, cfg types.RedactionConfig) *Pipeline {
	p := &Pipeline{
		engine:   e,
		redactor: r,
		keyword:  cfg.Keyword,
		suffix:   cfg.IntermediateSuffix,
	}
	if p.keyword == "" {
		p.keyword = redact.DefaultKeyword
	}
	if p.suffix == "" {
		p.suffix = DefaultIntermediateSuffix
	}
	return p
}

// Keyword returns the watermark keyword the Pipeline removes.
func (p *Pipeline) Keyword() string { return p.keyword }

// stem returns the base name of path without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IntermediatePath returns <dir of input>/<stem><suffix>.
func IntermediatePath(input, suffix string) string {
	return filepath.Join(filepath.Dir(input), stem(input)+suffix)
}

// FinalPath returns <outputDir>/<stem>.pdf.
func FinalPath(input, outputDir string) string {
	return filepath.Join(outputDir, stem(input)+".pdf")
}

// Convert renders input to PDF, redacts the watermark, and returns the path
// of the final PDF in outputDir. outputDir must already exist. A page where
// the keyword matched but nothing was removed fails the conversion and no
// final PDF is left behind.
func (p *Pipeline) Convert(ctx context.Context, input, outputDir string) (string, error) {
	if !workbook.HasExt(input) {
		return "", fmt.Errorf("%s: %w", input, types.ErrUnsupportedInput)
	}

	wb, err := p.engine.Open(ctx, input)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", input, err)
	}

	intermediate := IntermediatePath(input, p.suffix)
	if err := p.engine.SaveAsPDF(ctx, wb, intermediate, engine.SaveOptions{OnePagePerSheet: true}); err != nil {
		os.Remove(intermediate)
		return "", fmt.Errorf("converting %s: %w", input, err)
	}

	final := FinalPath(input, outputDir)
	res, err := p.redactor.Redact(intermediate, final, p.keyword)
	if err != nil {
		os.Remove(intermediate)
		return "", fmt.Errorf("redacting %s: %w", input, err)
	}
	if res.PagesMissed > 0 {
		os.Remove(final)
		return "", fmt.Errorf("redacting %s: %d page(s): %w", input, res.PagesMissed, redact.ErrNotRemoved)
	}

	return final, nil
}
