// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build nopdfium

package redact

import "errors"

// ErrNoPdfium is returned when the binary is built with the nopdfium tag.
var ErrNoPdfium = errors.New("redaction requires pdfium; rebuild without the nopdfium tag")

// Pdfium is unavailable in nopdfium builds.
type Pdfium struct{}

// NewPdfium always fails in nopdfium builds.
func NewPdfium() (*Pdfium, error) { return nil, ErrNoPdfium }

func (p *Pdfium) Close() error { return nil }

func (p *Pdfium) Open(string) (Document, error) { return nil, ErrNoPdfium }
