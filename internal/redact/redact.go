// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package redact removes a watermark keyword from rendered PDFs.
//
// For every page the Redactor reads the text layout (blocks of lines of
// spans, each span with a bounding box), strips whitespace from each span's
// text, and redacts every span whose text contains the keyword. Redactions
// are applied immediately after each match so later spans are checked
// against the current page content.
//
// Implements: docs/ARCHITECTURE § Redactor.
package redact

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// DefaultKeyword is the evaluation watermark stamped by the commercial engine.
const DefaultKeyword = "CreatedwithAspose.CellsforPython"

// ErrEmptyKeyword is returned when Redact is called without a keyword.
var ErrEmptyKeyword = errors.New("redaction keyword is empty")

// ErrNotRemoved reports a page where the keyword matched but no content
// object lay under the matched spans.
var ErrNotRemoved = errors.New("watermark matched but no content was removed")

// Rect is a bounding box in PDF user space. Left <= Right; Bottom <= Top.
type Rect struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// Normalize returns r with its edges ordered.
func (r Rect) Normalize() Rect {
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Bottom > r.Top {
		r.Bottom, r.Top = r.Top, r.Bottom
	}
	return r
}

// ContainsPoint reports whether (x, y) lies inside r, edges included.
func (r Rect) ContainsPoint(x, y float64) bool {
	r = r.Normalize()
	return x >= r.Left && x <= r.Right && y >= r.Bottom && y <= r.Top
}

// Center returns the midpoint of r.
func (r Rect) Center() (x, y float64) {
	return (r.Left + r.Right) / 2, (r.Bottom + r.Top) / 2
}

// Span is the smallest text unit with its own bounding box.
type Span struct {
	Text string `json:"text"`
	BBox Rect   `json:"bbox"`
}

// Line is a run of spans on one baseline.
type Line struct {
	Spans []Span `json:"spans"`
}

// Block groups lines. Image blocks carry no lines.
type Block struct {
	Lines []Line `json:"lines"`
}

// Layout is the text layout of one page. A nil Blocks slice means the page
// has no text layer.
type Layout struct {
	Blocks []Block `json:"blocks"`
}

// Opener opens PDF documents for redaction.
type Opener interface {
	Open(path string) (Document, error)
}

// Document is an open PDF.
type Document interface {
	PageCount() int
	Page(index int) (Page, error)
	// Save writes the document, including applied redactions, to path.
	Save(path string) error
	Close() error
}

// Page is one page of an open Document.
type Page interface {
	// TextLayout extracts the page's current text layout.
	TextLayout() (*Layout, error)
	// Redact queues r for removal.
	Redact(r Rect)
	// ApplyRedactions removes content under every queued rect and clears
	// the queue. It returns the number of content objects removed.
	ApplyRedactions() (int, error)
	Close() error
}

// Result summarizes one Redact call. PagesMissed counts pages with matches
// where ApplyRedactions removed nothing; the keyword is still on them.
type Result struct {
	Pages        int
	PagesSkipped int
	PagesMissed  int
	Redactions   int
	Removed      int
}

// Redactor strips a keyword from PDFs opened through an Opener.
type Redactor struct {
	opener Opener
}

// New creates a Redactor backed by opener.
func New(opener Opener) *Redactor {
	return &Redactor{opener: opener}
}

// Normalize removes all whitespace from s.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Matches reports whether span text contains keyword once whitespace is
// removed. Matching is exact and case-sensitive.
func Matches(text, keyword string) bool {
	return keyword != "" && strings.Contains(Normalize(text), keyword)
}

// Redact removes every span containing keyword from src, saves the result to
// dst, and deletes src. Pages without a text layer are left as rendered.
// On error src is kept and dst is not written.
func (r *Redactor) Redact(src, dst, keyword string) (Result, error) {
	if keyword == "" {
		return Result{}, ErrEmptyKeyword
	}

	doc, err := r.opener.Open(src)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", src, err)
	}

	res, err := redactDocument(doc, keyword)
	if err != nil {
		doc.Close()
		return res, fmt.Errorf("redacting %s: %w", src, err)
	}

	if err := doc.Save(dst); err != nil {
		doc.Close()
		os.Remove(dst)
		return res, fmt.Errorf("saving %s: %w", dst, err)
	}
	if err := doc.Close(); err != nil {
		return res, fmt.Errorf("closing %s: %w", src, err)
	}

	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return res, fmt.Errorf("removing intermediate %s: %w", src, err)
	}
	return res, nil
}

func redactDocument(doc Document, keyword string) (Result, error) {
	var res Result
	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			return res, fmt.Errorf("loading page %d: %w", i+1, err)
		}
		n, removed, skipped, err := redactPage(page, keyword)
		page.Close()
		if err != nil {
			return res, fmt.Errorf("page %d: %w", i+1, err)
		}
		res.Pages++
		res.Redactions += n
		res.Removed += removed
		if skipped {
			res.PagesSkipped++
		}
		if n > 0 && removed == 0 {
			res.PagesMissed++
		}
	}
	return res, nil
}

// redactPage returns the number of matching spans and removed objects, and
// whether the page was skipped for lacking a text layout.
func redactPage(page Page, keyword string) (matches, removed int, skipped bool, err error) {
	layout, err := page.TextLayout()
	if err != nil {
		return 0, 0, false, fmt.Errorf("extracting text layout: %w", err)
	}
	if layout == nil || layout.Blocks == nil {
		return 0, 0, true, nil
	}

	for _, block := range layout.Blocks {
		for _, line := range block.Lines {
			for _, span := range line.Spans {
				if !Matches(span.Text, keyword) {
					continue
				}
				page.Redact(span.BBox)
				n, err := page.ApplyRedactions()
				if err != nil {
					return matches, removed, false, fmt.Errorf("applying redaction: %w", err)
				}
				matches++
				removed += n
			}
		}
	}
	return matches, removed, false, nil
}

// coveredBy reports whether the centre of obj lies inside any of rects.
func coveredBy(obj Rect, rects []Rect) bool {
	x, y := obj.Normalize().Center()
	for _, r := range rects {
		if r.ContainsPoint(x, y) {
			return true
		}
	}
	return false
}
