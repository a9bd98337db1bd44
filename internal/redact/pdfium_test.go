// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !nopdfium

package redact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupLines(t *testing.T) {
	at := func(text string, left, top float64) Span {
		return Span{Text: text, BBox: Rect{Left: left, Bottom: top - 10, Right: left + 40, Top: top}}
	}
	spans := []Span{
		at("B2", 50, 700),
		at("Footer", 0, 40),
		at("A1", 0, 700.5),
		at("A2", 0, 688),
	}

	lines := groupLines(spans)
	require.Len(t, lines, 3)

	text := func(l Line) []string {
		var out []string
		for _, s := range l.Spans {
			out = append(out, s.Text)
		}
		return out
	}
	assert.Equal(t, []string{"A1", "B2"}, text(lines[0]))
	assert.Equal(t, []string{"A2"}, text(lines[1]))
	assert.Equal(t, []string{"Footer"}, text(lines[2]))
}

func TestGroupLines_Empty(t *testing.T) {
	assert.Empty(t, groupLines(nil))
}

func newTestPdfium(t *testing.T) *Pdfium {
	t.Helper()
	p, err := NewPdfium()
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPdfium_TextLayout(t *testing.T) {
	p := newTestPdfium(t)
	doc, err := p.Open(writePDF(t, "Created with Aspose.Cells for Python", "Quarterly totals"))
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 1, doc.PageCount())

	page, err := doc.Page(0)
	require.NoError(t, err)
	defer page.Close()

	layout, err := page.TextLayout()
	require.NoError(t, err)
	require.Len(t, layout.Blocks, 1)
	lines := layout.Blocks[0].Lines
	require.Len(t, lines, 2)

	var texts []string
	for _, l := range lines {
		var joined string
		for _, s := range l.Spans {
			joined += s.Text
			assert.Greater(t, s.BBox.Right, s.BBox.Left)
			assert.Greater(t, s.BBox.Top, s.BBox.Bottom)
		}
		texts = append(texts, Normalize(joined))
	}
	assert.Equal(t, []string{DefaultKeyword, "Quarterlytotals"}, texts)
	assert.Greater(t, lines[0].Spans[0].BBox.Bottom, lines[1].Spans[0].BBox.Top)
}

func TestPdfium_Redact(t *testing.T) {
	r := New(newTestPdfium(t))
	src := writePDF(t, "Created with Aspose.Cells for Python", "Quarterly totals")
	dst := filepath.Join(t.TempDir(), "report.pdf")

	res, err := r.Redact(src, dst, DefaultKeyword)
	require.NoError(t, err)
	assert.Equal(t, Result{Pages: 1, Redactions: 1, Removed: 1}, res)
	assert.NoFileExists(t, src)

	n, err := CountResidual(dst, DefaultKeyword)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = CountResidual(dst, "Quarterlytotals")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A redacted PDF has nothing left to redact.
	again := filepath.Join(t.TempDir(), "report.pdf")
	res, err = r.Redact(dst, again, DefaultKeyword)
	require.NoError(t, err)
	assert.Zero(t, res.Redactions)
	assert.Zero(t, res.PagesMissed)

	n, err = CountResidual(again, "Quarterlytotals")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
