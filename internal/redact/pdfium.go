// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !nopdfium

package redact

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/enums"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// instanceTimeout bounds the wait for the single PDFium instance.
const instanceTimeout = 30 * time.Second

// Pdfium opens documents with PDFium compiled to WebAssembly. The pool holds
// one instance; PDFium is not safe for concurrent use.
type Pdfium struct {
	mu   sync.Mutex
	pool pdfium.Pool
}

// NewPdfium starts the PDFium runtime. Callers must Close it.
func NewPdfium() (*Pdfium, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("init pdfium: %w", err)
	}
	return &Pdfium{pool: pool}, nil
}

// Close shuts the PDFium runtime down.
func (p *Pdfium) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return nil
	}
	err := p.pool.Close()
	p.pool = nil
	return err
}

// Open loads the PDF at path. The returned Document holds the PDFium
// instance until it is closed.
func (p *Pdfium) Open(path string) (Document, error) {
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()
	if pool == nil {
		return nil, fmt.Errorf("pdfium runtime is closed")
	}

	instance, err := pool.GetInstance(instanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("get pdfium instance: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{FilePath: &path})
	if err != nil {
		instance.Close()
		return nil, err
	}

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, fmt.Errorf("get page count: %w", err)
	}

	return &pdfiumDocument{
		instance: instance,
		doc:      doc.Document,
		pages:    count.PageCount,
	}, nil
}

type pdfiumDocument struct {
	instance pdfium.Pdfium
	doc      references.FPDF_DOCUMENT
	pages    int
	closed   bool
}

func (d *pdfiumDocument) PageCount() int { return d.pages }

func (d *pdfiumDocument) Page(index int) (Page, error) {
	resp, err := d.instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: d.doc,
		Index:    index,
	})
	if err != nil {
		return nil, err
	}
	return &pdfiumPage{instance: d.instance, page: resp.Page}, nil
}

func (d *pdfiumDocument) Save(path string) error {
	_, err := d.instance.FPDF_SaveAsCopy(&requests.FPDF_SaveAsCopy{
		Document: d.doc,
		FilePath: &path,
	})
	return err
}

func (d *pdfiumDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: d.doc})
	if cerr := d.instance.Close(); err == nil {
		err = cerr
	}
	return err
}

type pdfiumPage struct {
	instance pdfium.Pdfium
	page     references.FPDF_PAGE
	queued   []Rect
}

func (p *pdfiumPage) ref() requests.Page {
	return requests.Page{ByReference: &p.page}
}

// TextLayout groups PDFium text rects into lines by vertical position and
// returns them as a single block. Each rect becomes one span.
func (p *pdfiumPage) TextLayout() (*Layout, error) {
	structured, err := p.instance.GetPageTextStructured(&requests.GetPageTextStructured{
		Page: p.ref(),
		Mode: requests.GetPageTextStructuredModeRects,
	})
	if err != nil {
		return nil, err
	}
	if len(structured.Rects) == 0 {
		return &Layout{}, nil
	}

	var spans []Span
	for _, r := range structured.Rects {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		spans = append(spans, Span{
			Text: r.Text,
			BBox: Rect{
				Left:   r.PointPosition.Left,
				Bottom: r.PointPosition.Bottom,
				Right:  r.PointPosition.Right,
				Top:    r.PointPosition.Top,
			}.Normalize(),
		})
	}
	if len(spans) == 0 {
		return &Layout{}, nil
	}
	return &Layout{Blocks: []Block{{Lines: groupLines(spans)}}}, nil
}

// groupLines orders spans top to bottom, then left to right, and starts a
// new line when a span's top edge moves by more than half its height.
func groupLines(spans []Span) []Line {
	sort.SliceStable(spans, func(i, j int) bool {
		if math.Abs(spans[i].BBox.Top-spans[j].BBox.Top) > 0.5 {
			return spans[i].BBox.Top > spans[j].BBox.Top
		}
		return spans[i].BBox.Left < spans[j].BBox.Left
	})

	var lines []Line
	var top float64
	for _, s := range spans {
		height := s.BBox.Top - s.BBox.Bottom
		if len(lines) == 0 || math.Abs(s.BBox.Top-top) > height/2 {
			lines = append(lines, Line{})
			top = s.BBox.Top
		}
		last := &lines[len(lines)-1]
		last.Spans = append(last.Spans, s)
	}
	return lines
}

func (p *pdfiumPage) Redact(r Rect) {
	p.queued = append(p.queued, r.Normalize())
}

// ApplyRedactions removes every text object whose bounds are centred inside
// a queued rect and regenerates the page content stream.
func (p *pdfiumPage) ApplyRedactions() (int, error) {
	if len(p.queued) == 0 {
		return 0, nil
	}
	defer func() { p.queued = nil }()

	count, err := p.instance.FPDFPage_CountObjects(&requests.FPDFPage_CountObjects{Page: p.ref()})
	if err != nil {
		return 0, fmt.Errorf("count page objects: %w", err)
	}

	removed := 0
	// Walk backwards so removals do not shift unvisited indices.
	for i := count.Count - 1; i >= 0; i-- {
		obj, err := p.instance.FPDFPage_GetObject(&requests.FPDFPage_GetObject{Page: p.ref(), Index: i})
		if err != nil {
			return removed, fmt.Errorf("get page object %d: %w", i, err)
		}
		typ, err := p.instance.FPDFPageObj_GetType(&requests.FPDFPageObj_GetType{PageObject: obj.PageObject})
		if err != nil {
			return removed, fmt.Errorf("get object type %d: %w", i, err)
		}
		if typ.Type != enums.FPDF_PAGEOBJ_TEXT {
			continue
		}
		b, err := p.instance.FPDFPageObj_GetBounds(&requests.FPDFPageObj_GetBounds{PageObject: obj.PageObject})
		if err != nil {
			return removed, fmt.Errorf("get object bounds %d: %w", i, err)
		}
		bounds := Rect{
			Left:   float64(b.Left),
			Bottom: float64(b.Bottom),
			Right:  float64(b.Right),
			Top:    float64(b.Top),
		}
		if !coveredBy(bounds, p.queued) {
			continue
		}
		if _, err := p.instance.FPDFPage_RemoveObject(&requests.FPDFPage_RemoveObject{
			Page:       p.ref(),
			PageObject: obj.PageObject,
		}); err != nil {
			return removed, fmt.Errorf("remove object %d: %w", i, err)
		}
		p.instance.FPDFPageObj_Destroy(&requests.FPDFPageObj_Destroy{PageObject: obj.PageObject})
		removed++
	}

	if removed > 0 {
		if _, err := p.instance.FPDFPage_GenerateContent(&requests.FPDFPage_GenerateContent{Page: p.ref()}); err != nil {
			return removed, fmt.Errorf("regenerate page content: %w", err)
		}
	}
	return removed, nil
}

func (p *pdfiumPage) Close() error {
	_, err := p.instance.FPDF_ClosePage(&requests.FPDF_ClosePage{Page: p.page})
	return err
}
