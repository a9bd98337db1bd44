// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workbook inspects xlsx inputs before they are handed to the
// Conversion Engine. A workbook that fails inspection is reported as a
// failed item without invoking the engine.
//
// Implements: docs/ARCHITECTURE § Workbook Preflight.
package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
)

// Workbook is an inspected input, ready for rendering.
type Workbook struct {
	// Path is the workbook path as supplied by the caller.
	Path string

	// MIME is the sniffed content type.
	MIME string

	// Sheets lists sheet names in workbook order.
	Sheets []string
}

// HasExt reports whether path carries the workbook extension.
func HasExt(path string) bool {
	return strings.HasSuffix(path, types.WorkbookExt)
}

// Inspect checks the extension, sniffs the content type, and opens the
// workbook with excelize to collect its sheet list.
func Inspect(path string) (*Workbook, error) {
	if !HasExt(path) {
		return nil, fmt.Errorf("%s: %w", path, types.ErrUnsupportedInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading workbook %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, types.ErrNotWorkbook)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecting content type of %s: %w", path, err)
	}
	if !isZipFamily(mt) {
		return nil, fmt.Errorf("%s has content type %s: %w", filepath.Base(path), mt.String(), types.ErrNotWorkbook)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %v: %w", filepath.Base(path), err, types.ErrNotWorkbook)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets: %w", filepath.Base(path), types.ErrNotWorkbook)
	}

	return &Workbook{
		Path:   path,
		MIME:   mt.String(),
		Sheets: sheets,
	}, nil
}

// isZipFamily reports whether mt is xlsx or any zip container. Detection of
// OOXML inside a zip depends on entry order, so a plain zip is accepted and
// left for excelize to reject.
func isZipFamily(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mimeXLSX) || m.Is(mimeZip) {
			return true
		}
	}
	return false
}
