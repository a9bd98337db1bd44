// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// ErrUnsupportedInput indicates an input path without the .xlsx extension.
var ErrUnsupportedInput = errors.New("unsupported input: expected .xlsx")

// ErrNotWorkbook indicates an input whose content is not an xlsx workbook.
var ErrNotWorkbook = errors.New("not an xlsx workbook")

// WorkbookExt is the only input extension accepted.
const WorkbookExt = ".xlsx"
