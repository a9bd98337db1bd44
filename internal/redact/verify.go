// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package redact

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// CountResidual returns how many times keyword still appears in the text of
// the PDF at path, after whitespace is removed from each page's text.
// A result of zero means the redaction left no trace in the text layer.
func CountResidual(path, keyword string) (n int, err error) {
	if keyword == "" {
		return 0, ErrEmptyKeyword
	}

	// The reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return n, fmt.Errorf("reading page %d of %s: %w", i, path, err)
		}
		n += strings.Count(Normalize(text), keyword)
	}
	return n, nil
}
