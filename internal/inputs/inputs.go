// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inputs turns a user selection into the ordered list of workbooks
// for a batch run.
//
// Implements: docs/ARCHITECTURE § Input Collection.
package inputs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/xlsx2pdf/internal/workbook"
)

// DefaultSeparator joins multiple selected paths into one string.
const DefaultSeparator = ", "

// Collect resolves selection into input paths:
//
//   - an existing file yields itself;
//   - an existing directory yields its .xlsx entries (not recursive) in
//     directory listing order;
//   - anything else is split on sep and blank parts are dropped.
//
// Paths from a split selection are not checked; the Pipeline rejects
// unsupported or missing inputs per item.
func Collect(selection, sep string) ([]string, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" {
		return nil, nil
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	info, err := os.Stat(selection)
	if err == nil {
		if !info.IsDir() {
			return []string{selection}, nil
		}
		return listDir(selection)
	}

	var paths []string
	for _, p := range strings.Split(selection, sep) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// CollectAll applies Collect to each argument and concatenates the results.
func CollectAll(args []string, sep string) ([]string, error) {
	var paths []string
	for _, a := range args {
		got, err := Collect(a, sep)
		if err != nil {
			return nil, err
		}
		paths = append(paths, got...)
	}
	return paths, nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !workbook.HasExt(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
