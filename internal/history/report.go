// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ReportFile is the run report name written into the output directory.
const ReportFile = "xlsx2pdf-report.yaml"

// WriteReport writes the run and its items as YAML to path. An empty path
// writes ReportFile into the run's output directory. It returns the path
// written.
func (s *Store) WriteReport(ctx context.Context, runID, path string) (string, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(run.OutputDir, ReportFile)
	}

	data, err := yaml.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}
