// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/xlsx2pdf/internal/batch"
	"github.com/pdiddy/xlsx2pdf/internal/history"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, input, outputDir string) (string, error) {
	return filepath.Join(outputDir, filepath.Base(input)+".pdf"), nil
}

func newTestApp(t *testing.T, outDir string) *app {
	t.Helper()
	store, err := history.NewStore(types.HistoryConfig{Dir: filepath.Join(t.TempDir(), "history")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := types.Config{Batch: types.BatchConfig{OutputDir: outDir}}
	return &app{
		cfg:    cfg,
		store:  store,
		worker: batch.New(stubConverter{}, batch.Options{ContinueOnError: true, CompleteOnCancel: true}),
	}
}

func TestConvertBatch_RecordsRun(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "pdf_output")
	a := newTestApp(t, outDir)
	ctx := context.Background()

	var out bytes.Buffer
	summary, err := convertBatch(ctx, a, []string{"a.xlsx", "b.xlsx"}, false, &out)
	require.NoError(t, err)
	assert.Equal(t, types.RunSummary{Total: 2, Converted: 2}, summary)
	assert.Contains(t, out.String(), "Conversion completed!")

	runs, err := a.store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunCompleted, runs[0].Status)
	assert.FileExists(t, filepath.Join(outDir, history.ReportFile))
}

func TestConvertBatch_StartFailureLeavesNoRun(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	a := newTestApp(t, filepath.Join(blocker, "pdf_output"))
	ctx := context.Background()

	_, err := convertBatch(ctx, a, []string{"a.xlsx"}, false, &bytes.Buffer{})
	require.Error(t, err)

	runs, err := a.store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
