// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.HistoryConfig{Dir: filepath.Join(t.TempDir(), "history")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing timestamps.
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func recordAll(t *testing.T, s *Store, runID string, events ...types.Event) {
	t.Helper()
	for _, e := range events {
		if err := s.Record(context.Background(), runID, e); err != nil {
			t.Fatalf("Record(%s): %v", e.Kind, err)
		}
	}
}

// --- tests ---

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "history")
	s, err := NewStore(types.HistoryConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, dbFile)); err != nil {
		t.Errorf("history.db not created: %v", err)
	}
	if s.maxResults != defaultMaxResults {
		t.Errorf("maxResults = %d, want %d", s.maxResults, defaultMaxResults)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	paths := []string{"/data/a.xlsx", "/data/b.xlsx", "/data/c.xlsx"}
	id, err := s.BeginRun(ctx, "/out", paths)
	if err != nil {
		t.Fatal(err)
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != types.RunRunning {
		t.Errorf("status = %s, want running", run.Status)
	}
	for _, it := range run.Items {
		if it.Status != types.ItemPending {
			t.Errorf("item %d status = %s, want pending", it.Index, it.Status)
		}
	}

	summary := types.RunSummary{Total: 3, Converted: 2, Failed: 1}
	recordAll(t, s, id,
		types.Event{Kind: types.EventStarting, Index: 0, Path: paths[0]},
		types.Event{Kind: types.EventProgress, Index: 0, Path: paths[0], Output: "/out/a.pdf"},
		types.Event{Kind: types.EventFailed, Index: 1, Path: paths[1], Err: types.ErrNotWorkbook},
		types.Event{Kind: types.EventProgress, Index: 2, Path: paths[2], Output: "/out/c.pdf"},
		types.Event{Kind: types.EventCompleted, Elapsed: 1500 * time.Millisecond, Summary: summary},
	)

	run, err = s.Run(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != types.RunCompleted {
		t.Errorf("status = %s, want completed", run.Status)
	}
	if run.Summary != summary {
		t.Errorf("summary = %+v, want %+v", run.Summary, summary)
	}
	if run.Elapsed != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", run.Elapsed)
	}
	if !run.FinishedAt.After(run.StartedAt) {
		t.Errorf("finished_at %v not after started_at %v", run.FinishedAt, run.StartedAt)
	}

	want := []types.ItemResult{
		{Index: 0, InputPath: paths[0], OutputPath: "/out/a.pdf", Status: types.ItemConverted},
		{Index: 1, InputPath: paths[1], Status: types.ItemFailed, Error: types.ErrNotWorkbook.Error()},
		{Index: 2, InputPath: paths[2], OutputPath: "/out/c.pdf", Status: types.ItemConverted},
	}
	if len(run.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(run.Items), len(want))
	}
	for i := range want {
		if run.Items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, run.Items[i], want[i])
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		event types.Event
		want  types.RunStatus
	}{
		{types.Event{Kind: types.EventCompleted}, types.RunCompleted},
		{types.Event{Kind: types.EventCompleted, Cancelled: true}, types.RunCancelled},
		{types.Event{Kind: types.EventCancelled}, types.RunCancelled},
		{types.Event{Kind: types.EventAborted}, types.RunAborted},
		{types.Event{Kind: types.EventProgress}, types.RunRunning},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.event); got != tt.want {
			t.Errorf("StatusFor(%s, cancelled=%v) = %s, want %s", tt.event.Kind, tt.event.Cancelled, got, tt.want)
		}
	}
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.BeginRun(ctx, "/out", []string{"/data/a.xlsx"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("runs not newest first: got %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].Items != nil {
		t.Errorf("ListRuns should not load items")
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs with default limit, want 3", len(all))
	}
}

func TestUnknownRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Run(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Run: got %v, want ErrRunNotFound", err)
	}
	err := s.FinishRun(ctx, "missing", types.RunCompleted, 0, types.RunSummary{})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun: got %v, want ErrRunNotFound", err)
	}
	err = s.Record(ctx, "missing", types.Event{Kind: types.EventProgress, Index: 0})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Record: got %v, want ErrRunNotFound", err)
	}
}

func TestWriteReport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	outDir := t.TempDir()

	id, err := s.BeginRun(ctx, outDir, []string{"/data/a.xlsx"})
	if err != nil {
		t.Fatal(err)
	}
	recordAll(t, s, id,
		types.Event{Kind: types.EventProgress, Index: 0, Output: filepath.Join(outDir, "a.pdf")},
		types.Event{Kind: types.EventCompleted, Summary: types.RunSummary{Total: 1, Converted: 1}},
	)

	path, err := s.WriteReport(ctx, id, "")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(outDir, ReportFile) {
		t.Errorf("report path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		ID      string             `yaml:"id"`
		Status  types.RunStatus    `yaml:"status"`
		Summary types.RunSummary   `yaml:"summary"`
		Items   []types.ItemResult `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if got.ID != id || got.Status != types.RunCompleted {
		t.Errorf("report = %+v", got)
	}
	if got.Summary.Converted != 1 || len(got.Items) != 1 || got.Items[0].Status != types.ItemConverted {
		t.Errorf("report summary/items = %+v / %+v", got.Summary, got.Items)
	}

	if _, err := s.WriteReport(ctx, "missing", ""); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("WriteReport(missing): got %v, want ErrRunNotFound", err)
	}
}
