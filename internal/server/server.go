// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the batch Worker over HTTP. One run is active at a
// time; its events can be followed as newline-delimited JSON and it can be
// cancelled between items. Past runs are served from the history store.
//
// Implements: docs/ARCHITECTURE § HTTP Shell.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/xlsx2pdf/internal/batch"
	"github.com/pdiddy/xlsx2pdf/internal/history"
	"github.com/pdiddy/xlsx2pdf/internal/inputs"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

const defaultShutdownTimeout = 10 * time.Second

// Worker runs batches. *batch.Worker implements it.
type Worker interface {
	Start(ctx context.Context, paths []string, outputDir string) (<-chan types.Event, error)
	Cancel() bool
	State() batch.State
}

// History persists runs. *history.Store implements it.
type History interface {
	BeginRun(ctx context.Context, outputDir string, paths []string) (string, error)
	Record(ctx context.Context, runID string, e types.Event) error
	ListRuns(ctx context.Context, limit int) ([]types.Run, error)
	Run(ctx context.Context, runID string) (*types.Run, error)
	WriteReport(ctx context.Context, runID, path string) (string, error)
}

// Server is the HTTP shell around one Worker.
type Server struct {
	worker   Worker
	store    History
	batchCfg types.BatchConfig
	cfg      types.ServerConfig
	log      zerolog.Logger
	router   chi.Router

	// runCtx outlives requests; runs started over HTTP use it.
	runCtx context.Context

	mu      sync.Mutex
	current *run
}

// New builds a Server. store may be nil when history is disabled.
func New(worker Worker, store History, batchCfg types.BatchConfig, cfg types.ServerConfig, log zerolog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		worker:   worker,
		store:    store,
		batchCfg: batchCfg,
		cfg:      cfg,
		log:      log,
		runCtx:   context.Background(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/", s.handleList)
		r.Get("/current", s.handleCurrent)
		r.Get("/current/events", s.handleEvents)
		r.Post("/current/cancel", s.handleCancel)
		r.Get("/{id}", s.handleRun)
	})
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then cancels
// any active run and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.runCtx = ctx
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http shell listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.worker.Cancel()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		s.log.Info().Msg("http shell shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type startRequest struct {
	Paths     []string `json:"paths"`
	Selection string   `json:"selection"`
	OutputDir string   `json:"output_dir"`
}

type startResponse struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	OutputDir string `json:"output_dir"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "xlsx2pdf",
		"state":   s.worker.State().String(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	args := append([]string(nil), req.Paths...)
	if req.Selection != "" {
		args = append(args, req.Selection)
	}
	paths, err := inputs.CollectAll(args, s.batchCfg.Separator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(paths) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no input paths"))
		return
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = s.batchCfg.OutputDir
	}

	if s.worker.State() != batch.Idle {
		writeError(w, http.StatusConflict, batch.ErrBusy)
		return
	}

	events, err := s.worker.Start(s.runCtx, paths, outDir)
	if errors.Is(err, batch.ErrBusy) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	id := uuid.NewString()
	if s.store != nil {
		if id, err = s.store.BeginRun(r.Context(), outDir, paths); err != nil {
			s.log.Error().Err(err).Msg("recording run start")
			id = uuid.NewString()
		}
	}

	cur := newRun(id, outDir, len(paths))
	s.mu.Lock()
	s.current = cur
	s.mu.Unlock()

	go s.consume(cur, events)

	s.log.Info().Str("run_id", id).Int("total", len(paths)).Str("output_dir", outDir).Msg("run started")
	writeJSON(w, http.StatusAccepted, startResponse{RunID: id, Total: len(paths), OutputDir: outDir})
}

// consume drains the Worker's events into the current run and history.
func (s *Server) consume(cur *run, events <-chan types.Event) {
	ctx := context.WithoutCancel(s.runCtx)
	for e := range events {
		if s.store != nil {
			if err := s.store.Record(ctx, cur.id, e); err != nil {
				s.log.Error().Err(err).Str("run_id", cur.id).Msg("recording event")
			}
		}
		cur.add(e)
		s.log.Debug().Str("run_id", cur.id).Str("kind", string(e.Kind)).Msg(e.String())

		if e.Terminal() && s.store != nil {
			if _, err := s.store.WriteReport(ctx, cur.id, ""); err != nil {
				s.log.Warn().Err(err).Str("run_id", cur.id).Msg("writing run report")
			}
		}
	}
	cur.finish()
	s.log.Info().Str("run_id", cur.id).Msg("run finished")
}

func (s *Server) currentRun() *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	cur := s.currentRun()
	if cur == nil {
		writeError(w, http.StatusNotFound, errors.New("no run has been started"))
		return
	}
	writeJSON(w, http.StatusOK, cur.snapshot(s.worker.State()))
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.worker.Cancel() {
		writeError(w, http.StatusConflict, errors.New("no active run"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"cancelling": true})
}

// handleEvents replays the current run's events as NDJSON and follows new
// ones until the run ends or the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	cur := s.currentRun()
	if cur == nil {
		writeError(w, http.StatusNotFound, errors.New("no run has been started"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	next := 0
	for {
		pending, notify, done := cur.since(next)
		for _, e := range pending {
			if err := enc.Encode(e); err != nil {
				return
			}
		}
		next += len(pending)
		if flusher != nil {
			flusher.Flush()
		}
		if done && len(pending) == 0 {
			return
		}
		if done {
			continue
		}
		select {
		case <-notify:
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []types.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.store.Run(r.Context(), id)
	if errors.Is(err, history.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
