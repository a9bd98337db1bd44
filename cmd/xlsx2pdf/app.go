// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"github.com/pdiddy/xlsx2pdf/internal/batch"
	"github.com/pdiddy/xlsx2pdf/internal/convert"
	"github.com/pdiddy/xlsx2pdf/internal/engine"
	"github.com/pdiddy/xlsx2pdf/internal/history"
	"github.com/pdiddy/xlsx2pdf/internal/redact"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

// app is the started conversion stack shared by convert and serve.
type app struct {
	cfg      types.Config
	host     *engine.Host
	pdf      *redact.Pdfium
	pipeline *convert.Pipeline
	worker   *batch.Worker
	store    *history.Store // nil when history is disabled
}

// startApp starts the engine host and PDF runtime and wires the Pipeline
// and Worker. The caller must Close the app.
func startApp(ctx context.Context, cfg types.Config, withHistory bool) (*app, error) {
	a := &app{cfg: cfg}

	host, err := engine.Start(ctx, cfg.Engine, loadedSecrets)
	if err != nil {
		return nil, err
	}
	a.host = host
	logger.Info().Str("backend", host.Name()).Msg("conversion engine started")

	pdf, err := redact.NewPdfium()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pdf = pdf

	if withHistory && cfg.History.Dir != "" {
		store, err := history.NewStore(cfg.History)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
	}

	a.pipeline = convert.New(host, redact.New(pdf), cfg.Redaction)
	a.worker = batch.New(a.pipeline, batch.OptionsFrom(cfg.Batch))
	return a, nil
}

// Close releases everything startApp acquired.
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.pdf != nil {
		errs = append(errs, a.pdf.Close())
	}
	if a.host != nil {
		errs = append(errs, a.host.Close())
	}
	return errors.Join(errs...)
}
