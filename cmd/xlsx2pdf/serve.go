// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/xlsx2pdf/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run conversions over HTTP",
	Long: `Serve starts the conversion engine once and exposes a small HTTP API:

  POST /runs                  start a batch ({"paths": [...]} or {"selection": "..."})
  GET  /runs/current          state and progress of the latest batch
  GET  /runs/current/events   follow its events as newline-delimited JSON
  POST /runs/current/cancel   stop after the workbook in progress
  GET  /runs, /runs/{id}      recorded runs

Only one batch runs at a time; starting another returns 409.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"addr":        keyServerAddr,
		"output-dir":  keyOutputDir,
		"backend":     keyEngineBackend,
		"history-dir": keyHistoryDir,
	}); err != nil {
		return err
	}
	cfg := loadConfig(viper.GetViper())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var store server.History
	if a.store != nil {
		store = a.store
	}
	srv := server.New(a.worker, store, cfg.Batch, cfg.Server, logger)
	return srv.ListenAndServe(ctx)
}

func init() {
	serveCmd.Flags().String("addr", ":8081", "listen address")
	serveCmd.Flags().StringP("output-dir", "o", "pdf_output", "default directory for converted PDFs")
	serveCmd.Flags().String("backend", "soffice", "conversion engine: soffice, container, or gotenberg")
	serveCmd.Flags().String("history-dir", ".xlsx2pdf", "directory holding history.db")

	rootCmd.AddCommand(serveCmd)
}
