// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/xlsx2pdf/internal/inputs"
	"github.com/pdiddy/xlsx2pdf/internal/redact"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert xlsx workbooks to watermark-free PDFs",
	Long: `Convert renders each workbook to PDF with one page per sheet, removes the
watermark keyword from every page, and writes <name>.pdf into the output
directory.

Each argument may be a workbook, a directory (its .xlsx files are converted,
not recursively), or several paths joined by the separator (default ", ").
Interrupting the command stops the batch after the workbook in progress.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

var convertFlagKeys = map[string]string{
	"output-dir":  keyOutputDir,
	"backend":     keyEngineBackend,
	"keyword":     keyKeyword,
	"separator":   keySeparator,
	"history-dir": keyHistoryDir,
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, convertFlagKeys); err != nil {
		return err
	}
	cfg := loadConfig(viper.GetViper())
	if stop, _ := cmd.Flags().GetBool("stop-on-error"); stop {
		cfg.Batch.ContinueOnError = false
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Dir = ""
	}
	verify, _ := cmd.Flags().GetBool("verify")

	paths, err := inputs.CollectAll(args, cfg.Batch.Separator)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .xlsx workbooks found in %v", args)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := convertBatch(ctx, a, paths, verify, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d workbook(s) failed conversion", summary.Failed)
	}
	return nil
}

// convertBatch runs one batch, printing each event to w. With verify set,
// finished PDFs are checked for leftover keyword text while the batch
// continues.
func convertBatch(ctx context.Context, a *app, paths []string, verify bool, w io.Writer) (types.RunSummary, error) {
	outDir := a.cfg.Batch.OutputDir

	events, err := a.worker.Start(ctx, paths, outDir)
	if err != nil {
		return types.RunSummary{}, err
	}

	// Events buffer in the channel until the consumer below starts.
	runID := beginRun(ctx, a, outDir, paths)

	outputs := make(chan string, len(paths))
	var summary types.RunSummary
	var residual int

	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(outputs)
		for e := range events {
			fmt.Fprintln(w, e.String())
			if runID != "" {
				if err := a.store.Record(context.WithoutCancel(ctx), runID, e); err != nil {
					logger.Warn().Err(err).Str("run_id", runID).Msg("recording event")
				}
			}
			if e.Kind == types.EventProgress && verify {
				outputs <- e.Output
			}
			if e.Terminal() {
				summary = e.Summary
			}
		}
		return nil
	})
	g.Go(func() error {
		for out := range outputs {
			n, err := redact.CountResidual(out, a.pipeline.Keyword())
			if err != nil {
				logger.Warn().Err(err).Str("pdf", out).Msg("verifying output")
				continue
			}
			if n > 0 {
				residual += n
				fmt.Fprintf(w, "residual: %s (%d occurrence(s))\n", out, n)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return summary, err
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		summary.Converted, summary.Failed, summary.Total)

	if runID != "" {
		path, err := a.store.WriteReport(context.WithoutCancel(ctx), runID, "")
		if err != nil {
			logger.Warn().Err(err).Msg("writing run report")
		} else {
			logger.Info().Str("run_id", runID).Str("report", path).Msg("run recorded")
		}
	}

	if residual > 0 {
		return summary, fmt.Errorf("%d watermark occurrence(s) remain after redaction", residual)
	}
	return summary, nil
}

// beginRun records a started run, or returns "" when history is off or
// the store fails.
func beginRun(ctx context.Context, a *app, outDir string, paths []string) string {
	if a.store == nil {
		return ""
	}
	id, err := a.store.BeginRun(context.WithoutCancel(ctx), outDir, paths)
	if err != nil {
		logger.Warn().Err(err).Msg("history disabled for this run")
		return ""
	}
	return id
}

func init() {
	convertCmd.Flags().StringP("output-dir", "o", "pdf_output", "directory for converted PDFs")
	convertCmd.Flags().String("backend", "soffice", "conversion engine: soffice, container, or gotenberg")
	convertCmd.Flags().String("keyword", redact.DefaultKeyword, "watermark text to remove (whitespace ignored)")
	convertCmd.Flags().String("separator", inputs.DefaultSeparator, "separator for joined path lists")
	convertCmd.Flags().String("history-dir", ".xlsx2pdf", "directory holding history.db")
	convertCmd.Flags().Bool("no-history", false, "do not record this run")
	convertCmd.Flags().Bool("stop-on-error", false, "abort the batch at the first failed workbook")
	convertCmd.Flags().Bool("verify", false, "check each finished PDF for leftover watermark text")

	rootCmd.AddCommand(convertCmd)
}
